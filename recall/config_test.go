package recall_test

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"recallgo/recall"
)

func TestDefaultConfig(t *testing.T) {
	cfg := recall.DefaultConfig()

	if cfg.Embedder != "tfidf" {
		t.Fatalf("embedder: got %q", cfg.Embedder)
	}
	if cfg.Capacity != 1000 {
		t.Fatalf("capacity: got %d", cfg.Capacity)
	}
	if cfg.TopK != 10 {
		t.Fatalf("topK: got %d", cfg.TopK)
	}
	if cfg.MinScore != 0 {
		t.Fatalf("minScore: got %v", cfg.MinScore)
	}
	if cfg.MaxOverlap != 0.8 {
		t.Fatalf("maxOverlap: got %v", cfg.MaxOverlap)
	}
	if !cfg.EnableOverlapFilter {
		t.Fatalf("overlap filter should default on")
	}
	if cfg.MaxContextChars != 4000 {
		t.Fatalf("maxContextChars: got %d", cfg.MaxContextChars)
	}
	if cfg.LocalWindowChars != 1000 {
		t.Fatalf("localWindowChars: got %d", cfg.LocalWindowChars)
	}
}

func TestLoadConfig_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := recall.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(cfg, recall.DefaultConfig()) {
		t.Fatalf("expected defaults, got %#v", cfg)
	}
}

func TestLoadConfig_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recall.yaml")
	data := "top_k: 5\nmax_overlap: 0.5\nenable_overlap_filter: false\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := recall.LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.TopK != 5 || cfg.MaxOverlap != 0.5 || cfg.EnableOverlapFilter {
		t.Fatalf("overrides not applied: %#v", cfg)
	}
	if cfg.Capacity != 1000 || cfg.Embedder != "tfidf" {
		t.Fatalf("unset keys should keep defaults: %#v", cfg)
	}
}

func TestLoadConfig_OutOfRangeValuesFallBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recall.yaml")
	data := "capacity: -3\nmax_overlap: 1.5\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := recall.LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Capacity != 1000 {
		t.Fatalf("capacity: got %d, want default", cfg.Capacity)
	}
	if cfg.MaxOverlap != 0.8 {
		t.Fatalf("maxOverlap: got %v, want default", cfg.MaxOverlap)
	}
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recall.yaml")
	if err := os.WriteFile(path, []byte("top_k: [unclosed\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := recall.LoadConfig(path); err == nil {
		t.Fatalf("expected a parse error")
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "recall.yaml")
	want := recall.Config{
		Embedder:            "hash",
		Capacity:            50,
		TopK:                3,
		MinScore:            0.2,
		MaxOverlap:          0.6,
		EnableOverlapFilter: false,
		MaxContextChars:     2000,
		LocalWindowChars:    500,
	}

	if err := recall.SaveConfig(path, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := recall.LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("round trip mismatch:\ngot  %#v\nwant %#v", got, want)
	}
}
