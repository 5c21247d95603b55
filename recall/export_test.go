package recall_test

import (
	"bytes"
	"strings"
	"testing"

	"recallgo/recall"
)

func TestExportImport_RoundTrip(t *testing.T) {
	src := newFixtureEngine(t)
	if err := src.InsertWithID("tagged", "a note with metadata attached", recall.Meta{
		Source: "test",
		Tags:   []string{"keep", "roundtrip"},
		Extra:  map[string]string{"lang": "en"},
	}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	src.Train()

	var buf bytes.Buffer
	if err := src.Export(&buf); err != nil {
		t.Fatalf("export: %v", err)
	}

	dst := recall.New()
	if err := dst.Import(&buf); err != nil {
		t.Fatalf("import: %v", err)
	}

	if dst.Len() != src.Len() {
		t.Fatalf("len: got %d, want %d", dst.Len(), src.Len())
	}
	it, ok := dst.Get("tagged")
	if !ok {
		t.Fatalf("imported item missing")
	}
	if it.Text != "a note with metadata attached" {
		t.Fatalf("text: got %q", it.Text)
	}
	if it.Meta.Source != "test" || len(it.Meta.Tags) != 2 || it.Meta.Extra["lang"] != "en" {
		t.Fatalf("meta not preserved: %#v", it.Meta)
	}

	results := dst.Search("machine learning AI", recall.TopK(1))
	if len(results) != 1 || results[0].ID != "ml" {
		t.Fatalf("search on imported store: got %#v", results)
	}
}

func TestImport_FillsMissingIDs(t *testing.T) {
	eng := recall.New()
	raw := `{"items": [{"text": "an item without an id"}]}`
	if err := eng.Import(strings.NewReader(raw)); err != nil {
		t.Fatalf("import: %v", err)
	}

	items := eng.List()
	if len(items) != 1 {
		t.Fatalf("len: got %d, want 1", len(items))
	}
	if items[0].ID == "" {
		t.Fatalf("expected a generated id")
	}
	if items[0].DateCreated == 0 {
		t.Fatalf("expected a creation timestamp")
	}
}

func TestImport_OverCapacityKeepsMostRecentlyAccessed(t *testing.T) {
	eng := recall.New(recall.WithCapacity(2))
	raw := `{"items": [
		{"id": "a", "text": "oldest item text", "last_access": 100},
		{"id": "b", "text": "newest item text", "last_access": 300},
		{"id": "c", "text": "middle item text", "last_access": 200}
	]}`
	if err := eng.Import(strings.NewReader(raw)); err != nil {
		t.Fatalf("import: %v", err)
	}

	if eng.Len() != 2 {
		t.Fatalf("len: got %d, want 2", eng.Len())
	}
	seen := make(map[string]bool)
	for _, it := range eng.List() {
		seen[it.ID] = true
	}
	if seen["a"] || !seen["b"] || !seen["c"] {
		t.Fatalf("expected b and c to survive, got %v", seen)
	}
}

func TestImport_MalformedSnapshot(t *testing.T) {
	eng := recall.New()
	if err := eng.Import(strings.NewReader("{not json")); err == nil {
		t.Fatalf("expected a decode error")
	}
}
