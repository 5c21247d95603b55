package recall

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds the engine and assembler tunables. Every field has a
// default; zero or out-of-range numeric values are replaced when the
// config is applied.
type Config struct {
	// Embedder selects the provider built when none is supplied
	// explicitly: "tfidf" or "hash".
	Embedder string `yaml:"embedder"`

	// Capacity bounds the store; above it the least recently accessed
	// item is evicted.
	Capacity int `yaml:"capacity"`

	TopK                int     `yaml:"top_k"`
	MinScore            float64 `yaml:"min_score"`
	MaxOverlap          float64 `yaml:"max_overlap"`
	EnableOverlapFilter bool    `yaml:"enable_overlap_filter"`

	MaxContextChars  int `yaml:"max_context_chars"`
	LocalWindowChars int `yaml:"local_window_chars"`
}

func DefaultConfig() Config {
	return Config{
		Embedder:            "tfidf",
		Capacity:            1000,
		TopK:                10,
		MinScore:            0,
		MaxOverlap:          0.8,
		EnableOverlapFilter: true,
		MaxContextChars:     4000,
		LocalWindowChars:    1000,
	}
}

// LoadConfig reads a YAML config file. A missing file is not an error
// and yields the defaults; keys absent from the file keep theirs.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

// SaveConfig writes cfg as YAML, creating parent directories as needed.
func SaveConfig(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.Embedder == "" {
		c.Embedder = def.Embedder
	}
	if c.Capacity <= 0 {
		c.Capacity = def.Capacity
	}
	if c.TopK <= 0 {
		c.TopK = def.TopK
	}
	if c.MinScore < 0 {
		c.MinScore = 0
	}
	if c.MaxOverlap <= 0 || c.MaxOverlap > 1 {
		c.MaxOverlap = def.MaxOverlap
	}
	if c.MaxContextChars <= 0 {
		c.MaxContextChars = def.MaxContextChars
	}
	if c.LocalWindowChars <= 0 {
		c.LocalWindowChars = def.LocalWindowChars
	}
}
