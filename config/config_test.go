package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown backend", func(c *Config) { c.Storage.Backend = "redis" }},
		{"inverted chunk bounds", func(c *Config) { c.Chunker.MinChunkWords = 300 }},
		{"break threshold out of range", func(c *Config) { c.Chunker.BreakThreshold = 1.5 }},
		{"zero word ratio", func(c *Config) { c.Selector.WordRatio = 0 }},
		{"zero token budget", func(c *Config) { c.Selector.ContextTokenBudget = 0 }},
		{"drop threshold out of range", func(c *Config) { c.Normalizer.MissingDropThreshold = 0 }},
		{"inverted pitch range", func(c *Config) { c.Prosody.PitchMaxHz = 10 }},
		{"weights off balance", func(c *Config) { c.Salience.TextImportance = 0.9 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("validation passed, want failure")
			}
		})
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Chunker.MinChunkWords != 80 {
		t.Errorf("min chunk words = %d, want default 80", cfg.Chunker.MinChunkWords)
	}
}

func TestLoadOverridesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := []byte("chunker:\n  min_chunk_words: 40\nserver:\n  port: 9999\n")
	if err := os.WriteFile(path, body, 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Chunker.MinChunkWords != 40 {
		t.Errorf("min chunk words = %d, want 40", cfg.Chunker.MinChunkWords)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("port = %d, want 9999", cfg.Server.Port)
	}
	// Untouched sections keep their defaults.
	if cfg.Chunker.MaxChunkWords != 250 {
		t.Errorf("max chunk words = %d, want default 250", cfg.Chunker.MaxChunkWords)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("STORE", "pgvector")
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.OpenAI.APIKey != "test-key" {
		t.Errorf("api key = %q", cfg.OpenAI.APIKey)
	}
	if cfg.Storage.Backend != "pgvector" {
		t.Errorf("backend = %q", cfg.Storage.Backend)
	}
	if !cfg.HasValidAPI() {
		t.Error("HasValidAPI false with key and default base URL set")
	}
}

func TestMaxRepresentatives(t *testing.T) {
	cfg := Default()
	cfg.Selector.ContextTokenBudget = 6000
	cfg.Selector.TokensPerChunk = 340
	if got := cfg.MaxRepresentatives(); got != 17 {
		t.Errorf("max representatives = %d, want 17", got)
	}

	// Ceiling never undercuts the floor.
	cfg.Selector.ContextTokenBudget = 100
	if got := cfg.MaxRepresentatives(); got != cfg.Selector.MinRepresentatives {
		t.Errorf("max representatives = %d, want %d", got, cfg.Selector.MinRepresentatives)
	}
}
