package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kotae.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
llm:
  model: "llama3"
  timeout: 30s
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.LLM.Model != "llama3" {
		t.Errorf("llm model = %s, want llama3", cfg.LLM.Model)
	}
	if cfg.LLM.Timeout != 30*time.Second {
		t.Errorf("llm timeout = %v, want 30s", cfg.LLM.Timeout)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
	if cfg.Addr() != "127.0.0.1:9000" {
		t.Errorf("addr = %s", cfg.Addr())
	}
}

func TestLoad_debugTrue(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kotae.yaml")
	if err := os.WriteFile(path, []byte("debug: true\n"), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("debug should be true when set in config")
	}
}

func TestLoad_pathsRelativeToConfigDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kotae.yaml")
	content := `
data:
  directory: "./docs"
index:
  directory: "store"
log:
  file: "logs/kotae.log"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "docs"); cfg.Data.Directory != want {
		t.Errorf("data directory = %s, want %s", cfg.Data.Directory, want)
	}
	if want := filepath.Join(dir, "store"); cfg.Index.Directory != want {
		t.Errorf("index directory = %s, want %s", cfg.Index.Directory, want)
	}
	if want := filepath.Join(dir, "logs", "kotae.log"); cfg.Log.File != want {
		t.Errorf("log file = %s, want %s", cfg.Log.File, want)
	}
}

func TestLoad_homePath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "kotae.yaml")
	if err := os.WriteFile(path, []byte("data:\n  directory: \"~/notes\"\n"), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(home, "notes"); cfg.Data.Directory != want {
		t.Errorf("data directory = %s, want %s", cfg.Data.Directory, want)
	}
}

func TestLoad_invalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kotae.yaml")
	if err := os.WriteFile(path, []byte("chunking:\n  size: 100\n  overlap: 100\n"), 0600); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}

func TestLoad_malformedYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kotae.yaml")
	if err := os.WriteFile(path, []byte("server: [unclosed"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadOrDefault_missingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Data.Directory != "data" || cfg.Index.Directory != "chroma" {
		t.Errorf("unexpected directories: %s %s", cfg.Data.Directory, cfg.Index.Directory)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Host != "localhost" {
		t.Errorf("default host: got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default port: got %d", cfg.Server.Port)
	}
	if cfg.Chunking.Size != 300 || cfg.Chunking.OverlapOrDefault() != 100 {
		t.Errorf("default chunking: got %+v", cfg.Chunking)
	}
	if cfg.Retrieval.TopK != 3 || cfg.Retrieval.MinRelevanceOrDefault() != 0.3 {
		t.Errorf("default retrieval: got %+v", cfg.Retrieval)
	}
	if cfg.LLM.Model != "gemma3" || cfg.LLM.BaseURL != "http://localhost:11434/v1/" {
		t.Errorf("default llm: got %+v", cfg.LLM)
	}
	if cfg.Embedding.Provider != ProviderOpenAI || cfg.Embedding.Model != "all-minilm" {
		t.Errorf("default embedding: got %+v", cfg.Embedding)
	}
	if len(cfg.Data.Extensions) != 1 || cfg.Data.Extensions[0] != ".md" {
		t.Errorf("data extensions: got %v", cfg.Data.Extensions)
	}
	if !cfg.Watch.RecursiveOrDefault() {
		t.Error("watch should be recursive by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero size", func(c *Config) { c.Chunking.Size = -1 }},
		{"overlap too large", func(c *Config) { c.Chunking.Overlap = intPtr(c.Chunking.Size) }},
		{"negative overlap", func(c *Config) { c.Chunking.Overlap = intPtr(-1) }},
		{"non-positive k", func(c *Config) { c.Retrieval.TopK = -2 }},
		{"cutoff out of range", func(c *Config) { c.Retrieval.MinRelevance = floatPtr(1.5) }},
		{"unknown provider", func(c *Config) { c.Embedding.Provider = "word2vec" }},
		{"onnx without model", func(c *Config) { c.Embedding.Provider = ProviderONNX }},
		{"no extensions", func(c *Config) { c.Data.Extensions = []string{} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
				t.Errorf("expected ErrInvalid, got %v", err)
			}
		})
	}
}

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func TestLoad_explicitZeros(t *testing.T) {
	tests := []struct {
		name        string
		yaml        string
		wantOverlap int
		wantCutoff  float64
	}{
		{"unset", "chunking:\n  size: 300\n", 100, 0.3},
		{"explicit zeros", "chunking:\n  overlap: 0\nretrieval:\n  min_relevance: 0\n", 0, 0},
		{"explicit values", "chunking:\n  size: 50\n  overlap: 10\nretrieval:\n  min_relevance: -1\n", 10, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "kotae.yaml")
			if err := os.WriteFile(path, []byte(tt.yaml), 0600); err != nil {
				t.Fatal(err)
			}
			cfg, err := Load(path)
			if err != nil {
				t.Fatal(err)
			}
			if got := cfg.Chunking.OverlapOrDefault(); got != tt.wantOverlap {
				t.Errorf("overlap = %d, want %d", got, tt.wantOverlap)
			}
			if got := cfg.Retrieval.MinRelevanceOrDefault(); got != tt.wantCutoff {
				t.Errorf("min_relevance = %g, want %g", got, tt.wantCutoff)
			}
		})
	}
}
