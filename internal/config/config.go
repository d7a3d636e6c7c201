// Package config provides configuration loading and structs for kotae.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up when --config is not given.
const DefaultPath = "kotae.yaml"

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid config")

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Log       LogConfig       `yaml:"log"`
	Server    ServerConfig    `yaml:"server"`
	Data      DataConfig      `yaml:"data"`
	Index     IndexConfig     `yaml:"index"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	LLM       LLMConfig       `yaml:"llm"`
	Tracing   TracingConfig   `yaml:"tracing"`
	Watch     WatchConfig     `yaml:"watch"`
}

// LogConfig enables an additional rotating JSON log file.
type LogConfig struct {
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DataConfig points at the document corpus.
type DataConfig struct {
	Directory  string   `yaml:"directory"`
	Extensions []string `yaml:"extensions"`
}

// IndexConfig points at the persisted vector store directory.
type IndexConfig struct {
	Directory string `yaml:"directory"`
}

// ChunkingConfig holds the character window settings.
type ChunkingConfig struct {
	Size    int  `yaml:"size"`
	Overlap *int `yaml:"overlap"`
}

// OverlapOrDefault returns the window overlap; defaults to 100 when unset.
func (c *ChunkingConfig) OverlapOrDefault() int {
	if c.Overlap != nil {
		return *c.Overlap
	}
	return DefaultChunkOverlap
}

// EmbeddingConfig selects and tunes the embedding backend.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"`
	Model      string `yaml:"model"`
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	ModelPath  string `yaml:"model_path"`
	Dimensions int    `yaml:"dimensions"`
	MaxTokens  int    `yaml:"max_tokens"`
	CacheSize  int    `yaml:"cache_size"`
	BatchSize  int    `yaml:"batch_size"`
}

// RetrievalConfig holds the number of results and the relevance cutoff.
// A MinRelevance of -1 accepts every match.
type RetrievalConfig struct {
	TopK         int      `yaml:"top_k"`
	MinRelevance *float64 `yaml:"min_relevance"`
}

// MinRelevanceOrDefault returns the relevance cutoff; defaults to 0.3 when unset.
func (r *RetrievalConfig) MinRelevanceOrDefault() float64 {
	if r.MinRelevance != nil {
		return *r.MinRelevance
	}
	return DefaultMinRelevance
}

// LLMConfig points at an OpenAI-compatible chat completion endpoint.
type LLMConfig struct {
	BaseURL     string        `yaml:"base_url"`
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"api_key"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

// TracingConfig enables OTLP/HTTP trace export.
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
}

// WatchConfig holds data directory watch settings.
type WatchConfig struct {
	Debounce  time.Duration `yaml:"debounce"`
	Recursive *bool         `yaml:"recursive"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// Default returns a config with every default applied, relative to the working directory.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// Load reads and parses the config file at path, applies defaults, and expands paths.
// Returns an error if the file cannot be read or parsed, or fails validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Data.Directory = expandPath(cfg.Data.Directory, configDir)
	cfg.Index.Directory = expandPath(cfg.Index.Directory, configDir)
	if cfg.Embedding.ModelPath != "" {
		cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	}
	if cfg.Log.File != "" {
		cfg.Log.File = expandPath(cfg.Log.File, configDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads path, falling back to Default when the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Validate checks the invariants the pipeline relies on.
func (c *Config) Validate() error {
	if c.Chunking.Size <= 0 {
		return fmt.Errorf("%w: chunking.size must be positive, got %d", ErrInvalid, c.Chunking.Size)
	}
	if overlap := c.Chunking.OverlapOrDefault(); overlap < 0 || overlap >= c.Chunking.Size {
		return fmt.Errorf("%w: chunking.overlap must be in [0, %d), got %d", ErrInvalid, c.Chunking.Size, overlap)
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("%w: retrieval.top_k must be positive, got %d", ErrInvalid, c.Retrieval.TopK)
	}
	if cutoff := c.Retrieval.MinRelevanceOrDefault(); cutoff < -1 || cutoff > 1 {
		return fmt.Errorf("%w: retrieval.min_relevance must be in [-1, 1], got %g", ErrInvalid, cutoff)
	}
	switch c.Embedding.Provider {
	case ProviderOpenAI, ProviderONNX, ProviderHashing:
	default:
		return fmt.Errorf("%w: unknown embedding.provider %q", ErrInvalid, c.Embedding.Provider)
	}
	if c.Embedding.Provider == ProviderONNX && c.Embedding.ModelPath == "" {
		return fmt.Errorf("%w: embedding.model_path is required for the onnx provider", ErrInvalid)
	}
	if len(c.Data.Extensions) == 0 {
		return fmt.Errorf("%w: data.extensions must not be empty", ErrInvalid)
	}
	return nil
}

// Addr returns the server listen address.
func (c *Config) Addr() string {
	return c.Server.Addr()
}

// Addr returns host:port.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// expandPath resolves path against configDir; a leading "~/" resolves against the home directory.
func expandPath(path string, configDir string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
		return path
	}
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(configDir, path)
}
