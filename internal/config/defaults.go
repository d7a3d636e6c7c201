package config

import "time"

// Embedding providers.
const (
	ProviderOpenAI  = "openai"
	ProviderONNX    = "onnx"
	ProviderHashing = "hashing"
)

// Defaults shared with the rest of the module.
const (
	DefaultChunkSize    = 300
	DefaultChunkOverlap = 100
	DefaultTopK         = 3
	DefaultMinRelevance = 0.3
	DefaultOllamaURL    = "http://localhost:11434/v1/"
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Data.Directory == "" {
		cfg.Data.Directory = "data"
	}
	if cfg.Data.Extensions == nil {
		cfg.Data.Extensions = []string{".md"}
	}
	if cfg.Index.Directory == "" {
		cfg.Index.Directory = "chroma"
	}
	if cfg.Chunking.Size == 0 {
		cfg.Chunking.Size = DefaultChunkSize
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = ProviderOpenAI
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "all-minilm"
	}
	if cfg.Embedding.BaseURL == "" {
		cfg.Embedding.BaseURL = DefaultOllamaURL
	}
	if cfg.Embedding.APIKey == "" {
		cfg.Embedding.APIKey = "ollama"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = 32
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = DefaultTopK
	}
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = DefaultOllamaURL
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "gemma3"
	}
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = "ollama"
	}
	if cfg.Tracing.Endpoint == "" {
		cfg.Tracing.Endpoint = "localhost:4318"
	}
	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = "kotae"
	}
	if cfg.Log.MaxSizeMB == 0 {
		cfg.Log.MaxSizeMB = 10
	}
	if cfg.Log.MaxBackups == 0 {
		cfg.Log.MaxBackups = 3
	}
	if cfg.Log.MaxAgeDays == 0 {
		cfg.Log.MaxAgeDays = 28
	}
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}
}
