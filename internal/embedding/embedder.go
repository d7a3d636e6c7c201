// Package embedding turns text into fixed-length vectors. Backends: an
// OpenAI-compatible HTTP API (Ollama by default), ONNX Runtime, and an offline
// feature-hashing embedder. CachedEmbedder memoizes any of them.
package embedding

import (
	"context"
	"errors"
)

// ErrDimensions is returned when a backend produces a vector of unexpected length.
var ErrDimensions = errors.New("unexpected embedding dimensions")

// Embedder produces vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	// Name identifies the backend and model; stores record it at build time.
	Name() string
	Close() error
}
