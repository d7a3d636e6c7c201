// Package vector provides nearest-neighbour search over embeddings.
package vector

import (
	"context"
	"errors"
)

// ErrDimensionMismatch is returned when a vector's length differs from the index dimension.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Index defines vector storage and similarity search.
type Index interface {
	Add(ctx context.Context, ids []string, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]*Result, error)
	Size() int
	Dimensions() int
	Close() error
}

// Result is a single vector search hit. ID is a chunk ID; Score is cosine similarity in [-1, 1].
type Result struct {
	ID    string
	Score float64
}
