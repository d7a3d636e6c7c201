// Package storage persists documents, chunks and their embeddings.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/kotae/internal/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Storage defines document and chunk persistence operations.
type Storage interface {
	SaveDocuments(ctx context.Context, docs []*models.Document) error
	ListDocuments(ctx context.Context) ([]*models.Document, error)

	SaveEntries(ctx context.Context, entries []models.IndexEntry) error
	ListEntries(ctx context.Context) ([]models.IndexEntry, error)
	GetChunk(ctx context.Context, id string) (*models.Chunk, error)
	GetChunks(ctx context.Context, ids []string) (map[string]*models.Chunk, error)

	SetMeta(ctx context.Context, key, value string) error
	GetMeta(ctx context.Context, key string) (string, error)

	CountDocuments(ctx context.Context) (int64, error)
	CountChunks(ctx context.Context) (int64, error)

	Close() error
}
