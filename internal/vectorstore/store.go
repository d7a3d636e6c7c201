// Package vectorstore persists (vector, text, source) triples in a directory and
// answers nearest-neighbour queries over them.
//
// Layout of a store directory:
//
//	index.db       SQLite documents, chunks with embeddings, and build metadata
//	keyword.bleve  Bleve keyword index over chunk text
//
// The in-memory vector index is rebuilt from index.db on Open.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/keyword"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/vector"
)

// MetricCosine names the similarity every store is searched with.
const MetricCosine = "cosine"

const (
	dbFileName     = "index.db"
	keywordDirName = "keyword.bleve"
	metaEmbedder   = "embedder"
	metaDimensions = "dimensions"
	metaMetric     = "metric"
	metaBuiltAt    = "built_at"
)

var (
	// ErrNotFound is returned by Open when no store exists in the directory.
	ErrNotFound = errors.New("vector store not found")
	// ErrDimensionMismatch is returned when the store was built with a different embedding dimension.
	ErrDimensionMismatch = errors.New("vector store dimension mismatch")
)

// Meta describes how a store was built.
type Meta struct {
	Embedder   string
	Dimensions int
	Metric     string
	BuiltAt    time.Time
}

// Store is an opened vector store.
type Store struct {
	dir     string
	meta    Meta
	db      *storage.SQLiteStorage
	keyword *keyword.BleveIndex
	index   *vector.MemoryIndex
	chunks  map[string]*models.Chunk
	logger  *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Create removes dir and everything in it, then creates an empty store recording meta.
func Create(ctx context.Context, dir string, meta Meta, opts ...Option) (*Store, error) {
	if meta.Dimensions <= 0 {
		return nil, fmt.Errorf("create vector store: dimensions must be positive")
	}
	if err := os.RemoveAll(dir); err != nil {
		return nil, fmt.Errorf("remove previous vector store: %w", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create vector store directory: %w", err)
	}
	if meta.Metric == "" {
		meta.Metric = MetricCosine
	}
	if meta.BuiltAt.IsZero() {
		meta.BuiltAt = time.Now().UTC()
	}

	s, err := openParts(dir, meta, opts)
	if err != nil {
		return nil, err
	}
	kv := map[string]string{
		metaEmbedder:   meta.Embedder,
		metaDimensions: strconv.Itoa(meta.Dimensions),
		metaMetric:     meta.Metric,
		metaBuiltAt:    meta.BuiltAt.Format(time.RFC3339),
	}
	for k, v := range kv {
		if err := s.db.SetMeta(ctx, k, v); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("write vector store meta: %w", err)
		}
	}
	s.logger.Debug("vector store created", zap.String("dir", dir), zap.String("embedder", meta.Embedder))
	return s, nil
}

// Open opens the store in dir and loads its vectors. When dims is positive it must
// equal the dimension the store was built with.
func Open(ctx context.Context, dir string, dims int, opts ...Option) (*Store, error) {
	if _, err := os.Stat(filepath.Join(dir, dbFileName)); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w in %s; run the index command first", ErrNotFound, dir)
		}
		return nil, fmt.Errorf("stat vector store: %w", err)
	}

	db, err := storage.NewSQLiteStorage(filepath.Join(dir, dbFileName))
	if err != nil {
		return nil, err
	}
	meta, err := readMeta(ctx, db)
	_ = db.Close()
	if err != nil {
		return nil, err
	}
	if dims > 0 && dims != meta.Dimensions {
		return nil, fmt.Errorf("%w: store has %d (embedder %s), query embedder has %d",
			ErrDimensionMismatch, meta.Dimensions, meta.Embedder, dims)
	}

	s, err := openParts(dir, meta, opts)
	if err != nil {
		return nil, err
	}
	entries, err := s.db.ListEntries(ctx)
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("load vectors: %w", err)
	}
	if err := s.load(ctx, entries); err != nil {
		_ = s.Close()
		return nil, err
	}
	s.logger.Debug("vector store opened", zap.String("dir", dir), zap.Int("chunks", len(entries)))
	return s, nil
}

func openParts(dir string, meta Meta, opts []Option) (*Store, error) {
	index, err := vector.NewMemoryIndex(meta.Dimensions)
	if err != nil {
		return nil, err
	}
	db, err := storage.NewSQLiteStorage(filepath.Join(dir, dbFileName))
	if err != nil {
		return nil, err
	}
	kw, err := keyword.NewBleveIndex(filepath.Join(dir, keywordDirName))
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	s := &Store{
		dir:     dir,
		meta:    meta,
		db:      db,
		keyword: kw,
		index:   index,
		chunks:  make(map[string]*models.Chunk),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func readMeta(ctx context.Context, db *storage.SQLiteStorage) (Meta, error) {
	var meta Meta
	values := make(map[string]string)
	for _, k := range []string{metaEmbedder, metaDimensions, metaMetric, metaBuiltAt} {
		v, err := db.GetMeta(ctx, k)
		if err != nil {
			return meta, fmt.Errorf("read vector store meta: %w", err)
		}
		values[k] = v
	}
	dims, err := strconv.Atoi(values[metaDimensions])
	if err != nil {
		return meta, fmt.Errorf("read vector store meta: dimensions %q: %w", values[metaDimensions], err)
	}
	builtAt, _ := time.Parse(time.RFC3339, values[metaBuiltAt])
	return Meta{
		Embedder:   values[metaEmbedder],
		Dimensions: dims,
		Metric:     values[metaMetric],
		BuiltAt:    builtAt,
	}, nil
}

// load puts entries into the vector index and the chunk lookup.
func (s *Store) load(ctx context.Context, entries []models.IndexEntry) error {
	ids := make([]string, len(entries))
	vectors := make([][]float32, len(entries))
	for i, e := range entries {
		ids[i] = e.Chunk.ID
		vectors[i] = e.Embedding
	}
	if err := s.index.Add(ctx, ids, vectors); err != nil {
		if errors.Is(err, vector.ErrDimensionMismatch) {
			return fmt.Errorf("%w: %v", ErrDimensionMismatch, err)
		}
		return err
	}
	for _, e := range entries {
		s.chunks[e.Chunk.ID] = e.Chunk
	}
	return nil
}

// Add writes documents and their embedded chunks to every part of the store.
func (s *Store) Add(ctx context.Context, docs []*models.Document, entries []models.IndexEntry) error {
	if err := s.db.SaveDocuments(ctx, docs); err != nil {
		return fmt.Errorf("save documents: %w", err)
	}
	if err := s.db.SaveEntries(ctx, entries); err != nil {
		return fmt.Errorf("save chunks: %w", err)
	}
	chunks := make([]*models.Chunk, len(entries))
	for i, e := range entries {
		chunks[i] = e.Chunk
	}
	if err := s.keyword.IndexChunks(ctx, chunks); err != nil {
		return fmt.Errorf("index keywords: %w", err)
	}
	return s.load(ctx, entries)
}

// Search returns up to k chunks nearest to vec, in descending cosine similarity.
func (s *Store) Search(ctx context.Context, vec []float32, k int) ([]models.RetrievalResult, error) {
	hits, err := s.index.Search(ctx, vec, k)
	if err != nil {
		if errors.Is(err, vector.ErrDimensionMismatch) {
			return nil, fmt.Errorf("%w: %v", ErrDimensionMismatch, err)
		}
		return nil, fmt.Errorf("vector search: %w", err)
	}
	results := make([]models.RetrievalResult, 0, len(hits))
	for _, h := range hits {
		c, ok := s.chunks[h.ID]
		if !ok {
			return nil, fmt.Errorf("vector search: chunk %s missing from store", h.ID)
		}
		results = append(results, models.RetrievalResult{
			ChunkID:    c.ID,
			Content:    c.Content,
			Source:     c.Source,
			StartIndex: c.StartIndex,
			Score:      h.Score,
		})
	}
	return results, nil
}

// KeywordSearch looks up chunks containing terms.
func (s *Store) KeywordSearch(ctx context.Context, terms string, limit int, fuzzy bool) ([]models.KeywordHit, error) {
	var opts *keyword.SearchOptions
	if fuzzy {
		opts = &keyword.SearchOptions{FuzzyEnabled: true}
	}
	hits, err := s.keyword.Search(ctx, terms, limit, opts)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	chunks, err := s.db.GetChunks(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load keyword hits: %w", err)
	}
	out := make([]models.KeywordHit, 0, len(hits))
	for _, h := range hits {
		c, ok := chunks[h.ID]
		if !ok {
			continue
		}
		out = append(out, models.KeywordHit{ChunkID: c.ID, Source: c.Source, Content: c.Content, Score: h.Score})
	}
	return out, nil
}

// Stats reports what the store holds.
func (s *Store) Stats(ctx context.Context) (models.StoreStats, error) {
	docs, err := s.db.CountDocuments(ctx)
	if err != nil {
		return models.StoreStats{}, fmt.Errorf("count documents: %w", err)
	}
	chunks, err := s.db.CountChunks(ctx)
	if err != nil {
		return models.StoreStats{}, fmt.Errorf("count chunks: %w", err)
	}
	disk, err := storage.DiskUsageBytes(s.dir)
	if err != nil {
		return models.StoreStats{}, fmt.Errorf("disk usage: %w", err)
	}
	stats := models.StoreStats{
		Documents:  int(docs),
		Chunks:     int(chunks),
		Dimensions: s.meta.Dimensions,
		Embedder:   s.meta.Embedder,
		Metric:     s.meta.Metric,
		DiskBytes:  disk,
	}
	if !s.meta.BuiltAt.IsZero() {
		stats.BuiltAt = s.meta.BuiltAt.Format(time.RFC3339)
	}
	return stats, nil
}

// Meta returns the build metadata.
func (s *Store) Meta() Meta {
	return s.meta
}

// Dir returns the store directory.
func (s *Store) Dir() string {
	return s.dir
}

// Size returns the number of loaded vectors.
func (s *Store) Size() int {
	return s.index.Size()
}

// Close releases the database, keyword index and vectors.
func (s *Store) Close() error {
	var errs []error
	if s.keyword != nil {
		errs = append(errs, s.keyword.Close())
	}
	if s.db != nil {
		errs = append(errs, s.db.Close())
	}
	if s.index != nil {
		errs = append(errs, s.index.Close())
	}
	return errors.Join(errs...)
}
