package indexer

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/metrics"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/telemetry"
	"github.com/hyperjump/kotae/internal/vectorstore"
)

const defaultBatchSize = 32

// BuildStats summarises one rebuild.
type BuildStats struct {
	Documents int
	Chunks    int
	Directory string
	Duration  time.Duration
}

// Indexer rebuilds a vector store from documents.
type Indexer struct {
	splitter  *Splitter
	embedder  embedding.Embedder
	extractor TextExtractor
	storeDir  string
	batchSize int
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for build progress.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) {
		if l != nil {
			idx.logger = l
		}
	}
}

// WithMetrics records build duration and index size.
func WithMetrics(m *metrics.Metrics) IndexerOption {
	return func(idx *Indexer) { idx.metrics = m }
}

// WithBatchSize sets how many chunks are embedded per request.
func WithBatchSize(n int) IndexerOption {
	return func(idx *Indexer) {
		if n > 0 {
			idx.batchSize = n
		}
	}
}

// NewIndexer creates an indexer writing to storeDir.
func NewIndexer(splitter *Splitter, embedder embedding.Embedder, extractor TextExtractor, storeDir string, opts ...IndexerOption) *Indexer {
	idx := &Indexer{
		splitter:  splitter,
		embedder:  embedder,
		extractor: extractor,
		storeDir:  storeDir,
		batchSize: defaultBatchSize,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// IndexDirectory loads every matching document under dir and rebuilds the store from them.
func (idx *Indexer) IndexDirectory(ctx context.Context, dir string, allowedExts []string) (BuildStats, error) {
	docs, err := LoadDocuments(ctx, dir, allowedExts, idx.extractor)
	if err != nil {
		return BuildStats{}, fmt.Errorf("load documents: %w", err)
	}
	idx.logger.Debug("documents loaded", zap.String("dir", dir), zap.Int("documents", len(docs)))
	return idx.Build(ctx, docs)
}

// Build splits and embeds docs, then replaces the store with the result.
// Embedding happens before the old store is removed, so an embedder failure
// leaves the previous store intact.
func (idx *Indexer) Build(ctx context.Context, docs []*models.Document) (BuildStats, error) {
	ctx, span := telemetry.Tracer("kotae/indexer").Start(ctx, "indexer.Build")
	defer span.End()
	start := time.Now()

	chunks := idx.splitter.SplitDocuments(docs)
	span.SetAttributes(attribute.Int("documents", len(docs)), attribute.Int("chunks", len(chunks)))
	idx.logger.Info("documents split", zap.Int("documents", len(docs)), zap.Int("chunks", len(chunks)))

	entries, err := idx.embedChunks(ctx, chunks)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "embed chunks")
		return BuildStats{}, err
	}

	store, err := vectorstore.Create(ctx, idx.storeDir, vectorstore.Meta{
		Embedder:   idx.embedder.Name(),
		Dimensions: idx.embedder.Dimensions(),
		Metric:     vectorstore.MetricCosine,
	}, vectorstore.WithLogger(idx.logger))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create store")
		return BuildStats{}, err
	}
	defer store.Close()

	if err := store.Add(ctx, docs, entries); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "write store")
		return BuildStats{}, fmt.Errorf("write vector store: %w", err)
	}

	stats := BuildStats{
		Documents: len(docs),
		Chunks:    len(chunks),
		Directory: idx.storeDir,
		Duration:  time.Since(start),
	}
	idx.metrics.ObserveStage(metrics.StageIndex, stats.Duration)
	idx.metrics.SetIndexSize(stats.Documents, stats.Chunks)
	idx.logger.Info("vector store built",
		zap.String("dir", idx.storeDir),
		zap.Int("chunks", stats.Chunks),
		zap.Duration("duration", stats.Duration))
	return stats, nil
}

func (idx *Indexer) embedChunks(ctx context.Context, chunks []*models.Chunk) ([]models.IndexEntry, error) {
	entries := make([]models.IndexEntry, 0, len(chunks))
	for lo := 0; lo < len(chunks); lo += idx.batchSize {
		hi := min(lo+idx.batchSize, len(chunks))
		texts := make([]string, hi-lo)
		for i, c := range chunks[lo:hi] {
			texts[i] = c.Content
		}
		vecs, err := idx.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed chunks %d-%d: %w", lo, hi, err)
		}
		if len(vecs) != len(texts) {
			return nil, fmt.Errorf("embed chunks %d-%d: got %d vectors for %d texts", lo, hi, len(vecs), len(texts))
		}
		for i, c := range chunks[lo:hi] {
			entries = append(entries, models.IndexEntry{Chunk: c, Embedding: vecs[i]})
		}
		idx.logger.Debug("chunks embedded", zap.Int("done", hi), zap.Int("total", len(chunks)))
	}
	return entries, nil
}
