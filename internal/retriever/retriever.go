// Package retriever embeds a query and fetches the nearest chunks from a vector store.
package retriever

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/metrics"
	"github.com/hyperjump/kotae/internal/models"
)

// DefaultMinRelevance is the score the top result must reach for the
// results to count as relevant context.
const DefaultMinRelevance = 0.3

// Searcher answers nearest-neighbour queries, best match first.
type Searcher interface {
	Search(ctx context.Context, vec []float32, k int) ([]models.RetrievalResult, error)
}

// Retriever embeds queries with the same embedder used at index time.
type Retriever struct {
	embedder embedding.Embedder
	searcher Searcher
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Retriever) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithMetrics records query embedding latency.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Retriever) { r.metrics = m }
}

// New creates a retriever.
func New(embedder embedding.Embedder, searcher Searcher, opts ...Option) *Retriever {
	r := &Retriever{embedder: embedder, searcher: searcher, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve returns at most k results in descending score order.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]models.RetrievalResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}
	start := time.Now()
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	r.metrics.ObserveStage(metrics.StageEmbed, time.Since(start))
	results, err := r.searcher.Search(ctx, vec, k)
	if err != nil {
		return nil, fmt.Errorf("search vector store: %w", err)
	}
	if len(results) > k {
		results = results[:k]
	}
	r.logger.Debug("retrieved", zap.Int("results", len(results)), zap.Float64("top_score", TopScore(results)))
	return results, nil
}

// HasRelevantContext reports whether results is non-empty and its top score reaches cutoff.
// Scores are similarities, so higher is better.
func HasRelevantContext(results []models.RetrievalResult, cutoff float64) bool {
	return len(results) > 0 && results[0].Score >= cutoff
}

// TopScore returns the first result's score, or 0 when there are none.
func TopScore(results []models.RetrievalResult) float64 {
	if len(results) == 0 {
		return 0
	}
	return results[0].Score
}

// Sources returns the (source, score) pairs of results in order.
func Sources(results []models.RetrievalResult) []models.SourceRef {
	refs := make([]models.SourceRef, len(results))
	for i, r := range results {
		refs[i] = models.SourceRef{Source: r.Source, Score: r.Score}
	}
	return refs
}
