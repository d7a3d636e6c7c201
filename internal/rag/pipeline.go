// Package rag wires retrieval, the relevance cutoff and answering into the single
// question-answering entry point used by the CLI and the web server.
package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/answerer"
	"github.com/hyperjump/kotae/internal/metrics"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/retriever"
	"github.com/hyperjump/kotae/internal/telemetry"
)

// Pipeline answers questions: retrieve, apply the cutoff, answer.
type Pipeline struct {
	retriever    *retriever.Retriever
	answerer     *answerer.Answerer
	topK         int
	minRelevance float64
	logger       *zap.Logger
	metrics      *metrics.Metrics
	tracer       trace.Tracer
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithMetrics records query outcomes and stage latency.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// NewPipeline creates a pipeline retrieving topK chunks and requiring the best
// of them to score at least minRelevance.
func NewPipeline(r *retriever.Retriever, a *answerer.Answerer, topK int, minRelevance float64, opts ...Option) *Pipeline {
	p := &Pipeline{
		retriever:    r,
		answerer:     a,
		topK:         topK,
		minRelevance: minRelevance,
		logger:       zap.NewNop(),
		tracer:       telemetry.Tracer("kotae/rag"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Ask answers query. When retrieval finds no chunk scoring at least the cutoff,
// the no-context answer is returned and the model is not called.
func (p *Pipeline) Ask(ctx context.Context, query string) (*models.Answer, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}
	ctx, span := p.tracer.Start(ctx, "rag.Ask", trace.WithAttributes(attribute.Int("top_k", p.topK)))
	defer span.End()

	results, err := p.retrieve(ctx, query)
	if err != nil {
		p.fail(span, err)
		return nil, err
	}
	top := retriever.TopScore(results)
	span.SetAttributes(attribute.Int("results", len(results)), attribute.Float64("top_score", top))
	if len(results) > 0 {
		p.metrics.ObserveTopScore(top)
	}

	if !retriever.HasRelevantContext(results, p.minRelevance) {
		p.logger.Info("no relevant context",
			zap.String("query", query),
			zap.Int("results", len(results)),
			zap.Float64("top_score", top),
			zap.Float64("cutoff", p.minRelevance))
		p.metrics.ObserveQuery(metrics.OutcomeNoContext)
		span.SetAttributes(attribute.Bool("no_context", true))
		return answerer.NoContext(query), nil
	}

	answer, err := p.answer(ctx, query, results)
	if err != nil {
		p.fail(span, err)
		return nil, err
	}
	p.metrics.ObserveQuery(metrics.OutcomeAnswered)
	p.logger.Info("question answered",
		zap.String("query", query),
		zap.Int("sources", len(answer.Sources)),
		zap.Float64("top_score", top))
	return answer, nil
}

func (p *Pipeline) retrieve(ctx context.Context, query string) ([]models.RetrievalResult, error) {
	ctx, span := p.tracer.Start(ctx, "rag.retrieve")
	defer span.End()
	start := time.Now()
	results, err := p.retriever.Retrieve(ctx, query, p.topK)
	p.metrics.ObserveStage(metrics.StageRetrieve, time.Since(start))
	return results, err
}

func (p *Pipeline) answer(ctx context.Context, query string, results []models.RetrievalResult) (*models.Answer, error) {
	ctx, span := p.tracer.Start(ctx, "rag.generate")
	defer span.End()
	start := time.Now()
	answer, err := p.answerer.Answer(ctx, query, results)
	p.metrics.ObserveStage(metrics.StageGenerate, time.Since(start))
	return answer, err
}

func (p *Pipeline) fail(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	p.metrics.ObserveQuery(metrics.OutcomeError)
	p.logger.Error("question failed", zap.Error(err))
}
