package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/answerer"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/indexer"
	"github.com/hyperjump/kotae/internal/llm"
	"github.com/hyperjump/kotae/internal/metrics"
	"github.com/hyperjump/kotae/internal/rag"
	"github.com/hyperjump/kotae/internal/retriever"
	"github.com/hyperjump/kotae/internal/telemetry"
	"github.com/hyperjump/kotae/internal/vectorstore"
)

// Components holds initialized services.
type Components struct {
	Config    *config.Config
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
	Embedder  embedding.Embedder
	Generator *llm.OpenAIGenerator
	Store     *vectorstore.Lazy
	Indexer   *indexer.Indexer
	Pipeline  *rag.Pipeline

	shutdownTracing telemetry.ShutdownFunc
}

// Close releases the embedder and the shared store and flushes traces.
func (c *Components) Close() {
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if err := vectorstore.ResetShared(); err != nil {
		c.Logger.Warn("closing vector store", zap.Error(err))
	}
	if c.shutdownTracing != nil {
		if err := c.shutdownTracing(context.Background()); err != nil {
			c.Logger.Warn("tracer shutdown", zap.Error(err))
		}
	}
}

// Rebuild reindexes the data directory into a fresh store.
func (c *Components) Rebuild(ctx context.Context) (indexer.BuildStats, error) {
	if err := vectorstore.ResetShared(); err != nil {
		c.Logger.Warn("closing vector store before rebuild", zap.Error(err))
	}
	return c.Indexer.IndexDirectory(ctx, c.Config.Data.Directory, c.Config.Data.Extensions)
}

func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	shutdown, err := telemetry.InitTracer(ctx, cfg.Tracing, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	embedder, err := embedding.New(cfg.Embedding, logger)
	if err != nil {
		_ = shutdown(ctx)
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	splitter, err := indexer.NewSplitter(cfg.Chunking.Size, cfg.Chunking.OverlapOrDefault())
	if err != nil {
		_ = embedder.Close()
		_ = shutdown(ctx)
		return nil, fmt.Errorf("failed to initialize splitter: %w", err)
	}

	m := metrics.New()
	store := &vectorstore.Lazy{
		Dir:        cfg.Index.Directory,
		Dimensions: embedder.Dimensions(),
		Options:    []vectorstore.Option{vectorstore.WithLogger(logger)},
	}
	idx := indexer.NewIndexer(splitter, embedder, extract.NewExtractor(), cfg.Index.Directory,
		indexer.WithLogger(logger),
		indexer.WithMetrics(m),
		indexer.WithBatchSize(cfg.Embedding.BatchSize))
	generator := llm.NewOpenAIGenerator(cfg.LLM, llm.WithLogger(logger))
	pipeline := rag.NewPipeline(
		retriever.New(embedder, store, retriever.WithLogger(logger), retriever.WithMetrics(m)),
		answerer.New(generator, answerer.WithLogger(logger)),
		cfg.Retrieval.TopK,
		cfg.Retrieval.MinRelevanceOrDefault(),
		rag.WithLogger(logger),
		rag.WithMetrics(m),
	)

	return &Components{
		Config:          cfg,
		Logger:          logger,
		Metrics:         m,
		Embedder:        embedder,
		Generator:       generator,
		Store:           store,
		Indexer:         idx,
		Pipeline:        pipeline,
		shutdownTracing: shutdown,
	}, nil
}
