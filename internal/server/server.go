// Package server provides the kotae web UI and HTTP API.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/indexer"
	"github.com/hyperjump/kotae/internal/metrics"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/vectorstore"
)

var errRebuildDisabled = errors.New("rebuild not enabled")

// Asker answers questions.
type Asker interface {
	Ask(ctx context.Context, query string) (*models.Answer, error)
}

// Catalog describes and searches the current store.
type Catalog interface {
	Stats(ctx context.Context) (models.StoreStats, error)
	KeywordSearch(ctx context.Context, terms string, limit int, fuzzy bool) ([]models.KeywordHit, error)
}

// RebuildFunc rebuilds the store from the data directory.
type RebuildFunc func(ctx context.Context) (indexer.BuildStats, error)

// Server is the HTTP server for the kotae UI and API.
type Server struct {
	asker   Asker
	catalog Catalog
	rebuild RebuildFunc
	metrics *metrics.Metrics
	config  *config.ServerConfig
	logger  *zap.Logger
	server  *http.Server

	// mu serialises rebuilds against queries.
	mu sync.RWMutex
}

// Option configures a Server.
type Option func(*Server)

// WithRebuild enables POST /api/v1/index.
func WithRebuild(fn RebuildFunc) Option {
	return func(s *Server) { s.rebuild = fn }
}

// WithMetrics serves m on /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// NewServer creates a server with the given dependencies.
func NewServer(asker Asker, catalog Catalog, cfg *config.ServerConfig, logger *zap.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		asker:   asker,
		catalog: catalog,
		config:  cfg,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the router with every route mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	r.Get("/", s.handleUI)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/ask", s.handleAsk)
		r.Get("/status", s.handleStatus)
		r.Get("/chunks/search", s.handleChunkSearch)
		r.Post("/index", s.handleIndex)
	})
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := s.config.Addr()
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// Ask answers query while holding the read lock.
func (s *Server) Ask(ctx context.Context, query string) (*models.Answer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.asker.Ask(ctx, query)
}

// Rebuild closes the shared store and rebuilds it while no query is running.
func (s *Server) Rebuild(ctx context.Context) (indexer.BuildStats, error) {
	if s.rebuild == nil {
		return indexer.BuildStats{}, errRebuildDisabled
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := vectorstore.ResetShared(); err != nil {
		s.logger.Warn("closing store before rebuild", zap.Error(err))
	}
	return s.rebuild(ctx)
}
