package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/vectorstore"
)

const (
	defaultChunkSearchLimit = 10
	maxChunkSearchLimit     = 100
)

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req models.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Debug("ask request", zap.String("query", req.Query))
	answer, err := s.Ask(r.Context(), req.Query)
	if err != nil {
		s.logger.Error("ask failed", zap.Error(err))
		s.respondError(w, statusFor(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, answer)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	stats, err := s.catalog.Stats(r.Context())
	s.mu.RUnlock()
	if err != nil {
		s.logger.Error("status failed", zap.Error(err))
		s.respondError(w, statusFor(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, stats)
}

func (s *Server) handleChunkSearch(w http.ResponseWriter, r *http.Request) {
	terms := strings.TrimSpace(r.URL.Query().Get("q"))
	if terms == "" {
		s.respondError(w, http.StatusBadRequest, "q is required")
		return
	}
	limit := defaultChunkSearchLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxChunkSearchLimit)
	}
	fuzzy := r.URL.Query().Get("fuzzy") == "true"

	s.mu.RLock()
	hits, err := s.catalog.KeywordSearch(r.Context(), terms, limit, fuzzy)
	s.mu.RUnlock()
	if err != nil {
		s.logger.Error("chunk search failed", zap.Error(err))
		s.respondError(w, statusFor(err), err.Error())
		return
	}
	if hits == nil {
		hits = []models.KeywordHit{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"query": terms, "hits": hits})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.rebuild == nil {
		s.respondError(w, http.StatusNotImplemented, errRebuildDisabled.Error())
		return
	}
	stats, err := s.Rebuild(r.Context())
	if err != nil {
		s.logger.Error("rebuild failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"documents":   stats.Documents,
		"chunks":      stats.Chunks,
		"directory":   stats.Directory,
		"duration_ms": stats.Duration.Milliseconds(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statusFor maps a missing store to 404 and everything else to 500.
func statusFor(err error) int {
	if errors.Is(err, vectorstore.ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
