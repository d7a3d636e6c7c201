package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/indexer"
	"github.com/hyperjump/kotae/internal/metrics"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/vectorstore"
)

type mockAsker struct {
	queries []string
	err     error
}

func (m *mockAsker) Ask(_ context.Context, query string) (*models.Answer, error) {
	m.queries = append(m.queries, query)
	if m.err != nil {
		return nil, m.err
	}
	if strings.Contains(strings.ToLower(query), "love") {
		return &models.Answer{Query: query, Text: "No relevant context found.", Sources: []models.SourceRef{}, NoContext: true}, nil
	}
	return &models.Answer{
		Query:   query,
		Text:    "Alice is a <b>software</b> engineer.",
		Sources: []models.SourceRef{{Source: "alice.md", Score: 0.812345}, {Source: "bob.md", Score: 0.3}},
	}, nil
}

type mockCatalog struct {
	stats models.StoreStats
	hits  []models.KeywordHit
	err   error
	limit int
	fuzzy bool
}

func (m *mockCatalog) Stats(context.Context) (models.StoreStats, error) {
	return m.stats, m.err
}

func (m *mockCatalog) KeywordSearch(_ context.Context, _ string, limit int, fuzzy bool) ([]models.KeywordHit, error) {
	m.limit, m.fuzzy = limit, fuzzy
	return m.hits, m.err
}

func newTestServer(asker Asker, catalog Catalog, opts ...Option) *Server {
	return NewServer(asker, catalog, &config.ServerConfig{Host: "127.0.0.1", Port: 8080}, zap.NewNop(), opts...)
}

func serve(srv *Server, method, target string, body []byte) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, target, bytes.NewReader(body))
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, r)
	return w
}

func TestHandleAsk(t *testing.T) {
	asker := &mockAsker{}
	srv := newTestServer(asker, &mockCatalog{})
	body, _ := json.Marshal(map[string]string{"query": "  Who is Alice?  "})

	w := serve(srv, http.MethodPost, "/api/v1/ask", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", w.Code, w.Body.String())
	}
	var answer models.Answer
	if err := json.NewDecoder(w.Body).Decode(&answer); err != nil {
		t.Fatal(err)
	}
	if answer.Text != "Alice is a <b>software</b> engineer." || len(answer.Sources) != 2 {
		t.Errorf("answer = %+v", answer)
	}
	if len(asker.queries) != 1 || asker.queries[0] != "  Who is Alice?  " {
		t.Errorf("asked %v", asker.queries)
	}
}

// deadlineAsker records whether the request context carried a deadline.
type deadlineAsker struct {
	hasDeadline []bool
}

func (d *deadlineAsker) Ask(ctx context.Context, query string) (*models.Answer, error) {
	_, ok := ctx.Deadline()
	d.hasDeadline = append(d.hasDeadline, ok)
	return &models.Answer{Query: query, Text: "ok", Sources: []models.SourceRef{}}, nil
}

func TestAsk_noRequestDeadline(t *testing.T) {
	asker := &deadlineAsker{}
	srv := newTestServer(asker, &mockCatalog{})
	body, _ := json.Marshal(map[string]string{"query": "Who is Alice?"})

	if w := serve(srv, http.MethodPost, "/api/v1/ask", body); w.Code != http.StatusOK {
		t.Fatalf("api status: got %d", w.Code)
	}
	if w := serve(srv, http.MethodGet, "/?q=Who+is+Alice%3F", nil); w.Code != http.StatusOK {
		t.Fatalf("ui status: got %d", w.Code)
	}
	if len(asker.hasDeadline) != 2 {
		t.Fatalf("asked %d times, want 2", len(asker.hasDeadline))
	}
	for i, ok := range asker.hasDeadline {
		if ok {
			t.Errorf("request %d: model call would be cut off by a server deadline", i)
		}
	}
}

func TestHandleAsk_badRequests(t *testing.T) {
	srv := newTestServer(&mockAsker{}, &mockCatalog{})
	tests := []struct {
		name string
		body []byte
	}{
		{"invalid json", []byte("{")},
		{"empty query", []byte(`{"query": "   "}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(srv, http.MethodPost, "/api/v1/ask", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status: got %d", w.Code)
			}
		})
	}
}

func TestHandleAsk_errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"missing store", fmt.Errorf("search: %w", vectorstore.ErrNotFound), http.StatusNotFound},
		{"model down", errors.New("connection refused"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(&mockAsker{err: tt.err}, &mockCatalog{})
			w := serve(srv, http.MethodPost, "/api/v1/ask", []byte(`{"query":"q"}`))
			if w.Code != tt.want {
				t.Errorf("status: got %d, want %d", w.Code, tt.want)
			}
			var resp map[string]string
			_ = json.NewDecoder(w.Body).Decode(&resp)
			if resp["error"] == "" {
				t.Error("expected error message")
			}
		})
	}
}

func TestHandleStatus(t *testing.T) {
	catalog := &mockCatalog{stats: models.StoreStats{Documents: 2, Chunks: 9, Dimensions: 384, Embedder: "openai:all-minilm", Metric: "cosine"}}
	srv := newTestServer(&mockAsker{}, catalog)
	w := serve(srv, http.MethodGet, "/api/v1/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var stats models.StoreStats
	if err := json.NewDecoder(w.Body).Decode(&stats); err != nil {
		t.Fatal(err)
	}
	if stats.Chunks != 9 || stats.Embedder != "openai:all-minilm" {
		t.Errorf("stats = %+v", stats)
	}

	catalog.err = vectorstore.ErrNotFound
	if w := serve(srv, http.MethodGet, "/api/v1/status", nil); w.Code != http.StatusNotFound {
		t.Errorf("missing store status: got %d", w.Code)
	}
}

func TestHandleChunkSearch(t *testing.T) {
	catalog := &mockCatalog{hits: []models.KeywordHit{{ChunkID: "c1", Source: "alice.md", Content: "Alice", Score: 1.2}}}
	srv := newTestServer(&mockAsker{}, catalog)

	w := serve(srv, http.MethodGet, "/api/v1/chunks/search?q=alice&limit=500&fuzzy=true", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	if catalog.limit != maxChunkSearchLimit || !catalog.fuzzy {
		t.Errorf("limit=%d fuzzy=%v", catalog.limit, catalog.fuzzy)
	}
	var resp struct {
		Query string              `json:"query"`
		Hits  []models.KeywordHit `json:"hits"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Query != "alice" || len(resp.Hits) != 1 || resp.Hits[0].Source != "alice.md" {
		t.Errorf("resp = %+v", resp)
	}

	for _, target := range []string{"/api/v1/chunks/search", "/api/v1/chunks/search?q=a&limit=-1", "/api/v1/chunks/search?q=a&limit=x"} {
		if w := serve(srv, http.MethodGet, target, nil); w.Code != http.StatusBadRequest {
			t.Errorf("%s: got %d, want 400", target, w.Code)
		}
	}

	catalog.limit = 0
	serve(srv, http.MethodGet, "/api/v1/chunks/search?q=alice", nil)
	if catalog.limit != defaultChunkSearchLimit {
		t.Errorf("default limit = %d", catalog.limit)
	}
}

func TestHandleIndex(t *testing.T) {
	t.Cleanup(func() { _ = vectorstore.ResetShared() })
	srv := newTestServer(&mockAsker{}, &mockCatalog{})
	if w := serve(srv, http.MethodPost, "/api/v1/index", nil); w.Code != http.StatusNotImplemented {
		t.Errorf("without rebuild: got %d, want 501", w.Code)
	}

	calls := 0
	srv = newTestServer(&mockAsker{}, &mockCatalog{}, WithRebuild(func(context.Context) (indexer.BuildStats, error) {
		calls++
		return indexer.BuildStats{Documents: 2, Chunks: 7, Directory: "chroma", Duration: 1500 * time.Millisecond}, nil
	}))
	w := serve(srv, http.MethodPost, "/api/v1/index", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var resp map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if calls != 1 || resp["chunks"] != float64(7) || resp["duration_ms"] != float64(1500) {
		t.Errorf("calls=%d resp=%v", calls, resp)
	}

	srv = newTestServer(&mockAsker{}, &mockCatalog{}, WithRebuild(func(context.Context) (indexer.BuildStats, error) {
		return indexer.BuildStats{}, errors.New("data directory missing")
	}))
	if w := serve(srv, http.MethodPost, "/api/v1/index", nil); w.Code != http.StatusInternalServerError {
		t.Errorf("failed rebuild: got %d", w.Code)
	}
}

func TestHandleHealthAndMetrics(t *testing.T) {
	m := metrics.New()
	m.ObserveQuery(metrics.OutcomeAnswered)
	srv := newTestServer(&mockAsker{}, &mockCatalog{}, WithMetrics(m))

	if w := serve(srv, http.MethodGet, "/health", nil); w.Code != http.StatusOK {
		t.Errorf("health: got %d", w.Code)
	}
	w := serve(srv, http.MethodGet, "/metrics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("metrics: got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `kotae_queries_total{outcome="answered"} 1`) {
		t.Errorf("metrics output missing query counter:\n%s", w.Body.String())
	}

	bare := newTestServer(&mockAsker{}, &mockCatalog{})
	if w := serve(bare, http.MethodGet, "/metrics", nil); w.Code != http.StatusNotFound {
		t.Errorf("metrics without registry: got %d", w.Code)
	}
}
