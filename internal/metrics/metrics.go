// Package metrics exposes Prometheus instruments for queries and indexing.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "kotae"

// Query outcomes.
const (
	OutcomeAnswered  = "answered"
	OutcomeNoContext = "no_context"
	OutcomeError     = "error"
)

// Pipeline stages.
const (
	StageEmbed    = "embed"
	StageRetrieve = "retrieve"
	StageGenerate = "generate"
	StageIndex    = "index"
)

// Metrics holds the instruments, registered on their own registry.
type Metrics struct {
	registry *prometheus.Registry

	queries          *prometheus.CounterVec
	stageDuration    *prometheus.HistogramVec
	topScore         prometheus.Histogram
	indexedDocuments prometheus.Gauge
	indexedChunks    prometheus.Gauge
}

// New registers the instruments plus Go and process collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		queries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Questions answered, by outcome.",
		}, []string{"outcome"}),
		stageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of pipeline stages.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 14),
		}, []string{"stage"}),
		topScore: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_top_score",
			Help:      "Cosine similarity of the best retrieved chunk.",
			Buckets:   prometheus.LinearBuckets(-1, 0.1, 21),
		}),
		indexedDocuments: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "indexed_documents",
			Help:      "Documents in the last built store.",
		}),
		indexedChunks: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "indexed_chunks",
			Help:      "Chunks in the last built store.",
		}),
	}
}

// ObserveQuery counts one question with its outcome.
func (m *Metrics) ObserveQuery(outcome string) {
	if m == nil {
		return
	}
	m.queries.WithLabelValues(outcome).Inc()
}

// ObserveStage records how long a stage took.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// ObserveTopScore records the best retrieval score of a query.
func (m *Metrics) ObserveTopScore(score float64) {
	if m == nil {
		return
	}
	m.topScore.Observe(score)
}

// SetIndexSize records the size of the store after a build.
func (m *Metrics) SetIndexSize(documents, chunks int) {
	if m == nil {
		return
	}
	m.indexedDocuments.Set(float64(documents))
	m.indexedChunks.Set(float64(chunks))
}

// Registry returns the registry the instruments live on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
