// Package metrics exposes prometheus counters for queries, ingestion and the
// lookup cache. Each Metrics value owns its registry so tests and multiple
// servers never collide on the global one.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ragrouter"

// Metrics groups the collectors.
type Metrics struct {
	registry *prometheus.Registry

	Queries        *prometheus.CounterVec
	QueryErrors    prometheus.Counter
	QueryDuration  *prometheus.HistogramVec
	IngestedChunks prometheus.Counter
	CacheLookups   *prometheus.CounterVec
}

// New creates the collectors and registers them, plus the Go and process
// collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Answered queries by route.",
		}, []string{"route"}),
		QueryErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_errors_total",
			Help:      "Queries that failed with an error.",
		}),
		QueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "Time to answer a query by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		IngestedChunks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingested_chunks_total",
			Help:      "Chunks written to the vector store.",
		}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Lookup cache results (hit or miss).",
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		m.Queries,
		m.QueryErrors,
		m.QueryDuration,
		m.IngestedChunks,
		m.CacheLookups,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry the collectors live in.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveQuery records one answered query. A nil receiver is a no-op so
// callers can leave metrics unset.
func (m *Metrics) ObserveQuery(route string, d time.Duration, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.QueryErrors.Inc()
		return
	}
	m.Queries.WithLabelValues(route).Inc()
	m.QueryDuration.WithLabelValues(route).Observe(d.Seconds())
}

// AddIngested records chunks written to the store.
func (m *Metrics) AddIngested(n int) {
	if m == nil {
		return
	}
	m.IngestedChunks.Add(float64(n))
}

// ObserveCache records a cache hit or miss.
func (m *Metrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}
