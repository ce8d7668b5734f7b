// Package metrics defines the Prometheus collectors for the caching and
// indexing engine and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors. Each Metrics instance owns its
// own registry so that independent engines (and tests) never collide on
// collector registration.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	SearchesTotal        *prometheus.CounterVec
	SearchLatency        *prometheus.HistogramVec
	CacheHitsTotal       *prometheus.CounterVec
	CacheMissesTotal     *prometheus.CounterVec
	CacheEvictionsTotal  prometheus.Counter
	IndexBuildsTotal     prometheus.Counter
	IndexBuildDuration   prometheus.Histogram
	DatasetRecords       prometheus.Gauge
	DatasetVersion       prometheus.Gauge
	WarmupQueriesTotal   *prometheus.CounterVec
}

// New creates all collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		SearchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "searches_total",
				Help: "Total searches by outcome (hit, miss, error).",
			},
			[]string{"outcome"},
		),
		SearchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "search_latency_seconds",
				Help:    "Search latency in seconds by cache status.",
				Buckets: []float64{0.00001, 0.0001, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
			[]string{"cache_status"},
		),
		CacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total cache hits by cache (query, collection).",
			},
			[]string{"cache"},
		),
		CacheMissesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total cache misses by cache (query, collection).",
			},
			[]string{"cache"},
		),
		CacheEvictionsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_evictions_total",
				Help: "Total query cache evictions.",
			},
		),
		IndexBuildsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "index_builds_total",
				Help: "Total inverted index rebuilds.",
			},
		),
		IndexBuildDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "index_build_duration_seconds",
				Help:    "Time spent rebuilding the inverted indices.",
				Buckets: []float64{0.0001, 0.001, 0.01, 0.05, 0.1, 0.5, 1},
			},
		),
		DatasetRecords: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "dataset_records",
				Help: "Number of records in the current dataset snapshot.",
			},
		),
		DatasetVersion: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "dataset_version",
				Help: "Monotonic version of the current dataset snapshot.",
			},
		),
		WarmupQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warmup_queries_total",
				Help: "Warmup queries executed by status (ok, error).",
			},
			[]string{"status"},
		),
	}

	m.registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.SearchesTotal,
		m.SearchLatency,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.CacheEvictionsTotal,
		m.IndexBuildsTotal,
		m.IndexBuildDuration,
		m.DatasetRecords,
		m.DatasetVersion,
		m.WarmupQueriesTotal,
	)

	return m
}

// Handler returns the scrape handler for this instance's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
