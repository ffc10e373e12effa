// Package metrics defines the Prometheus metric collectors used across the
// catalog and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the catalog. The Observe and
// Record helpers are safe to call on a nil *Metrics.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	StoreMutationsTotal  *prometheus.CounterVec
	StoreRecords         prometheus.Gauge
	PersistDuration      *prometheus.HistogramVec
	IndexRebuildsTotal   prometheus.Counter
	IndexRebuildDuration prometheus.Histogram
	IndexTerms           prometheus.Gauge
	QueriesTotal         *prometheus.CounterVec
	QueryResultsCount    prometheus.Histogram
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	RateLimitedTotal     prometheus.Counter
	EventsPublishedTotal *prometheus.CounterVec
	CircuitBreakerState  *prometheus.GaugeVec

	gatherer prometheus.Gatherer
}

// New creates all collectors and registers them with reg. Passing
// prometheus.DefaultRegisterer exposes them on the default handler; tests
// pass a fresh prometheus.NewRegistry().
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
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
		StoreMutationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_store_mutations_total",
				Help: "Store mutations by operation and outcome (ok, invalid, not_found, storage_error).",
			},
			[]string{"op", "outcome"},
		),
		StoreRecords: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "catalog_store_records",
				Help: "Number of records currently held by the store.",
			},
		),
		PersistDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "catalog_persist_duration_seconds",
				Help:    "Time spent writing the full collection to the backend.",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
			},
			[]string{"backend"},
		),
		IndexRebuildsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "catalog_index_rebuilds_total",
				Help: "Total index rebuilds.",
			},
		),
		IndexRebuildDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "catalog_index_rebuild_duration_seconds",
				Help:    "Index rebuild latency in seconds.",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
		),
		IndexTerms: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "catalog_index_terms",
				Help: "Distinct terms in the current index.",
			},
		),
		QueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_queries_total",
				Help: "Catalog queries by result type (hit, zero_result).",
			},
			[]string{"result_type"},
		),
		QueryResultsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "catalog_query_results_count",
				Help:    "Number of records returned per query.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 500},
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of cache misses.",
			},
		),
		RateLimitedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "rate_limited_requests_total",
				Help: "Requests rejected by the rate limiter.",
			},
		),
		EventsPublishedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_events_published_total",
				Help: "Events handed to the event stream by topic and status.",
			},
			[]string{"topic", "status"},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.StoreMutationsTotal,
		m.StoreRecords,
		m.PersistDuration,
		m.IndexRebuildsTotal,
		m.IndexRebuildDuration,
		m.IndexTerms,
		m.QueriesTotal,
		m.QueryResultsCount,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.RateLimitedTotal,
		m.EventsPublishedTotal,
		m.CircuitBreakerState,
	)

	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	}
	return m
}

// RecordMutation counts one store mutation and updates the record gauge.
func (m *Metrics) RecordMutation(op, outcome string, records int) {
	if m == nil {
		return
	}
	m.StoreMutationsTotal.WithLabelValues(op, outcome).Inc()
	m.StoreRecords.Set(float64(records))
}

// ObservePersist records one backend save.
func (m *Metrics) ObservePersist(backend string, d time.Duration) {
	if m == nil {
		return
	}
	m.PersistDuration.WithLabelValues(backend).Observe(d.Seconds())
}

// ObserveRebuild records one index rebuild.
func (m *Metrics) ObserveRebuild(d time.Duration, terms int) {
	if m == nil {
		return
	}
	m.IndexRebuildsTotal.Inc()
	m.IndexRebuildDuration.Observe(d.Seconds())
	m.IndexTerms.Set(float64(terms))
}

// ObserveQuery records the size of one query result.
func (m *Metrics) ObserveQuery(results int) {
	if m == nil {
		return
	}
	resultType := "hit"
	if results == 0 {
		resultType = "zero_result"
	}
	m.QueriesTotal.WithLabelValues(resultType).Inc()
	m.QueryResultsCount.Observe(float64(results))
}

// RecordCache counts a cache lookup.
func (m *Metrics) RecordCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHitsTotal.Inc()
	} else {
		m.CacheMissesTotal.Inc()
	}
}

// RecordPublish counts one event handed to the stream.
func (m *Metrics) RecordPublish(topic string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.EventsPublishedTotal.WithLabelValues(topic, status).Inc()
}

// SetBreakerState exports a circuit breaker state.
func (m *Metrics) SetBreakerState(name string, state int) {
	if m == nil {
		return
	}
	m.CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}

// Handler returns the scrape handler for the registry the metrics were
// registered with, or the default handler when it is not a Gatherer.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
