package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Circuit breaker states as reported by the CircuitState gauge.
const (
	CircuitStateClosed   = 0
	CircuitStateHalfOpen = 1
	CircuitStateOpen     = 2
)

// Metrics contains all Prometheus metrics for the research assistant.
// Metrics are organized by subsystem: searches, sources, drafts and the HTTP
// API. All metrics are registered via promauto with the default Prometheus
// registry.
type Metrics struct {
	// SearchesStarted counts publication searches initiated.
	SearchesStarted prometheus.Counter

	// SearchesCompleted counts searches that returned normally, including empty ones.
	SearchesCompleted prometheus.Counter

	// SearchesFailed counts searches aborted by an unexpected pipeline failure.
	SearchesFailed prometheus.Counter

	// SearchesEmpty counts completed searches that returned no publications.
	SearchesEmpty prometheus.Counter

	// SearchDuration observes the end-to-end duration of searches in seconds.
	SearchDuration prometheus.Histogram

	// ResultsPerSearch observes the number of ranked publications returned per search.
	ResultsPerSearch prometheus.Histogram

	// SourceSearchesStarted counts searches sent to a source, labeled by source.
	SourceSearchesStarted *prometheus.CounterVec

	// SourceSearchesCompleted counts successful source searches, labeled by source.
	SourceSearchesCompleted *prometheus.CounterVec

	// SourceSearchesFailed counts failed source searches, labeled by source and error type.
	SourceSearchesFailed *prometheus.CounterVec

	// SourceSearchDuration observes source search duration in seconds, labeled by source.
	SourceSearchDuration *prometheus.HistogramVec

	// PublicationsPerSource observes candidates returned per source search, labeled by source.
	PublicationsPerSource *prometheus.HistogramVec

	// SourceDegraded counts responses whose page structure was not recognized, labeled by source.
	SourceDegraded *prometheus.CounterVec

	// CircuitState reports each source's circuit breaker state
	// (0 closed, 1 half-open, 2 open), labeled by source.
	CircuitState *prometheus.GaugeVec

	// DraftRequestsTotal counts draft generation requests, labeled by model.
	DraftRequestsTotal *prometheus.CounterVec

	// DraftRequestsFailed counts failed draft generations, labeled by model and error type.
	DraftRequestsFailed *prometheus.CounterVec

	// DraftRequestDuration observes draft generation duration in seconds, labeled by model.
	DraftRequestDuration *prometheus.HistogramVec

	// HTTPRequestsTotal counts API requests, labeled by method, route and status code.
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPRequestDuration observes API request duration in seconds, labeled by method and route.
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		// Searches
		SearchesStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_started_total",
			Help:      "Total number of publication searches started",
		}),
		SearchesCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_completed_total",
			Help:      "Total number of publication searches completed",
		}),
		SearchesFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_failed_total",
			Help:      "Total number of publication searches aborted by an unexpected failure",
		}),
		SearchesEmpty: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_empty_total",
			Help:      "Total number of publication searches that returned no results",
		}),
		SearchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Duration of publication searches in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 15, 30, 60},
		}),
		ResultsPerSearch: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "results_per_search",
			Help:      "Number of ranked publications returned per search",
			Buckets:   []float64{0, 1, 5, 10, 20, 50},
		}),

		// Sources
		SourceSearchesStarted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_searches_started_total",
			Help:      "Total number of searches sent to publication sources",
		}, []string{"source"}),
		SourceSearchesCompleted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_searches_completed_total",
			Help:      "Total number of publication source searches completed",
		}, []string{"source"}),
		SourceSearchesFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_searches_failed_total",
			Help:      "Total number of publication source searches that failed",
		}, []string{"source", "error_type"}),
		SourceSearchDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_search_duration_seconds",
			Help:      "Duration of publication source searches in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		}, []string{"source"}),
		PublicationsPerSource: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "publications_per_source_search",
			Help:      "Number of candidates returned per publication source search",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 200},
		}, []string{"source"}),
		SourceDegraded: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_degraded_total",
			Help:      "Total number of source responses with unrecognized page structure",
		}, []string{"source"}),
		CircuitState: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "source_circuit_state",
			Help:      "Circuit breaker state per source (0 closed, 1 half-open, 2 open)",
		}, []string{"source"}),

		// Drafts
		DraftRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "draft_requests_total",
			Help:      "Total number of draft generation requests",
		}, []string{"model"}),
		DraftRequestsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "draft_requests_failed_total",
			Help:      "Total number of failed draft generation requests",
		}, []string{"model", "error_type"}),
		DraftRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "draft_request_duration_seconds",
			Help:      "Duration of draft generation requests in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"model"}),

		// HTTP API
		HTTPRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP API requests",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP API requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// RecordSearchStarted records that a search has started.
func (m *Metrics) RecordSearchStarted() {
	m.SearchesStarted.Inc()
}

// RecordSearchCompleted records a completed search and its result count.
func (m *Metrics) RecordSearchCompleted(resultCount int, durationSeconds float64) {
	m.SearchesCompleted.Inc()
	m.SearchDuration.Observe(durationSeconds)
	m.ResultsPerSearch.Observe(float64(resultCount))
	if resultCount == 0 {
		m.SearchesEmpty.Inc()
	}
}

// RecordSearchFailed records a search aborted by an unexpected failure.
func (m *Metrics) RecordSearchFailed(durationSeconds float64) {
	m.SearchesFailed.Inc()
	m.SearchDuration.Observe(durationSeconds)
}

// RecordSourceSearchStarted records that a source search has started.
func (m *Metrics) RecordSourceSearchStarted(source string) {
	m.SourceSearchesStarted.WithLabelValues(source).Inc()
}

// RecordSourceSearchCompleted records a successful source search.
func (m *Metrics) RecordSourceSearchCompleted(source string, publicationCount int, durationSeconds float64, degraded bool) {
	m.SourceSearchesCompleted.WithLabelValues(source).Inc()
	m.SourceSearchDuration.WithLabelValues(source).Observe(durationSeconds)
	m.PublicationsPerSource.WithLabelValues(source).Observe(float64(publicationCount))
	if degraded {
		m.SourceDegraded.WithLabelValues(source).Inc()
	}
}

// RecordSourceSearchFailed records a failed source search.
func (m *Metrics) RecordSourceSearchFailed(source, errorType string, durationSeconds float64) {
	m.SourceSearchesFailed.WithLabelValues(source, errorType).Inc()
	m.SourceSearchDuration.WithLabelValues(source).Observe(durationSeconds)
}

// SetCircuitState records a source's circuit breaker state. Unknown states
// are reported as closed.
func (m *Metrics) SetCircuitState(source, state string) {
	value := CircuitStateClosed
	switch state {
	case "half-open":
		value = CircuitStateHalfOpen
	case "open":
		value = CircuitStateOpen
	}
	m.CircuitState.WithLabelValues(source).Set(float64(value))
}

// RecordDraftRequest records a successful draft generation.
func (m *Metrics) RecordDraftRequest(model string, durationSeconds float64) {
	m.DraftRequestsTotal.WithLabelValues(model).Inc()
	m.DraftRequestDuration.WithLabelValues(model).Observe(durationSeconds)
}

// RecordDraftRequestFailed records a failed draft generation.
func (m *Metrics) RecordDraftRequestFailed(model, errorType string, durationSeconds float64) {
	m.DraftRequestsTotal.WithLabelValues(model).Inc()
	m.DraftRequestsFailed.WithLabelValues(model, errorType).Inc()
	m.DraftRequestDuration.WithLabelValues(model).Observe(durationSeconds)
}

// RecordHTTPRequest records a served API request.
func (m *Metrics) RecordHTTPRequest(method, route, status string, durationSeconds float64) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(durationSeconds)
}
