// Package metrics provides Prometheus metrics for the ownership token framework service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorsByEndpoint    *prometheus.CounterVec
	errorsByType        *prometheus.CounterVec

	// Write paths
	submissions           *prometheus.CounterVec
	submissionDuration    *prometheus.HistogramVec
	fallbackNotifications *prometheus.CounterVec
	inflightRejections    *prometheus.CounterVec

	// Data source
	sourceCache     *prometheus.CounterVec
	sourceFetches   *prometheus.CounterVec
	refreshDuration prometheus.Histogram
	refreshErrors   prometheus.Counter
	lastRefreshUnix prometheus.Gauge
	catalogSize     *prometheus.GaugeVec

	// Read paths
	searchQueries prometheus.Counter
	searchResults prometheus.Histogram
	resolutions   *prometheus.CounterVec

	// Process
	memoryUsage    prometheus.Gauge
	goroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// customRegistry keeps the default Go collectors out of /healthz.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "otf",
		subsystem:        "index",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.httpRequests = m.counterVec("http_requests_total",
		"Total number of HTTP requests by endpoint, method and status code",
		"endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds",
		"endpoint", "method", "status_code")
	m.errorsByEndpoint = m.counterVec("http_errors_total",
		"HTTP error responses by endpoint, method and error type",
		"endpoint", "method", "error_type")
	m.errorsByType = m.counterVec("errors_by_type_total",
		"Errors by type and severity",
		"error_type", "severity")

	m.submissions = m.counterVec("submissions_total",
		"Form submissions by form and outcome",
		"form", "outcome")
	m.submissionDuration = m.histogramVec("submission_duration_milliseconds",
		"Time spent forwarding a submission to the external provider",
		"form", "outcome")
	m.fallbackNotifications = m.counterVec("fallback_notifications_total",
		"Failure notifications sent to the secondary channel by outcome",
		"outcome")
	m.inflightRejections = m.counterVec("inflight_rejections_total",
		"Submissions rejected because an identical one was still in flight",
		"form")

	m.sourceCache = m.counterVec("source_cache_total",
		"Data document cache lookups by document and result (hit, miss, stale, fallback)",
		"document", "result")
	m.sourceFetches = m.counterVec("source_fetches_total",
		"Remote data document fetches by document and outcome",
		"document", "outcome")
	m.refreshDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "refresh_duration_milliseconds",
		Help:        "Time spent building a data snapshot",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	})
	m.refreshErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "refresh_errors_total",
		Help:        "Snapshot refreshes that failed and kept the previous snapshot",
		ConstLabels: m.constLabels,
	})
	m.lastRefreshUnix = m.gauge("last_refresh_unixtime", "Unix time of the last successful snapshot refresh")
	m.catalogSize = promauto.With(m.registry).NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "catalog_entries",
		Help:        "Entries in the current snapshot by kind (tokens, metrics, criteria, assessed_tokens)",
		ConstLabels: m.constLabels,
	}, []string{"kind"})

	m.searchQueries = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "search_queries_total",
		Help:        "Non-blank token search queries",
		ConstLabels: m.constLabels,
	})
	m.searchResults = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "search_results",
		Help:        "Number of tokens returned per search",
		Buckets:     []float64{0, 1, 2, 5, 10, 25, 50},
		ConstLabels: m.constLabels,
	})
	m.resolutions = m.counterVec("resolutions_total",
		"Assessment resolutions by result (assessed, empty)",
		"result")

	m.memoryUsage = m.gauge("memory_usage_bytes", "Heap bytes allocated")
	m.goroutineCount = m.gauge("goroutines", "Number of goroutines")
}

// RecordHTTPRequest increments the request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration observes a request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordErrorByEndpoint records an error response for an endpoint.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorsByType.WithLabelValues(errorType, severity).Inc()
}

// RecordSubmission records the outcome of a newsletter or request submission.
func RecordSubmission(form, outcome string, durationMs float64) {
	globalManager.submissions.WithLabelValues(form, outcome).Inc()
	globalManager.submissionDuration.WithLabelValues(form, outcome).Observe(durationMs)
}

// RecordFallbackNotification records a secondary-channel notification attempt.
func RecordFallbackNotification(outcome string) {
	globalManager.fallbackNotifications.WithLabelValues(outcome).Inc()
}

// RecordInflightRejection records a submission refused by the in-flight guard.
func RecordInflightRejection(form string) {
	globalManager.inflightRejections.WithLabelValues(form).Inc()
}

// RecordSourceCache records a document cache lookup result.
func RecordSourceCache(document, result string) {
	globalManager.sourceCache.WithLabelValues(document, result).Inc()
}

// RecordSourceFetch records a remote document fetch.
func RecordSourceFetch(document, outcome string) {
	globalManager.sourceFetches.WithLabelValues(document, outcome).Inc()
}

// RecordRefresh records a snapshot refresh.
func RecordRefresh(durationMs float64, unix int64) {
	globalManager.refreshDuration.Observe(durationMs)
	globalManager.lastRefreshUnix.Set(float64(unix))
}

// RecordRefreshError counts a failed snapshot refresh.
func RecordRefreshError() {
	globalManager.refreshErrors.Inc()
}

// UpdateCatalogSize sets the entry count for kind.
func UpdateCatalogSize(kind string, count int) {
	globalManager.catalogSize.WithLabelValues(kind).Set(float64(count))
}

// RecordSearch records a search and its result size.
func RecordSearch(results int) {
	globalManager.searchQueries.Inc()
	globalManager.searchResults.Observe(float64(results))
}

// RecordResolution records whether a resolve produced any metrics.
func RecordResolution(assessed bool) {
	result := "empty"
	if assessed {
		result = "assessed"
	}
	globalManager.resolutions.WithLabelValues(result).Inc()
}

// UpdateMemoryUsage sets the heap allocation in bytes.
func UpdateMemoryUsage(bytes uint64) {
	globalManager.memoryUsage.Set(float64(bytes))
}

// UpdateGoroutineCount sets the number of goroutines.
func UpdateGoroutineCount(count int) {
	globalManager.goroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
