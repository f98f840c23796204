// Package metrics provides Prometheus metrics for the BRCA metadata loader.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the loader.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	registry         prometheus.Registerer

	// API Client Metrics - outbound GDC traffic
	apiRequests  *prometheus.CounterVec
	apiRetries   *prometheus.CounterVec
	apiErrors    *prometheus.CounterVec
	queryLatency *prometheus.HistogramVec
	rowsFetched  *prometheus.GaugeVec

	// Download Metrics - supplementary and data-file transfers
	downloadBytes      prometheus.Counter
	downloadsCompleted prometheus.Counter
	downloadsSkipped   prometheus.Counter
	htmlPayloads       prometheus.Counter

	// Subtype Resolution Metrics - per-stage outcomes
	subtypeStages *prometheus.CounterVec

	// Output Metrics - persisted tables
	tablesWritten *prometheus.CounterVec
	rowsWritten   *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "brcaloader",
		subsystem:        "gdc",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.apiRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "api_requests_total",
			Help:      "Total number of GDC API requests by resource",
		},
		[]string{"resource"},
	)

	m.apiRetries = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "api_retries_total",
			Help:      "Total number of retried GDC API requests by resource",
		},
		[]string{"resource"},
	)

	m.apiErrors = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "api_errors_total",
			Help:      "Total number of failed GDC API requests by resource and error kind",
		},
		[]string{"resource", "error_type"},
	)

	m.queryLatency = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "query_latency_seconds",
			Help:      "Histogram of GDC query latency by resource",
			Buckets:   m.histogramBuckets,
		},
		[]string{"resource"},
	)

	m.rowsFetched = auto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "rows_fetched",
			Help:      "Number of rows returned by the most recent fetch per resource",
		},
		[]string{"resource"},
	)

	m.downloadBytes = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "download_bytes_total",
		Help:      "Total bytes written to disk by file downloads",
	})

	m.downloadsCompleted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "downloads_completed_total",
		Help:      "Total number of completed file downloads",
	})

	m.downloadsSkipped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "downloads_skipped_total",
		Help:      "Total number of downloads skipped because the file already existed",
	})

	m.htmlPayloads = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "html_payloads_total",
		Help:      "Total number of downloads rejected as HTML error pages",
	})

	m.subtypeStages = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "subtype_stage_outcomes_total",
			Help:      "Outcomes of PAM50 subtype resolution stages",
		},
		[]string{"stage", "outcome"},
	)

	m.tablesWritten = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "tables_written_total",
			Help:      "Total number of TSV tables persisted by output name",
		},
		[]string{"table"},
	)

	m.rowsWritten = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "rows_written_total",
			Help:      "Total number of TSV rows persisted by output name",
		},
		[]string{"table"},
	)
}

// RecordAPIRequest increments the API request counter for a resource.
func RecordAPIRequest(resource string) {
	globalManager.apiRequests.WithLabelValues(resource).Inc()
}

// RecordAPIRetry increments the API retry counter for a resource.
func RecordAPIRetry(resource string) {
	globalManager.apiRetries.WithLabelValues(resource).Inc()
}

// RecordAPIError increments the API error counter for a resource.
func RecordAPIError(resource, errorType string) {
	globalManager.apiErrors.WithLabelValues(resource, errorType).Inc()
}

// RecordQueryLatency records query latency in seconds for a resource.
func RecordQueryLatency(resource string, seconds float64) {
	globalManager.queryLatency.WithLabelValues(resource).Observe(seconds)
}

// UpdateRowsFetched sets the row count of the most recent fetch for a resource.
func UpdateRowsFetched(resource string, count int) {
	globalManager.rowsFetched.WithLabelValues(resource).Set(float64(count))
}

// RecordDownloadBytes adds transferred bytes to the download counter.
func RecordDownloadBytes(n int64) {
	globalManager.downloadBytes.Add(float64(n))
}

// RecordDownloadCompleted increments the completed downloads counter.
func RecordDownloadCompleted() {
	globalManager.downloadsCompleted.Inc()
}

// RecordDownloadSkipped increments the skipped downloads counter.
func RecordDownloadSkipped() {
	globalManager.downloadsSkipped.Inc()
}

// RecordHTMLPayload increments the rejected HTML payload counter.
func RecordHTMLPayload() {
	globalManager.htmlPayloads.Inc()
}

// RecordSubtypeStage records the outcome of a subtype resolution stage.
func RecordSubtypeStage(stage, outcome string) {
	globalManager.subtypeStages.WithLabelValues(stage, outcome).Inc()
}

// RecordTableWritten records a persisted TSV table and its row count.
func RecordTableWritten(table string, rows int) {
	globalManager.tablesWritten.WithLabelValues(table).Inc()
	globalManager.rowsWritten.WithLabelValues(table).Add(float64(rows))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Handler returns an http.Handler serving the custom registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(customRegistry, promhttp.HandlerOpts{})
}
