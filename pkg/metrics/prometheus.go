// Package metrics provides Prometheus metrics for the gaze aggregation service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 5 * time.Second
)

var (
	defaultLatencyBuckets = []float64{0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 20000} //nolint:gochecknoglobals // read-only defaults
	defaultPointBuckets   = []float64{1, 2, 5, 10, 25, 50, 100, 200, 300, 500, 1000}                           //nolint:gochecknoglobals // read-only defaults
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace       string
	subsystem       string
	metricPrefix    string
	latencyBuckets  []float64
	pointBuckets    []float64
	constLabels     map[string]string
	refreshInterval time.Duration
	registry        prometheus.Registerer

	// Ingestion
	submissions         *prometheus.CounterVec
	submissionsRejected *prometheus.CounterVec
	fixationsPerBatch   prometheus.Histogram

	// Session store
	sessions      prometheus.Gauge
	storeLatency  *prometheus.HistogramVec
	evictions     prometheus.Counter
	sweepDuration prometheus.Histogram
	sweepFailures prometheus.Counter
	sweepLastUnix prometheus.Gauge

	// Clustering
	aggregations       *prometheus.CounterVec
	clusteringLatency  prometheus.Histogram
	clusteringPoints   prometheus.Histogram
	selectedClusters   prometheus.Gauge
	numericWarnings    *prometheus.CounterVec
	aggregationLatency prometheus.Histogram

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:       "gaze",
		subsystem:       "aggregator",
		latencyBuckets:  defaultLatencyBuckets,
		pointBuckets:    defaultPointBuckets,
		refreshInterval: defaultRefreshInterval,
		registry:        prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// RefreshInterval reports how often gauges are expected to be refreshed.
func (m *Manager) RefreshInterval() time.Duration { return m.refreshInterval }

// RefreshInterval reports the gauge refresh interval of the global manager.
func RefreshInterval() time.Duration { return globalManager.refreshInterval }

func (m *Manager) name(n string) string { return m.metricPrefix + n }

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.constLabels)

	m.submissions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("submissions_total"),
		Help: "Accepted submissions by role",
	}, []string{"role"})

	m.submissionsRejected = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("submissions_rejected_total"),
		Help: "Submissions rejected as malformed, by reason",
	}, []string{"reason"})

	m.fixationsPerBatch = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name:    m.name("fixations_per_submission"),
		Help:    "Number of fixations carried by one student submission",
		Buckets: m.pointBuckets,
	})

	m.sessions = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("sessions_active"),
		Help: "Sessions currently held in the store",
	})

	m.storeLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name:    m.name("store_operation_latency_milliseconds"),
		Help:    "Session store operation latency in milliseconds",
		Buckets: m.latencyBuckets,
	}, []string{"backend", "operation"})

	m.evictions = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("sessions_evicted_total"),
		Help: "Sessions removed for staleness",
	})

	m.sweepDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name:    m.name("eviction_sweep_duration_milliseconds"),
		Help:    "Duration of one eviction sweep",
		Buckets: m.latencyBuckets,
	})

	m.sweepFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("eviction_sweep_failures_total"),
		Help: "Eviction sweeps that returned an error or panicked",
	})

	m.sweepLastUnix = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("eviction_sweep_last_unix"),
		Help: "Unix time of the last completed sweep",
	})

	m.aggregations = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("aggregations_total"),
		Help: "Aggregate-and-cluster requests by outcome",
	}, []string{"outcome"})

	m.clusteringLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name:    m.name("clustering_latency_milliseconds"),
		Help:    "Spectral clustering latency in milliseconds",
		Buckets: m.latencyBuckets,
	})

	m.aggregationLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name:    m.name("aggregation_latency_milliseconds"),
		Help:    "Snapshot plus clustering latency in milliseconds",
		Buckets: m.latencyBuckets,
	})

	m.clusteringPoints = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name:    m.name("clustering_points"),
		Help:    "Number of fixation points per clustering run",
		Buckets: m.pointBuckets,
	})

	m.selectedClusters = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("selected_cluster_count"),
		Help: "Cluster count chosen by the last clustering run",
	})

	m.numericWarnings = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("numeric_warnings_total"),
		Help: "Soft numeric problems met while clustering, by kind",
	}, []string{"kind"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("http_requests_total"),
		Help: "Total number of HTTP requests",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name:    m.name("http_request_duration_milliseconds"),
		Help:    "HTTP request duration in milliseconds",
		Buckets: m.latencyBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorRateByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("errors_by_component_total"),
		Help: "Errors by component and type",
	}, []string{"component", "error_type"})

	m.errorRateByType = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("errors_by_type_total"),
		Help: "Errors by type and severity",
	}, []string{"error_type", "severity"})

	m.errorRateByEndpoint = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("errors_by_endpoint_total"),
		Help: "Errors by endpoint, method and type",
	}, []string{"endpoint", "method", "error_type"})

	m.errorLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name:    m.name("error_latency_milliseconds"),
		Help:    "Latency of operations that ended in an error",
		Buckets: m.latencyBuckets,
	}, []string{"component", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("system_memory_usage_bytes"),
		Help: "Current memory usage in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("system_goroutine_count"),
		Help: "Current number of goroutines",
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name:    m.name("system_gc_pause_time_milliseconds"),
		Help:    "GC pause time in milliseconds",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	})
}

// Ingestion Metrics Functions.

// RecordSubmission counts an accepted submission for role.
func RecordSubmission(role string) {
	globalManager.submissions.WithLabelValues(role).Inc()
}

// RecordSubmissionRejected counts a malformed submission.
func RecordSubmissionRejected(reason string) {
	globalManager.submissionsRejected.WithLabelValues(reason).Inc()
}

// RecordFixationsPerSubmission observes the size of one student batch.
func RecordFixationsPerSubmission(n int) {
	globalManager.fixationsPerBatch.Observe(float64(n))
}

// Session Store Metrics Functions.

// UpdateSessionCount sets the number of sessions in the store.
func UpdateSessionCount(n int) {
	globalManager.sessions.Set(float64(n))
}

// RecordStoreLatency records one store operation.
func RecordStoreLatency(backend, operation string, latencyMs float64) {
	globalManager.storeLatency.WithLabelValues(backend, operation).Observe(latencyMs)
}

// RecordEvictions adds n evicted sessions.
func RecordEvictions(n int) {
	globalManager.evictions.Add(float64(n))
}

// RecordSweepDuration records one sweep and stamps its completion time.
func RecordSweepDuration(latencyMs float64) {
	globalManager.sweepDuration.Observe(latencyMs)
	globalManager.sweepLastUnix.Set(float64(time.Now().Unix()))
}

// RecordSweepFailure counts a failed sweep.
func RecordSweepFailure() {
	globalManager.sweepFailures.Inc()
}

// Clustering Metrics Functions.

// RecordAggregation counts an aggregate request by outcome.
func RecordAggregation(outcome string) {
	globalManager.aggregations.WithLabelValues(outcome).Inc()
}

// RecordAggregationLatency records snapshot-plus-cluster latency.
func RecordAggregationLatency(latencyMs float64) {
	globalManager.aggregationLatency.Observe(latencyMs)
}

// RecordClusteringLatency records clustering latency in milliseconds.
func RecordClusteringLatency(latencyMs float64) {
	globalManager.clusteringLatency.Observe(latencyMs)
}

// RecordClusteringPoints records how many points went into one run.
func RecordClusteringPoints(n int) {
	globalManager.clusteringPoints.Observe(float64(n))
}

// UpdateSelectedClusterCount sets the k chosen by the last run.
func UpdateSelectedClusterCount(k int) {
	globalManager.selectedClusters.Set(float64(k))
}

// RecordNumericWarning counts a soft numeric problem.
func RecordNumericWarning(kind string) {
	globalManager.numericWarnings.WithLabelValues(kind).Inc()
}

// HTTP Metrics Functions.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Enhanced Error Metrics Functions.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// System Performance Metrics Functions.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
