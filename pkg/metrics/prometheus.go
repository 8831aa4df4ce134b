// Package metrics provides Prometheus metrics for the kryds analytics service.
package metrics

import (
	"slices"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the kryds service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Engine metrics
	computations        *prometheus.CounterVec
	computationDuration *prometheus.HistogramVec
	unparseableDates    prometheus.Counter
	matrixSpecies       prometheus.Gauge
	matrixObservers     prometheus.Gauge

	// Ingest and storage metrics
	observationsIngested    prometheus.Counter
	observationsStored      prometheus.Gauge
	observersRegistered     prometheus.Gauge
	repositoryUpdateLatency prometheus.Histogram
	repositoryQueryLatency  prometheus.Histogram

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error metrics
	errorRateByComponent *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// variableLabels are the label names the vectors below partition on.
var variableLabels = []string{"operation", "endpoint", "method", "status_code", "component", "error_type"} //nolint:gochecknoglobals // fixed label set

// IsReservedLabel reports whether name is already used as a variable label
// and so cannot be a constant label.
func IsReservedLabel(name string) bool {
	return slices.Contains(variableLabels, name)
}

// Init rebuilds the global manager on a fresh custom registry with opts
// applied. Call it before any handler captures GetRegistry.
func Init(opts ...Option) {
	customRegistry = prometheus.NewRegistry()
	globalManager = NewManager(append([]Option{WithPrometheusRegistry(customRegistry)}, opts...)...)
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "kryds",
		subsystem:        "engine",
		histogramBuckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) histogramOpts(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
		Buckets:     m.histogramBuckets,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.computations = auto.NewCounterVec(
		m.counterOpts("computations_total", "Total number of engine computations by operation"),
		[]string{"operation"},
	)
	m.computationDuration = auto.NewHistogramVec(
		m.histogramOpts("computation_duration_milliseconds", "Engine computation latency in milliseconds"),
		[]string{"operation"},
	)
	m.unparseableDates = auto.NewCounter(
		m.counterOpts("unparseable_dates_total", "Present cells skipped because their date could not be parsed"),
	)
	m.matrixSpecies = auto.NewGauge(m.gaugeOpts("matrix_species", "Species rows in the last built matrix"))
	m.matrixObservers = auto.NewGauge(m.gaugeOpts("matrix_observers", "Observer columns in the last built matrix"))

	m.observationsIngested = auto.NewCounter(
		m.counterOpts("observations_ingested_total", "Total number of observation records accepted"),
	)
	m.observationsStored = auto.NewGauge(m.gaugeOpts("observations_stored", "Observation records currently stored"))
	m.observersRegistered = auto.NewGauge(m.gaugeOpts("observers_registered", "Observers currently registered"))
	m.repositoryUpdateLatency = auto.NewHistogram(
		m.histogramOpts("repository_update_latency_milliseconds", "Repository write latency in milliseconds"),
	)
	m.repositoryQueryLatency = auto.NewHistogram(
		m.histogramOpts("repository_query_latency_milliseconds", "Repository read latency in milliseconds"),
	)

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds"),
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorRateByComponent = auto.NewCounterVec(
		m.counterOpts("errors_by_component_total", "Errors by component and type"),
		[]string{"component", "error_type"},
	)
	m.errorRateByEndpoint = auto.NewCounterVec(
		m.counterOpts("errors_by_endpoint_total", "Errors by endpoint, method and type"),
		[]string{"endpoint", "method", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "System memory usage in bytes"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
}

// RecordComputation counts one engine computation and its latency.
func RecordComputation(operation string, latencyMs float64) {
	globalManager.computations.WithLabelValues(operation).Inc()
	globalManager.computationDuration.WithLabelValues(operation).Observe(latencyMs)
}

// RecordUnparseableDate increments the unparseable date counter.
func RecordUnparseableDate() {
	globalManager.unparseableDates.Inc()
}

// UpdateMatrixSize sets the dimensions of the last built matrix.
func UpdateMatrixSize(species, observers int) {
	globalManager.matrixSpecies.Set(float64(species))
	globalManager.matrixObservers.Set(float64(observers))
}

// RecordObservationsIngested adds n accepted observation records.
func RecordObservationsIngested(n int) {
	globalManager.observationsIngested.Add(float64(n))
}

// UpdateObservationsStored sets the stored observation count.
func UpdateObservationsStored(count int) {
	globalManager.observationsStored.Set(float64(count))
}

// UpdateObserversRegistered sets the registered observer count.
func UpdateObserversRegistered(count int) {
	globalManager.observersRegistered.Set(float64(count))
}

// RecordRepositoryUpdateLatency records repository write latency.
func RecordRepositoryUpdateLatency(latencyMs float64) {
	globalManager.repositoryUpdateLatency.Observe(latencyMs)
}

// RecordRepositoryQueryLatency records repository read latency.
func RecordRepositoryQueryLatency(latencyMs float64) {
	globalManager.repositoryQueryLatency.Observe(latencyMs)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
