// Package metrics provides Prometheus metrics for the leaderboard service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Tiered store metrics. "tier" is either "cache" or "durable".
	storeQueryLatency  *prometheus.HistogramVec
	storeUpdateLatency *prometheus.HistogramVec
	cacheFallbacks     *prometheus.CounterVec
	cacheMisses        *prometheus.CounterVec
	cacheWriteFailures prometheus.Counter
	scoreWrites        prometheus.Counter

	// Write pipeline metrics
	eventsProcessed  prometheus.Counter
	eventsDuplicate  prometheus.Counter
	scoringErrors    prometheus.Counter
	validationErrors prometheus.Counter

	// Queue and worker metrics
	queueSize          prometheus.Gauge
	queueEnqueues      prometheus.Counter
	queueDequeues      prometheus.Counter
	queueEnqueueErrors prometheus.Counter
	workerCount        prometheus.Gauge
	workerErrors       prometheus.Counter
	workerLatency      prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "leaderboard",
		subsystem:        "service",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	factory := func(name, help string) prometheus.Opts {
		return prometheus.Opts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      name,
			Help:      help,
		}
	}

	m.httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts(factory("http_requests_total", "HTTP requests by endpoint, method and status code.")),
		[]string{"endpoint", "method", "status"},
	)
	m.httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status"},
	)

	m.storeQueryLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "store_query_latency_ms",
			Help:      "Read latency per storage tier in milliseconds.",
			Buckets:   m.histogramBuckets,
		},
		[]string{"tier"},
	)
	m.storeUpdateLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "store_update_latency_ms",
			Help:      "Write latency per storage tier in milliseconds.",
			Buckets:   m.histogramBuckets,
		},
		[]string{"tier"},
	)
	m.cacheFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts(factory("cache_fallbacks_total", "Reads answered by the durable store after a cache failure.")),
		[]string{"operation"},
	)
	m.cacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts(factory("cache_misses_total", "Reads answered by the durable store after a cache miss.")),
		[]string{"operation"},
	)
	m.cacheWriteFailures = prometheus.NewCounter(
		prometheus.CounterOpts(factory("cache_write_failures_total", "Best-effort cache mirror writes that failed.")))
	m.scoreWrites = prometheus.NewCounter(
		prometheus.CounterOpts(factory("score_writes_total", "Successful score upserts.")))

	m.eventsProcessed = prometheus.NewCounter(
		prometheus.CounterOpts(factory("events_processed_total", "Events accepted for processing.")))
	m.eventsDuplicate = prometheus.NewCounter(
		prometheus.CounterOpts(factory("events_duplicate_total", "Events rejected as duplicates.")))
	m.scoringErrors = prometheus.NewCounter(
		prometheus.CounterOpts(factory("scoring_errors_total", "Score calculation failures.")))
	m.validationErrors = prometheus.NewCounter(
		prometheus.CounterOpts(factory("validation_errors_total", "Events rejected by feature validation.")))

	m.queueSize = prometheus.NewGauge(
		prometheus.GaugeOpts(factory("queue_size", "Current number of queued events.")))
	m.queueEnqueues = prometheus.NewCounter(
		prometheus.CounterOpts(factory("queue_enqueues_total", "Events enqueued.")))
	m.queueDequeues = prometheus.NewCounter(
		prometheus.CounterOpts(factory("queue_dequeues_total", "Events dequeued.")))
	m.queueEnqueueErrors = prometheus.NewCounter(
		prometheus.CounterOpts(factory("queue_enqueue_errors_total", "Enqueue attempts rejected by backpressure.")))
	m.workerCount = prometheus.NewGauge(
		prometheus.GaugeOpts(factory("worker_count", "Number of running workers.")))
	m.workerErrors = prometheus.NewCounter(
		prometheus.CounterOpts(factory("worker_errors_total", "Worker processing failures.")))
	m.workerLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "worker_processing_latency_ms",
			Help:      "Per-event worker processing latency in milliseconds.",
			Buckets:   m.histogramBuckets,
		})

	m.registry.MustRegister(
		m.httpRequests, m.httpRequestDuration,
		m.storeQueryLatency, m.storeUpdateLatency,
		m.cacheFallbacks, m.cacheMisses, m.cacheWriteFailures, m.scoreWrites,
		m.eventsProcessed, m.eventsDuplicate, m.scoringErrors, m.validationErrors,
		m.queueSize, m.queueEnqueues, m.queueDequeues, m.queueEnqueueErrors,
		m.workerCount, m.workerErrors, m.workerLatency,
	)
}

// Package-level helpers operating on the global manager.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, status string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, status).Inc()
}

// RecordHTTPRequestDuration records HTTP request latency.
func RecordHTTPRequestDuration(endpoint, method, status string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, status).Observe(durationMs)
}

// RecordStoreQueryLatency records read latency for a storage tier.
func RecordStoreQueryLatency(tier string, latencyMs float64) {
	globalManager.storeQueryLatency.WithLabelValues(tier).Observe(latencyMs)
}

// RecordStoreUpdateLatency records write latency for a storage tier.
func RecordStoreUpdateLatency(tier string, latencyMs float64) {
	globalManager.storeUpdateLatency.WithLabelValues(tier).Observe(latencyMs)
}

// RecordCacheFallback records a read served by the durable store after a cache failure.
func RecordCacheFallback(operation string) {
	globalManager.cacheFallbacks.WithLabelValues(operation).Inc()
}

// RecordCacheMiss records a read served by the durable store after a cache miss.
func RecordCacheMiss(operation string) {
	globalManager.cacheMisses.WithLabelValues(operation).Inc()
}

// RecordCacheWriteFailure records a failed best-effort cache mirror write.
func RecordCacheWriteFailure() {
	globalManager.cacheWriteFailures.Inc()
}

// RecordScoreWrite records a successful score upsert.
func RecordScoreWrite() {
	globalManager.scoreWrites.Inc()
}

// RecordEventProcessed records an accepted event.
func RecordEventProcessed() {
	globalManager.eventsProcessed.Inc()
}

// RecordEventDuplicate records a duplicate event.
func RecordEventDuplicate() {
	globalManager.eventsDuplicate.Inc()
}

// RecordScoringError records a score calculation failure.
func RecordScoringError() {
	globalManager.scoringErrors.Inc()
}

// RecordValidationError records an event rejected by validation.
func RecordValidationError() {
	globalManager.validationErrors.Inc()
}

// UpdateQueueSize updates the queue size gauge.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// RecordQueueEnqueue records an enqueued event.
func RecordQueueEnqueue() {
	globalManager.queueEnqueues.Inc()
}

// RecordQueueDequeue records a dequeued event.
func RecordQueueDequeue() {
	globalManager.queueDequeues.Inc()
}

// RecordQueueEnqueueError records an enqueue rejected by backpressure.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// UpdateWorkerCount updates the worker count gauge.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerError records a worker processing failure.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordWorkerProcessingLatency records per-event worker latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerLatency.Observe(latencyMs)
}

// GetRegistry returns the custom Prometheus registry used by the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
