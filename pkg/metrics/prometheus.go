// Package metrics provides Prometheus metrics for the weather oracle node.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the oracle node.
type Manager struct {
	namespace        string
	subsystem        string
	authoringBuckets []float64
	ioBuckets        []float64
	httpBuckets      []float64
	registry         prometheus.Registerer

	// Block authoring
	slotsTotal       prometheus.Counter
	blocksAuthored   prometheus.Counter
	slotsSkipped     *prometheus.CounterVec
	authoringLatency prometheus.Histogram
	bestBlock        prometheus.Gauge

	// Inherent provisioning
	inherentsProvided  prometheus.Counter
	inherentFailures   *prometheus.CounterVec
	resolutionSource   *prometheus.CounterVec
	lastTemperatureC   prometheus.Gauge
	inherentCheckFails prometheus.Counter

	// Outbound fetches
	fetchRequests *prometheus.CounterVec
	fetchLatency  *prometheus.HistogramVec
	breakerState  *prometheus.GaugeVec

	// Ledger
	extrinsicsApplied  *prometheus.CounterVec
	stateCommitLatency prometheus.Histogram
	stateErrors        prometheus.Counter

	// Transaction pool
	txPoolSize           prometheus.Gauge
	txPoolCapacity       prometheus.Gauge
	txPoolRejected       *prometheus.CounterVec
	txPoolRequeued       prometheus.Counter
	duplicateSubmissions prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	apiOutcomes         *prometheus.CounterVec

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
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "weatheroracle",
		subsystem:        "node",
		authoringBuckets: defaultAuthoringBuckets,
		ioBuckets:        defaultIOBuckets,
		httpBuckets:      prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets,
	})
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	m.slotsTotal = m.counter("slots_total", "Total number of authoring slots started")
	m.blocksAuthored = m.counter("blocks_authored_total", "Total number of blocks sealed and imported")
	m.slotsSkipped = m.counterVec("slots_skipped_total", "Slots that produced no block, by reason", "reason")
	m.authoringLatency = m.histogram("authoring_latency_milliseconds", "Time from slot start to block import", m.authoringBuckets)
	m.bestBlock = m.gauge("best_block", "Number of the best imported block")

	m.inherentsProvided = m.counter("inherents_provided_total", "Inherent data bags filled with a temperature")
	m.inherentFailures = m.counterVec("inherent_failures_total", "Failed inherent provisioning attempts by stage", "stage")
	m.resolutionSource = m.counterVec("resolution_source_total", "Coordinate resolutions by source", "source")
	m.lastTemperatureC = m.gauge("last_temperature_celsius", "Last quantized temperature provided, in Celsius")
	m.inherentCheckFails = m.counter("inherent_check_failures_total", "Blocks rejected by inherent checks")

	m.fetchRequests = m.counterVec("fetch_requests_total", "Outbound fetches by endpoint and outcome", "endpoint", "outcome")
	m.fetchLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "fetch_latency_milliseconds",
		Help:      "Outbound fetch latency in milliseconds",
		Buckets:   m.ioBuckets,
	}, []string{"endpoint"})
	m.breakerState = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "breaker_state",
		Help:      "Circuit breaker state per endpoint (0 closed, 1 half-open, 2 open)",
	}, []string{"endpoint"})

	m.extrinsicsApplied = m.counterVec("extrinsics_applied_total", "Applied extrinsics by call and result", "call", "result")
	m.stateCommitLatency = m.histogram("state_commit_latency_milliseconds", "Ledger state commit latency in milliseconds", m.ioBuckets)
	m.stateErrors = m.counter("state_errors_total", "Ledger state backend errors")

	m.txPoolSize = m.gauge("tx_pool_size", "Extrinsics waiting in the transaction pool")
	m.txPoolCapacity = m.gauge("tx_pool_capacity", "Transaction pool capacity")
	m.txPoolRejected = m.counterVec("tx_pool_rejected_total", "Submissions rejected by the pool", "reason")
	m.txPoolRequeued = m.counter("tx_pool_requeued_total", "Extrinsics returned to the pool by an aborted block")
	m.duplicateSubmissions = m.counter("duplicate_submissions_total", "Submissions dropped by idempotency key")

	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method",
		"endpoint", "method", "status_code")
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.httpBuckets,
	}, []string{"endpoint", "method", "status_code"})
	m.apiOutcomes = m.counterVec("api_outcomes_total", "API responses by endpoint and outcome (accepted, duplicate, backpressure, ...)",
		"endpoint", "outcome")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// Authoring.

// RecordSlot increments the slot counter.
func RecordSlot() { globalManager.slotsTotal.Inc() }

// RecordBlockAuthored records a sealed block and its authoring latency.
func RecordBlockAuthored(number uint64, latencyMs float64) {
	globalManager.blocksAuthored.Inc()
	globalManager.authoringLatency.Observe(latencyMs)
	globalManager.bestBlock.Set(float64(number))
}

// RecordSlotSkipped counts a slot that produced no block.
func RecordSlotSkipped(reason string) { globalManager.slotsSkipped.WithLabelValues(reason).Inc() }

// Inherents.

// RecordInherentProvided records a provided temperature.
func RecordInherentProvided(celsius float64) {
	globalManager.inherentsProvided.Inc()
	globalManager.lastTemperatureC.Set(celsius)
}

// RecordInherentFailure counts a provisioning failure at stage.
func RecordInherentFailure(stage string) { globalManager.inherentFailures.WithLabelValues(stage).Inc() }

// RecordResolution counts where coordinates came from.
func RecordResolution(source string) { globalManager.resolutionSource.WithLabelValues(source).Inc() }

// RecordInherentCheckFailure counts a block rejected by inherent checks.
func RecordInherentCheckFailure() { globalManager.inherentCheckFails.Inc() }

// Fetches.

// RecordFetch records an outbound request outcome and latency.
func RecordFetch(endpoint, outcome string, latencyMs float64) {
	globalManager.fetchRequests.WithLabelValues(endpoint, outcome).Inc()
	globalManager.fetchLatency.WithLabelValues(endpoint).Observe(latencyMs)
}

// UpdateBreakerState sets the breaker state gauge for endpoint.
func UpdateBreakerState(endpoint string, state int) {
	globalManager.breakerState.WithLabelValues(endpoint).Set(float64(state))
}

// Ledger.

// RecordExtrinsic counts an applied extrinsic.
func RecordExtrinsic(call, result string) {
	globalManager.extrinsicsApplied.WithLabelValues(call, result).Inc()
}

// RecordStateCommit observes a state commit latency.
func RecordStateCommit(latencyMs float64) { globalManager.stateCommitLatency.Observe(latencyMs) }

// RecordStateError counts a state backend error.
func RecordStateError() { globalManager.stateErrors.Inc() }

// Transaction pool.

// UpdateTxPoolSize sets the number of pooled extrinsics.
func UpdateTxPoolSize(size int) { globalManager.txPoolSize.Set(float64(size)) }

// UpdateTxPoolCapacity sets the pool capacity.
func UpdateTxPoolCapacity(capacity int) { globalManager.txPoolCapacity.Set(float64(capacity)) }

// RecordTxPoolRejected counts a rejected submission.
func RecordTxPoolRejected(reason string) { globalManager.txPoolRejected.WithLabelValues(reason).Inc() }

// RecordTxPoolRequeued counts extrinsics put back after an aborted block.
func RecordTxPoolRequeued(n int) { globalManager.txPoolRequeued.Add(float64(n)) }

// RecordDuplicateSubmission counts a submission dropped as duplicate.
func RecordDuplicateSubmission() { globalManager.duplicateSubmissions.Inc() }

// HTTP.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordAPIOutcome counts a response by what it did for the caller.
func RecordAPIOutcome(endpoint, outcome string) {
	globalManager.apiOutcomes.WithLabelValues(endpoint, outcome).Inc()
}

// System.

// UpdateSystemMemoryUsage sets system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) { globalManager.systemGoroutineCount.Set(float64(count)) }

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) { globalManager.systemGCPauseTime.Observe(pauseMs) }

// Init replaces the global manager with one built from opts on a fresh
// registry. Call it once at startup, before GetRegistry is served.
func Init(opts ...Option) {
	customRegistry = prometheus.NewRegistry()
	globalManager = NewManager(append(opts, WithPrometheusRegistry(customRegistry))...)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
