// Package metrics provides Prometheus metrics for the client ranking service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Sales
	salesMutations *prometheus.CounterVec
	salesRejected  *prometheus.CounterVec
	duplicateSales prometheus.Counter

	// Ranking
	rankingComputations prometheus.Counter
	rankingLatency      prometheus.Histogram
	recordsExcluded     prometheus.Counter
	clientsTotal        prometheus.Gauge
	recordsTotal        prometheus.Gauge
	boardVersion        prometheus.Gauge
	staleBoardsDropped  prometheus.Counter

	// Change feed
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueDropped       prometheus.Counter
	workerCount        prometheus.Gauge
	workerErrors       prometheus.Counter
	workerLatency      prometheus.Histogram
	storeQueryLatency  *prometheus.HistogramVec
	storeErrors        *prometheus.CounterVec
	liveSubscribers    prometheus.Gauge
	liveBroadcasts     prometheus.Counter
	liveDroppedClients prometheus.Counter

	// Sessions
	sessionsActive prometheus.Gauge
	unlockAttempts *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpErrors          *prometheus.CounterVec
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // dedicated registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
	customRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "ranking",
		subsystem:        "clients",
		histogramBuckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250},
		enabled:          true,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

// factory registers on m.registry, or nowhere when metrics are disabled.
func (m *Manager) factory() promauto.Factory {
	if !m.enabled {
		return promauto.With(nil)
	}
	return promauto.With(m.registry)
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return m.factory().NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return m.factory().NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return m.factory().NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return m.factory().NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		ConstLabels: m.customLabels, Buckets: m.histogramBuckets,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return m.factory().NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		ConstLabels: m.customLabels, Buckets: m.histogramBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.salesMutations = m.counterVec("sales_mutations_total", "Sale records created, updated or deleted", "op")
	m.salesRejected = m.counterVec("sales_rejected_total", "Sale submissions rejected before reaching the store", "reason")
	m.duplicateSales = m.counter("sales_duplicate_total", "Sale submissions skipped because their idempotency key was already seen")

	m.rankingComputations = m.counter("ranking_computations_total", "Leaderboard recomputations")
	m.rankingLatency = m.histogram("ranking_latency_milliseconds", "Time spent aggregating one snapshot")
	m.recordsExcluded = m.counter("records_excluded_total", "Malformed sale records skipped during aggregation")
	m.clientsTotal = m.gauge("clients_total", "Distinct clients in the latest snapshot")
	m.recordsTotal = m.gauge("records_total", "Sale records in the latest snapshot")
	m.boardVersion = m.gauge("board_version", "Version of the leaderboard currently served")
	m.staleBoardsDropped = m.counter("stale_boards_dropped_total", "Computed boards discarded because a newer one was already published")

	m.queueSize = m.gauge("queue_size", "Pending change notifications")
	m.queueCapacity = m.gauge("queue_capacity", "Capacity of the change notification queue")
	m.queueDropped = m.counter("queue_dropped_total", "Change notifications dropped because the queue was full or closed")
	m.workerCount = m.gauge("worker_count", "Recompute workers running")
	m.workerErrors = m.counter("worker_errors_total", "Recompute attempts that failed")
	m.workerLatency = m.histogram("worker_latency_milliseconds", "Snapshot read plus aggregation time per change notification")
	m.storeQueryLatency = m.histogramVec("store_latency_milliseconds", "Sale store operation latency", "backend", "op")
	m.storeErrors = m.counterVec("store_errors_total", "Sale store operation failures", "backend", "op")
	m.liveSubscribers = m.gauge("live_subscribers", "Connected websocket leaderboard subscribers")
	m.liveBroadcasts = m.counter("live_broadcasts_total", "Leaderboards pushed to websocket subscribers")
	m.liveDroppedClients = m.counter("live_dropped_clients_total", "Websocket subscribers dropped for being too slow")

	m.sessionsActive = m.gauge("sessions_active", "Sessions currently tracked")
	m.unlockAttempts = m.counterVec("admin_unlock_attempts_total", "Admin unlock attempts", "result")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration", "endpoint", "method", "status_code")
	m.httpErrors = m.counterVec("http_errors_total", "HTTP responses with status >= 400", "endpoint", "error_type")
}

// RecordSaleMutation counts a successful create, update or delete.
func RecordSaleMutation(op string) {
	globalManager.salesMutations.WithLabelValues(op).Inc()
}

// RecordSaleRejected counts a submission refused for reason.
func RecordSaleRejected(reason string) {
	globalManager.salesRejected.WithLabelValues(reason).Inc()
}

// RecordDuplicateSale counts a submission dropped by idempotency.
func RecordDuplicateSale() {
	globalManager.duplicateSales.Inc()
}

// RecordRankingComputed records one aggregation pass.
func RecordRankingComputed(latencyMs float64, records, clients, excluded int) {
	globalManager.rankingComputations.Inc()
	globalManager.rankingLatency.Observe(latencyMs)
	globalManager.recordsTotal.Set(float64(records))
	globalManager.clientsTotal.Set(float64(clients))
	if excluded > 0 {
		globalManager.recordsExcluded.Add(float64(excluded))
	}
}

// UpdateBoardVersion sets the version of the served leaderboard.
func UpdateBoardVersion(version uint64) {
	globalManager.boardVersion.Set(float64(version))
}

// RecordStaleBoardDropped counts a computed board that lost the race to a newer one.
func RecordStaleBoardDropped() {
	globalManager.staleBoardsDropped.Inc()
}

// UpdateQueueSize sets the pending change notifications.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueDropped counts a change notification that could not be enqueued.
func RecordQueueDropped() {
	globalManager.queueDropped.Inc()
}

// UpdateWorkerCount sets the number of recompute workers.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerError counts a failed recompute.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordWorkerLatency records the time one change notification took.
func RecordWorkerLatency(latencyMs float64) {
	globalManager.workerLatency.Observe(latencyMs)
}

// RecordStoreLatency records a store operation latency.
func RecordStoreLatency(backend, op string, latencyMs float64) {
	globalManager.storeQueryLatency.WithLabelValues(backend, op).Observe(latencyMs)
}

// RecordStoreError counts a store operation failure.
func RecordStoreError(backend, op string) {
	globalManager.storeErrors.WithLabelValues(backend, op).Inc()
}

// UpdateLiveSubscribers sets the connected websocket subscribers.
func UpdateLiveSubscribers(count int) {
	globalManager.liveSubscribers.Set(float64(count))
}

// RecordLiveBroadcast counts a leaderboard pushed to subscribers.
func RecordLiveBroadcast() {
	globalManager.liveBroadcasts.Inc()
}

// RecordLiveDroppedClient counts a subscriber dropped for back pressure.
func RecordLiveDroppedClient() {
	globalManager.liveDroppedClients.Inc()
}

// UpdateSessionsActive sets the number of live sessions.
func UpdateSessionsActive(count int) {
	globalManager.sessionsActive.Set(float64(count))
}

// RecordUnlockAttempt counts an admin unlock attempt with result "ok" or "denied".
func RecordUnlockAttempt(result string) {
	globalManager.unlockAttempts.WithLabelValues(result).Inc()
}

// RecordHTTPRequest records an HTTP request and its duration.
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordHTTPError records an error response.
func RecordHTTPError(endpoint, errorType string) {
	globalManager.httpErrors.WithLabelValues(endpoint, errorType).Inc()
}

// GetRegistry returns the registry the service exposes on /metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
