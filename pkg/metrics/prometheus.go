// Package metrics provides Prometheus metrics for the osker stats service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Aggregation
	refreshes        prometheus.Counter
	refreshErrors    prometheus.Counter
	refreshDuration  prometheus.Histogram
	playersTotal     prometheus.Gauge
	averagesTotal    prometheus.Gauge
	bucketPopulation *prometheus.GaugeVec
	partitionLatency prometheus.Histogram

	// Snapshot
	snapshotGeneration prometheus.Gauge
	snapshotLastUnix   prometheus.Gauge
	snapshotBuildMs    prometheus.Histogram

	// Remote source
	fetchPages      prometheus.Counter
	fetchDuplicates prometheus.Counter
	fetchErrors     *prometheus.CounterVec
	fetchLatency    prometheus.Histogram
	breakerState    prometheus.Gauge

	// Queue and workers
	queueCapacity     prometheus.Gauge
	queueSize         prometheus.Gauge
	queueEnqueued     prometheus.Counter
	queueDequeued     prometheus.Counter
	queueEnqueueFails prometheus.Counter
	workerCount       prometheus.Gauge
	workerActive      prometheus.Gauge
	workerJobs        prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpErrors          *prometheus.CounterVec

	// Runtime
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var (
	customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // service-wide registry
	globalManager  *Manager                   //nolint:gochecknoglobals // singleton behind package helpers
)

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager builds a Manager and registers its collectors on the configured registry.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "osker",
		subsystem:        "stats",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		enabled:          true,
		constLabels:      prometheus.Labels{},
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
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: m.histogramBuckets,
	})
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.refreshes = m.counter("refreshes_total", "Completed aggregation passes")
	m.refreshErrors = m.counter("refresh_errors_total", "Aggregation passes that failed before publishing")
	m.refreshDuration = m.histogram("refresh_duration_milliseconds", "Duration of an aggregation pass including publish")
	m.playersTotal = m.gauge("players_total", "Players in the published snapshot")
	m.averagesTotal = m.gauge("averages_total", "Synthetic average records in the published snapshot")
	m.bucketPopulation = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.constLabels,
		Name: "bucket_players",
		Help: "Players per rank bucket in the published snapshot",
	}, []string{"rank"})
	m.partitionLatency = m.histogram("partition_latency_milliseconds", "Time to accumulate one partition")

	m.snapshotGeneration = m.gauge("snapshot_generation", "Generation of the published snapshot")
	m.snapshotLastUnix = m.gauge("snapshot_last_unixtime", "Unix time of the last snapshot publish")
	m.snapshotBuildMs = m.histogram("snapshot_build_milliseconds", "Time to index a snapshot before publishing")

	m.fetchPages = m.counter("fetch_pages_total", "Leaderboard pages fetched from the remote API")
	m.fetchDuplicates = m.counter("fetch_duplicates_total", "Player records dropped as duplicates while paging")
	m.fetchErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.constLabels,
		Name: "fetch_errors_total",
		Help: "Remote API failures by kind",
	}, []string{"kind"})
	m.fetchLatency = m.histogram("fetch_latency_milliseconds", "Latency of remote API requests")
	m.breakerState = m.gauge("circuit_breaker_state", "Remote API breaker state (0 closed, 1 half-open, 2 open)")

	m.queueCapacity = m.gauge("queue_capacity", "Partition queue capacity")
	m.queueSize = m.gauge("queue_size", "Partition jobs waiting in the queue")
	m.queueEnqueued = m.counter("queue_enqueued_total", "Partition jobs enqueued")
	m.queueDequeued = m.counter("queue_dequeued_total", "Partition jobs dequeued")
	m.queueEnqueueFails = m.counter("queue_enqueue_failures_total", "Partition jobs rejected by a full or closed queue")
	m.workerCount = m.gauge("worker_count", "Configured aggregation workers")
	m.workerActive = m.gauge("worker_active", "Workers currently accumulating a partition")
	m.workerJobs = m.counter("worker_jobs_total", "Partitions accumulated by workers")

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.constLabels,
		Name: "http_requests_total",
		Help: "HTTP requests by endpoint, method and status",
	}, []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.constLabels,
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request duration by endpoint, method and status",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint", "method", "status_code"})
	m.httpErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.constLabels,
		Name: "http_errors_total",
		Help: "HTTP error responses by endpoint and error code",
	}, []string{"endpoint", "code"})

	m.systemMemoryUsage = m.gauge("system_memory_bytes", "Heap bytes in use")
	m.systemGoroutineCount = m.gauge("system_goroutines", "Number of goroutines")
}

// Enabled reports whether helpers record anything.
func (m *Manager) Enabled() bool { return m.enabled }

// RecordRefresh records one completed aggregation pass.
func (m *Manager) RecordRefresh(durationMs float64) {
	if !m.enabled {
		return
	}
	m.refreshes.Inc()
	m.refreshDuration.Observe(durationMs)
}

// RecordRefreshError counts a failed aggregation pass.
func (m *Manager) RecordRefreshError() {
	if m.enabled {
		m.refreshErrors.Inc()
	}
}

// UpdateSnapshot publishes the gauges describing a new snapshot.
func (m *Manager) UpdateSnapshot(generation uint64, players, averages int, unix int64, buildMs float64) {
	if !m.enabled {
		return
	}
	m.snapshotGeneration.Set(float64(generation))
	m.playersTotal.Set(float64(players))
	m.averagesTotal.Set(float64(averages))
	m.snapshotLastUnix.Set(float64(unix))
	m.snapshotBuildMs.Observe(buildMs)
}

// UpdateBucketPopulation sets the player count of one rank bucket.
func (m *Manager) UpdateBucketPopulation(rank string, count int) {
	if m.enabled {
		m.bucketPopulation.WithLabelValues(rank).Set(float64(count))
	}
}

// Package-level helpers delegate to the global manager.

func RecordRefresh(durationMs float64) { globalManager.RecordRefresh(durationMs) }
func RecordRefreshError()              { globalManager.RecordRefreshError() }
func UpdateSnapshot(generation uint64, players, averages int, unix int64, buildMs float64) {
	globalManager.UpdateSnapshot(generation, players, averages, unix, buildMs)
}
func UpdateBucketPopulation(rank string, count int) {
	globalManager.UpdateBucketPopulation(rank, count)
}

// RecordPartitionLatency records the time spent accumulating one partition.
func RecordPartitionLatency(latencyMs float64) {
	if globalManager.enabled {
		globalManager.partitionLatency.Observe(latencyMs)
	}
}

// RecordFetchPage counts one fetched leaderboard page and its request latency.
func RecordFetchPage(latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.fetchPages.Inc()
	globalManager.fetchLatency.Observe(latencyMs)
}

// RecordFetchLatency records the latency of a non-paged remote request.
func RecordFetchLatency(latencyMs float64) {
	if globalManager.enabled {
		globalManager.fetchLatency.Observe(latencyMs)
	}
}

// RecordFetchDuplicates counts records dropped while paging.
func RecordFetchDuplicates(n int) {
	if globalManager.enabled && n > 0 {
		globalManager.fetchDuplicates.Add(float64(n))
	}
}

// RecordFetchError counts a remote failure of the given kind.
func RecordFetchError(kind string) {
	if globalManager.enabled {
		globalManager.fetchErrors.WithLabelValues(kind).Inc()
	}
}

// UpdateBreakerState sets the breaker gauge.
func UpdateBreakerState(state int) {
	if globalManager.enabled {
		globalManager.breakerState.Set(float64(state))
	}
}

// UpdateQueueCapacity sets the queue capacity gauge.
func UpdateQueueCapacity(capacity int) {
	if globalManager.enabled {
		globalManager.queueCapacity.Set(float64(capacity))
	}
}

// UpdateQueueSize sets the current queue length.
func UpdateQueueSize(size int) {
	if globalManager.enabled {
		globalManager.queueSize.Set(float64(size))
	}
}

func RecordQueueEnqueue() {
	if globalManager.enabled {
		globalManager.queueEnqueued.Inc()
	}
}

func RecordQueueDequeue() {
	if globalManager.enabled {
		globalManager.queueDequeued.Inc()
	}
}

func RecordQueueEnqueueError() {
	if globalManager.enabled {
		globalManager.queueEnqueueFails.Inc()
	}
}

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) {
	if globalManager.enabled {
		globalManager.workerCount.Set(float64(count))
	}
}

// WorkerBusy marks a worker as active until the returned func is called.
func WorkerBusy() func() {
	if !globalManager.enabled {
		return func() {}
	}
	globalManager.workerActive.Inc()
	return func() {
		globalManager.workerActive.Dec()
		globalManager.workerJobs.Inc()
	}
}

// RecordHTTPRequest records an HTTP request and its duration in seconds.
func RecordHTTPRequest(endpoint, method, statusCode string, seconds float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(seconds)
}

// RecordHTTPError counts an error response.
func RecordHTTPError(endpoint, code string) {
	if globalManager.enabled {
		globalManager.httpErrors.WithLabelValues(endpoint, code).Inc()
	}
}

// UpdateSystemMemoryUsage sets heap usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	if globalManager.enabled {
		globalManager.systemMemoryUsage.Set(float64(bytes))
	}
}

// UpdateSystemGoroutineCount sets the goroutine gauge.
func UpdateSystemGoroutineCount(count int) {
	if globalManager.enabled {
		globalManager.systemGoroutineCount.Set(float64(count))
	}
}

// GetRegistry returns the registry served on /metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
