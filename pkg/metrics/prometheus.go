package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace      string
	subsystem      string
	latencyBuckets []float64
	constLabels    prometheus.Labels
	registry       prometheus.Registerer

	// Risk assessment
	readingsIngested  *prometheus.CounterVec
	assessments       *prometheus.CounterVec
	assessmentLatency prometheus.Histogram
	assessmentErrors  prometheus.Counter

	// Zone store
	zonesCreated prometheus.Counter
	zonesMerged  prometheus.Counter
	zonesEvicted prometheus.Counter
	zoneCount    prometheus.Gauge

	// Historical dataset
	historicalRecords   prometheus.Gauge
	datasetFilesSkipped prometheus.Counter

	// Broadcast hub
	subscribers        prometheus.Gauge
	broadcasts         prometheus.Counter
	subscribersDropped prometheus.Counter

	// Stream ingest
	eventsProcessed  prometheus.Counter
	eventsDuplicate  prometheus.Counter
	streamMessages   *prometheus.CounterVec
	queueSize        prometheus.Gauge
	queueCapacity    prometheus.Gauge
	queueUtilization prometheus.Gauge
	queueEnqueue     prometheus.Counter
	queueDequeue     prometheus.Counter
	queueEnqueueErrs prometheus.Counter

	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	errorsByComponent *prometheus.CounterVec

	// Process
	systemMemory     prometheus.Gauge
	systemGoroutines prometheus.Gauge
	systemGCPause    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

// Millisecond buckets spanning sub-millisecond scoring to slow HTTP calls.
var defaultLatencyBuckets = []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 2500} //nolint:gochecknoglobals // read-only defaults

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:      "ember",
		subsystem:      "risk",
		latencyBuckets: defaultLatencyBuckets,
		registry:       prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	})
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

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     m.latencyBuckets,
		ConstLabels: m.constLabels,
	})
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

func (m *Manager) initializeMetrics() {
	m.readingsIngested = m.counterVec("readings_ingested_total",
		"Sensor readings ingested, by scoring path", "path")
	m.assessments = m.counterVec("assessments_total",
		"Risk assessments produced, by danger level", "level")
	m.assessmentLatency = m.histogram("assessment_latency_milliseconds",
		"Risk assessment latency in milliseconds")
	m.assessmentErrors = m.counter("assessment_errors_total",
		"Readings rejected by the risk scorer")

	m.zonesCreated = m.counter("zones_created_total", "Danger zones created")
	m.zonesMerged = m.counter("zones_merged_total", "Readings merged into an existing danger zone")
	m.zonesEvicted = m.counter("zones_evicted_total", "Danger zones evicted by the capacity limit")
	m.zoneCount = m.gauge("zones", "Current number of danger zones")

	m.historicalRecords = m.gauge("historical_records", "Historical fire records loaded")
	m.datasetFilesSkipped = m.counter("dataset_files_skipped_total",
		"Historical files skipped because they were missing or corrupt")

	m.subscribers = m.gauge("subscribers", "Active danger zone subscribers")
	m.broadcasts = m.counter("broadcasts_total", "Zone snapshots broadcast to subscribers")
	m.subscribersDropped = m.counter("subscribers_dropped_total",
		"Subscribers removed because they fell behind")

	m.eventsProcessed = m.counter("events_processed_total", "Stream events processed")
	m.eventsDuplicate = m.counter("events_duplicate_total", "Duplicate stream events skipped")
	m.streamMessages = m.counterVec("stream_messages_total",
		"Messages read from the sensor stream, by outcome", "outcome")
	m.queueSize = m.gauge("queue_size", "Current size of the reading queue")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum queue capacity")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Queue utilization ratio (size / capacity)")
	m.queueEnqueue = m.counter("queue_enqueue_total", "Readings enqueued")
	m.queueDequeue = m.counter("queue_dequeue_total", "Readings dequeued")
	m.queueEnqueueErrs = m.counter("queue_enqueue_errors_total", "Rejected enqueues")

	m.workerCount = m.gauge("worker_count", "Configured number of workers")
	m.workerActiveCount = m.gauge("worker_active_count", "Workers currently processing a reading")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds",
		"Worker processing latency in milliseconds")
	m.workerErrors = m.counter("worker_errors_total", "Worker processing errors")

	m.httpRequests = m.counterVec("http_requests_total",
		"HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "http_request_duration_milliseconds",
			Help:        "HTTP request duration in milliseconds",
			Buckets:     m.latencyBuckets,
			ConstLabels: m.constLabels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorsByComponent = m.counterVec("errors_by_component_total",
		"Errors by component and type", "component", "error_type")

	m.systemMemory = m.gauge("system_memory_bytes", "Heap bytes allocated")
	m.systemGoroutines = m.gauge("system_goroutines", "Number of goroutines")
	m.systemGCPause = m.histogram("system_gc_pause_milliseconds", "Average GC pause in milliseconds")
}

// RecordReadingIngested counts a reading stored through the given scoring path.
func RecordReadingIngested(path string) {
	globalManager.readingsIngested.WithLabelValues(path).Inc()
}

// RecordAssessment counts an assessment at the given level.
func RecordAssessment(level string) {
	globalManager.assessments.WithLabelValues(level).Inc()
}

// RecordAssessmentLatency records assessment latency in milliseconds.
func RecordAssessmentLatency(latencyMs float64) {
	globalManager.assessmentLatency.Observe(latencyMs)
}

// RecordAssessmentError counts a rejected reading.
func RecordAssessmentError() {
	globalManager.assessmentErrors.Inc()
}

// RecordZoneCreated counts a new zone.
func RecordZoneCreated() {
	globalManager.zonesCreated.Inc()
}

// RecordZoneMerged counts a reading merged into an existing zone.
func RecordZoneMerged() {
	globalManager.zonesMerged.Inc()
}

// RecordZonesEvicted counts zones dropped from the tail of the store.
func RecordZonesEvicted(n int) {
	if n > 0 {
		globalManager.zonesEvicted.Add(float64(n))
	}
}

// UpdateZoneCount sets the current zone count.
func UpdateZoneCount(count int) {
	globalManager.zoneCount.Set(float64(count))
}

// UpdateHistoricalRecords sets the number of loaded historical records.
func UpdateHistoricalRecords(count int) {
	globalManager.historicalRecords.Set(float64(count))
}

// RecordDatasetFileSkipped counts a historical file that could not be loaded.
func RecordDatasetFileSkipped() {
	globalManager.datasetFilesSkipped.Inc()
}

// UpdateSubscriberCount sets the number of active subscribers.
func UpdateSubscriberCount(count int) {
	globalManager.subscribers.Set(float64(count))
}

// RecordBroadcast counts a snapshot fan-out.
func RecordBroadcast() {
	globalManager.broadcasts.Inc()
}

// RecordSubscriberDropped counts a subscriber removed for falling behind.
func RecordSubscriberDropped() {
	globalManager.subscribersDropped.Inc()
}

// RecordEventProcessed increments the events processed counter.
func RecordEventProcessed() {
	globalManager.eventsProcessed.Inc()
}

// RecordEventDuplicate increments the duplicate events counter.
func RecordEventDuplicate() {
	globalManager.eventsDuplicate.Inc()
}

// RecordStreamMessage counts a stream message by outcome.
func RecordStreamMessage(outcome string) {
	globalManager.streamMessages.WithLabelValues(outcome).Inc()
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueue.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeue.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrs.Inc()
}

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// UpdateWorkerActiveCount sets the number of running workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
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
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the allocated heap size.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemory.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine gauge.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutines.Set(float64(count))
}

// RecordSystemGCPauseTime observes the average GC pause.
func RecordSystemGCPauseTime(ms float64) {
	globalManager.systemGCPause.Observe(ms)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
