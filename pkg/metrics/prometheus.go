// Package metrics provides Prometheus metrics for the skillswap engine.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultNamespace = "skillswap"
	defaultSubsystem = "engine"
)

// Manager owns every Prometheus collector exported by the engine.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Lifecycle
	requestsCreated prometheus.Counter
	transitions     *prometheus.CounterVec

	// Quiz gate
	quizAttempts *prometheus.CounterVec

	// Scheduler
	bookingsCommitted *prometheus.CounterVec
	bookingsReleased  prometheus.Counter
	bookingsCompleted prometheus.Counter
	slotConflicts     prometheus.Counter

	// Reputation
	feedbackRecorded *prometheus.CounterVec

	// Notification outbox
	notifications *prometheus.CounterVec
	queueSize     prometheus.Gauge
	queueCapacity prometheus.Gauge
	workerCount   prometheus.Gauge

	// Operations
	operationLatency *prometheus.HistogramVec
	errorsByKind     *prometheus.CounterVec

	// Admin HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
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
		namespace:        defaultNamespace,
		subsystem:        defaultSubsystem,
		histogramBuckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50},
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
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
		Buckets:   m.histogramBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.requestsCreated = m.counter("swap_requests_created_total", "Total number of swap requests created")
	m.transitions = m.counterVec("swap_request_transitions_total",
		"Swap request state transitions by source state, target state and event", "from", "to", "event")

	m.quizAttempts = m.counterVec("quiz_attempts_total",
		"Quiz submissions by outcome (passed, failed, unverified)", "outcome")

	m.bookingsCommitted = m.counterVec("bookings_committed_total",
		"Session bookings committed by session type", "session_type")
	m.bookingsReleased = m.counter("bookings_released_total", "Session bookings released by cancellation")
	m.bookingsCompleted = m.counter("bookings_completed_total", "Session bookings marked completed")
	m.slotConflicts = m.counter("slot_conflicts_total", "Booking proposals rejected because no candidate slot was free")

	m.feedbackRecorded = m.counterVec("feedback_recorded_total", "Feedback entries recorded by star value", "stars")

	m.notifications = m.counterVec("notifications_total",
		"Lifecycle notifications by outcome (enqueued, delivered, dropped, duplicate, failed)", "outcome")
	m.queueSize = m.gauge("notification_queue_size", "Current number of queued notifications")
	m.queueCapacity = m.gauge("notification_queue_capacity", "Notification queue capacity")
	m.workerCount = m.gauge("notification_worker_count", "Number of notification delivery workers")

	m.operationLatency = m.histogramVec("operation_latency_milliseconds",
		"Engine operation latency in milliseconds", "operation")
	m.errorsByKind = m.counterVec("errors_total", "Engine errors by component and kind", "component", "kind")

	m.httpRequests = m.counterVec("http_requests_total",
		"Admin HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds",
		"Admin HTTP request duration in milliseconds", "endpoint", "method", "status_code")
}

// RecordRequestCreated increments the swap requests created counter.
func RecordRequestCreated() {
	globalManager.requestsCreated.Inc()
}

// RecordTransition counts a successful state transition.
func RecordTransition(from, to, event string) {
	globalManager.transitions.WithLabelValues(from, to, event).Inc()
}

// RecordQuizAttempt counts a quiz submission outcome.
func RecordQuizAttempt(outcome string) {
	globalManager.quizAttempts.WithLabelValues(outcome).Inc()
}

// RecordBookingCommitted counts a committed booking.
func RecordBookingCommitted(sessionType string) {
	globalManager.bookingsCommitted.WithLabelValues(sessionType).Inc()
}

// RecordBookingReleased counts a released booking.
func RecordBookingReleased() {
	globalManager.bookingsReleased.Inc()
}

// RecordBookingCompleted counts a completed booking.
func RecordBookingCompleted() {
	globalManager.bookingsCompleted.Inc()
}

// RecordSlotConflict counts a proposal that found no free slot.
func RecordSlotConflict() {
	globalManager.slotConflicts.Inc()
}

// RecordFeedback counts a recorded feedback entry.
func RecordFeedback(stars int) {
	globalManager.feedbackRecorded.WithLabelValues(strconv.Itoa(stars)).Inc()
}

// RecordNotification counts a notification outcome.
func RecordNotification(outcome string) {
	globalManager.notifications.WithLabelValues(outcome).Inc()
}

// UpdateQueueSize updates the notification queue size gauge.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity updates the notification queue capacity gauge.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateWorkerCount updates the notification worker gauge.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// ObserveOperation records how long an engine operation took.
func ObserveOperation(operation string, started time.Time) {
	ms := float64(time.Since(started).Microseconds()) / 1000
	globalManager.operationLatency.WithLabelValues(operation).Observe(ms)
}

// RecordError counts an error by component and kind.
func RecordError(component, kind string) {
	globalManager.errorsByKind.WithLabelValues(component, kind).Inc()
}

// RecordHTTPRequest records an admin HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records admin HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// GetRegistry returns the custom registry used for metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
