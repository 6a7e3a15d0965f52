package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all the application metrics
type Metrics struct {
	// HTTP request metrics
	HTTPRequestTotal    *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Content API metrics
	UpstreamRequestTotal    *prometheus.CounterVec
	UpstreamRequestDuration *prometheus.HistogramVec

	// Response contract metrics
	ContractValidationTotal *prometheus.CounterVec

	// Normalization anomalies (declared media type without its field)
	InconsistentMediaTotal *prometheus.CounterVec

	// Placeholder metrics
	PlaceholderTotal          *prometheus.CounterVec
	PlaceholderRenderDuration prometheus.Histogram

	// Navigation-state store metrics
	StorageOperationTotal    *prometheus.CounterVec
	StorageOperationDuration *prometheus.HistogramVec

	// Lead event publishing metrics
	EventPublishTotal    *prometheus.CounterVec
	EventPublishDuration *prometheus.HistogramVec

	// Lead submissions by outcome
	LeadSubmissionTotal *prometheus.CounterVec
}

// Global metrics instance with mutex for thread safety
var (
	globalMetrics *Metrics
	metricsMutex  sync.Mutex
)

// NewMetrics creates a new Metrics instance with all required metrics
func NewMetrics() *Metrics {
	metricsMutex.Lock()
	defer metricsMutex.Unlock()

	// Return existing instance if already created
	if globalMetrics != nil {
		return globalMetrics
	}

	m := &Metrics{
		HTTPRequestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),

		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),

		UpstreamRequestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "immoshift_upstream_requests_total",
			Help: "Total number of content API calls",
		}, []string{"operation", "status"}),

		UpstreamRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "immoshift_upstream_request_duration_seconds",
			Help:    "Content API call duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation", "status"}),

		ContractValidationTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "immoshift_contract_validation_total",
			Help: "Total number of response contract checks",
		}, []string{"contract", "status"}),

		InconsistentMediaTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "immoshift_inconsistent_media_total",
			Help: "Paragraphs whose declared media field was absent",
		}, []string{"media_type"}),

		PlaceholderTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "immoshift_placeholder_total",
			Help: "Placeholder lookups by result",
		}, []string{"result"}),

		PlaceholderRenderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "immoshift_placeholder_render_duration_seconds",
			Help:    "Placeholder rasterization duration in seconds",
			Buckets: prometheus.DefBuckets,
		}),

		StorageOperationTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storage_operations_total",
			Help: "Total number of storage operations",
		}, []string{"operation", "status"}),

		StorageOperationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "storage_operation_duration_seconds",
			Help:    "Storage operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation", "status"}),

		EventPublishTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "event_publish_total",
			Help: "Total number of event publish operations",
		}, []string{"event_type", "status"}),

		EventPublishDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "event_publish_duration_seconds",
			Help:    "Event publish duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"event_type", "status"}),

		LeadSubmissionTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "immoshift_lead_submissions_total",
			Help: "E-book download submissions by outcome",
		}, []string{"outcome"}),
	}

	// Register metrics with the default registry
	registerMetrics(m)

	// Store as global instance
	globalMetrics = m

	return m
}

// ObserveUpstream records one content API call. Safe on a nil receiver.
func (m *Metrics) ObserveUpstream(operation, status string, start time.Time) {
	if m == nil {
		return
	}
	m.UpstreamRequestTotal.WithLabelValues(operation, status).Inc()
	m.UpstreamRequestDuration.WithLabelValues(operation, status).Observe(time.Since(start).Seconds())
}

// ObserveStorage records one navigation-state store operation. Safe on a nil receiver.
func (m *Metrics) ObserveStorage(operation, status string, start time.Time) {
	if m == nil {
		return
	}
	m.StorageOperationTotal.WithLabelValues(operation, status).Inc()
	m.StorageOperationDuration.WithLabelValues(operation, status).Observe(time.Since(start).Seconds())
}

// ObservePublish records one lead event publish. Safe on a nil receiver.
func (m *Metrics) ObservePublish(eventType, status string, start time.Time) {
	if m == nil {
		return
	}
	m.EventPublishTotal.WithLabelValues(eventType, status).Inc()
	m.EventPublishDuration.WithLabelValues(eventType, status).Observe(time.Since(start).Seconds())
}

// registerMetrics registers all metrics with the default registry
func registerMetrics(m *Metrics) {
	// Try to register each metric, ignore if already registered
	registerOrGet(m.HTTPRequestTotal)
	registerOrGet(m.HTTPRequestDuration)
	registerOrGet(m.UpstreamRequestTotal)
	registerOrGet(m.UpstreamRequestDuration)
	registerOrGet(m.ContractValidationTotal)
	registerOrGet(m.InconsistentMediaTotal)
	registerOrGet(m.PlaceholderTotal)
	registerOrGet(m.PlaceholderRenderDuration)
	registerOrGet(m.StorageOperationTotal)
	registerOrGet(m.StorageOperationDuration)
	registerOrGet(m.EventPublishTotal)
	registerOrGet(m.EventPublishDuration)
	registerOrGet(m.LeadSubmissionTotal)
}

// registerOrGet tries to register a metric, returns the existing one if already registered
func registerOrGet(c prometheus.Collector) prometheus.Collector {
	if err := prometheus.Register(c); err != nil {
		// If already registered, return the existing collector
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector
		}
	}
	return c
}
