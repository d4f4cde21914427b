package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config holds metrics configuration
type Config struct {
	Enabled     bool   `json:"enabled" yaml:"enabled"`
	Path        string `json:"path" yaml:"path"`
	Port        int    `json:"port" yaml:"port"`
	Namespace   string `json:"namespace" yaml:"namespace"`
	ServiceName string `json:"service_name" yaml:"service_name"`
}

// DefaultConfig returns default metrics configuration
func DefaultConfig() *Config {
	return &Config{
		Enabled:     true,
		Path:        "/metrics",
		Port:        9090,
		Namespace:   "clickup_bridge",
		ServiceName: "webhook",
	}
}

// Metrics holds all application metrics
type Metrics struct {
	config *Config

	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Delivery metrics
	DeliveriesTotal     *prometheus.CounterVec
	DeliveryDuration    *prometheus.HistogramVec
	DuplicatesTotal     *prometheus.CounterVec
	SignatureRejections *prometheus.CounterVec

	// Health reconciliation metrics
	ReconcilerRunsTotal     *prometheus.CounterVec
	HealthStatusTransitions *prometheus.CounterVec
	WebhooksAutoDisabled    prometheus.Counter

	// Recovery metrics
	RecoveryAttemptsTotal *prometheus.CounterVec

	// Remote API metrics
	RemoteRequestsTotal   *prometheus.CounterVec
	RemoteRequestDuration *prometheus.HistogramVec

	// Event bridge metrics
	EventsPublishedTotal *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates a new metrics instance with its own registry
func New(config *Config) *Metrics {
	if config == nil {
		config = DefaultConfig()
	}

	m := &Metrics{
		config:   config,
		registry: prometheus.NewRegistry(),
	}

	m.initHTTPMetrics()
	m.initDeliveryMetrics()
	m.initReconcilerMetrics()
	m.initRecoveryMetrics()
	m.initRemoteMetrics()
	m.initEventMetrics()
	m.registerMetrics()

	return m
}

func (m *Metrics) initHTTPMetrics() {
	m.HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status", "service"},
	)

	m.HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.config.Namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status", "service"},
	)

	m.HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: m.config.Namespace,
			Name:      "http_requests_in_flight",
			Help:      "Number of HTTP requests currently being processed",
		},
	)
}

func (m *Metrics) initDeliveryMetrics() {
	m.DeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Name:      "deliveries_total",
			Help:      "Total number of webhook deliveries received",
		},
		[]string{"event", "status"},
	)

	m.DeliveryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.config.Namespace,
			Name:      "delivery_processing_duration_seconds",
			Help:      "Time spent processing a webhook delivery",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"event"},
	)

	m.DuplicatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Name:      "duplicate_deliveries_total",
			Help:      "Total number of deliveries short-circuited as duplicates",
		},
		[]string{"webhook_id"},
	)

	m.SignatureRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Name:      "signature_rejections_total",
			Help:      "Total number of deliveries rejected before processing",
		},
		[]string{"reason"},
	)
}

func (m *Metrics) initReconcilerMetrics() {
	m.ReconcilerRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Name:      "reconciler_runs_total",
			Help:      "Total number of health reconciliation runs",
		},
		[]string{"result"},
	)

	m.HealthStatusTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Name:      "health_status_transitions_total",
			Help:      "Total number of webhook health status changes",
		},
		[]string{"from", "to"},
	)

	m.WebhooksAutoDisabled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Name:      "webhooks_auto_disabled_total",
			Help:      "Total number of webhooks disabled after entering a degraded state",
		},
	)
}

func (m *Metrics) initRecoveryMetrics() {
	m.RecoveryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Name:      "recovery_attempts_total",
			Help:      "Total number of webhook recovery attempts",
		},
		[]string{"result"},
	)
}

func (m *Metrics) initRemoteMetrics() {
	m.RemoteRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Name:      "remote_requests_total",
			Help:      "Total number of requests to the ClickUp API",
		},
		[]string{"method", "operation", "status"},
	)

	m.RemoteRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.config.Namespace,
			Name:      "remote_request_duration_seconds",
			Help:      "ClickUp API request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "operation"},
	)
}

func (m *Metrics) initEventMetrics() {
	m.EventsPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Name:      "events_published_total",
			Help:      "Total number of domain events published to the event bridge",
		},
		[]string{"topic", "status"},
	)
}

func (m *Metrics) registerMetrics() {
	m.registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.DeliveriesTotal,
		m.DeliveryDuration,
		m.DuplicatesTotal,
		m.SignatureRejections,
		m.ReconcilerRunsTotal,
		m.HealthStatusTransitions,
		m.WebhooksAutoDisabled,
		m.RecoveryAttemptsTotal,
		m.RemoteRequestsTotal,
		m.RemoteRequestDuration,
		m.EventsPublishedTotal,
	)
}

// Handler returns the HTTP handler exposing the registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest records one served HTTP request
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	code := strconv.Itoa(status)
	m.HTTPRequestsTotal.WithLabelValues(method, path, code, m.config.ServiceName).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path, code, m.config.ServiceName).Observe(duration.Seconds())
}

// RecordDelivery records a processed delivery outcome
func (m *Metrics) RecordDelivery(event, status string, duration time.Duration) {
	m.DeliveriesTotal.WithLabelValues(event, status).Inc()
	m.DeliveryDuration.WithLabelValues(event).Observe(duration.Seconds())
}

// RecordDuplicate records a duplicate delivery short-circuit
func (m *Metrics) RecordDuplicate(webhookID string) {
	m.DuplicatesTotal.WithLabelValues(webhookID).Inc()
}

// RecordRejection records a delivery rejected before the pipeline
func (m *Metrics) RecordRejection(reason string) {
	m.SignatureRejections.WithLabelValues(reason).Inc()
}

// RecordReconcilerRun records a reconciliation run result
func (m *Metrics) RecordReconcilerRun(result string) {
	m.ReconcilerRunsTotal.WithLabelValues(result).Inc()
}

// RecordStatusTransition records a webhook health status change
func (m *Metrics) RecordStatusTransition(from, to string) {
	m.HealthStatusTransitions.WithLabelValues(from, to).Inc()
}

// RecordRecovery records a recovery attempt result
func (m *Metrics) RecordRecovery(result string) {
	m.RecoveryAttemptsTotal.WithLabelValues(result).Inc()
}

// RecordRemoteRequest records one ClickUp API call
func (m *Metrics) RecordRemoteRequest(method, operation string, status int, duration time.Duration) {
	m.RemoteRequestsTotal.WithLabelValues(method, operation, strconv.Itoa(status)).Inc()
	m.RemoteRequestDuration.WithLabelValues(method, operation).Observe(duration.Seconds())
}

// RecordEventPublished records an event bridge publish result
func (m *Metrics) RecordEventPublished(topic, status string) {
	m.EventsPublishedTotal.WithLabelValues(topic, status).Inc()
}

var (
	global     *Metrics
	globalOnce sync.Once
)

// GetGlobal returns the process-wide metrics instance
func GetGlobal() *Metrics {
	globalOnce.Do(func() {
		if global == nil {
			global = New(DefaultConfig())
		}
	})
	return global
}

// SetGlobal installs a configured metrics instance as the global one.
// Must be called before the first GetGlobal.
func SetGlobal(m *Metrics) {
	global = m
}
