package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Console API Metrics
var (
	// Request counters
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "genai",
			Subsystem: "console_api",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// Request duration histogram
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "genai",
			Subsystem: "console_api",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"method", "endpoint", "status"},
	)

	// Auth attempts
	AuthAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "genai",
			Subsystem: "console_api",
			Name:      "auth_attempts_total",
			Help:      "Login attempts by outcome",
		},
		[]string{"status"},
	)

	// Generation duration
	GenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "genai",
			Subsystem: "console_api",
			Name:      "generation_duration_seconds",
			Help:      "Generation turn duration in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"model", "outcome"},
	)

	// Time to first event (streaming)
	FirstEventDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "genai",
			Subsystem: "console_api",
			Name:      "first_event_seconds",
			Help:      "Time to first streamed event",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"model"},
	)

	// Relayed stream events
	StreamEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "genai",
			Subsystem: "console_api",
			Name:      "stream_events_total",
			Help:      "Stream events relayed to clients",
		},
		[]string{"kind"},
	)

	// Provider errors
	ProviderErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "genai",
			Subsystem: "console_api",
			Name:      "provider_errors_total",
			Help:      "Upstream provider failures by kind",
		},
		[]string{"error_kind"},
	)

	// Conversations evicted by the storage budget
	ConversationsEvictedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "genai",
			Subsystem: "console_api",
			Name:      "conversations_evicted_total",
			Help:      "Conversations evicted to satisfy the storage budget",
		},
	)

	// Active streaming connections gauge
	ActiveStreams = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "genai",
			Subsystem: "console_api",
			Name:      "active_streams",
			Help:      "Currently active streaming connections",
		},
		[]string{"model"},
	)
)

// RecordRequest records an HTTP request with all relevant labels
func RecordRequest(method, endpoint, status string, durationSec float64) {
	RequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	RequestDuration.WithLabelValues(method, endpoint, status).Observe(durationSec)
}

// RecordAuthAttempt records a login attempt outcome
func RecordAuthAttempt(status string) {
	AuthAttemptsTotal.WithLabelValues(status).Inc()
}

// RecordGeneration records a finished generation turn
func RecordGeneration(model, outcome string, durationSec float64) {
	GenerationDuration.WithLabelValues(model, outcome).Observe(durationSec)
}

// RecordFirstEvent records time to first streamed event
func RecordFirstEvent(model string, durationSec float64) {
	FirstEventDuration.WithLabelValues(model).Observe(durationSec)
}

// RecordStreamEvent counts one relayed event
func RecordStreamEvent(kind string) {
	StreamEventsTotal.WithLabelValues(kind).Inc()
}

// RecordProviderError records an upstream failure
func RecordProviderError(errorKind string) {
	ProviderErrorsTotal.WithLabelValues(errorKind).Inc()
}

// RecordEvictions counts conversations evicted by budget enforcement
func RecordEvictions(count int) {
	if count > 0 {
		ConversationsEvictedTotal.Add(float64(count))
	}
}

// IncrementActiveStreams increments the active streams gauge
func IncrementActiveStreams(model string) {
	ActiveStreams.WithLabelValues(model).Inc()
}

// DecrementActiveStreams decrements the active streams gauge
func DecrementActiveStreams(model string) {
	ActiveStreams.WithLabelValues(model).Dec()
}
