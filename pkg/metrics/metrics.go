// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// OCRDuration tracks Tesseract recognition duration.
	OCRDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ocr_duration_seconds",
			Help:    "OCR recognition duration in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"language", "status"},
	)

	// GenerateDuration tracks model generation duration, blocking and streaming.
	GenerateDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ollama_generate_duration_seconds",
			Help:    "Model generation duration in seconds",
			Buckets: []float64{1, 2, 5, 10, 20, 30, 45, 60, 120, 300, 600},
		},
		[]string{"model", "mode", "status"},
	)

	// TokensTotal tracks tokens evaluated by the daemon.
	TokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ollama_tokens_total",
			Help: "Total tokens evaluated by the model daemon",
		},
		[]string{"model"},
	)

	// StreamConnectionsActive tracks active streaming chat connections.
	StreamConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_stream_connections_active",
			Help: "Number of active streaming chat connections",
		},
	)

	// ModelInstallsTotal tracks model pull operations.
	ModelInstallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ollama_model_installs_total",
			Help: "Total model pull operations",
		},
		[]string{"model", "status"},
	)

	// ConversationsActive tracks conversations currently held in memory.
	ConversationsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_conversations_active",
			Help: "Number of conversations held in memory",
		},
	)

	// MessagesTotal tracks messages appended to conversation history.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_total",
			Help: "Total messages appended to conversation history",
		},
		[]string{"role"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordGenerate records metrics for one model generation call.
func RecordGenerate(model, mode, status string, duration float64, tokens int) {
	GenerateDuration.WithLabelValues(model, mode, status).Observe(duration)
	if tokens > 0 {
		TokensTotal.WithLabelValues(model).Add(float64(tokens))
	}
}

// RecordOCR records metrics for one OCR call.
func RecordOCR(language, status string, duration float64) {
	OCRDuration.WithLabelValues(language, status).Observe(duration)
}

// IncrementStreamConnections increments the active stream connection count.
func IncrementStreamConnections() {
	StreamConnectionsActive.Inc()
}

// DecrementStreamConnections decrements the active stream connection count.
func DecrementStreamConnections() {
	StreamConnectionsActive.Dec()
}
