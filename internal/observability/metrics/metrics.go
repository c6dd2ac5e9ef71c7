// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "clinical_visit"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Upload metrics
	UploadsTotal     *prometheus.CounterVec
	UploadAudioBytes prometheus.Histogram

	// Transcription metrics
	TranscriptionsTotal *prometheus.CounterVec

	// Report metrics
	ReportsTotal             *prometheus.CounterVec
	FactsExtracted           prometheus.Counter
	SchemaValidationFailures prometheus.Counter

	// LLM provider metrics
	LLMRequestsTotal *prometheus.CounterVec
	LLMErrors        *prometheus.CounterVec
	LLMLatency       *prometheus.HistogramVec

	// Session metrics
	SessionsActive   prometheus.Gauge
	SessionsEvicted  prometheus.Counter
	StageTransitions *prometheus.CounterVec

	// Kafka publish metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec

	// gRPC health metrics
	GRPCRequestsTotal *prometheus.CounterVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics(prometheus.DefaultRegisterer)

// NewMetrics creates all metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		// HTTP metrics
		HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests served",
		}, []string{"route", "method", "code"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		}, []string{"route", "method"}),

		// Upload metrics
		UploadsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Total number of audio uploads by validation result",
		}, []string{"result"}),
		UploadAudioBytes: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upload_audio_bytes",
			Help:      "Size of accepted audio uploads in bytes",
			Buckets:   prometheus.ExponentialBuckets(64*1024, 4, 8),
		}),

		// Transcription metrics
		TranscriptionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcriptions_total",
			Help:      "Total number of transcription attempts by failure kind",
		}, []string{"failure"}),

		// Report metrics
		ReportsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_total",
			Help:      "Total number of combined facts+report requests by outcome",
		}, []string{"outcome"}),
		FactsExtracted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "facts_extracted_total",
			Help:      "Total number of facts accepted from the provider",
		}),
		SchemaValidationFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "schema_validation_failures_total",
			Help:      "Total number of fact payloads rejected by schema validation",
		}),

		// LLM provider metrics
		LLMRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Total number of LLM provider requests",
		}, []string{"provider", "operation"}),
		LLMErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_errors_total",
			Help:      "Total number of failed LLM provider requests",
		}, []string{"provider", "operation"}),
		LLMLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_latency_seconds",
			Help:      "LLM provider request latency in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 60, 120, 300},
		}, []string{"provider", "operation"}),

		// Session metrics
		SessionsActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of browser sessions held in memory",
		}),
		SessionsEvicted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_evicted_total",
			Help:      "Total number of idle sessions evicted",
		}),
		StageTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_transitions_total",
			Help:      "Total number of session state transitions by target state",
		}, []string{"state"}),

		// Kafka publish metrics
		KafkaPublishTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka messages published",
		}, []string{"topic", "event_type"}),
		KafkaPublishErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish errors",
		}, []string{"topic", "event_type"}),
		KafkaPublishLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Kafka publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),

		// gRPC health metrics
		GRPCRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grpc_requests_total",
			Help:      "Total number of unary gRPC calls",
		}, []string{"method", "code"}),
	}
}

// RecordHTTPRequest records a served HTTP request.
func (m *Metrics) RecordHTTPRequest(route, method, code string, durationSeconds float64) {
	m.HTTPRequestsTotal.WithLabelValues(route, method, code).Inc()
	m.HTTPRequestDuration.WithLabelValues(route, method).Observe(durationSeconds)
}

// RecordUpload records an upload validation result. Accepted uploads also
// record their size.
func (m *Metrics) RecordUpload(result string, bytes int64) {
	m.UploadsTotal.WithLabelValues(result).Inc()
	if result == "accepted" {
		m.UploadAudioBytes.Observe(float64(bytes))
	}
}

// RecordTranscription records a transcription attempt. An empty failure
// means success.
func (m *Metrics) RecordTranscription(failure string) {
	if failure == "" {
		failure = "none"
	}
	m.TranscriptionsTotal.WithLabelValues(failure).Inc()
}

// RecordReport records a combined request outcome and the facts it produced.
func (m *Metrics) RecordReport(outcome string, facts int) {
	m.ReportsTotal.WithLabelValues(outcome).Inc()
	m.FactsExtracted.Add(float64(facts))
}

// RecordSchemaValidationFailure records a rejected fact payload.
func (m *Metrics) RecordSchemaValidationFailure() {
	m.SchemaValidationFailures.Inc()
}

// RecordLLMRequest records one provider call.
func (m *Metrics) RecordLLMRequest(provider, operation string, err error, latencySeconds float64) {
	m.LLMRequestsTotal.WithLabelValues(provider, operation).Inc()
	m.LLMLatency.WithLabelValues(provider, operation).Observe(latencySeconds)
	if err != nil {
		m.LLMErrors.WithLabelValues(provider, operation).Inc()
	}
}

// SetSessionsActive sets the number of live sessions.
func (m *Metrics) SetSessionsActive(n int) {
	m.SessionsActive.Set(float64(n))
}

// RecordSessionsEvicted records idle sessions removed by the sweeper.
func (m *Metrics) RecordSessionsEvicted(n int) {
	m.SessionsEvicted.Add(float64(n))
}

// RecordStageTransition records a session entering state.
func (m *Metrics) RecordStageTransition(state string) {
	m.StageTransitions.WithLabelValues(state).Inc()
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, latencySeconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}

// RecordGRPCRequest records a unary gRPC call.
func (m *Metrics) RecordGRPCRequest(method, code string) {
	m.GRPCRequestsTotal.WithLabelValues(method, code).Inc()
}
