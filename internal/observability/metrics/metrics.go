// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "voxguardian"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Call analysis metrics
	CallsAnalyzed       *prometheus.CounterVec
	CallsScored         *prometheus.CounterVec
	EmergenciesDetected *prometheus.CounterVec
	ConfidenceScore     prometheus.Histogram
	SignalPenalties     *prometheus.CounterVec
	AudioDuration       prometheus.Histogram

	// Upload metrics
	UploadsAccepted prometheus.Counter
	UploadsRejected *prometheus.CounterVec
	UploadBytes     prometheus.Counter

	// STT metrics
	TranscriptionLatency *prometheus.HistogramVec
	TranscriptionErrors  *prometheus.CounterVec
	TranscodeErrors      prometheus.Counter

	// Store metrics
	StoreOperations *prometheus.CounterVec

	// Kafka publish metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec

	// Transport metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	GRPCRequests        *prometheus.CounterVec
}

// DefaultMetrics is the global metrics instance registered on the default registry.
var DefaultMetrics = NewMetrics(prometheus.DefaultRegisterer)

// NewMetrics creates all metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		CallsAnalyzed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calls_analyzed_total",
			Help:      "Total number of uploaded calls run through the analysis pipeline",
		}, []string{"status"}),
		CallsScored: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calls_scored_total",
			Help:      "Total number of scoring invocations by strategy",
		}, []string{"strategy"}),
		EmergenciesDetected: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emergencies_detected_total",
			Help:      "Total number of calls classified as emergencies by strategy",
		}, []string{"strategy"}),
		ConfidenceScore: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "confidence_score",
			Help:      "Distribution of fused confidence scores",
			Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
		}),
		SignalPenalties: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signal_penalties_total",
			Help:      "Total number of penalties applied by signal",
		}, []string{"signal"}),
		AudioDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "audio_duration_seconds",
			Help:      "Duration of analyzed call audio in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),

		UploadsAccepted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_accepted_total",
			Help:      "Total number of accepted audio uploads",
		}),
		UploadsRejected: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_rejected_total",
			Help:      "Total number of rejected audio uploads",
		}, []string{"reason"}),
		UploadBytes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upload_bytes_total",
			Help:      "Total bytes of accepted audio uploads",
		}),

		TranscriptionLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transcription_latency_seconds",
			Help:      "Speech-to-text latency in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"provider"}),
		TranscriptionErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcription_errors_total",
			Help:      "Total number of speech-to-text errors",
		}, []string{"provider"}),
		TranscodeErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcode_errors_total",
			Help:      "Total number of audio transcode failures",
		}),

		StoreOperations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_operations_total",
			Help:      "Total number of call store operations",
		}, []string{"operation", "status"}),

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

		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP API requests",
		}, []string{"method", "route", "code"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP API request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		GRPCRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grpc_requests_total",
			Help:      "Total number of gRPC requests",
		}, []string{"method", "code"}),
	}
}

// RecordScore records one fusion-path result.
func (m *Metrics) RecordScore(confidence float64, emergency, repetitionPenalty, silencePenalty bool) {
	m.CallsScored.WithLabelValues("fusion").Inc()
	m.ConfidenceScore.Observe(confidence)
	if emergency {
		m.EmergenciesDetected.WithLabelValues("fusion").Inc()
	}
	if repetitionPenalty {
		m.SignalPenalties.WithLabelValues("repetition").Inc()
	}
	if silencePenalty {
		m.SignalPenalties.WithLabelValues("silence").Inc()
	}
}

// RecordQuickClassification records one keyword-only result.
func (m *Metrics) RecordQuickClassification(emergency bool) {
	m.CallsScored.WithLabelValues("keyword-only").Inc()
	if emergency {
		m.EmergenciesDetected.WithLabelValues("keyword-only").Inc()
	}
}

// RecordAnalysis records the outcome of an upload analysis.
func (m *Metrics) RecordAnalysis(status string, audioSeconds float64) {
	m.CallsAnalyzed.WithLabelValues(status).Inc()
	if status == "success" {
		m.AudioDuration.Observe(audioSeconds)
	}
}

// RecordUploadAccepted records an accepted upload of n bytes.
func (m *Metrics) RecordUploadAccepted(n int64) {
	m.UploadsAccepted.Inc()
	m.UploadBytes.Add(float64(n))
}

// RecordUploadRejected records a rejected upload.
func (m *Metrics) RecordUploadRejected(reason string) {
	m.UploadsRejected.WithLabelValues(reason).Inc()
}

// RecordTranscription records an STT call.
func (m *Metrics) RecordTranscription(provider string, err error, latencySeconds float64) {
	m.TranscriptionLatency.WithLabelValues(provider).Observe(latencySeconds)
	if err != nil {
		m.TranscriptionErrors.WithLabelValues(provider).Inc()
	}
}

// RecordTranscodeError records a transcode failure.
func (m *Metrics) RecordTranscodeError() {
	m.TranscodeErrors.Inc()
}

// RecordStoreOperation records a call store operation.
func (m *Metrics) RecordStoreOperation(operation string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.StoreOperations.WithLabelValues(operation, status).Inc()
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, latencySeconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}

// RecordHTTPRequest records an HTTP API request.
func (m *Metrics) RecordHTTPRequest(method, route, code string, latencySeconds float64) {
	m.HTTPRequests.WithLabelValues(method, route, code).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(latencySeconds)
}

// RecordGRPCRequest records a unary gRPC request.
func (m *Metrics) RecordGRPCRequest(method, code string) {
	m.GRPCRequests.WithLabelValues(method, code).Inc()
}
