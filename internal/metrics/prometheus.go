package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the voice assistant service
type Metrics struct {
	// Pipeline metrics
	PipelineRequests  prometheus.Counter
	PipelineSuccesses prometheus.Counter
	PipelineFailures  *prometheus.CounterVec
	StageDuration     *prometheus.HistogramVec
	ActiveRequests    prometheus.Gauge

	// Conversation metrics
	ActiveSessions prometheus.Gauge

	// Search metrics
	SearchHits   prometheus.Counter
	SearchMisses prometheus.Counter

	// Scratch file metrics
	ScratchFilesWritten prometheus.Counter
	ScratchBytesWritten prometheus.Counter

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		// Pipeline metrics
		PipelineRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "va_pipeline_requests_total",
			Help: "Total number of audio pipeline requests started",
		}),
		PipelineSuccesses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "va_pipeline_successes_total",
			Help: "Total number of audio pipeline requests completed successfully",
		}),
		PipelineFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "va_pipeline_failures_total",
			Help: "Total number of pipeline failures by stage",
		}, []string{"stage"}),
		StageDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "va_pipeline_stage_duration_seconds",
			Help:    "Duration of individual pipeline stages",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		}, []string{"stage"}),
		ActiveRequests: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "va_pipeline_active_requests",
			Help: "Current number of in-flight pipeline requests",
		}),

		// Conversation metrics
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "va_conversation_active_sessions",
			Help: "Current number of conversation sessions",
		}),

		// Search metrics
		SearchHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "va_search_hits_total",
			Help: "Total number of searches that produced context",
		}),
		SearchMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "va_search_misses_total",
			Help: "Total number of searches that returned nothing or failed",
		}),

		// Scratch file metrics
		ScratchFilesWritten: promauto.NewCounter(prometheus.CounterOpts{
			Name: "va_scratch_files_written_total",
			Help: "Total number of scratch files written",
		}),
		ScratchBytesWritten: promauto.NewCounter(prometheus.CounterOpts{
			Name: "va_scratch_bytes_written_total",
			Help: "Total bytes written to scratch files",
		}),

		// HTTP API metrics
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "va_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "va_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "va_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// RecordPipelineRequest increments the pipeline requests counter
func (m *Metrics) RecordPipelineRequest() {
	m.PipelineRequests.Inc()
	m.ActiveRequests.Inc()
}

// RecordPipelineSuccess records a completed pipeline request
func (m *Metrics) RecordPipelineSuccess() {
	m.PipelineSuccesses.Inc()
	m.ActiveRequests.Dec()
}

// RecordPipelineFailure records a failed pipeline request by stage
func (m *Metrics) RecordPipelineFailure(stage string) {
	m.PipelineFailures.WithLabelValues(stage).Inc()
	m.ActiveRequests.Dec()
}

// RecordStageDuration observes the duration of one pipeline stage
func (m *Metrics) RecordStageDuration(stage string, seconds float64) {
	m.StageDuration.WithLabelValues(stage).Observe(seconds)
}

// SetActiveSessions sets the current session count
func (m *Metrics) SetActiveSessions(count int) {
	m.ActiveSessions.Set(float64(count))
}

// RecordSearch records the outcome of one search augmentation attempt
func (m *Metrics) RecordSearch(hit bool) {
	if hit {
		m.SearchHits.Inc()
	} else {
		m.SearchMisses.Inc()
	}
}

// RecordScratchWrite records a scratch file write
func (m *Metrics) RecordScratchWrite(sizeBytes int) {
	m.ScratchFilesWritten.Inc()
	m.ScratchBytesWritten.Add(float64(sizeBytes))
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP error
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}
