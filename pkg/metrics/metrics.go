// Package metrics exposes Prometheus metrics for checkpoint and load passes
// and for the inspection API.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// Operation names used as label values.
const (
	OpSave = "save"
	OpLoad = "load"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	// Persistence pass metrics
	passesTotal        *prometheus.CounterVec
	passDuration       *prometheus.HistogramVec
	chunksTotal        *prometheus.CounterVec
	bytesTotal         *prometheus.CounterVec
	lastCheckpointSize prometheus.Gauge
	lastCheckpointTime prometheus.Gauge

	// Loaded state
	stateEntities *prometheus.GaugeVec

	// HTTP request metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all metrics with the default registry
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith creates and registers all metrics with reg
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		passesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "brokerdb_passes_total",
				Help: "Total number of checkpoint save and load passes",
			},
			[]string{"operation", "status"},
		),

		passDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "brokerdb_pass_duration_seconds",
				Help:    "Checkpoint save and load duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),

		chunksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "brokerdb_chunks_total",
				Help: "Total number of chunks written or read, by chunk type",
			},
			[]string{"operation", "chunk"},
		),

		bytesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "brokerdb_bytes_total",
				Help: "Total number of persistence file bytes written or read",
			},
			[]string{"operation"},
		),

		lastCheckpointSize: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "brokerdb_last_checkpoint_size_bytes",
				Help: "Size of the most recent successful checkpoint",
			},
		),

		lastCheckpointTime: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "brokerdb_last_checkpoint_timestamp_seconds",
				Help: "Unix time of the most recent successful checkpoint",
			},
		),

		stateEntities: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "brokerdb_state_entities",
				Help: "Number of entities in the loaded state, by chunk type",
			},
			[]string{"chunk"},
		),

		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "brokerdb_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "brokerdb_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
	}
}

// RecordPass records a finished save or load pass
func (m *Metrics) RecordPass(operation string, success bool, duration time.Duration, bytes int64) {
	if m == nil {
		return
	}
	status := statusSuccess
	if !success {
		status = statusError
	}

	m.passesTotal.WithLabelValues(operation, status).Inc()
	m.passDuration.WithLabelValues(operation).Observe(duration.Seconds())
	m.bytesTotal.WithLabelValues(operation).Add(float64(bytes))

	if success && operation == OpSave {
		m.lastCheckpointSize.Set(float64(bytes))
		m.lastCheckpointTime.SetToCurrentTime()
	}
}

// RecordChunk counts one chunk of the given type
func (m *Metrics) RecordChunk(operation, chunk string) {
	if m == nil {
		return
	}
	m.chunksTotal.WithLabelValues(operation, chunk).Inc()
}

// SetStateEntities updates the loaded-state gauge for one chunk type
func (m *Metrics) SetStateEntities(chunk string, n int) {
	if m == nil {
		return
	}
	m.stateEntities.WithLabelValues(chunk).Set(float64(n))
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	if m == nil {
		return
	}
	statusCodeStr := strconv.Itoa(statusCode)

	m.httpRequestsTotal.WithLabelValues(method, endpoint, statusCodeStr).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
