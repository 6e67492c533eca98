package telemetry

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	StageDuration   *prometheus.HistogramVec
	ItemsTotal      *prometheus.CounterVec
	CarrierErrors   *prometheus.CounterVec
	ProcessorErrors *prometheus.CounterVec
}

// NewMetrics creates metrics and registers them with reg. A nil reg uses the
// default Prometheus registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "labelbridge_requests_total",
				Help: "Total number of API requests by operation and status",
			},
			[]string{"operation", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "labelbridge_request_duration_seconds",
				Help:    "API request duration in seconds by operation",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		StageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "labelbridge_stage_duration_seconds",
				Help:    "Pipeline stage duration in seconds by pipeline and stage",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"pipeline", "stage"},
		),
		ItemsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "labelbridge_items_total",
				Help: "Total number of processed batch items by operation, store, and outcome",
			},
			[]string{"operation", "store", "outcome"},
		),
		CarrierErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "labelbridge_carrier_errors_total",
				Help: "Total carrier web service errors by operation and error type",
			},
			[]string{"operation", "error_type"},
		),
		ProcessorErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "labelbridge_processor_errors_total",
				Help: "Total response processor failures by processor",
			},
			[]string{"processor"},
		),
	}
}

// RecordRequest records an API request metric.
func (m *Metrics) RecordRequest(operation, status string, duration float64) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(operation, status).Inc()
	m.RequestDuration.WithLabelValues(operation).Observe(duration)
}

// RecordStage records the duration of one pipeline stage.
func (m *Metrics) RecordStage(pipeline, stage string, duration float64) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(pipeline, stage).Observe(duration)
}

// RecordItems records the outcome counts of one pipeline run.
func (m *Metrics) RecordItems(operation string, storeID, succeeded, failed int) {
	if m == nil {
		return
	}
	store := strconv.Itoa(storeID)
	m.ItemsTotal.WithLabelValues(operation, store, "success").Add(float64(succeeded))
	m.ItemsTotal.WithLabelValues(operation, store, "error").Add(float64(failed))
}

// RecordError records a carrier error metric.
func (m *Metrics) RecordError(operation, errorType string) {
	if m == nil {
		return
	}
	m.CarrierErrors.WithLabelValues(operation, errorType).Inc()
}

// RecordProcessorError records a failed response processor.
func (m *Metrics) RecordProcessorError(processor string) {
	if m == nil {
		return
	}
	m.ProcessorErrors.WithLabelValues(processor).Inc()
}
