package core

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetricsRecorder exports document operation counters, latencies
// and undo history depth.
type PrometheusMetricsRecorder struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	undoDepth  prometheus.Gauge
	redoDepth  prometheus.Gauge
}

var _ MetricsRecorder = (*PrometheusMetricsRecorder)(nil)

// NewPrometheusMetricsRecorder registers the collectors with reg. A nil reg
// uses the default registerer.
func NewPrometheusMetricsRecorder(reg prometheus.Registerer) *PrometheusMetricsRecorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &PrometheusMetricsRecorder{
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "taskcoach_operations_total",
			Help: "Document operations by name and outcome",
		}, []string{"operation", "status"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "taskcoach_operation_duration_seconds",
			Help:    "Duration of document operations",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.25},
		}, []string{"operation"}),
		undoDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "taskcoach_history_undo_depth",
			Help: "Commands that can be undone",
		}),
		redoDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "taskcoach_history_redo_depth",
			Help: "Commands that can be redone",
		}),
	}
}

// Observe implements MetricsRecorder.
func (r *PrometheusMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	status := "error"
	if success {
		status = "success"
	}
	r.operations.WithLabelValues(operation, status).Inc()
	r.duration.WithLabelValues(operation).Observe(duration.Seconds())
}

// HistoryDepth records how many commands can be undone and redone.
func (r *PrometheusMetricsRecorder) HistoryDepth(undo, redo int) {
	r.undoDepth.Set(float64(undo))
	r.redoDepth.Set(float64(redo))
}
