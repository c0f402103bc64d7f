package core

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetricsRecorder exports operation latencies and fit progress.
type PrometheusMetricsRecorder struct {
	latency    *prometheus.HistogramVec
	iterations *prometheus.CounterVec
	chi2       *prometheus.GaugeVec
}

// NewPrometheusMetricsRecorder registers its collectors with reg.
func NewPrometheusMetricsRecorder(reg prometheus.Registerer) *PrometheusMetricsRecorder {
	f := promauto.With(reg)
	return &PrometheusMetricsRecorder{
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "diffractcore",
			Subsystem: "service",
			Name:      "operation_duration_seconds",
			Help:      "Service operation latency in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"operation", "status"}),
		iterations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "diffractcore",
			Subsystem: "fit",
			Name:      "iterations_total",
			Help:      "Fit iterations reported per project",
		}, []string{"project"}),
		chi2: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "diffractcore",
			Subsystem: "fit",
			Name:      "chi_square",
			Help:      "Most recent chi-square of the running fit",
		}, []string{"project"}),
	}
}

// Observe implements MetricsRecorder.
func (r *PrometheusMetricsRecorder) Observe(_ context.Context, operation string, success bool, d time.Duration) {
	status := AuditStatusError
	if success {
		status = AuditStatusSuccess
	}
	r.latency.WithLabelValues(operation, string(status)).Observe(d.Seconds())
}

// ObserveFitIteration implements FitMetricsRecorder.
func (r *PrometheusMetricsRecorder) ObserveFitIteration(projectID string, chi2 float64) {
	r.iterations.WithLabelValues(projectID).Inc()
	r.chi2.WithLabelValues(projectID).Set(chi2)
}
