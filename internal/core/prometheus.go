package core

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder exports service operation metrics and per-program time
// usage to a Prometheus registry.
type PrometheusRecorder struct {
	duration *prometheus.HistogramVec
	total    *prometheus.CounterVec
	timeUsed *prometheus.GaugeVec
}

var (
	_ MetricsRecorder     = (*PrometheusRecorder)(nil)
	_ ProgramTimeRecorder = (*PrometheusRecorder)(nil)
)

// NewPrometheusRecorder creates the collectors and registers them with reg.
func NewPrometheusRecorder(reg prometheus.Registerer) (*PrometheusRecorder, error) {
	r := &PrometheusRecorder{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "obscore",
			Name:      "operation_duration_seconds",
			Help:      "Latency of program service operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		total: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "obscore",
			Name:      "operation_total",
			Help:      "Program service operations by outcome.",
		}, []string{"operation", "status"}),
		timeUsed: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "obscore",
			Name:      "program_time_used_seconds",
			Help:      "Time charged to a program by observed atoms.",
		}, []string{"program", "category"}),
	}
	for _, c := range []prometheus.Collector{r.duration, r.total, r.timeUsed} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Observe implements MetricsRecorder.
func (r *PrometheusRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}
	r.duration.WithLabelValues(operation).Observe(duration.Seconds())
	r.total.WithLabelValues(operation, status).Inc()
}

// ObserveProgramTime implements ProgramTimeRecorder.
func (r *PrometheusRecorder) ObserveProgramTime(program ProgramID, programUsed, partnerUsed time.Duration) {
	r.timeUsed.WithLabelValues(string(program), "program").Set(programUsed.Seconds())
	r.timeUsed.WithLabelValues(string(program), "partner").Set(partnerUsed.Seconds())
}

// ForgetProgram drops the time gauges of a deleted program.
func (r *PrometheusRecorder) ForgetProgram(program ProgramID) {
	r.timeUsed.DeleteLabelValues(string(program), "program")
	r.timeUsed.DeleteLabelValues(string(program), "partner")
}
