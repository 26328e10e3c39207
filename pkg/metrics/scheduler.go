package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/chandrudp29/omniscidb/pkg/scheduler"
)

// schedulerMetrics is the Prometheus implementation of scheduler.Metrics.
type schedulerMetrics struct {
	queueDepth      prometheus.Gauge
	refreshTotal    *prometheus.CounterVec
	refreshDuration prometheus.Histogram
}

// NewSchedulerMetrics creates a new Prometheus-backed scheduler.Metrics
// instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called), which
// causes the scheduler to fall back to its built-in noopMetrics.
func NewSchedulerMetrics() scheduler.Metrics {
	if !IsEnabled() {
		return nil
	}

	reg := GetRegistry()

	return &schedulerMetrics{
		queueDepth: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "chunkmgr_scheduler_queue_depth",
				Help: "Current number of tables pending in the refresh scheduler's heap",
			},
		),
		refreshTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "chunkmgr_scheduler_refreshes_total",
				Help: "Total scheduled refresh attempts by outcome",
			},
			[]string{"status"},
		),
		refreshDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name: "chunkmgr_scheduler_refresh_duration_seconds",
				Help: "Duration of scheduled refresh_table calls in seconds",
				Buckets: []float64{
					0.01,  // 10ms
					0.05,  // 50ms
					0.1,   // 100ms
					0.5,   // 500ms
					1.0,   // 1s
					5.0,   // 5s
					10.0,  // 10s
					30.0,  // 30s
					60.0,  // 1min
					300.0, // 5min
					600.0, // 10min, the refresh timeout ceiling
				},
			},
		),
	}
}

func (m *schedulerMetrics) RecordQueueDepth(n int) {
	m.queueDepth.Set(float64(n))
}

func (m *schedulerMetrics) ObserveRefresh(success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}
	m.refreshTotal.WithLabelValues(status).Inc()
	m.refreshDuration.Observe(duration.Seconds())
}
