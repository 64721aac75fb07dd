package services

import (
	"github.com/prometheus/client_golang/prometheus"
)

// runMetrics holds the Prometheus instruments for report runs.
type runMetrics struct {
	runsTotal   *prometheus.CounterVec
	runDuration *prometheus.HistogramVec
	runsActive  prometheus.Gauge
}

// newRunMetrics registers the run instruments. A nil registerer falls back
// to the default registry.
func newRunMetrics(reg prometheus.Registerer) *runMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &runMetrics{
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "insightcli",
			Subsystem: "reports",
			Name:      "runs_total",
			Help:      "Report runs by report id and terminal status.",
		}, []string{"report", "status"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "insightcli",
			Subsystem: "reports",
			Name:      "run_duration_seconds",
			Help:      "End-to-end report run duration.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"report"}),
		runsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "insightcli",
			Subsystem: "reports",
			Name:      "runs_active",
			Help:      "Report runs currently executing.",
		}),
	}

	reg.MustRegister(m.runsTotal, m.runDuration, m.runsActive)
	return m
}

func (m *runMetrics) observe(report, status string, seconds float64) {
	m.runsTotal.WithLabelValues(report, status).Inc()
	m.runDuration.WithLabelValues(report).Observe(seconds)
}
