package services

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the rollup and generation collectors. A nil *Metrics records nothing.
type Metrics struct {
	rollupUsers      *prometheus.CounterVec
	rollupDuration   prometheus.Histogram
	taskGeneration   *prometheus.CounterVec
	planCatalog      *prometheus.CounterVec
	lastRollupFinish prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		rollupUsers: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fitquest_rollup_users_total",
				Help: "Users processed by the daily rollup, by result",
			},
			[]string{"result"},
		),
		rollupDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "fitquest_rollup_duration_seconds",
				Help:    "Duration of a full rollup run",
				Buckets: []float64{.1, .5, 1, 5, 15, 60, 300, 900},
			},
		),
		taskGeneration: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fitquest_task_generation_total",
				Help: "Daily task description requests, by source",
			},
			[]string{"source"},
		),
		planCatalog: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fitquest_plan_catalog_total",
				Help: "Insurance catalog lookups, by source",
			},
			[]string{"source"},
		),
		lastRollupFinish: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "fitquest_rollup_last_finished_timestamp_seconds",
				Help: "Unix time the last rollup run finished",
			},
		),
	}
	reg.MustRegister(m.rollupUsers, m.rollupDuration, m.taskGeneration, m.planCatalog, m.lastRollupFinish)
	return m
}

func (m *Metrics) observeGeneration(generated bool) {
	if m == nil {
		return
	}
	if generated {
		m.taskGeneration.WithLabelValues("generated").Inc()
	} else {
		m.taskGeneration.WithLabelValues("fallback").Inc()
	}
}

func (m *Metrics) observeCatalog(source string) {
	if m == nil {
		return
	}
	m.planCatalog.WithLabelValues(source).Inc()
}

func (m *Metrics) observeRollup(report RollupReport, took time.Duration) {
	if m == nil {
		return
	}
	m.rollupUsers.WithLabelValues("ok").Add(float64(report.Succeeded))
	m.rollupUsers.WithLabelValues("failed").Add(float64(report.Failed))
	m.rollupDuration.Observe(took.Seconds())
	m.lastRollupFinish.SetToCurrentTime()
}
