package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "sealcard"

// CronJobMetrics covers the cron worker: per-job outcomes plus the ledger
// drift found by reconciliation.
type CronJobMetrics struct {
	duration    *prometheus.HistogramVec
	runs        *prometheus.CounterVec
	lastSuccess *prometheus.GaugeVec
	mismatches  *prometheus.CounterVec
}

func cronOpts(name, help string) prometheus.Opts {
	return prometheus.Opts{Namespace: namespace, Subsystem: "cron", Name: name, Help: help}
}

// NewCronJobMetrics registers the cron collectors on reg. A nil registerer
// yields a no-op recorder.
func NewCronJobMetrics(reg prometheus.Registerer) *CronJobMetrics {
	if reg == nil {
		return &CronJobMetrics{}
	}
	durationOpts := cronOpts("job_duration_seconds", "Duration of cron jobs in seconds.")
	m := &CronJobMetrics{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: durationOpts.Namespace,
			Subsystem: durationOpts.Subsystem,
			Name:      durationOpts.Name,
			Help:      durationOpts.Help,
			Buckets:   []float64{0.05, 0.25, 1, 5, 15, 60, 300},
		}, []string{"job"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts(
			cronOpts("job_runs_total", "Cron job executions by outcome."),
		), []string{"job", "outcome"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts(
			cronOpts("job_last_success_timestamp_seconds", "Unix time of the last successful run per job."),
		), []string{"job"}),
		mismatches: prometheus.NewCounterVec(prometheus.CounterOpts(
			cronOpts("reconcile_mismatches_total", "Ledgers whose cached aggregate disagreed with the replayed seal log."),
		), []string{"repaired"}),
	}
	reg.MustRegister(m.duration, m.runs, m.lastSuccess, m.mismatches)
	return m
}

// RecordRun records one execution of job. A nil err counts as success and
// stamps the last-success gauge.
func (c *CronJobMetrics) RecordRun(job string, took time.Duration, err error) {
	if c == nil || c.runs == nil {
		return
	}
	if job == "" {
		job = "unknown"
	}
	c.duration.WithLabelValues(job).Observe(took.Seconds())
	if err != nil {
		c.runs.WithLabelValues(job, "failure").Inc()
		return
	}
	c.runs.WithLabelValues(job, "success").Inc()
	c.lastSuccess.WithLabelValues(job).SetToCurrentTime()
}

// AddMismatches counts drifted ledgers found in one reconcile pass.
func (c *CronJobMetrics) AddMismatches(n int, repaired bool) {
	if c == nil || c.mismatches == nil || n <= 0 {
		return
	}
	label := "false"
	if repaired {
		label = "true"
	}
	c.mismatches.WithLabelValues(label).Add(float64(n))
}
