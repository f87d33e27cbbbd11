// Package prompush is a metrics.Backend that pushes to a Prometheus
// Pushgateway.
//
// A batch job has no scrape endpoint, so every Flush replaces the job's group
// on the gateway with the current registry. Counters accumulate across runs
// of one process (scheduled mode), so the pushed values are totals since
// start. Besides the etl_* series recorded by the metrics package, the
// backend keeps etl_last_success_timestamp_seconds, the usual Pushgateway
// signal for alerting on a job that stopped succeeding.
package prompush

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"csvetl/internal/metrics"
)

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	pusher *push.Pusher
	reg    *prometheus.Registry
	now    func() time.Time

	steps       *prometheus.CounterVec   // etl_step_total{step,status}
	stepSeconds *prometheus.HistogramVec // etl_step_duration_seconds{step,status}
	records     *prometheus.CounterVec   // etl_records_total{kind}
	runs        *prometheus.CounterVec   // etl_runs_total{status}
	lastSuccess prometheus.Gauge         // etl_last_success_timestamp_seconds
}

// stepBuckets span 1ms to roughly 4.4 minutes.
var stepBuckets = prometheus.ExponentialBuckets(0.001, 4, 10)

// NewBackend returns a backend pushing to gatewayURL under the Pushgateway
// job jobName (default "csvetl").
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "csvetl"
	}

	b := &Backend{
		reg: prometheus.NewRegistry(),
		now: time.Now,
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "etl_step_total",
			Help: "Step executions (ensure_db, load, write) by outcome.",
		}, []string{"step", "status"}),
		stepSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "etl_step_duration_seconds",
			Help:    "Step duration in seconds by outcome.",
			Buckets: stepBuckets,
		}, []string{"step", "status"}),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "etl_records_total",
			Help: "Rows loaded from the CSV file and inserted into the table.",
		}, []string{"kind"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "etl_runs_total",
			Help: "Finished runs by outcome.",
		}, []string{"status"}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "etl_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run.",
		}),
	}

	for _, c := range []prometheus.Collector{b.steps, b.stepSeconds, b.records, b.runs, b.lastSuccess} {
		if err := b.reg.Register(c); err != nil {
			return nil, fmt.Errorf("prompush: register collector: %w", err)
		}
	}
	b.pusher = push.New(gatewayURL, jobName).Gatherer(b.reg)
	return b, nil
}

// IncCounter implements metrics.Backend. Unknown names are ignored.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case "etl_step_total":
		b.steps.WithLabelValues(labels["step"], labels["status"]).Add(delta)
	case "etl_records_total":
		b.records.WithLabelValues(labels["kind"]).Add(delta)
	case "etl_runs_total":
		b.runs.WithLabelValues(labels["status"]).Add(delta)
		if labels["status"] == "success" {
			b.lastSuccess.Set(float64(b.now().UnixNano()) / 1e9)
		}
	}
}

// ObserveHistogram implements metrics.Backend. Only step durations are kept.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != "etl_step_duration_seconds" {
		return
	}
	b.stepSeconds.WithLabelValues(labels["step"], labels["status"]).Observe(value)
}

// Flush replaces the job's metric group on the Pushgateway.
func (b *Backend) Flush() error {
	if err := b.pusher.Push(); err != nil {
		return fmt.Errorf("prompush: push: %w", err)
	}
	return nil
}
