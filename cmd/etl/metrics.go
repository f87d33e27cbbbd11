package main

import (
	"fmt"
	"log/slog"

	"csvetl/internal/config"
	"csvetl/internal/metrics"
	"csvetl/internal/metrics/datadog"
	"csvetl/internal/metrics/prompush"
)

// setupMetrics installs the backend named in p.Metrics. The returned func
// puts the previous backend back and releases the new one.
func setupMetrics(p config.Pipeline) (func(), error) {
	job := p.Job
	if job == "" {
		job = config.DefaultJob
	}

	switch p.Metrics.Backend {
	case "", "none":
		slog.Debug("metrics: disabled")
		return func() {}, nil

	case "pushgateway":
		b, err := prompush.NewBackend(job, p.Metrics.PushgatewayURL)
		if err != nil {
			return nil, fmt.Errorf("metrics: pushgateway: %w", err)
		}
		slog.Info("metrics: pushgateway", "url", p.Metrics.PushgatewayURL, "job_name", job)
		prev := metrics.SetBackend(b)
		return func() { metrics.SetBackend(prev) }, nil

	case "datadog":
		b, err := datadog.NewBackend(datadog.Config{
			Addr:       p.Metrics.DogStatsDAddr,
			Namespace:  config.DefaultJob,
			GlobalTags: []string{"service:" + config.DefaultJob},
		})
		if err != nil {
			return nil, fmt.Errorf("metrics: datadog: %w", err)
		}
		slog.Info("metrics: datadog", "addr", p.Metrics.DogStatsDAddr, "job_name", job)
		prev := metrics.SetBackend(b)
		return func() {
			metrics.SetBackend(prev)
			if err := b.Close(); err != nil {
				slog.Warn("metrics: datadog close failed", "err", err)
			}
		}, nil

	default:
		return nil, fmt.Errorf("metrics: unknown backend %q", p.Metrics.Backend)
	}
}
