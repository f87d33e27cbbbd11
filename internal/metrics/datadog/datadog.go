// Package datadog sends load job metrics to a DogStatsD agent.
//
// Labels become sorted "key:value" tags. Counters map to Count and step
// durations to Histogram, so the agent derives percentiles per step.
package datadog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/DataDog/datadog-go/v5/statsd"

	"csvetl/internal/metrics"
)

// Config selects the agent and the decoration applied to every metric.
type Config struct {
	Addr       string   // "host:port" or "unix:///path/to/dsd.socket"
	Namespace  string   // metric name prefix; a trailing "." is added if missing
	GlobalTags []string // e.g. "service:csvetl", "env:prod"
}

// Backend is a metrics.Backend over a statsd client.
type Backend struct {
	client statsd.ClientInterface
}

// NewBackend dials the agent at cfg.Addr. DogStatsD is fire-and-forget, so
// an absent agent does not fail here.
func NewBackend(cfg Config) (*Backend, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("datadog: agent address is required")
	}

	opts := []statsd.Option{statsd.WithTags(cfg.GlobalTags)}
	if ns := cfg.Namespace; ns != "" {
		if !strings.HasSuffix(ns, ".") {
			ns += "."
		}
		opts = append(opts, statsd.WithNamespace(ns))
	}

	c, err := statsd.New(cfg.Addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("datadog: new client for %s: %w", cfg.Addr, err)
	}
	return &Backend{client: c}, nil
}

// IncCounter rounds delta down to a whole count.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	_ = b.client.Count(name, int64(delta), tags(labels), 1)
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	_ = b.client.Histogram(name, value, tags(labels), 1)
}

// Flush sends whatever the client buffered or aggregated. The client stays
// open, so a scheduled process flushes after every run.
func (b *Backend) Flush() error {
	if err := b.client.Flush(); err != nil {
		return fmt.Errorf("datadog: flush: %w", err)
	}
	return nil
}

// Close flushes and shuts the client down.
func (b *Backend) Close() error {
	return b.client.Close()
}

func tags(lbls metrics.Labels) []string {
	if len(lbls) == 0 {
		return nil
	}
	out := make([]string, 0, len(lbls))
	for k, v := range lbls {
		out = append(out, k+":"+v)
	}
	sort.Strings(out)
	return out
}
