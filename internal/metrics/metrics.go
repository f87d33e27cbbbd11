// Package metrics records what the load job did, independent of where the
// numbers end up.
//
// Callers use the Record* helpers; a process-wide Backend (Pushgateway,
// DogStatsD, or the default no-op) receives the observations. Series:
//
//	etl_step_total{job,step,status}             counter
//	etl_step_duration_seconds{job,step,status}  histogram
//	etl_records_total{job,kind}                 counter, kind=loaded|inserted
//	etl_runs_total{job,status}                  counter
//
// status is "success" or "failure".
package metrics

import (
	"sync"
	"time"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend receives observations. Implementations must be safe for
// concurrent use.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush sends buffered data, if the backend buffers.
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs b and returns the backend it replaced. A nil b
// restores the no-op backend.
func SetBackend(b Backend) (prev Backend) {
	if b == nil {
		b = nopBackend{}
	}
	mu.Lock()
	defer mu.Unlock()
	prev, backend = backend, b
	return prev
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// Flush delegates to the current backend.
func Flush() error {
	return current().Flush()
}

func status(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

// RecordStep counts one execution of step and observes its duration.
func RecordStep(job, step string, err error, d time.Duration) {
	lbls := Labels{"job": job, "step": step, "status": status(err)}
	b := current()
	b.IncCounter("etl_step_total", 1, lbls)
	b.ObserveHistogram("etl_step_duration_seconds", d.Seconds(), lbls)
}

// RecordRow adds delta rows of kind ("loaded" or "inserted"). Non-positive
// deltas are dropped.
func RecordRow(job, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	current().IncCounter("etl_records_total", float64(delta), Labels{"job": job, "kind": kind})
}

// RecordRun counts one finished run.
func RecordRun(job string, err error) {
	current().IncCounter("etl_runs_total", 1, Labels{"job": job, "status": status(err)})
}
