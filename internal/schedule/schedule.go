// Package schedule repeats a job on a fixed interval.
//
// The job runs once immediately, then on every tick. At most one run is in
// flight: a tick or Trigger that arrives while a run is still going is
// skipped, not queued.
package schedule

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// RunFunc is one run of the job. Its error is logged by the caller's job, the
// scheduler only counts it.
type RunFunc func(ctx context.Context) error

// Scheduler runs a RunFunc every interval.
type Scheduler struct {
	every time.Duration
	run   RunFunc

	sem     *semaphore.Weighted
	trigger chan struct{}
	wg      sync.WaitGroup

	runs    atomic.Int64
	failed  atomic.Int64
	skipped atomic.Int64
}

// New returns a Scheduler that calls run every interval. every must be
// positive.
func New(every time.Duration, run RunFunc) (*Scheduler, error) {
	if every <= 0 {
		return nil, errors.New("schedule: interval must be positive")
	}
	if run == nil {
		return nil, errors.New("schedule: run func is required")
	}
	return &Scheduler{
		every:   every,
		run:     run,
		sem:     semaphore.NewWeighted(1),
		trigger: make(chan struct{}, 1),
	}, nil
}

// Trigger asks for a run as soon as possible. It never blocks; triggers that
// pile up before the loop sees them collapse into one.
func (s *Scheduler) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Start runs the loop until ctx is canceled, then waits for an in-flight run
// to return. The context passed to each run is ctx, so canceling it also
// interrupts the run.
func (s *Scheduler) Start(ctx context.Context) {
	slog.Info("scheduler started", "every", s.every)

	s.fire(ctx, "start")

	ticker := time.NewTicker(s.every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			slog.Info("scheduler stopped",
				"runs", s.runs.Load(), "failed", s.failed.Load(), "skipped", s.skipped.Load())
			return
		case <-ticker.C:
			s.fire(ctx, "tick")
		case <-s.trigger:
			s.fire(ctx, "trigger")
		}
	}
}

// fire starts a run in the background unless one is already in flight.
func (s *Scheduler) fire(ctx context.Context, reason string) {
	if !s.sem.TryAcquire(1) {
		s.skipped.Add(1)
		slog.Warn("previous run still in progress; skipping", "reason", reason)
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.sem.Release(1)

		slog.Debug("run starting", "reason", reason)
		s.runs.Add(1)
		if err := s.run(ctx); err != nil {
			s.failed.Add(1)
		}
	}()
}

// Stats is a snapshot of the scheduler's counters.
type Stats struct {
	Runs    int64
	Failed  int64
	Skipped int64
}

// Stats returns the current counters.
func (s *Scheduler) Stats() Stats {
	return Stats{
		Runs:    s.runs.Load(),
		Failed:  s.failed.Load(),
		Skipped: s.skipped.Load(),
	}
}
