// Package etl runs the load job: make sure the database exists, load the CSV
// file, and replace the destination table with its contents.
//
// The configuration is passed in explicitly and the outcome comes back as a
// Result, so callers (the CLI, the scheduler, tests) decide what a failure
// means for them. Storage backends must be registered by the caller, usually
// with a blank import of csvetl/internal/storage/all.
package etl

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"csvetl/internal/config"
	"csvetl/internal/datasource"
	"csvetl/internal/datasource/file"
	"csvetl/internal/datasource/httpds"
	"csvetl/internal/logging"
	"csvetl/internal/metrics"
	"csvetl/internal/parser/csv"
	"csvetl/internal/schema"
	"csvetl/internal/storage"
)

// Step names used in logs, errors, and the etl_step_* metrics.
const (
	StepEnsureDB = "ensure_db"
	StepLoad     = "load"
	StepWrite    = "write"
)

// Result is the outcome of one run.
type Result struct {
	// RunID identifies the run in logs and metrics.
	RunID string

	// Rows is the number of rows written to the table.
	Rows int64

	// Created reports whether the database file was created by this run.
	Created bool

	Duration time.Duration

	// Err is nil on success. Otherwise it is a *StepError wrapping the
	// component's *csv.LoadError, *sqlite.InitError, or *sqlite.WriteError.
	Err error
}

// OK reports whether the run succeeded.
func (r Result) OK() bool { return r.Err == nil }

// StepError names the step a run failed in.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string { return fmt.Sprintf("etl: %s: %v", e.Step, e.Err) }

func (e *StepError) Unwrap() error { return e.Err }

// Seams swapped in tests.
var (
	ensureDatabase = storage.EnsureDatabase
	loadCSV        = csv.LoadFrom
	openStorage    = storage.New
)

// Run executes one run of the job described by p.
//
// The steps run in order and the first failure ends the run: a CSV that
// cannot be loaded never touches the table. Every step's outcome is logged by
// the component that performed it; Run adds the start and finish markers and
// records metrics.
func Run(ctx context.Context, p config.Pipeline) Result {
	start := time.Now()
	res := Result{RunID: uuid.NewString()}
	ctx = logging.WithRunID(ctx, res.RunID)
	log := logging.FromContext(ctx)

	job := p.Job
	if job == "" {
		job = config.DefaultJob
	}

	log.Info("=== Script started ===",
		"job", job, "csv", p.Source.Path, "db", p.Storage.Path, "table", p.Storage.Table)

	res.Err = run(ctx, job, p, &res)
	res.Duration = time.Since(start)

	metrics.RecordRun(job, res.Err)
	if err := metrics.Flush(); err != nil {
		log.Warn("metrics: flush failed", "err", err)
	}

	if res.Err != nil {
		log.Error(fmt.Sprintf("Script failed: %v", res.Err), "duration", res.Duration.Truncate(time.Millisecond))
		return res
	}
	log.Info("=== Script finished successfully ===",
		"rows", res.Rows, "duration", res.Duration.Truncate(time.Millisecond))
	return res
}

func run(ctx context.Context, job string, p config.Pipeline, res *Result) error {
	scfg := storage.Config{Kind: p.Storage.Kind, Path: p.Storage.Path, Verify: p.Storage.Verify}

	err := step(job, StepEnsureDB, func() error {
		created, err := ensureDatabase(ctx, scfg)
		res.Created = created
		return err
	})
	if err != nil {
		return err
	}

	var ds *schema.Dataset
	err = step(job, StepLoad, func() error {
		opt, err := loadOptions(p.Source)
		if err != nil {
			return err
		}
		ds, err = loadCSV(ctx, openSource(p.Source.Path), p.Source.Path, opt)
		return err
	})
	if err != nil {
		return err
	}
	metrics.RecordRow(job, "loaded", int64(ds.NumRows()))

	err = step(job, StepWrite, func() error {
		repo, err := openStorage(ctx, scfg)
		if err != nil {
			return err
		}
		defer repo.Close()

		n, err := repo.ReplaceTable(ctx, p.Storage.Table, ds)
		res.Rows = n
		return err
	})
	if err != nil {
		return err
	}
	metrics.RecordRow(job, "inserted", res.Rows)
	return nil
}

// step times fn, records its outcome, and wraps a failure in a *StepError.
func step(job, name string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.RecordStep(job, name, err, time.Since(start))
	if err != nil {
		return &StepError{Step: name, Err: err}
	}
	return nil
}

// openSource reads http(s) URLs over the network and anything else from the
// local filesystem.
func openSource(path string) datasource.Source {
	if httpds.IsURL(path) {
		return httpds.NewSource(nil, path)
	}
	return file.NewLocal(path)
}

func loadOptions(s config.Source) (csv.Options, error) {
	comma, err := s.Comma()
	if err != nil {
		return csv.Options{}, fmt.Errorf("source.delimiter: %w", err)
	}
	return csv.Options{
		Comma:            comma,
		Encoding:         s.Encoding,
		NullValues:       s.NullValues,
		NormalizeHeaders: s.NormalizeHeaders,
	}, nil
}
