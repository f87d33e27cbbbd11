// Package logging configures the process-wide slog logger for the job.
//
// Records are written one per line as
//
//	2006-01-02 15:04:05,000 - INFO - message key=value ...
//
// to an append-only log file (default logs/flow.log), optionally mirrored to
// stderr. The directory of the log file is created when absent.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Options selects the log destination and verbosity.
type Options struct {
	// Path is the log file. Empty disables the file sink.
	Path string

	// Level is "debug", "info", "warn", or "error" (default "info").
	Level string

	// Stderr mirrors every record to os.Stderr.
	Stderr bool
}

// Setup installs a Handler as the slog default and returns the open log
// file so the caller can close it on exit. When neither a file nor stderr is
// selected, records go to stderr.
func Setup(opt Options) (io.Closer, error) {
	var (
		sinks  []io.Writer
		closer io.Closer = nopCloser{}
	)
	if opt.Path != "" {
		if err := os.MkdirAll(filepath.Dir(opt.Path), 0o755); err != nil {
			return nil, fmt.Errorf("logging: create log dir: %w", err)
		}
		f, err := os.OpenFile(opt.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("logging: open %s: %w", opt.Path, err)
		}
		sinks = append(sinks, f)
		closer = f
	}
	if opt.Stderr || len(sinks) == 0 {
		sinks = append(sinks, os.Stderr)
	}

	h := NewHandler(io.MultiWriter(sinks...), &slog.HandlerOptions{Level: ParseLevel(opt.Level)})
	slog.SetDefault(slog.New(h))
	return closer, nil
}

// ParseLevel converts a string log level to slog.Level.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ValidLevel reports whether level is one ParseLevel understands, treating
// the empty string as the default.
func ValidLevel(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "debug", "info", "warn", "warning", "error":
		return true
	}
	return false
}

type runIDKey struct{}

// WithRunID returns a context carrying the run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

// FromContext returns the default logger, enriched with run_id when ctx
// carries one (see WithRunID).
func FromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()
	if id, ok := ctx.Value(runIDKey{}).(string); ok && id != "" {
		logger = logger.With("run_id", id)
	}
	return logger
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
