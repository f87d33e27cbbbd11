package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/encoding/htmlindex"

	"csvetl/internal/logging"
	"csvetl/internal/parser/csv"
)

// IssueSeverity grades a validation finding.
type IssueSeverity string

const (
	SeverityError   IssueSeverity = "error"   // blocks the run
	SeverityWarning IssueSeverity = "warning" // printed, run continues
)

// Issue is one finding. Path is the dotted config key, e.g. "storage.table".
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue has SeverityError.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

type findings []Issue

func (f *findings) errorf(path, format string, args ...any) {
	*f = append(*f, Issue{SeverityError, path, fmt.Sprintf(format, args...)})
}

func (f *findings) warnf(path, format string, args ...any) {
	*f = append(*f, Issue{SeverityWarning, path, fmt.Sprintf(format, args...)})
}

// ValidatePipeline lints a resolved Pipeline without touching the
// filesystem or the network.
func ValidatePipeline(p Pipeline) []Issue {
	var f findings

	if strings.TrimSpace(p.Job) == "" {
		f.errorf("job", "job must not be empty; it labels metrics and log lines")
	}
	f.source(p.Source)
	f.storage(p.Storage)
	f.log(p.Log)
	f.schedule(p.Schedule)
	f.metrics(p.Metrics)

	if samePath(p.Source.Path, p.Storage.Path) {
		f.errorf("storage.path", "database path must differ from the source path")
	}
	if samePath(p.Log.Path, p.Storage.Path) {
		f.errorf("log.path", "log path must differ from the database path")
	}
	return f
}

func samePath(a, b string) bool {
	return a != "" && b != "" && filepath.Clean(a) == filepath.Clean(b)
}

func (f *findings) source(s Source) {
	path := strings.TrimSpace(s.Path)
	switch lower := strings.ToLower(path); {
	case path == "":
		f.errorf("source.path", "source.path must not be empty")
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		if u, err := url.Parse(path); err != nil || u.Host == "" {
			f.errorf("source.path", "source URL %q has no host", s.Path)
		}
	}

	if _, err := s.Comma(); err != nil {
		f.errorf("source.delimiter", "%v", err)
	}
	if s.Encoding != "" {
		if _, err := htmlindex.Get(s.Encoding); err != nil {
			f.errorf("source.encoding", "unknown encoding %q", s.Encoding)
		}
	}
	if s.NullValues != nil && len(s.NullValues) == 0 {
		f.warnf("source.null_values", "empty list disables null detection; empty cells load as text")
	}
}

func (f *findings) storage(s Storage) {
	switch strings.TrimSpace(s.Kind) {
	case "":
		f.errorf("storage.kind", "storage.kind must not be empty")
	case "sqlite":
	default:
		f.warnf("storage.kind", "unknown storage kind %q; the run fails unless a backend registers it", s.Kind)
	}

	if strings.TrimSpace(s.Path) == "" {
		f.errorf("storage.path", "storage.path must not be empty")
	}

	table := strings.TrimSpace(s.Table)
	switch {
	case table == "":
		f.errorf("storage.table", "storage.table must not be empty")
	case strings.HasPrefix(strings.ToLower(table), "sqlite_"):
		f.errorf("storage.table", "table name %q is reserved by SQLite", s.Table)
	case csv.NormalizeName(table) != table:
		f.warnf("storage.table", "table name %q is not a plain identifier (suggest %q); it will be quoted",
			s.Table, csv.NormalizeName(table))
	}
}

func (f *findings) log(l Log) {
	if !logging.ValidLevel(l.Level) {
		f.errorf("log.level", "unknown level %q; use debug, info, warn, or error", l.Level)
	}
}

func (f *findings) schedule(s Schedule) {
	switch d := s.Every.Std(); {
	case d < 0:
		f.errorf("schedule.every", "interval must not be negative")
	case d > 0 && d < time.Second:
		f.warnf("schedule.every", "interval %s is shorter than one second", d)
	}
}

func (f *findings) metrics(m Metrics) {
	switch m.Backend {
	case "", "none":
	case "pushgateway":
		if strings.TrimSpace(m.PushgatewayURL) == "" {
			f.errorf("metrics.pushgateway_url", "pushgateway backend requires a URL")
		}
	case "datadog":
		if strings.TrimSpace(m.DogStatsDAddr) == "" {
			f.errorf("metrics.dogstatsd_addr", "datadog backend requires a DogStatsD address")
		}
	default:
		f.errorf("metrics.backend", "unknown metrics backend %q; use none, pushgateway, or datadog", m.Backend)
	}
}
