// Package config defines the configuration model for the CSV load job and
// the layered way it is resolved: defaults, then an optional JSON-with-
// comments file, then environment variables. Command-line flags are applied
// last by cmd/etl.
//
// Example (every field optional):
//
//	{
//	  // JSONC: comments and trailing commas are allowed.
//	  "job":      "fact-transactions",
//	  "source":   { "path": "data/FactTransactions.csv", "delimiter": ";", "encoding": "windows-1250" },
//	  "storage":  { "kind": "sqlite", "path": "data/my_database.db", "table": "my_table", "verify": true },
//	  "log":      { "path": "logs/flow.log", "level": "info" },
//	  "schedule": { "every": "10m" },
//	  "metrics":  { "backend": "pushgateway", "pushgateway_url": "http://localhost:9091" },
//	}
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/goccy/go-json"
	"github.com/natefinch/atomic"
	"github.com/tailscale/hujson"
)

// Defaults for a run with no configuration at all.
const (
	DefaultJob      = "csvetl"
	DefaultCSVPath  = "data/FactTransactions.csv"
	DefaultDBPath   = "data/my_database.db"
	DefaultTable    = "my_table"
	DefaultLogPath  = "logs/flow.log"
	DefaultLogLevel = "info"
	DefaultFile     = "csvetl.json"
)

// Pipeline is the resolved configuration handed to the driver.
type Pipeline struct {
	// Job names the run in logs and metrics.
	Job string `json:"job"`

	Source   Source   `json:"source"`
	Storage  Storage  `json:"storage"`
	Log      Log      `json:"log"`
	Schedule Schedule `json:"schedule"`
	Metrics  Metrics  `json:"metrics"`
}

// Source describes the CSV input.
type Source struct {
	// Path is a local file path or an http(s) URL.
	Path string `json:"path"`

	// Delimiter is a single character; "\t" and "tab" select a tab.
	Delimiter string `json:"delimiter,omitempty"`

	// Encoding is a WHATWG label such as "utf-8" or "windows-1250".
	Encoding string `json:"encoding,omitempty"`

	// NullValues replaces the default null spellings when set.
	NullValues []string `json:"null_values,omitempty"`

	// NormalizeHeaders rewrites header names to lowercase identifiers.
	NormalizeHeaders bool `json:"normalize_headers,omitempty"`
}

// Storage describes the destination database and table.
type Storage struct {
	// Kind selects the storage backend. Current value: "sqlite".
	Kind string `json:"kind"`

	// Path is the database file.
	Path string `json:"path"`

	// Table is replaced on every run.
	Table string `json:"table"`

	// Verify reads the table back after the write and compares it.
	Verify bool `json:"verify,omitempty"`
}

// Log configures the log file.
type Log struct {
	Path  string `json:"path"`
	Level string `json:"level"`
}

// Schedule configures periodic runs. A zero Every means run once.
type Schedule struct {
	Every Duration `json:"every,omitempty"`
}

// Metrics selects a metrics backend: "", "none", "pushgateway", or
// "datadog".
type Metrics struct {
	Backend        string `json:"backend,omitempty"`
	PushgatewayURL string `json:"pushgateway_url,omitempty"`
	DogStatsDAddr  string `json:"dogstatsd_addr,omitempty"`
}

// Duration is a time.Duration that reads and writes as a Go duration string
// ("90s", "10m").
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string like \"10m\": %w", err)
	}
	if s == "" {
		*d = 0
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Default returns the configuration used when nothing else is supplied.
func Default() Pipeline {
	return Pipeline{
		Job: DefaultJob,
		Source: Source{
			Path:      DefaultCSVPath,
			Delimiter: ",",
			Encoding:  "utf-8",
		},
		Storage: Storage{
			Kind:  "sqlite",
			Path:  DefaultDBPath,
			Table: DefaultTable,
		},
		Log: Log{
			Path:  DefaultLogPath,
			Level: DefaultLogLevel,
		},
		Metrics: Metrics{Backend: "none"},
	}
}

// Comma returns the delimiter rune for the CSV reader.
func (s Source) Comma() (rune, error) {
	switch s.Delimiter {
	case "":
		return ',', nil
	case `\t`, "tab":
		return '\t', nil
	}
	r := []rune(s.Delimiter)
	if len(r) != 1 {
		return 0, fmt.Errorf("delimiter %q must be a single character", s.Delimiter)
	}
	switch r[0] {
	case '"', '\r', '\n', utf8.RuneError:
		return 0, fmt.Errorf("delimiter %q is not allowed", s.Delimiter)
	}
	return r[0], nil
}

var (
	errConfigFileNotFound = errors.New("config file not found")
	errConfigInvalid      = errors.New("invalid config")
)

// Load resolves the configuration: Default, overlaid with the file at path,
// overlaid with environment variables (see ApplyEnv).
//
// When path is empty DefaultFile is read if it exists. An explicit path must
// exist.
func Load(path string) (Pipeline, error) {
	p := Default()

	file, mustExist := path, true
	if file == "" {
		file, mustExist = DefaultFile, false
	}
	if err := loadFile(&p, file, mustExist); err != nil {
		return Pipeline{}, err
	}
	if err := ApplyEnv(&p, os.LookupEnv); err != nil {
		return Pipeline{}, err
	}
	return p, nil
}

func loadFile(p *Pipeline, path string, mustExist bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if mustExist {
				return fmt.Errorf("%w: %s", errConfigFileNotFound, path)
			}
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := Parse(data, p); err != nil {
		return fmt.Errorf("%w %s: %w", errConfigInvalid, path, err)
	}
	return nil
}

// Parse decodes JSONC data over p. Fields absent from data keep their
// current values.
func Parse(data []byte, p *Pipeline) error {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return fmt.Errorf("invalid JSONC: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(standardized))
	dec.DisallowUnknownFields()
	if err := dec.Decode(p); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// Environment variables read by ApplyEnv.
const (
	EnvCSVPath        = "ETL_CSV_PATH"
	EnvDBPath         = "ETL_DB_PATH"
	EnvTable          = "ETL_TABLE"
	EnvLogPath        = "ETL_LOG_PATH"
	EnvLogLevel       = "ETL_LOG_LEVEL"
	EnvEvery          = "ETL_EVERY"
	EnvMetricsBackend = "METRICS_BACKEND"
	EnvPushgatewayURL = "PUSHGATEWAY_URL"
	EnvDogStatsDAddr  = "DOGSTATSD_ADDR"
)

// ApplyEnv overlays non-empty environment variables onto p. lookup is
// usually os.LookupEnv.
func ApplyEnv(p *Pipeline, lookup func(string) (string, bool)) error {
	get := func(k string) (string, bool) {
		v, ok := lookup(k)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	for _, kv := range []struct {
		key string
		dst *string
	}{
		{EnvCSVPath, &p.Source.Path},
		{EnvDBPath, &p.Storage.Path},
		{EnvTable, &p.Storage.Table},
		{EnvLogPath, &p.Log.Path},
		{EnvLogLevel, &p.Log.Level},
		{EnvMetricsBackend, &p.Metrics.Backend},
		{EnvPushgatewayURL, &p.Metrics.PushgatewayURL},
		{EnvDogStatsDAddr, &p.Metrics.DogStatsDAddr},
	} {
		if v, ok := get(kv.key); ok {
			*kv.dst = v
		}
	}

	if v, ok := get(EnvEvery); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", EnvEvery, err)
		}
		p.Schedule.Every = Duration(d)
	}
	return nil
}

// Save writes p as indented JSON to path, replacing any existing file
// atomically. The parent directory is created if needed.
func Save(path string, p Pipeline) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	data = append(data, '\n')

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: create dir: %w", err)
		}
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}
