package config

import (
	"strings"
	"testing"
	"time"
)

// hasIssue reports whether issues contains an Issue with the given severity,
// path, and a Message containing msgSubstr.
func hasIssue(t *testing.T, issues []Issue, sev IssueSeverity, path, msgSubstr string) bool {
	t.Helper()
	for _, iss := range issues {
		if iss.Severity == sev && iss.Path == path && strings.Contains(iss.Message, msgSubstr) {
			return true
		}
	}
	return false
}

/*
TestValidatePipeline_Defaults verifies that the built-in defaults produce no
issues (errors or warnings).
*/
func TestValidatePipeline_Defaults(t *testing.T) {
	t.Parallel()

	if issues := ValidatePipeline(Default()); len(issues) != 0 {
		t.Fatalf("defaults produced issues: %+v", issues)
	}
}

/*
TestValidatePipeline_Findings runs one mutation per case and checks the
expected finding is reported.
*/
func TestValidatePipeline_Findings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(p *Pipeline)
		sev    IssueSeverity
		path   string
		msg    string
	}{
		{"empty job", func(p *Pipeline) { p.Job = " " }, SeverityError, "job", "must not be empty"},
		{"empty source", func(p *Pipeline) { p.Source.Path = "" }, SeverityError, "source.path", "must not be empty"},
		{"url without host", func(p *Pipeline) { p.Source.Path = "https:///data.csv" }, SeverityError, "source.path", "no host"},
		{"bad delimiter", func(p *Pipeline) { p.Source.Delimiter = "::" }, SeverityError, "source.delimiter", "single character"},
		{"bad encoding", func(p *Pipeline) { p.Source.Encoding = "klingon" }, SeverityError, "source.encoding", "unknown encoding"},
		{"empty null list", func(p *Pipeline) { p.Source.NullValues = []string{} }, SeverityWarning, "source.null_values", "disables"},
		{"empty kind", func(p *Pipeline) { p.Storage.Kind = "" }, SeverityError, "storage.kind", "must not be empty"},
		{"unknown kind", func(p *Pipeline) { p.Storage.Kind = "duckdb" }, SeverityWarning, "storage.kind", "unknown storage kind"},
		{"empty db path", func(p *Pipeline) { p.Storage.Path = "" }, SeverityError, "storage.path", "must not be empty"},
		{"empty table", func(p *Pipeline) { p.Storage.Table = "" }, SeverityError, "storage.table", "must not be empty"},
		{"reserved table", func(p *Pipeline) { p.Storage.Table = "sqlite_stat1" }, SeverityError, "storage.table", "reserved"},
		{"quoted table", func(p *Pipeline) { p.Storage.Table = "Fact Transactions" }, SeverityWarning, "storage.table", `"fact_transactions"`},
		{"same paths", func(p *Pipeline) { p.Storage.Path = "./" + p.Source.Path }, SeverityError, "storage.path", "differ"},
		{"log into db", func(p *Pipeline) { p.Log.Path = p.Storage.Path }, SeverityError, "log.path", "differ"},
		{"bad level", func(p *Pipeline) { p.Log.Level = "loud" }, SeverityError, "log.level", "unknown level"},
		{"negative every", func(p *Pipeline) { p.Schedule.Every = Duration(-time.Second) }, SeverityError, "schedule.every", "negative"},
		{"tiny every", func(p *Pipeline) { p.Schedule.Every = Duration(time.Millisecond) }, SeverityWarning, "schedule.every", "shorter"},
		{"gateway url", func(p *Pipeline) { p.Metrics.Backend = "pushgateway" }, SeverityError, "metrics.pushgateway_url", "requires"},
		{"statsd addr", func(p *Pipeline) { p.Metrics.Backend = "datadog" }, SeverityError, "metrics.dogstatsd_addr", "requires"},
		{"unknown backend", func(p *Pipeline) { p.Metrics.Backend = "graphite" }, SeverityError, "metrics.backend", "unknown"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := Default()
			tt.mutate(&p)
			issues := ValidatePipeline(p)
			if !hasIssue(t, issues, tt.sev, tt.path, tt.msg) {
				t.Fatalf("expected %s at %s containing %q; got %+v", tt.sev, tt.path, tt.msg, issues)
			}
			if got, want := HasErrors(issues), tt.sev == SeverityError; got != want {
				t.Fatalf("HasErrors = %v, want %v (%+v)", got, want, issues)
			}
		})
	}
}

func TestValidatePipeline_URLSource(t *testing.T) {
	t.Parallel()

	p := Default()
	p.Source.Path = "https://data.example.com/exports/FactTransactions.csv"
	if issues := ValidatePipeline(p); len(issues) != 0 {
		t.Fatalf("URL source produced issues: %+v", issues)
	}
}

func TestIssueError(t *testing.T) {
	t.Parallel()

	iss := Issue{Severity: SeverityError, Path: "storage.table", Message: "bad"}
	if got, want := iss.Error(), "error at storage.table: bad"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}
