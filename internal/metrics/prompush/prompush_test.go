package prompush

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	dto "github.com/prometheus/client_model/go"

	"csvetl/internal/metrics"
)

// snapshot gathers b's registry into "name{v1,v2}" -> value. Counters and
// gauges report their value, histograms their sample count.
func snapshot(t *testing.T, b *Backend) map[string]float64 {
	t.Helper()

	families, err := b.reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	out := map[string]float64{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			key := mf.GetName() + "{" + labelValues(m) + "}"
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				out[key] = m.GetCounter().GetValue()
			case dto.MetricType_GAUGE:
				out[key] = m.GetGauge().GetValue()
			case dto.MetricType_HISTOGRAM:
				out[key] = float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	return out
}

func labelValues(m *dto.Metric) string {
	pairs := m.GetLabel()
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].GetName() < pairs[j].GetName() })
	vals := make([]string, len(pairs))
	for i, p := range pairs {
		vals[i] = p.GetValue()
	}
	return strings.Join(vals, ",")
}

func TestNewBackend_RequiresURL(t *testing.T) {
	t.Parallel()

	if b, err := NewBackend("csvetl", ""); err == nil || b != nil {
		t.Fatalf("NewBackend without URL = %v, %v; want error", b, err)
	}
}

func TestBackend_RecordsRun(t *testing.T) {
	t.Parallel()

	b, err := NewBackend("csvetl", "http://pushgateway:9091")
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	b.now = func() time.Time { return time.Unix(1700000000, 0) }

	ok := metrics.Labels{"job": "csvetl", "status": "success"}
	b.IncCounter("etl_step_total", 1, metrics.Labels{"job": "csvetl", "step": "ensure_db", "status": "success"})
	b.IncCounter("etl_step_total", 1, metrics.Labels{"job": "csvetl", "step": "load", "status": "failure"})
	b.ObserveHistogram("etl_step_duration_seconds", 0.02, metrics.Labels{"step": "load", "status": "failure"})
	b.ObserveHistogram("etl_step_duration_seconds", 0.03, metrics.Labels{"step": "load", "status": "failure"})
	b.IncCounter("etl_records_total", 3, metrics.Labels{"kind": "loaded"})
	b.IncCounter("etl_records_total", 3, metrics.Labels{"kind": "inserted"})
	b.IncCounter("etl_runs_total", 1, metrics.Labels{"status": "failure"})
	b.IncCounter("etl_runs_total", 1, ok)

	// Unknown names are dropped.
	b.IncCounter("etl_batches_total", 1, ok)
	b.ObserveHistogram("etl_batch_seconds", 1, ok)

	want := map[string]float64{
		"etl_step_total{ensure_db,success}":       1,
		"etl_step_total{load,failure}":            1,
		"etl_step_duration_seconds{load,failure}": 2,
		"etl_records_total{inserted}":             3,
		"etl_records_total{loaded}":               3,
		"etl_runs_total{failure}":                 1,
		"etl_runs_total{success}":                 1,
		"etl_last_success_timestamp_seconds{}":    1700000000,
	}
	if diff := cmp.Diff(want, snapshot(t, b)); diff != "" {
		t.Fatalf("registry mismatch (-want +got):\n%s", diff)
	}
}

func TestBackend_LastSuccessOnlyOnSuccess(t *testing.T) {
	t.Parallel()

	b, err := NewBackend("csvetl", "http://pushgateway:9091")
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	b.IncCounter("etl_runs_total", 1, metrics.Labels{"status": "failure"})
	if got := snapshot(t, b)["etl_last_success_timestamp_seconds{}"]; got != 0 {
		t.Fatalf("last success = %v after a failed run; want 0", got)
	}
}

func TestFlush(t *testing.T) {
	t.Parallel()

	type request struct {
		method, path, body string
	}
	reqs := make(chan request, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		reqs <- request{r.Method, r.URL.Path, string(body)}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	b, err := NewBackend("", srv.URL)
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	b.IncCounter("etl_runs_total", 1, metrics.Labels{"status": "success"})
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	got := <-reqs
	if got.method != http.MethodPut {
		t.Fatalf("method = %s; want PUT (replace the group)", got.method)
	}
	if got.path != "/metrics/job/csvetl" {
		t.Fatalf("path = %s; want default job group", got.path)
	}
	if !strings.Contains(got.body, "etl_runs_total") {
		t.Fatalf("pushed body lacks etl_runs_total")
	}
}

func TestFlush_GatewayError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	b, err := NewBackend("csvetl", srv.URL)
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	if err := b.Flush(); err == nil || !strings.HasPrefix(err.Error(), "prompush: push:") {
		t.Fatalf("Flush = %v; want wrapped push error", err)
	}
}

func BenchmarkIncCounterStep(b *testing.B) {
	backend, err := NewBackend("csvetl", "http://example.com")
	if err != nil {
		b.Fatalf("NewBackend: %v", err)
	}
	lbls := metrics.Labels{"job": "csvetl", "step": "write", "status": "success"}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		backend.IncCounter("etl_step_total", 1, lbls)
	}
}
