package httpds

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"
)

// fastClient retries quickly so tests do not sleep for real backoffs.
func fastClient(retries int) *Client {
	return NewClient(Config{
		Timeout:        2 * time.Second,
		MaxRetries:     retries,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
	})
}

func TestNewClient_Defaults(t *testing.T) {
	t.Parallel()

	c := NewClient(Config{})
	if c.hc.Timeout != 30*time.Second {
		t.Fatalf("timeout = %v; want 30s", c.hc.Timeout)
	}
	if c.retries != 3 {
		t.Fatalf("maxRetries = %d; want 3", c.retries)
	}
	if c.initial != 200*time.Millisecond || c.ceiling != 5*time.Second {
		t.Fatalf("backoff = %v..%v", c.initial, c.ceiling)
	}
	if c.hc.Transport != http.DefaultTransport {
		t.Fatalf("expected http.DefaultTransport")
	}

	if c := NewClient(Config{MaxRetries: -1}); c.retries != 0 {
		t.Fatalf("negative MaxRetries should disable retries, got %d", c.retries)
	}
}

func TestGet_RetriesThenSucceeds(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, "id\n1\n")
	}))
	defer srv.Close()

	resp, err := fastClient(3).Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK || hits.Load() != 3 {
		t.Fatalf("status %d after %d hits; want 200 after 3", resp.StatusCode, hits.Load())
	}
}

func TestGet_GivesUp(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := fastClient(2).Get(context.Background(), srv.URL)
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusTooManyRequests {
		t.Fatalf("err = %v; want wrapped *StatusError 429", err)
	}
	if hits.Load() != 3 {
		t.Fatalf("hits = %d; want 3 (1 + 2 retries)", hits.Load())
	}
}

func TestGet_FinalStatusNotRetried(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	resp, err := fastClient(3).Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound || hits.Load() != 1 {
		t.Fatalf("status %d after %d hits; want 404 after 1", resp.StatusCode, hits.Load())
	}
}

func TestGet_SendsHeaders(t *testing.T) {
	t.Parallel()

	var got atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.Store(r.Header.Get("Authorization"))
	}))
	defer srv.Close()

	c := NewClient(Config{Header: http.Header{"Authorization": {"Bearer t"}}})
	resp, err := c.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	resp.Body.Close()
	if got.Load() != "Bearer t" {
		t.Fatalf("Authorization = %v", got.Load())
	}
}

func TestGet_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := fastClient(3).Get(ctx, "http://127.0.0.1:1/"); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v; want context.Canceled", err)
	}
	if _, err := fastClient(-1).Get(context.Background(), ""); err == nil {
		t.Fatalf("empty url should fail")
	}
}

func TestBackoff(t *testing.T) {
	t.Parallel()

	tests := []struct {
		retry int
		want  time.Duration
	}{
		{-1, 100 * time.Millisecond},
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{2, 400 * time.Millisecond},
		{3, 500 * time.Millisecond},
		{40, 500 * time.Millisecond},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(strconv.Itoa(tc.retry), func(t *testing.T) {
			t.Parallel()
			if got := backoff(100*time.Millisecond, tc.retry, 500*time.Millisecond); got != tc.want {
				t.Fatalf("backoff(%d) = %v; want %v", tc.retry, got, tc.want)
			}
		})
	}
}

func TestRetryable(t *testing.T) {
	t.Parallel()

	for code, want := range map[int]bool{200: false, 400: false, 404: false, 429: true, 500: true, 503: true} {
		if got := retryable(code); got != want {
			t.Errorf("retryable(%d) = %v; want %v", code, got, want)
		}
	}
}

func TestSourceOpen(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/data.csv", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "id,name\n1,Alice\n")
	})
	mux.HandleFunc("/gone.csv", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	})
	mux.HandleFunc("/secret.csv", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	mux.HandleFunc("/bad.csv", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	src := NewSource(fastClient(-1), srv.URL+"/data.csv")
	rc, err := src.Open(context.Background())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	body, _ := io.ReadAll(rc)
	rc.Close()
	if string(body) != "id,name\n1,Alice\n" {
		t.Fatalf("body = %q", body)
	}

	tests := []struct {
		path string
		is   error
	}{
		{"/missing.csv", fs.ErrNotExist},
		{"/gone.csv", fs.ErrNotExist},
		{"/secret.csv", fs.ErrPermission},
	}
	for _, tc := range tests {
		_, err := NewSource(fastClient(-1), srv.URL+tc.path).Open(context.Background())
		if !errors.Is(err, tc.is) {
			t.Errorf("Open(%s) = %v; want errors.Is %v", tc.path, err, tc.is)
		}
	}

	_, err = NewSource(fastClient(-1), srv.URL+"/bad.csv").Open(context.Background())
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusBadRequest {
		t.Fatalf("err = %v; want *StatusError 400", err)
	}
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
		t.Fatalf("400 must not map to a filesystem error")
	}
}

func TestIsURL(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]bool{
		"http://example.com/a.csv":  true,
		"HTTPS://example.com/a.csv": true,
		"data/FactTransactions.csv": false,
		"/tmp/http.csv":             false,
		"ftp://example.com/a.csv":   false,
	} {
		if got := IsURL(in); got != want {
			t.Errorf("IsURL(%q) = %v; want %v", in, got, want)
		}
	}
}
