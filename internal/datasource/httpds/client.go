// Package httpds fetches the CSV input over HTTP(S) with retry and backoff.
//
// A Source turns a URL into a datasource.Source, so the loader reads a
// remote file exactly like a local one. Transient failures (transport
// errors, 429, 5xx) are retried with exponential backoff; a 404 or 410 is
// reported as fs.ErrNotExist and a 401 or 403 as fs.ErrPermission, which the
// loader maps to its NotFound and Permission kinds.
package httpds

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Config tunes the client. Zero values take the defaults below; a negative
// MaxRetries disables retries.
type Config struct {
	Timeout        time.Duration // per attempt, body included; 30s
	MaxRetries     int           // retries after the first attempt; 3
	InitialBackoff time.Duration // doubled per retry; 200ms
	MaxBackoff     time.Duration // 5s
	Header         http.Header   // added to every request
	Transport      http.RoundTripper
}

// Client issues GET requests and retries the transient failures.
type Client struct {
	hc      *http.Client
	retries int
	initial time.Duration
	ceiling time.Duration
	header  http.Header
}

func NewClient(cfg Config) *Client {
	c := &Client{
		hc:      &http.Client{Timeout: cfg.Timeout, Transport: cfg.Transport},
		retries: cfg.MaxRetries,
		initial: cfg.InitialBackoff,
		ceiling: cfg.MaxBackoff,
		header:  cfg.Header.Clone(),
	}
	if c.hc.Timeout <= 0 {
		c.hc.Timeout = 30 * time.Second
	}
	if c.hc.Transport == nil {
		c.hc.Transport = http.DefaultTransport
	}
	if c.retries == 0 {
		c.retries = 3
	} else if c.retries < 0 {
		c.retries = 0
	}
	if c.initial <= 0 {
		c.initial = 200 * time.Millisecond
	}
	if c.ceiling <= 0 {
		c.ceiling = 5 * time.Second
	}
	return c
}

// Get fetches url. Responses with a final status are returned whatever the
// code and the caller closes the body; 429, 5xx and transport errors are
// retried until the budget runs out.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	if url == "" {
		return nil, fmt.Errorf("httpds: url must not be empty")
	}

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			if err := wait(ctx, backoff(c.initial, attempt-1, c.ceiling)); err != nil {
				return nil, err
			}
		}
		resp, err := c.once(ctx, url)
		switch {
		case ctx.Err() != nil:
			if resp != nil {
				_ = resp.Body.Close()
			}
			return nil, ctx.Err()
		case err != nil:
			lastErr = err
		case retryable(resp.StatusCode):
			_ = resp.Body.Close()
			lastErr = &StatusError{URL: url, Code: resp.StatusCode}
		default:
			return resp, nil
		}
	}
	return nil, fmt.Errorf("httpds: giving up after %d attempts: %w", c.retries+1, lastErr)
}

func (c *Client) once(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("httpds: build request: %w", err)
	}
	for k, vs := range c.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	return c.hc.Do(req)
}

// retryable reports whether code is transient: 429 or any 5xx.
func retryable(code int) bool {
	return code == http.StatusTooManyRequests || (code >= 500 && code <= 599)
}

// backoff returns initial doubled retry times, capped at ceiling.
func backoff(initial time.Duration, retry int, ceiling time.Duration) time.Duration {
	d := initial
	for i := 0; i < retry && d < ceiling; i++ {
		d *= 2
	}
	return min(d, ceiling)
}

func wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
