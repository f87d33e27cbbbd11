package httpds

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"strings"

	"csvetl/internal/datasource"
)

// StatusError is a final non-2xx response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: %d %s", e.URL, e.Code, http.StatusText(e.Code))
}

// Is maps 404/410 to fs.ErrNotExist and 401/403 to fs.ErrPermission.
func (e *StatusError) Is(target error) bool {
	switch target {
	case fs.ErrNotExist:
		return e.Code == http.StatusNotFound || e.Code == http.StatusGone
	case fs.ErrPermission:
		return e.Code == http.StatusUnauthorized || e.Code == http.StatusForbidden
	}
	return false
}

// IsURL reports whether path is an http or https URL rather than a file path.
func IsURL(path string) bool {
	p := strings.ToLower(path)
	return strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://")
}

// Source reads one URL.
type Source struct {
	client *Client
	url    string
}

var _ datasource.Source = (*Source)(nil)

// NewSource returns a Source fetching url with c. A nil c uses
// NewClient(Config{}).
func NewSource(c *Client, url string) *Source {
	if c == nil {
		c = NewClient(Config{})
	}
	return &Source{client: c, url: url}
}

// Open issues the GET and returns the response body. Any status outside
// 2xx is a *StatusError.
func (s *Source) Open(ctx context.Context) (io.ReadCloser, error) {
	resp, err := s.client.Get(ctx, s.url)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, &StatusError{URL: s.url, Code: resp.StatusCode}
	}
	return resp.Body, nil
}
