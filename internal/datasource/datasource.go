// Package datasource abstracts where the CSV bytes are read from. The file
// and httpds subpackages provide local paths and http(s) URLs.
package datasource

import (
	"context"
	"io"
	"io/fs"
)

// Source yields the raw input. Each Open returns a fresh stream that the
// caller closes.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// Statter is an optional Source extension. The loader uses the size to log
// the input's volume before reading it.
type Statter interface {
	Stat(ctx context.Context) (fs.FileInfo, error)
}
