// Package file implements a local filesystem-backed data source.
package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
)

// ErrIsDir is returned by Open when the path names a directory.
var ErrIsDir = errors.New("is a directory")

// Local is a filesystem data source that opens a single file from disk.
type Local struct{ path string }

// NewLocal returns a Local data source bound to path.
func NewLocal(path string) *Local { return &Local{path: path} }

// Path returns the configured path.
func (l *Local) Path() string { return l.path }

// Open opens the configured path for reading.
//
// Behavior:
//   - If ctx is already done, Open returns ctx.Err() without touching the
//     filesystem.
//   - Directories are rejected; reading one would fail later with a less
//     useful error.
//   - Filesystem errors are wrapped with the path while still permitting
//     errors.Is checks (e.g. errors.Is(err, fs.ErrNotExist)).
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat %s: %w", l.path, err)
	}
	if info.IsDir() {
		f.Close()
		return nil, fmt.Errorf("open %s: %w", l.path, ErrIsDir)
	}
	return f, nil
}

// Stat returns file metadata for the configured path.
func (l *Local) Stat(ctx context.Context) (fs.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	info, err := os.Stat(l.path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", l.path, err)
	}
	return info, nil
}
