package csv

import (
	"errors"
	"fmt"
)

// Sentinel kinds carried by LoadError. Callers test them with errors.Is:
//
//	if errors.Is(err, csv.ErrNotFound) { ... }
var (
	ErrNotFound   = errors.New("file not found")
	ErrPermission = errors.New("permission denied")
	ErrMalformed  = errors.New("malformed csv")
	ErrRead       = errors.New("read failed")
)

// LoadError reports why a CSV file could not be loaded.
type LoadError struct {
	Path string
	// Kind is one of ErrNotFound, ErrPermission, ErrMalformed, ErrRead.
	Kind error
	// Line is the 1-based input line for malformed content, or 0.
	Line int
	Err  error
}

func (e *LoadError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("load %s: %v at line %d: %v", e.Path, e.Kind, e.Line, e.Err)
	}
	return fmt.Sprintf("load %s: %v: %v", e.Path, e.Kind, e.Err)
}

// Unwrap exposes both the kind sentinel and the underlying cause.
func (e *LoadError) Unwrap() []error { return []error{e.Kind, e.Err} }
