// Package storage contains storage-agnostic contracts and the backend
// registry. Concrete backends live in subpackages and register themselves
// from init(); callers import internal/storage/all for the side effects and
// then stay backend-agnostic.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"csvetl/internal/schema"
)

// Config selects a backend and its destination.
type Config struct {
	// Kind is the registered backend name, e.g. "sqlite".
	Kind string

	// Path is the database file.
	Path string

	// Verify reads every replaced table back and compares it with the
	// dataset that was written.
	Verify bool
}

// Repository is the write/read surface the job needs from a backend.
type Repository interface {
	// ReplaceTable drops table if it exists, recreates it from ds's schema
	// and inserts every row in order. Readers never observe a half-written
	// table. It returns the number of rows inserted.
	ReplaceTable(ctx context.Context, table string, ds *schema.Dataset) (int64, error)

	// ReadTable returns the table's columns and rows in insertion order.
	ReadTable(ctx context.Context, table string) (*schema.Dataset, error)

	Close()
}

// ErrUnknownKind is wrapped when no backend is registered for Config.Kind.
var ErrUnknownKind = errors.New("unknown storage kind")

// Factory opens a Repository for cfg.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	regMu     sync.RWMutex
	factories = map[string]Factory{}
)

// Register registers (or replaces) the factory for kind.
func Register(kind string, f Factory) {
	regMu.Lock()
	defer regMu.Unlock()
	factories[kind] = f
}

// New opens a Repository using the factory registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	regMu.RLock()
	f, ok := factories[cfg.Kind]
	regMu.RUnlock()
	if !ok {
		return nil, unknownKind(cfg.Kind)
	}
	return f(ctx, cfg)
}

// ListKinds returns a sorted snapshot of registered backend names.
func ListKinds() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func unknownKind(kind string) error {
	return fmt.Errorf("storage: %w %q (registered: %s)", ErrUnknownKind, kind, strings.Join(ListKinds(), ", "))
}
