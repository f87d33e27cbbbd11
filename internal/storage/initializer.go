package storage

import (
	"context"
	"sync"
)

// Initializer makes sure the database named by cfg exists before anything
// is written to it, reporting whether it had to be created.
type Initializer func(ctx context.Context, cfg Config) (created bool, err error)

var (
	initMu  sync.RWMutex
	initFns = map[string]Initializer{}
)

// RegisterInit registers (or replaces) the Initializer for kind.
func RegisterInit(kind string, fn Initializer) {
	initMu.Lock()
	defer initMu.Unlock()
	initFns[kind] = fn
}

// EnsureDatabase runs the Initializer registered for cfg.Kind.
func EnsureDatabase(ctx context.Context, cfg Config) (bool, error) {
	initMu.RLock()
	fn, ok := initFns[cfg.Kind]
	initMu.RUnlock()
	if !ok {
		return false, unknownKind(cfg.Kind)
	}
	return fn(ctx, cfg)
}
