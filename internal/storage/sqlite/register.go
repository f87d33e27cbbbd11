package sqlite

import (
	"context"

	"csvetl/internal/storage"
)

// Kind is the storage.Config.Kind this package registers under.
const Kind = "sqlite"

// Swapped by tests to keep registry tests off the filesystem.
var (
	newRepository    = NewRepository
	ensureDatabaseFn = EnsureDatabase
)

// handle is a *Repository that owns its connection, so storage callers can
// release it through storage.Repository.Close.
type handle struct {
	*Repository
	release func()
}

func (h *handle) Close() {
	if h.release != nil {
		h.release()
		h.release = nil
	}
}

var _ storage.Repository = (*handle)(nil)

func openHandle(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	r, release, err := openForWrite(ctx, Config{Path: cfg.Path, Verify: cfg.Verify}, "")
	if err != nil {
		return nil, err
	}
	return &handle{Repository: r, release: release}, nil
}

func ensure(ctx context.Context, cfg storage.Config) (bool, error) {
	return ensureDatabaseFn(ctx, cfg.Path)
}

func init() {
	storage.Register(Kind, openHandle)
	storage.RegisterInit(Kind, ensure)
}
