package sqlite

import (
	"context"
	"fmt"
	"strings"

	"csvetl/internal/logging"
	"csvetl/internal/schema"
)

// WriteTable replaces table in the database at dbPath with ds. It opens and
// closes its own connection. The database file must already exist (see
// EnsureDatabase).
func WriteTable(ctx context.Context, ds *schema.Dataset, dbPath, table string) (int64, error) {
	return writeTable(ctx, Config{Path: dbPath}, ds, table)
}

// WriteTableVerified is WriteTable plus a read-back comparison made before
// the transaction commits.
func WriteTableVerified(ctx context.Context, ds *schema.Dataset, dbPath, table string) (int64, error) {
	return writeTable(ctx, Config{Path: dbPath, Verify: true}, ds, table)
}

func writeTable(ctx context.Context, cfg Config, ds *schema.Dataset, table string) (int64, error) {
	table = strings.TrimSpace(table)
	repo, closeFn, err := openForWrite(ctx, cfg, table)
	if err != nil {
		return 0, err
	}
	defer closeFn()
	return repo.ReplaceTable(ctx, table, ds)
}

// openForWrite opens the repository through the newRepository hook, turning
// a failure into a logged *WriteError.
func openForWrite(ctx context.Context, cfg Config, table string) (*Repository, func(), error) {
	repo, closeFn, err := newRepository(ctx, cfg)
	if err != nil {
		werr := &WriteError{DB: cfg.Path, Table: table, Op: "open", Err: err}
		logging.FromContext(ctx).Error(fmt.Sprintf("Error writing to SQL: %v", werr))
		return nil, nil, werr
	}
	return repo, closeFn, nil
}

// ReadTable reads table back from the database at dbPath.
func ReadTable(ctx context.Context, dbPath, table string) (*schema.Dataset, error) {
	repo, closeFn, err := NewRepository(ctx, Config{Path: dbPath})
	if err != nil {
		return nil, err
	}
	defer closeFn()
	return repo.ReadTable(ctx, table)
}
