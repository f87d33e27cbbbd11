package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"csvetl/internal/logging"
)

// InitError reports why the database file could not be guaranteed.
type InitError struct {
	Path string
	// Op is the failing step: "validate", "mkdir", "stat", "create", or
	// "verify".
	Op  string
	Err error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("sqlite: init %s: %s: %v", e.Path, e.Op, e.Err)
}

func (e *InitError) Unwrap() error { return e.Err }

// EnsureDatabase guarantees that path and its parent directory exist.
//
// Missing parent directories are created. When the file is absent an empty,
// zero-table database is created and created is true. An existing file is
// only opened read-only to confirm it is a SQLite database; it is never
// modified. Calling EnsureDatabase repeatedly is a no-op after the first
// success.
func EnsureDatabase(ctx context.Context, path string) (created bool, err error) {
	created, err = ensureDatabase(ctx, path)
	switch {
	case err != nil:
		logging.FromContext(ctx).Error(fmt.Sprintf("Error preparing database %s: %v", path, err))
	case created:
		logging.FromContext(ctx).Info("Created new SQLite database: " + path)
	default:
		logging.FromContext(ctx).Info("Database already exists: " + path)
	}
	return created, err
}

func ensureDatabase(ctx context.Context, path string) (bool, error) {
	fail := func(op string, err error) (bool, error) {
		return false, &InitError{Path: path, Op: op, Err: err}
	}

	if strings.TrimSpace(path) == "" {
		return fail("validate", errors.New("path must not be empty"))
	}
	if err := ctx.Err(); err != nil {
		return fail("validate", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fail("mkdir", err)
	}

	info, err := os.Stat(path)
	switch {
	case err == nil:
		if info.IsDir() {
			return fail("stat", fmt.Errorf("%s is a directory", path))
		}
		if err := checkSQLiteFile(ctx, path); err != nil {
			return fail("verify", err)
		}
		return false, nil
	case errors.Is(err, fs.ErrNotExist):
		if err := create(ctx, path); err != nil {
			return fail("create", err)
		}
		return true, nil
	default:
		return fail("stat", err)
	}
}

// create writes a valid empty database. Setting user_version forces SQLite
// to write the header page instead of leaving a zero-length file.
func create(ctx context.Context, path string) error {
	db, err := sql.Open(driverName, DSN(path, modeCreate))
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, "PRAGMA user_version = 0"); err != nil {
		return err
	}
	return db.Close()
}

// checkSQLiteFile opens path read-only and reads the schema table, which
// fails for files that are not SQLite databases.
func checkSQLiteFile(ctx context.Context, path string) error {
	db, err := sql.Open(driverName, DSN(path, modeReadOnly))
	if err != nil {
		return err
	}
	defer db.Close()

	var n int
	if err := db.QueryRowContext(ctx, "SELECT count(*) FROM sqlite_master").Scan(&n); err != nil {
		return err
	}
	return nil
}
