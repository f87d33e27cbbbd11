package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver

	gddl "csvetl/internal/ddl"
	"csvetl/internal/logging"
	"csvetl/internal/schema"
	sqliteddl "csvetl/internal/storage/sqlite/ddl"
)

const driverName = "sqlite"

// ctxCheckEvery is how many rows are inserted between context checks.
const ctxCheckEvery = 1024

// WriteError reports a failed table replace.
type WriteError struct {
	DB    string
	Table string
	// Op is the failing step: "open", "schema", "begin", "drop", "create",
	// "prepare", "insert", "commit", or "verify".
	Op  string
	Row int // 0-based data row for Op "insert"
	Err error
}

func (e *WriteError) Error() string {
	dest := e.DB
	if e.Table != "" {
		dest += " -> " + e.Table
	}
	if e.Op == "insert" {
		return fmt.Sprintf("sqlite: write %s: %s row %d: %v", dest, e.Op, e.Row, e.Err)
	}
	return fmt.Sprintf("sqlite: write %s: %s: %v", dest, e.Op, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// ErrVerify is wrapped by WriteError when the read-back differs from the
// dataset that was written.
var ErrVerify = errors.New("table contents differ from dataset")

// verifyDataset compares the read-back table with the dataset written.
var verifyDataset = func(want, got *schema.Dataset) error {
	if got.Fingerprint() != want.Fingerprint() {
		return ErrVerify
	}
	return nil
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Repository is a SQLite-backed implementation of storage.Repository.
type Repository struct {
	db  *sql.DB
	cfg Config
}

// NewRepository opens an existing database file for writing and returns a
// Repository plus a Close function for cleanup. It does not create the file;
// EnsureDatabase does that.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, nil, fmt.Errorf("sqlite: path must not be empty")
	}

	db, err := sql.Open(driverName, DSN(cfg.Path, modeReadWrite))
	if err != nil {
		return nil, nil, fmt.Errorf("sqlite: open: %w", err)
	}

	// Ping with a deadline to fail fast on a missing or unreadable file.
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("sqlite: ping: %w", err)
	}

	closeFn := func() { db.Close() }
	return &Repository{db: db, cfg: cfg}, closeFn, nil
}

// ReplaceTable drops table if present, recreates it from ds's columns and
// kinds, and inserts every row in order, all inside one transaction. Any
// failure rolls the transaction back, leaving the previous table untouched.
//
// With Config.Verify the table is read back inside the same transaction, so
// a mismatch also rolls back.
//
// Success and failure are both logged; failures are *WriteError.
func (r *Repository) ReplaceTable(ctx context.Context, table string, ds *schema.Dataset) (int64, error) {
	table = strings.TrimSpace(table)
	n, err := r.replaceTable(ctx, table, ds)
	if err != nil {
		logging.FromContext(ctx).Error(fmt.Sprintf("Error writing to SQL: %v", err))
		return 0, err
	}
	logging.FromContext(ctx).Info(fmt.Sprintf("Data successfully written to %s -> %s", r.cfg.Path, table), "rows", n)
	return n, nil
}

func (r *Repository) replaceTable(ctx context.Context, table string, ds *schema.Dataset) (n int64, err error) {
	fail := func(op string, row int, err error) (int64, error) {
		return 0, &WriteError{DB: r.cfg.Path, Table: table, Op: op, Row: row, Err: err}
	}

	if ds == nil {
		return fail("schema", 0, errors.New("nil dataset"))
	}
	if err := ds.Validate(); err != nil {
		return fail("schema", 0, err)
	}
	td, err := gddl.FromDataset(table, ds)
	if err != nil {
		return fail("schema", 0, err)
	}
	createSQL, err := sqliteddl.BuildCreateTableSQL(td)
	if err != nil {
		return fail("schema", 0, err)
	}
	// The table must stay readable in insertion order.
	if _, err := sqliteddl.BuildSelectSQL(td); err != nil {
		return fail("schema", 0, err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fail("begin", 0, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, sqliteddl.BuildDropTableSQL(td.Name)); err != nil {
		return fail("drop", 0, err)
	}
	if _, err = tx.ExecContext(ctx, createSQL); err != nil {
		return fail("create", 0, err)
	}

	stmt, err := tx.PrepareContext(ctx, sqliteddl.BuildInsertSQL(td))
	if err != nil {
		return fail("prepare", 0, err)
	}
	defer stmt.Close()

	var inserted int64
	for i, row := range ds.Rows {
		if i%ctxCheckEvery == 0 {
			if err = ctx.Err(); err != nil {
				return fail("insert", i, err)
			}
		}
		if _, err = stmt.ExecContext(ctx, row...); err != nil {
			return fail("insert", i, err)
		}
		inserted++
	}

	if r.cfg.Verify {
		var got *schema.Dataset
		if got, err = readTable(ctx, tx, td.Name); err != nil {
			return fail("verify", 0, err)
		}
		if err = verifyDataset(ds, got); err != nil {
			return fail("verify", 0, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fail("commit", 0, err)
	}
	return inserted, nil
}

// ReadTable returns table's columns and rows in insertion order.
//
// Column kinds come from the declared types (see sqliteddl.KindFromDeclType);
// a column whose cells are all NULL, or a column of an empty table, is
// reported as Missing so that tables written by ReplaceTable read back equal
// to the loaded dataset.
func (r *Repository) ReadTable(ctx context.Context, table string) (*schema.Dataset, error) {
	table = strings.TrimSpace(table)
	ds, err := readTable(ctx, r.db, table)
	if err != nil {
		return nil, fmt.Errorf("sqlite: read %s -> %s: %w", r.cfg.Path, table, err)
	}
	return ds, nil
}

func readTable(ctx context.Context, q querier, table string) (*schema.Dataset, error) {
	cols, err := tableColumns(ctx, q, table)
	if err != nil {
		return nil, err
	}

	td := gddl.TableDef{Name: table, Columns: make([]gddl.ColumnDef, len(cols))}
	for i, c := range cols {
		td.Columns[i] = gddl.ColumnDef{Name: c.Name, Kind: c.Kind, Nullable: true}
	}
	query, err := sqliteddl.BuildSelectSQL(td)
	if err != nil {
		return nil, err
	}
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("select: %w", err)
	}
	defer rows.Close()

	var data [][]any
	nonNull := make([]bool, len(cols))
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
			if vals[i] != nil {
				nonNull[i] = true
			}
		}
		data = append(data, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	for i := range cols {
		if !nonNull[i] {
			cols[i].Kind = schema.Missing
		}
	}
	ds, err := schema.New(cols)
	if err != nil {
		return nil, err
	}
	for i, row := range data {
		if err := ds.AppendRow(row); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
	}
	return ds, nil
}

func tableColumns(ctx context.Context, q querier, table string) ([]schema.Column, error) {
	rows, err := q.QueryContext(ctx, "SELECT name, type FROM pragma_table_info(?) ORDER BY cid", table)
	if err != nil {
		return nil, fmt.Errorf("table info: %w", err)
	}
	defer rows.Close()

	var cols []schema.Column
	for rows.Next() {
		var name, decl string
		if err := rows.Scan(&name, &decl); err != nil {
			return nil, fmt.Errorf("table info: %w", err)
		}
		cols = append(cols, schema.Column{Name: name, Kind: sqliteddl.KindFromDeclType(decl)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("table info: %w", err)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("no such table: %s", table)
	}
	return cols, nil
}

// TableNames lists the user tables in the database, sorted by name.
func (r *Repository) TableNames(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("sqlite: list tables: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("sqlite: list tables: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
