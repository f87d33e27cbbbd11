// Package ddl is a small, backend-agnostic table model derived from a
// schema.Dataset. Backends render it into their own dialect (see
// internal/storage/sqlite/ddl).
package ddl

import (
	"fmt"
	"strings"

	"csvetl/internal/schema"
)

// ColumnDef describes a single destination column.
//
// Fields:
//   - Name: logical column name (unquoted; quoting happens at render time)
//   - Kind: logical value kind; backends map it to a SQL type
//   - Nullable: whether NULL is allowed
type ColumnDef struct {
	Name     string
	Kind     schema.Kind
	Nullable bool
}

// TableDef holds the table name and an ordered list of columns.
type TableDef struct {
	Name    string
	Columns []ColumnDef
}

// FromDataset derives a TableDef named table from the dataset's columns, in
// order. Every column is nullable: CSV cells can always be missing.
func FromDataset(table string, ds *schema.Dataset) (TableDef, error) {
	table = strings.TrimSpace(table)
	if table == "" {
		return TableDef{}, fmt.Errorf("ddl: table name must not be empty")
	}
	if ds == nil || len(ds.Columns) == 0 {
		return TableDef{}, fmt.Errorf("ddl: at least one column is required")
	}
	cols := make([]ColumnDef, len(ds.Columns))
	for i, c := range ds.Columns {
		cols[i] = ColumnDef{Name: c.Name, Kind: c.Kind, Nullable: true}
	}
	return TableDef{Name: table, Columns: cols}, nil
}

// ColumnNames returns the column names in order.
func (t TableDef) ColumnNames() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}
