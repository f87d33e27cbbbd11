// Package schema defines the in-memory tabular dataset that flows from the CSV
// loader to the table writer.
//
// A Dataset is an ordered list of typed columns plus an ordered list of rows.
// Each row holds exactly one cell per column. Cells are one of:
//
//   - nil      (null / missing)
//   - int64    (Integer columns)
//   - float64  (Float columns)
//   - string   (Text columns)
//
// The column kind is decided once, at load time, from the whole column. A
// Dataset is not mutated after it has been handed to a writer.
package schema

import "fmt"

// Kind is the declared value type of a column.
type Kind int

const (
	// Missing marks a column whose every cell is null.
	Missing Kind = iota
	// Integer columns hold int64 cells.
	Integer
	// Float columns hold float64 cells.
	Float
	// Text columns hold string cells.
	Text
)

// String returns the lowercase kind name used in logs and config.
func (k Kind) String() string {
	switch k {
	case Missing:
		return "missing"
	case Integer:
		return "integer"
	case Float:
		return "float"
	case Text:
		return "text"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Column is a named, typed column.
type Column struct {
	Name string
	Kind Kind
}

// Dataset is a fully materialized table.
type Dataset struct {
	Columns []Column
	Rows    [][]any
}

// New returns an empty Dataset with the given columns. It returns an error
// when a column name is empty or repeated.
func New(cols []Column) (*Dataset, error) {
	seen := make(map[string]struct{}, len(cols))
	for i, c := range cols {
		if c.Name == "" {
			return nil, fmt.Errorf("schema: column %d has empty name", i)
		}
		if _, dup := seen[c.Name]; dup {
			return nil, fmt.Errorf("schema: duplicate column %q", c.Name)
		}
		seen[c.Name] = struct{}{}
	}
	out := make([]Column, len(cols))
	copy(out, cols)
	return &Dataset{Columns: out}, nil
}

// AppendRow appends a row. The row must have one cell per column and each
// non-nil cell must match its column kind.
func (d *Dataset) AppendRow(row []any) error {
	if len(row) != len(d.Columns) {
		return fmt.Errorf("schema: row has %d cells, want %d", len(row), len(d.Columns))
	}
	for i, v := range row {
		if err := checkCell(d.Columns[i], v); err != nil {
			return fmt.Errorf("schema: row %d: %w", len(d.Rows), err)
		}
	}
	d.Rows = append(d.Rows, row)
	return nil
}

// NumRows returns the number of rows.
func (d *Dataset) NumRows() int { return len(d.Rows) }

// NumCols returns the number of columns.
func (d *Dataset) NumCols() int { return len(d.Columns) }

// ColumnNames returns the column names in order.
func (d *Dataset) ColumnNames() []string {
	names := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		names[i] = c.Name
	}
	return names
}

// Index returns the position of the named column, or -1.
func (d *Dataset) Index(name string) int {
	for i, c := range d.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Value returns the cell at (row, column name). ok is false when either the
// row or the column does not exist.
func (d *Dataset) Value(row int, col string) (v any, ok bool) {
	i := d.Index(col)
	if i < 0 || row < 0 || row >= len(d.Rows) {
		return nil, false
	}
	return d.Rows[row][i], true
}

// Validate checks the dataset invariants: unique non-empty column names, one
// cell per column in every row, and cells matching their column kind.
func (d *Dataset) Validate() error {
	if _, err := New(d.Columns); err != nil {
		return err
	}
	for r, row := range d.Rows {
		if len(row) != len(d.Columns) {
			return fmt.Errorf("schema: row %d has %d cells, want %d", r, len(row), len(d.Columns))
		}
		for i, v := range row {
			if err := checkCell(d.Columns[i], v); err != nil {
				return fmt.Errorf("schema: row %d: %w", r, err)
			}
		}
	}
	return nil
}

func checkCell(c Column, v any) error {
	if v == nil {
		return nil
	}
	ok := false
	switch c.Kind {
	case Missing:
		ok = false
	case Integer:
		_, ok = v.(int64)
	case Float:
		_, ok = v.(float64)
	case Text:
		_, ok = v.(string)
	}
	if !ok {
		return fmt.Errorf("column %q (%s) holds %T", c.Name, c.Kind, v)
	}
	return nil
}
