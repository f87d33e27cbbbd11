package ddl

import (
	"fmt"
	"strings"

	gddl "csvetl/internal/ddl"
)

// BuildCreateTableSQL returns a SQLite CREATE TABLE statement for the given
// table definition. The statement has the form:
//
//	CREATE TABLE "table" (
//	  "col1" TYPE [NOT NULL],
//	  "col2" TYPE
//	);
//
// There is no IF NOT EXISTS: the writer always drops the table first.
func BuildCreateTableSQL(t gddl.TableDef) (string, error) {
	name := strings.TrimSpace(t.Name)
	if name == "" {
		return "", fmt.Errorf("sqlite ddl: table name must not be empty")
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("sqlite ddl: at least one column is required")
	}

	cols := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		if c.Name == "" {
			return "", fmt.Errorf("sqlite ddl: column with empty name in table %s", name)
		}
		var sb strings.Builder
		sb.WriteString(QuoteIdent(c.Name))
		sb.WriteByte(' ')
		sb.WriteString(MapType(c.Kind))
		if !c.Nullable {
			sb.WriteString(" NOT NULL")
		}
		cols = append(cols, sb.String())
	}

	return fmt.Sprintf(
		"CREATE TABLE %s (\n  %s\n);",
		QuoteIdent(name),
		strings.Join(cols, ",\n  "),
	), nil
}

// BuildDropTableSQL returns DROP TABLE IF EXISTS for table.
func BuildDropTableSQL(table string) string {
	return "DROP TABLE IF EXISTS " + QuoteIdent(table) + ";"
}

// BuildInsertSQL returns a single-row INSERT with one ? placeholder per
// column, for use as a prepared statement.
func BuildInsertSQL(t gddl.TableDef) string {
	cols := quoteAll(t.ColumnNames())
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		QuoteIdent(t.Name),
		strings.Join(cols, ", "),
		marks,
	)
}

// rowidAliases are the names SQLite accepts for the implicit row id. A user
// column with one of these names hides that alias.
var rowidAliases = []string{"rowid", "_rowid_", "oid"}

// BuildSelectSQL returns a SELECT of t's columns in insertion order. It
// orders by the first rowid alias not shadowed by a column, and fails when
// the table declares all three.
func BuildSelectSQL(t gddl.TableDef) (string, error) {
	names := t.ColumnNames()
	order := rowidAlias(names)
	if order == "" {
		return "", fmt.Errorf("sqlite ddl: table %s shadows every rowid alias (%s)",
			t.Name, strings.Join(rowidAliases, ", "))
	}
	return fmt.Sprintf("SELECT %s FROM %s ORDER BY %s",
		strings.Join(quoteAll(names), ", "), QuoteIdent(t.Name), order), nil
}

// rowidAlias returns the first rowid alias that no column name matches,
// ignoring case, or "" if every alias is taken.
func rowidAlias(columns []string) string {
next:
	for _, alias := range rowidAliases {
		for _, c := range columns {
			if strings.EqualFold(c, alias) {
				continue next
			}
		}
		return alias
	}
	return ""
}

func quoteAll(ids []string) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = QuoteIdent(id)
	}
	return out
}

// QuoteIdent applies SQLite double-quoted identifier quoting. The whole
// string is one identifier; dots are not treated as schema separators.
func QuoteIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}
