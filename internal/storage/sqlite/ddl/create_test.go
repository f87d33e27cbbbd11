package ddl

import (
	"strings"
	"testing"

	gddl "csvetl/internal/ddl"
	"csvetl/internal/schema"
)

// TestQuoteIdent verifies that QuoteIdent applies SQLite-style double-quoted
// identifier quoting and correctly escapes embedded double quotes.
func TestQuoteIdent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "simple", in: "name", want: `"name"`},
		{name: "empty", in: "", want: `""`},
		{name: "with space", in: "user name", want: `"user name"`},
		{name: "with double quote", in: `weird"name`, want: `"weird""name"`},
		{name: "multiple quotes", in: `"a""b"`, want: `"""a""""b"""`},
		{name: "dot is not a separator", in: "main.events", want: `"main.events"`},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := QuoteIdent(tt.in)
			if got != tt.want {
				t.Fatalf("QuoteIdent(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func sampleTable() gddl.TableDef {
	return gddl.TableDef{
		Name: "test_table",
		Columns: []gddl.ColumnDef{
			{Name: "id", Kind: schema.Integer, Nullable: true},
			{Name: "score", Kind: schema.Float, Nullable: true},
			{Name: "name", Kind: schema.Text, Nullable: false},
			{Name: "Unnamed: 3", Kind: schema.Missing, Nullable: true},
		},
	}
}

// TestBuildCreateTableSQL verifies the rendered statement for a table that
// exercises every kind.
func TestBuildCreateTableSQL(t *testing.T) {
	t.Parallel()

	got, err := BuildCreateTableSQL(sampleTable())
	if err != nil {
		t.Fatalf("BuildCreateTableSQL error: %v", err)
	}
	want := "CREATE TABLE \"test_table\" (\n" +
		"  \"id\" INTEGER,\n" +
		"  \"score\" REAL,\n" +
		"  \"name\" TEXT NOT NULL,\n" +
		"  \"Unnamed: 3\" TEXT\n" +
		");"
	if got != want {
		t.Fatalf("BuildCreateTableSQL mismatch:\n got: %s\nwant: %s", got, want)
	}
}

// TestBuildCreateTableSQL_Errors covers invalid definitions.
func TestBuildCreateTableSQL_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		td   gddl.TableDef
		want string
	}{
		{name: "empty table name", td: gddl.TableDef{Name: "  ", Columns: sampleTable().Columns}, want: "table name"},
		{name: "no columns", td: gddl.TableDef{Name: "t"}, want: "at least one column"},
		{name: "empty column name", td: gddl.TableDef{Name: "t", Columns: []gddl.ColumnDef{{Name: ""}}}, want: "empty name"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := BuildCreateTableSQL(tt.td)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestBuildDMLStatements(t *testing.T) {
	t.Parallel()

	td := sampleTable()
	if got, want := BuildDropTableSQL(td.Name), `DROP TABLE IF EXISTS "test_table";`; got != want {
		t.Fatalf("BuildDropTableSQL = %q, want %q", got, want)
	}
	if got, want := BuildInsertSQL(td),
		`INSERT INTO "test_table" ("id", "score", "name", "Unnamed: 3") VALUES (?, ?, ?, ?)`; got != want {
		t.Fatalf("BuildInsertSQL = %q, want %q", got, want)
	}
	got, err := BuildSelectSQL(td)
	if err != nil {
		t.Fatalf("BuildSelectSQL: %v", err)
	}
	if want := `SELECT "id", "score", "name", "Unnamed: 3" FROM "test_table" ORDER BY rowid`; got != want {
		t.Fatalf("BuildSelectSQL = %q, want %q", got, want)
	}
}

// TestBuildSelectSQLRowidColumns covers tables whose own columns hide one or
// more of SQLite's rowid aliases.
func TestBuildSelectSQLRowidColumns(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		columns []string
		want    string // ORDER BY target; "" means an error
	}{
		{name: "no collision", columns: []string{"a"}, want: "rowid"},
		{name: "rowid column", columns: []string{"rowid", "name"}, want: "_rowid_"},
		{name: "case-insensitive", columns: []string{"RowID", "_ROWID_"}, want: "oid"},
		{name: "all aliases taken", columns: []string{"rowid", "_rowid_", "OID"}, want: ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			td := gddl.TableDef{Name: "t"}
			for _, c := range tt.columns {
				td.Columns = append(td.Columns, gddl.ColumnDef{Name: c, Kind: schema.Text, Nullable: true})
			}
			got, err := BuildSelectSQL(td)
			if tt.want == "" {
				if err == nil {
					t.Fatalf("BuildSelectSQL = %q, want error", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("BuildSelectSQL: %v", err)
			}
			if !strings.HasSuffix(got, " ORDER BY "+tt.want) {
				t.Fatalf("BuildSelectSQL = %q, want ORDER BY %s", got, tt.want)
			}
		})
	}
}
