// Package ddl contains SQLite-specific helpers for generating DDL and DML
// from the generic ddl.TableDef model.
package ddl

import (
	"strings"

	"csvetl/internal/schema"
)

// MapType maps a logical column kind into a SQLite declared type.
//
// The declared types give the columns INTEGER, REAL, and TEXT affinity, so
// SQLite never re-coerces the values bound by the writer:
//   - Integer -> INTEGER
//   - Float   -> REAL
//   - Text    -> TEXT
//   - Missing -> TEXT (all cells are NULL)
func MapType(k schema.Kind) string {
	switch k {
	case schema.Integer:
		return "INTEGER"
	case schema.Float:
		return "REAL"
	default:
		return "TEXT"
	}
}

// KindFromDeclType is the inverse of MapType, following SQLite's affinity
// rules for declared types it did not write itself.
func KindFromDeclType(decl string) schema.Kind {
	d := strings.ToUpper(decl)
	switch {
	case strings.Contains(d, "INT"):
		return schema.Integer
	case strings.Contains(d, "CHAR"), strings.Contains(d, "CLOB"), strings.Contains(d, "TEXT"):
		return schema.Text
	case strings.Contains(d, "REAL"), strings.Contains(d, "FLOA"), strings.Contains(d, "DOUB"):
		return schema.Float
	default:
		return schema.Text
	}
}
