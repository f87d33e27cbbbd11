package ddl

import (
	"testing"

	"csvetl/internal/schema"
)

// TestMapType verifies that every logical kind maps to the SQLite declared
// type that gives the matching column affinity.
func TestMapType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind schema.Kind
		want string
	}{
		{kind: schema.Integer, want: "INTEGER"},
		{kind: schema.Float, want: "REAL"},
		{kind: schema.Text, want: "TEXT"},
		{kind: schema.Missing, want: "TEXT"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.kind.String(), func(t *testing.T) {
			t.Parallel()

			if got := MapType(tt.kind); got != tt.want {
				t.Fatalf("MapType(%v) = %q, want %q", tt.kind, got, tt.want)
			}
		})
	}
}

// TestKindFromDeclType checks the inverse mapping, including declared types
// this package never writes.
func TestKindFromDeclType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		decl string
		want schema.Kind
	}{
		{decl: "INTEGER", want: schema.Integer},
		{decl: "bigint", want: schema.Integer},
		{decl: "REAL", want: schema.Float},
		{decl: "double precision", want: schema.Float},
		{decl: "TEXT", want: schema.Text},
		{decl: "varchar(20)", want: schema.Text},
		{decl: "", want: schema.Text},
		{decl: "BLOB", want: schema.Text},
	}

	for _, tt := range tests {
		if got := KindFromDeclType(tt.decl); got != tt.want {
			t.Fatalf("KindFromDeclType(%q) = %v, want %v", tt.decl, got, tt.want)
		}
	}
}

// Round trip through both directions for every kind MapType emits.
func TestMapTypeRoundTrip(t *testing.T) {
	t.Parallel()

	for _, k := range []schema.Kind{schema.Integer, schema.Float, schema.Text} {
		if got := KindFromDeclType(MapType(k)); got != k {
			t.Fatalf("KindFromDeclType(MapType(%v)) = %v", k, got)
		}
	}
}
