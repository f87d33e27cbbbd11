package csv

import (
	"math"
	"strconv"
	"strings"

	"csvetl/internal/schema"
)

// DefaultNullValues are the cell spellings loaded as null. They match the
// missing-value markers common spreadsheet and dataframe tooling writes.
var DefaultNullValues = []string{
	"", "#N/A", "#N/A N/A", "#NA", "-1.#IND", "-1.#QNAN", "-NaN", "-nan",
	"1.#IND", "1.#QNAN", "<NA>", "N/A", "NA", "NULL", "NaN", "None",
	"n/a", "nan", "null",
}

// nullSet matches cells (after trimming surrounding whitespace) against the
// configured null spellings.
type nullSet map[string]struct{}

func newNullSet(values []string) nullSet {
	if values == nil {
		values = DefaultNullValues
	}
	s := make(nullSet, len(values)+1)
	for _, v := range values {
		s[strings.TrimSpace(v)] = struct{}{}
	}
	return s
}

func (s nullSet) isNull(v string) bool {
	_, ok := s[strings.TrimSpace(v)]
	return ok
}

// inferKind picks one kind for a whole column:
//
//   - Missing when every cell is null,
//   - Integer when every non-null cell is a base-10 int64,
//   - Float when every non-null cell is an int64 or a finite float,
//   - Text otherwise.
//
// cells shorter than the header are represented by ok=false from cell.
func inferKind(n int, cell func(i int) (string, bool), nulls nullSet) schema.Kind {
	sawValue := false
	allInt := true
	allNum := true
	for i := 0; i < n; i++ {
		v, ok := cell(i)
		if !ok || nulls.isNull(v) {
			continue
		}
		sawValue = true
		if isInt(v) {
			continue
		}
		allInt = false
		if !isFloat(v) {
			allNum = false
			break
		}
	}
	switch {
	case !sawValue:
		return schema.Missing
	case allInt:
		return schema.Integer
	case allNum:
		return schema.Float
	default:
		return schema.Text
	}
}

// convert turns a raw cell into the Go value for kind. It is only called
// after inferKind has vetted the column, so parse errors cannot occur for
// numeric kinds.
func convert(v string, ok bool, kind schema.Kind, nulls nullSet) any {
	if !ok || nulls.isNull(v) {
		return nil
	}
	switch kind {
	case schema.Integer:
		n, _ := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return n
	case schema.Float:
		f, _ := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if f == 0 {
			f = 0 // SQLite does not keep the sign of zero
		}
		return f
	case schema.Text:
		return v
	default:
		return nil
	}
}

// isInt requires a signed base-10 integer that fits in int64.
func isInt(s string) bool {
	_, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return err == nil
}

// isFloat accepts decimal or scientific notation. NaN and ±Inf are rejected:
// SQLite stores NaN as NULL, which would break the round trip. Hexadecimal
// floats such as "0x1p4" stay text.
func isFloat(s string) bool {
	s = strings.TrimSpace(s)
	if m := strings.TrimLeft(s, "+-"); len(m) > 1 && m[0] == '0' && (m[1] == 'x' || m[1] == 'X') {
		return false
	}
	f, err := strconv.ParseFloat(s, 64)
	return err == nil && !math.IsNaN(f) && !math.IsInf(f, 0)
}
