// Package csv loads a delimited text file into a fully materialized
// schema.Dataset.
//
// The first record is the header. Every following record becomes a row. Each
// column gets one kind (integer, float, text, or missing) decided from all of
// its cells, and every cell is converted to that kind once. Nothing is
// streamed: the whole file is held in memory, so this is meant for small and
// medium inputs.
package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/dustin/go-humanize"

	"csvetl/internal/datasource"
	"csvetl/internal/datasource/file"
	"csvetl/internal/logging"
	"csvetl/internal/schema"
)

// Options configures Load. The zero value reads comma-separated UTF-8 with
// the default null spellings.
type Options struct {
	// Comma is the field delimiter. When zero, ',' is used.
	Comma rune

	// Encoding is a WHATWG label such as "utf-8" or "windows-1250". Empty
	// means UTF-8. A byte order mark in the input takes precedence.
	Encoding string

	// NullValues lists cell spellings loaded as null. nil selects
	// DefaultNullValues; an empty non-nil slice disables null detection
	// (short rows still pad with null).
	NullValues []string

	// NormalizeHeaders rewrites header names to lowercase ASCII identifiers
	// via NormalizeName.
	NormalizeHeaders bool

	// LazyQuotes tolerates bare quotes inside fields.
	LazyQuotes bool
}

// ctxCheckEvery is how many records are read between context checks.
const ctxCheckEvery = 4096

// Load reads the CSV file at path.
//
// Errors are *LoadError values whose Kind is ErrNotFound, ErrPermission,
// ErrMalformed, or ErrRead. The failure is logged at error level before it is
// returned; success logs one info record.
func Load(ctx context.Context, path string, opt Options) (*schema.Dataset, error) {
	return LoadFrom(ctx, file.NewLocal(path), path, opt)
}

// LoadFrom reads CSV from src. name identifies the source in errors and logs.
func LoadFrom(ctx context.Context, src datasource.Source, name string, opt Options) (*schema.Dataset, error) {
	ds, size, err := load(ctx, src, name, opt)
	if err != nil {
		logging.FromContext(ctx).Error(fmt.Sprintf("Error loading CSV file %s: %v", name, err))
		return nil, err
	}

	attrs := []any{"rows", ds.NumRows(), "columns", ds.NumCols()}
	if size >= 0 {
		attrs = append(attrs, "size", humanize.Bytes(uint64(size)))
	}
	logging.FromContext(ctx).Info("Loaded CSV file successfully: "+name, attrs...)
	return ds, nil
}

func load(ctx context.Context, src datasource.Source, name string, opt Options) (*schema.Dataset, int64, error) {
	fail := func(kind error, line int, err error) (*schema.Dataset, int64, error) {
		return nil, -1, &LoadError{Path: name, Kind: kind, Line: line, Err: err}
	}

	enc, err := lookupEncoding(opt.Encoding)
	if err != nil {
		return fail(ErrRead, 0, err)
	}

	size := int64(-1)
	if st, ok := src.(datasource.Statter); ok {
		if info, err := st.Stat(ctx); err == nil {
			size = info.Size()
		}
	}

	rc, err := src.Open(ctx)
	if err != nil {
		return fail(classifyOpenErr(err), 0, err)
	}
	defer rc.Close()

	r := csv.NewReader(newDecodingReader(rc, enc))
	r.Comma = ','
	if opt.Comma != 0 {
		r.Comma = opt.Comma
	}
	r.FieldsPerRecord = -1 // width is enforced below against the header
	r.LazyQuotes = opt.LazyQuotes

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return fail(ErrMalformed, 1, errors.New("no header row"))
	}
	if err != nil {
		kind, line := classifyReadErr(err)
		return fail(kind, line, err)
	}
	names := headerNames(StripHeaderBOM(header), opt.NormalizeHeaders)
	width := len(names)

	var records [][]string
	for {
		if len(records)%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return fail(ErrRead, 0, err)
			}
		}
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			kind, line := classifyReadErr(err)
			return fail(kind, line, err)
		}
		if len(rec) > width {
			line, _ := r.FieldPos(0)
			return fail(ErrMalformed, line,
				fmt.Errorf("expected %d fields, saw %d", width, len(rec)))
		}
		records = append(records, rec)
	}

	nulls := newNullSet(opt.NullValues)
	cols := make([]schema.Column, width)
	for c := range cols {
		cell := func(i int) (string, bool) {
			if c < len(records[i]) {
				return records[i][c], true
			}
			return "", false
		}
		cols[c] = schema.Column{Name: names[c], Kind: inferKind(len(records), cell, nulls)}
	}

	ds, err := schema.New(cols)
	if err != nil {
		return fail(ErrMalformed, 1, err)
	}
	ds.Rows = make([][]any, 0, len(records))
	for _, rec := range records {
		row := make([]any, width)
		for c := range row {
			if c < len(rec) {
				row[c] = convert(rec[c], true, cols[c].Kind, nulls)
			}
		}
		ds.Rows = append(ds.Rows, row)
	}
	return ds, size, nil
}

func classifyOpenErr(err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return ErrNotFound
	case errors.Is(err, fs.ErrPermission):
		return ErrPermission
	default:
		return ErrRead
	}
}

// classifyReadErr separates CSV syntax errors from I/O failures.
func classifyReadErr(err error) (kind error, line int) {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		switch {
		case errors.Is(pe.Err, csv.ErrQuote),
			errors.Is(pe.Err, csv.ErrBareQuote),
			errors.Is(pe.Err, csv.ErrFieldCount):
			return ErrMalformed, pe.Line
		}
		return ErrRead, pe.Line
	}
	return ErrRead, 0
}
