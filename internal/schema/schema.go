// Package schema models the row-oriented data that flows through a
// pipeline: Schema (an ordered list of named, typed columns), Row (a
// positional slice of Value), DataSet (a lazy pull iterator over rows) and
// the validation/error-collection machinery that wraps a DataSet at the
// pipeline boundary.
package schema

import (
	"context"

	"github.com/correlator-io/featurepipe/internal/piperr"
	"github.com/correlator-io/featurepipe/internal/value"
)

// Column is one named, typed field of a Schema.
type Column struct {
	Name string
	Type value.ValueType
}

// Schema is an ordered, positionally-indexed list of columns. Transformation
// output schemas are derived from input schemas by each transformation's
// OutputSchema method.
type Schema []Column

// IndexOf returns the positional index of a column by name, or -1 if absent.
func (s Schema) IndexOf(name string) int {
	for i, c := range s {
		if c.Name == name {
			return i
		}
	}

	return -1
}

// Has reports whether name is a column of s.
func (s Schema) Has(name string) bool {
	return s.IndexOf(name) >= 0
}

// Equal reports whether two schemas have the same columns in the same order.
func (s Schema) Equal(other Schema) bool {
	if len(s) != len(other) {
		return false
	}

	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}

	return true
}

// Dump renders the schema for introspection endpoints.
func (s Schema) Dump() []map[string]string {
	out := make([]map[string]string, len(s))
	for i, c := range s {
		out[i] = map[string]string{"name": c.Name, "type": c.Type.String()}
	}

	return out
}

// Row is one positional record of Values, aligned with a Schema.
type Row []value.Value

// Clone returns a shallow copy of the row (Values are immutable, so a
// shallow copy is sufficient for transformations that need to mutate a
// subset of columns without affecting the source row).
func (r Row) Clone() Row {
	out := make(Row, len(r))
	copy(out, r)

	return out
}

// DataSet is a lazy, pull-based, single-pass row stream. NextRow returns the
// next row, a bool reporting whether a row was produced, and an error that
// is non-nil only for stream-fatal conditions (cancellation, backend I/O
// failure) — row-level problems are carried as Error-valued cells within
// the row itself, not through this error channel.
type DataSet interface {
	// Schema returns the dataset's row shape.
	Schema() Schema
	// NextRow advances the stream. ok is false exactly when the stream is
	// exhausted (err is nil in that case); err is non-nil only for
	// stream-fatal failures, at which point the stream must not be read
	// further.
	NextRow(ctx context.Context) (row Row, ok bool, err error)
}

// sliceDataSet adapts an in-memory slice of rows to the DataSet interface;
// it is the terminal producer used to seed a request's single-row dataset
// and by tests that don't need a real streaming source.
type sliceDataSet struct {
	schema Schema
	rows   []Row
	pos    int
}

// NewSliceDataSet returns a DataSet that replays rows in order, then ends.
func NewSliceDataSet(s Schema, rows []Row) DataSet {
	return &sliceDataSet{schema: s, rows: rows}
}

func (d *sliceDataSet) Schema() Schema { return d.schema }

func (d *sliceDataSet) NextRow(ctx context.Context) (Row, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, piperr.Wrap(piperr.Interrupted, err)
	}

	if d.pos >= len(d.rows) {
		return nil, false, nil
	}

	row := d.rows[d.pos]
	d.pos++

	return row, true, nil
}

// Drain reads every row of d, returning them as a slice. Stream-fatal errors
// abort the drain and are returned.
func Drain(ctx context.Context, d DataSet) ([]Row, error) {
	var rows []Row

	for {
		row, ok, err := d.NextRow(ctx)
		if err != nil {
			return rows, err
		}

		if !ok {
			return rows, nil
		}

		rows = append(rows, row)
	}
}
