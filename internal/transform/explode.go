package transform

import (
	"context"

	"github.com/correlator-io/featurepipe/internal/piperr"
	"github.com/correlator-io/featurepipe/internal/schema"
	"github.com/correlator-io/featurepipe/internal/value"
)

// Explode emits one output row per element of the named Array-typed column.
// Null explodes to zero rows; a non-Array, non-Null value produces a single
// output row carrying an InvalidValueType Error in that column, recorded to
// the collector. Non-exploded columns, and array element order, are
// preserved across the explosion.
type Explode struct {
	Column string
}

func (e Explode) Stage() string { return "explode" }

func (e Explode) OutputSchema(input schema.Schema) (schema.Schema, error) {
	idx := input.IndexOf(e.Column)
	if idx < 0 {
		return nil, piperr.New(piperr.ColumnNotFound, "explode: unknown column: "+e.Column)
	}

	col := input[idx]
	if col.Type != value.TypeArray && col.Type != value.TypeDynamic {
		return nil, piperr.New(piperr.ValidationError, "explode requires an Array column: "+e.Column)
	}

	return input, nil
}

func (e Explode) Transform(input schema.DataSet, collector *schema.ErrorCollector) schema.DataSet {
	idx := input.Schema().IndexOf(e.Column)

	return &explodeDataSet{baseDataSet{input.Schema()}, input, idx, collector, nil, 0, 0}
}

func (e Explode) Dump() map[string]interface{} {
	return map[string]interface{}{"kind": "explode", "column": e.Column}
}

type explodeDataSet struct {
	baseDataSet
	src       schema.DataSet
	colIndex  int
	collector *schema.ErrorCollector
	pending   schema.Row
	elements  []value.Value
	rowIndex  int
}

func (d *explodeDataSet) NextRow(ctx context.Context) (schema.Row, bool, error) {
	for {
		if len(d.elements) > 0 {
			el := d.elements[0]
			d.elements = d.elements[1:]

			out := d.pending.Clone()
			out[d.colIndex] = el

			return out, true, nil
		}

		if err := checkCtx(ctx); err != nil {
			return nil, false, err
		}

		row, ok, err := d.src.NextRow(ctx)
		if err != nil || !ok {
			return nil, ok, err
		}

		idx := d.rowIndex
		d.rowIndex++

		cell := row[d.colIndex]

		if value.IsNull(cell) {
			continue
		}

		if arr, isArr := value.AsArray(cell); isArr {
			if len(arr) == 0 {
				continue
			}

			d.pending = row
			d.elements = arr

			continue
		}

		perr := piperr.New(piperr.InvalidValueType, "explode: column is not an Array: "+d.Schema()[d.colIndex].Name)
		d.collector.Record(idx, d.Schema()[d.colIndex].Name, "explode", perr)

		out := row.Clone()
		out[d.colIndex] = value.NewError(perr)

		return out, true, nil
	}
}
