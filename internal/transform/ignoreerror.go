package transform

import (
	"context"

	"github.com/correlator-io/featurepipe/internal/schema"
	"github.com/correlator-io/featurepipe/internal/value"
)

// IgnoreError passes every row through, routing each Error-valued cell to
// the collector and replacing it with Null in the downstream row. It is the
// only transformation that erases in-row errors; its output schema equals
// its input schema.
type IgnoreError struct{}

func (IgnoreError) Stage() string { return "ignore-error" }

func (IgnoreError) OutputSchema(input schema.Schema) (schema.Schema, error) { return input, nil }

func (ie IgnoreError) Transform(input schema.DataSet, collector *schema.ErrorCollector) schema.DataSet {
	return &ignoreErrorDataSet{baseDataSet{input.Schema()}, input, collector, 0}
}

func (IgnoreError) Dump() map[string]interface{} {
	return map[string]interface{}{"kind": "ignore-error"}
}

type ignoreErrorDataSet struct {
	baseDataSet
	src       schema.DataSet
	collector *schema.ErrorCollector
	rowIndex  int
}

func (d *ignoreErrorDataSet) NextRow(ctx context.Context) (schema.Row, bool, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, false, err
	}

	row, ok, err := d.src.NextRow(ctx)
	if err != nil || !ok {
		return nil, ok, err
	}

	idx := d.rowIndex
	d.rowIndex++

	var out schema.Row

	for i, cell := range row {
		perr, isErr := value.IsError(cell)
		if !isErr {
			continue
		}

		if out == nil {
			out = row.Clone()
		}

		d.collector.Record(idx, d.Schema()[i].Name, "ignore-error", perr)
		out[i] = value.Null
	}

	if out == nil {
		return row, true, nil
	}

	return out, true, nil
}
