package transform

import (
	"context"

	"github.com/correlator-io/featurepipe/internal/expr"
	"github.com/correlator-io/featurepipe/internal/piperr"
	"github.com/correlator-io/featurepipe/internal/schema"
	"github.com/correlator-io/featurepipe/internal/value"
)

// Where emits only the rows whose predicate evaluates to Bool(true). Null
// and any non-Bool result drop the row silently; an Error result drops the
// row and is recorded to the collector as a row-level error.
type Where struct {
	Predicate expr.Expression
}

func (w Where) Stage() string { return "where" }

func (w Where) OutputSchema(input schema.Schema) (schema.Schema, error) {
	t, err := w.Predicate.OutputType(input)
	if err != nil {
		return nil, err
	}

	if !t.Matches(value.TypeBool) {
		return nil, piperr.New(piperr.ValidationError, "where predicate must be Bool")
	}

	return input, nil
}

func (w Where) Transform(input schema.DataSet, collector *schema.ErrorCollector) schema.DataSet {
	return &whereDataSet{baseDataSet{input.Schema()}, input, w.Predicate, collector, 0}
}

func (w Where) Dump() map[string]interface{} {
	return map[string]interface{}{"kind": "where", "predicate": w.Predicate.String()}
}

type whereDataSet struct {
	baseDataSet
	src       schema.DataSet
	predicate expr.Expression
	collector *schema.ErrorCollector
	rowIndex  int
}

func (d *whereDataSet) NextRow(ctx context.Context) (schema.Row, bool, error) {
	for {
		if err := checkCtx(ctx); err != nil {
			return nil, false, err
		}

		row, ok, err := d.src.NextRow(ctx)
		if err != nil || !ok {
			return nil, ok, err
		}

		idx := d.rowIndex
		d.rowIndex++

		result := d.predicate.Eval(row)

		if b, isBool := value.AsBool(result); isBool {
			if b {
				return row, true, nil
			}

			continue
		}

		if perr, isErr := value.IsError(result); isErr {
			d.collector.Record(idx, "", "where", perr)
		}
		// Null or any other non-Bool result silently drops the row.
	}
}

// Take emits the first N rows of its input, then ends the stream.
type Take struct {
	N int
}

func (t Take) Stage() string { return "take" }

func (t Take) OutputSchema(input schema.Schema) (schema.Schema, error) { return input, nil }

func (t Take) Transform(input schema.DataSet, collector *schema.ErrorCollector) schema.DataSet {
	n := t.N
	if n < 0 {
		n = 0
	}

	return &takeDataSet{baseDataSet{input.Schema()}, input, n, 0}
}

func (t Take) Dump() map[string]interface{} {
	return map[string]interface{}{"kind": "take", "n": t.N}
}

type takeDataSet struct {
	baseDataSet
	src     schema.DataSet
	n       int
	emitted int
}

func (d *takeDataSet) NextRow(ctx context.Context) (schema.Row, bool, error) {
	if d.emitted >= d.n {
		return nil, false, nil
	}

	if err := checkCtx(ctx); err != nil {
		return nil, false, err
	}

	row, ok, err := d.src.NextRow(ctx)
	if err != nil || !ok {
		return nil, ok, err
	}

	d.emitted++

	return row, true, nil
}
