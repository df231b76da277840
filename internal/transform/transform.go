// Package transform implements the row-stream operators of spec.md §4.6:
// each Transformation declares its output schema as a pure function of its
// input schema, and wraps an input DataSet in a new lazy DataSet that
// implements the operator's row contract. Transformations never drain their
// input eagerly except where the operator's semantics require it (Top,
// Summarize, Distinct) — see each file's barrier note.
package transform

import (
	"context"

	"github.com/correlator-io/featurepipe/internal/piperr"
	"github.com/correlator-io/featurepipe/internal/schema"
)

// Transformation is a dataset -> dataset operator with a schema contract
// that can be checked independently of any particular input dataset.
type Transformation interface {
	// OutputSchema computes the schema this transformation produces given an
	// input schema, failing with ValidationError/ColumnNotFound/
	// ColumnAlreadyExists per spec.md §4.6's per-operator contract.
	OutputSchema(input schema.Schema) (schema.Schema, error)
	// Transform wraps input in a new DataSet implementing this operator's row
	// contract. collector receives row-level errors this transformation
	// records (e.g. Explode's InvalidValueType, Where's predicate Error);
	// it may be nil, in which case recording is a no-op.
	Transform(input schema.DataSet, collector *schema.ErrorCollector) schema.DataSet
	// Stage is the name recorded against row errors originating from this
	// transformation (used by ErrorCollector.Record's stage argument and by
	// pipeline dumps).
	Stage() string
	// Dump renders this transformation for pipeline introspection.
	Dump() map[string]interface{}
}

// baseDataSet factors the Schema() accessor shared by every transformation's
// DataSet wrapper.
type baseDataSet struct {
	schema schema.Schema
}

func (b baseDataSet) Schema() schema.Schema { return b.schema }

// checkCtx reports a stream-fatal cancellation as a piperr.Interrupted error,
// nil otherwise.
func checkCtx(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return piperr.Wrap(piperr.Interrupted, err)
	}

	return nil
}
