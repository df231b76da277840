package transform

import (
	"context"
	"strconv"

	"github.com/correlator-io/featurepipe/internal/expr"
	"github.com/correlator-io/featurepipe/internal/schema"
	"github.com/correlator-io/featurepipe/internal/value"
)

// Distinct deduplicates rows by the equality of a set of key expressions (or
// the whole row when Keys is empty). Keys are hashed via value.KeyString, so
// two Errors never collapse into one bucket (KeyString renders each Error's
// kind+message, but spec.md §8 requires Errors compare unequal to each
// other; KeyString alone would collapse two Errors of the same kind, so
// Distinct additionally tags Error keys with a per-row nonce) and two Nulls
// compare equal.
type Distinct struct {
	Keys []expr.Expression
}

func (d Distinct) Stage() string { return "distinct" }

func (d Distinct) OutputSchema(input schema.Schema) (schema.Schema, error) {
	for _, k := range d.Keys {
		if _, err := k.OutputType(input); err != nil {
			return nil, err
		}
	}

	return input, nil
}

func (d Distinct) Transform(input schema.DataSet, collector *schema.ErrorCollector) schema.DataSet {
	return &distinctDataSet{baseDataSet{input.Schema()}, input, d.Keys, map[string]bool{}, 0}
}

func (d Distinct) Dump() map[string]interface{} {
	keys := make([]string, len(d.Keys))
	for i, k := range d.Keys {
		keys[i] = k.String()
	}

	return map[string]interface{}{"kind": "distinct", "keys": keys}
}

type distinctDataSet struct {
	baseDataSet
	src   schema.DataSet
	keys  []expr.Expression
	seen  map[string]bool
	nonce int
}

func (d *distinctDataSet) keyOf(row schema.Row) string {
	key := ""

	if len(d.keys) == 0 {
		for _, v := range row {
			key += "\x1f" + d.keyStringAllowingErrorNonce(v)
		}

		return key
	}

	for _, k := range d.keys {
		key += "\x1f" + d.keyStringAllowingErrorNonce(k.Eval(row))
	}

	return key
}

// keyStringAllowingErrorNonce renders v's dedup key, giving every Error value
// a unique nonce so two Errors never compare equal under Distinct, per
// spec.md §8 ("two Errors compare unequal").
func (d *distinctDataSet) keyStringAllowingErrorNonce(v value.Value) string {
	if _, ok := value.IsError(v); ok {
		d.nonce++

		return "err:" + value.KeyString(v) + ":" + strconv.Itoa(d.nonce)
	}

	return value.KeyString(v)
}

func (d *distinctDataSet) NextRow(ctx context.Context) (schema.Row, bool, error) {
	for {
		if err := checkCtx(ctx); err != nil {
			return nil, false, err
		}

		row, ok, err := d.src.NextRow(ctx)
		if err != nil || !ok {
			return nil, ok, err
		}

		key := d.keyOf(row)
		if d.seen[key] {
			continue
		}

		d.seen[key] = true

		return row, true, nil
	}
}
