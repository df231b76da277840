package schema

import (
	"github.com/correlator-io/featurepipe/internal/piperr"
	"github.com/correlator-io/featurepipe/internal/value"
)

// ValidationMode controls how a request's input map is reconciled against a
// pipeline's declared input schema.
type ValidationMode int

const (
	// Strict rejects unknown columns and missing columns, and fails on any
	// value that does not already match its column's declared type.
	Strict ValidationMode = iota
	// Lenient coerces values to their column's declared type where
	// possible (via value.ConvertTo) and defaults missing columns to Null.
	Lenient
)

// RowFromRequestData builds a single Row from a request's {name: json} map
// against the pipeline's input schema, per §4.9 step 2. In Strict mode,
// unknown keys and missing keys are rejected, and a present value whose
// JSON-decoded type doesn't already match the column's declared type is
// rejected. In Lenient mode, unknown keys are ignored, missing keys default
// to Null, and present values are coerced via value.ConvertTo.
func RowFromRequestData(s Schema, data map[string]interface{}, mode ValidationMode) (Row, error) {
	if mode == Strict {
		for key := range data {
			if !s.Has(key) {
				return nil, piperr.New(piperr.ValidationError, "unknown column in request data: "+key)
			}
		}
	}

	row := make(Row, len(s))

	for i, col := range s {
		raw, present := data[col.Name]
		if !present {
			if mode == Strict {
				return nil, piperr.New(piperr.ValidationError, "missing required column: "+col.Name)
			}

			row[i] = value.Null

			continue
		}

		v, err := fromJSON(raw)
		if err != nil {
			return nil, err
		}

		// JSON has no native DateTime literal, so a String payload against
		// a DateTime column is always parsed, in both validation modes.
		mustCoerce := col.Type == value.TypeDateTime && v.Type() == value.TypeString

		if v.Type() != col.Type && !value.IsNull(v) {
			if mode == Strict && !mustCoerce {
				return nil, piperr.New(piperr.InvalidColumnType,
					"column "+col.Name+" expected "+col.Type.String()+", got "+v.Type().String())
			}

			v = value.ConvertTo(v, col.Type)

			if _, isErr := value.IsError(v); isErr {
				return nil, piperr.New(piperr.InvalidColumnType,
					"column "+col.Name+" could not be coerced to "+col.Type.String())
			}
		}

		row[i] = v
	}

	return row, nil
}

// fromJSON converts a decoded JSON value (string/float64/bool/nil/[]any/map)
// into the nearest Value representation. Numeric JSON values are decoded as
// Double (json.Unmarshal's native numeric type); callers coerce further via
// value.ConvertTo against the declared column type.
func fromJSON(raw interface{}) (value.Value, error) {
	switch v := raw.(type) {
	case nil:
		return value.Null, nil
	case bool:
		return value.NewBool(v), nil
	case float64:
		return value.NewDouble(v), nil
	case string:
		return value.NewString(v), nil
	case []interface{}:
		out := make([]value.Value, len(v))

		for i, el := range v {
			elv, err := fromJSON(el)
			if err != nil {
				return nil, err
			}

			out[i] = elv
		}

		return value.NewArray(out), nil
	case map[string]interface{}:
		out := make(map[string]value.Value, len(v))

		for k, el := range v {
			elv, err := fromJSON(el)
			if err != nil {
				return nil, err
			}

			out[k] = elv
		}

		return value.NewObject(out), nil
	default:
		return nil, piperr.New(piperr.InvalidValue, "unsupported JSON value in request data")
	}
}

// ToJSON renders a Value back to a plain Go value suitable for
// encoding/json, used when building a response's data rows.
func ToJSON(v value.Value) interface{} {
	return v.Dump()
}
