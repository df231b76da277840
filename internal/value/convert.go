package value

import (
	"math"
	"strconv"
	"time"

	"github.com/correlator-io/featurepipe/internal/piperr"
)

// ConvertTo implements the conversion policy of §4.1: Null converts to Null
// at any target, Error passes through unchanged, numeric widening is
// lossless, narrowing truncates or yields Error(InvalidTypeCast), string
// parsing yields Error(FormatError) on failure, Bool<->numeric maps
// true/false to 1/0, and Array/Object only convert to themselves.
func ConvertTo(v Value, target ValueType) Value {
	if IsNull(v) {
		return Null
	}

	if _, ok := IsError(v); ok {
		return v
	}

	if v.Type() == target {
		return v
	}

	switch target {
	case TypeBool:
		return convertToBool(v)
	case TypeInt, TypeLong, TypeFloat, TypeDouble:
		return convertToNumeric(v, target)
	case TypeString:
		return convertToString(v)
	case TypeDateTime:
		return convertToDateTime(v)
	default:
		return NewError(piperr.New(piperr.InvalidTypeConversion,
			"cannot convert "+v.Type().String()+" to "+target.String()))
	}
}

func convertToBool(v Value) Value {
	switch n := v.(type) {
	case boolValue:
		return n
	case intValue:
		return NewBool(n.v != 0)
	case longValue:
		return NewBool(n.v != 0)
	case floatValue:
		return NewBool(n.v != 0)
	case doubleValue:
		return NewBool(n.v != 0)
	default:
		return NewError(piperr.New(piperr.InvalidTypeConversion,
			"cannot convert "+v.Type().String()+" to Bool"))
	}
}

func convertToNumeric(v Value, target ValueType) Value {
	if b, ok := AsBool(v); ok {
		n := int64(0)
		if b {
			n = 1
		}

		return fromInt64(n, target)
	}

	if s, ok := AsString(v); ok {
		return parseNumericString(s, target)
	}

	if f, ok := AsFloat64(v); ok {
		return narrowOrWiden(v.Type(), f, target)
	}

	return NewError(piperr.New(piperr.InvalidTypeConversion,
		"cannot convert "+v.Type().String()+" to "+target.String()))
}

func fromInt64(n int64, target ValueType) Value {
	switch target {
	case TypeInt:
		if n < math.MinInt32 || n > math.MaxInt32 {
			return NewError(piperr.New(piperr.InvalidTypeCast, "value out of range for Int"))
		}

		return NewInt(int32(n))
	case TypeLong:
		return NewLong(n)
	case TypeFloat:
		return NewFloat(float32(n))
	case TypeDouble:
		return NewDouble(float64(n))
	default:
		return NewError(piperr.New(piperr.InvalidTypeConversion, "unsupported numeric target"))
	}
}

// narrowOrWiden converts a numeric source (given its current ValueType and
// float64-widened payload) to target, truncating and range-checking for
// narrowing conversions.
func narrowOrWiden(from ValueType, f float64, target ValueType) Value {
	sourceRank := numericRank[from]
	targetRank := numericRank[target]

	widening := targetRank >= sourceRank

	switch target {
	case TypeInt:
		if !widening && (f < math.MinInt32 || f > math.MaxInt32) {
			return NewError(piperr.New(piperr.InvalidTypeCast, "value out of range for Int"))
		}

		return NewInt(int32(f))
	case TypeLong:
		if !widening && (f < math.MinInt64 || f > math.MaxInt64) {
			return NewError(piperr.New(piperr.InvalidTypeCast, "value out of range for Long"))
		}

		return NewLong(int64(f))
	case TypeFloat:
		if !widening && (f < -math.MaxFloat32 || f > math.MaxFloat32) {
			return NewError(piperr.New(piperr.InvalidTypeCast, "value out of range for Float"))
		}

		return NewFloat(float32(f))
	case TypeDouble:
		return NewDouble(f)
	default:
		return NewError(piperr.New(piperr.InvalidTypeConversion, "unsupported numeric target"))
	}
}

func parseNumericString(s string, target ValueType) Value {
	switch target {
	case TypeInt:
		n, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return NewError(piperr.New(piperr.FormatError, "cannot parse \""+s+"\" as Int"))
		}

		return NewInt(int32(n))
	case TypeLong:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return NewError(piperr.New(piperr.FormatError, "cannot parse \""+s+"\" as Long"))
		}

		return NewLong(n)
	case TypeFloat:
		n, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return NewError(piperr.New(piperr.FormatError, "cannot parse \""+s+"\" as Float"))
		}

		return NewFloat(float32(n))
	case TypeDouble:
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return NewError(piperr.New(piperr.FormatError, "cannot parse \""+s+"\" as Double"))
		}

		return NewDouble(n)
	default:
		return NewError(piperr.New(piperr.InvalidTypeConversion, "unsupported numeric target"))
	}
}

func convertToString(v Value) Value {
	switch n := v.(type) {
	case stringValue:
		return n
	case boolValue:
		if n.v {
			return NewString("true")
		}

		return NewString("false")
	case intValue:
		return NewString(strconv.FormatInt(int64(n.v), 10))
	case longValue:
		return NewString(strconv.FormatInt(n.v, 10))
	case floatValue:
		return NewString(strconv.FormatFloat(float64(n.v), 'g', -1, 32))
	case doubleValue:
		return NewString(strconv.FormatFloat(n.v, 'g', -1, 64))
	case dateTimeValue:
		return NewString(n.v.Format(time.RFC3339Nano))
	default:
		return NewError(piperr.New(piperr.InvalidTypeConversion,
			"cannot convert "+v.Type().String()+" to String"))
	}
}

func convertToDateTime(v Value) Value {
	s, ok := AsString(v)
	if !ok {
		return NewError(piperr.New(piperr.InvalidTypeConversion,
			"cannot convert "+v.Type().String()+" to DateTime"))
	}

	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		if t2, err2 := time.Parse(time.RFC3339, s); err2 == nil {
			return NewDateTime(t2)
		}

		return NewError(piperr.New(piperr.FormatError, "cannot parse \""+s+"\" as DateTime (expected ISO-8601)"))
	}

	return NewDateTime(t)
}
