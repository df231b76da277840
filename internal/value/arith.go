package value

import (
	"github.com/correlator-io/featurepipe/internal/piperr"
)

// promote returns the join of two numeric types under Int < Long < Float < Double.
func promote(a, b ValueType) ValueType {
	ra, rb := numericRank[a], numericRank[b]
	if ra >= rb {
		return a
	}

	return b
}

// propagateErrorOrNull implements the shared error/Null propagation rule of
// §4.1 for binary arithmetic/comparison: Error wins (leftmost on equal
// depth — here simply "a before b" since both are depth 0 leaves by the
// time operators see them), otherwise Null wins if either side is Null.
// ok is false when neither special case applies and normal evaluation
// should proceed.
func propagateErrorOrNull(a, b Value) (Value, bool) {
	if _, ok := IsError(a); ok {
		return a, true
	}

	if _, ok := IsError(b); ok {
		return b, true
	}

	if IsNull(a) || IsNull(b) {
		return Null, true
	}

	return nil, false
}

func arithResult(target ValueType, f float64) Value {
	switch target {
	case TypeInt:
		return NewInt(int32(f))
	case TypeLong:
		return NewLong(int64(f))
	case TypeFloat:
		return NewFloat(float32(f))
	case TypeDouble:
		return NewDouble(f)
	default:
		return NewError(piperr.New(piperr.InvalidOperandType, "non-numeric arithmetic target"))
	}
}

func binaryNumeric(a, b Value, op func(x, y float64) (float64, error)) Value {
	if v, ok := propagateErrorOrNull(a, b); ok {
		return v
	}

	if !a.Type().IsNumeric() || !b.Type().IsNumeric() {
		return NewError(piperr.New(piperr.InvalidOperandType,
			"arithmetic requires numeric operands, got "+a.Type().String()+" and "+b.Type().String()))
	}

	fa, _ := AsFloat64(a)
	fb, _ := AsFloat64(b)

	result, err := op(fa, fb)
	if err != nil {
		if pe, ok := err.(*piperr.Error); ok {
			return NewError(pe)
		}

		return NewError(piperr.Wrap(piperr.InvalidValue, err))
	}

	return arithResult(promote(a.Type(), b.Type()), result)
}

// Add implements "+", including String concatenation when both operands are String.
func Add(a, b Value) Value {
	if v, ok := propagateErrorOrNull(a, b); ok {
		return v
	}

	if a.Type() == TypeString && b.Type() == TypeString {
		sa, _ := AsString(a)
		sb, _ := AsString(b)

		return NewString(sa + sb)
	}

	return binaryNumeric(a, b, func(x, y float64) (float64, error) { return x + y, nil })
}

// Sub implements "-".
func Sub(a, b Value) Value {
	return binaryNumeric(a, b, func(x, y float64) (float64, error) { return x - y, nil })
}

// Mul implements "*".
func Mul(a, b Value) Value {
	return binaryNumeric(a, b, func(x, y float64) (float64, error) { return x * y, nil })
}

// Div implements "/". Integer division by zero (both operands Int/Long)
// yields Error(InvalidValue); floating division by zero follows IEEE-754
// (±Inf or NaN), matching §4.3.
func Div(a, b Value) Value {
	if v, ok := propagateErrorOrNull(a, b); ok {
		return v
	}

	if !a.Type().IsNumeric() || !b.Type().IsNumeric() {
		return NewError(piperr.New(piperr.InvalidOperandType,
			"arithmetic requires numeric operands, got "+a.Type().String()+" and "+b.Type().String()))
	}

	isIntegral := (a.Type() == TypeInt || a.Type() == TypeLong) && (b.Type() == TypeInt || b.Type() == TypeLong)

	fa, _ := AsFloat64(a)
	fb, _ := AsFloat64(b)

	if isIntegral && fb == 0 {
		return NewError(piperr.New(piperr.InvalidValue, "integer division by zero"))
	}

	return arithResult(promote(a.Type(), b.Type()), fa/fb)
}

// Mod implements "%". Division by zero (in any numeric pairing) yields Error(InvalidValue).
func Mod(a, b Value) Value {
	if v, ok := propagateErrorOrNull(a, b); ok {
		return v
	}

	if !a.Type().IsNumeric() || !b.Type().IsNumeric() {
		return NewError(piperr.New(piperr.InvalidOperandType,
			"arithmetic requires numeric operands, got "+a.Type().String()+" and "+b.Type().String()))
	}

	fa, _ := AsFloat64(a)
	fb, _ := AsFloat64(b)

	if fb == 0 {
		return NewError(piperr.New(piperr.InvalidValue, "modulo by zero"))
	}

	result := fa - fb*float64(int64(fa/fb))

	return arithResult(promote(a.Type(), b.Type()), result)
}
