// Package function implements the scalar function registry: an open,
// interface-based set of named, arity-checked, row-less computations that
// expressions dispatch into via FunctionCall.
package function

import (
	"strconv"

	"github.com/correlator-io/featurepipe/internal/piperr"
	"github.com/correlator-io/featurepipe/internal/value"
)

// Function is a named scalar computation: nullary, unary, binary, ternary,
// quaternary or variadic depending on MinArity/MaxArity. A variadic function
// reports MaxArity < 0.
type Function interface {
	// Name is the DSL-visible identifier this function is registered under.
	Name() string
	// MinArity and MaxArity bound the accepted argument count. MaxArity < 0
	// means unbounded (variadic).
	MinArity() int
	MaxArity() int
	// ArgType reports the expected type of the i-th argument (TypeDynamic
	// accepts anything), used for static type-checking during compilation.
	// For a variadic function, i beyond the declared parameters repeats the
	// last declared ArgType.
	ArgType(i int) value.ValueType
	// ResultType computes the static result type given the actual argument
	// types the call site provides.
	ResultType(argTypes []value.ValueType) value.ValueType
	// Deterministic reports whether repeated calls with equal arguments
	// always produce equal results. False for clocks/randomness sources.
	Deterministic() bool
	// Eval computes the function's value given already-evaluated arguments.
	// Arity/type mismatches are the caller's responsibility to have
	// checked; Eval itself never panics and returns an Error value for any
	// mismatch that slips through.
	Eval(args []value.Value) value.Value
}

// CheckArity validates argCount against a Function's declared bounds,
// returning Error(InvalidArgumentCount) on mismatch.
func CheckArity(f Function, argCount int) *piperr.Error {
	if argCount < f.MinArity() {
		return piperr.New(piperr.InvalidArgumentCount, "too few arguments for "+f.Name())
	}

	if f.MaxArity() >= 0 && argCount > f.MaxArity() {
		return piperr.New(piperr.InvalidArgumentCount, "too many arguments for "+f.Name())
	}

	return nil
}

// CheckArgTypes validates each static argType against f's declared
// ArgType expectations, returning Error(InvalidArgumentType) on the first
// mismatch.
func CheckArgTypes(f Function, argTypes []value.ValueType) *piperr.Error {
	for i, t := range argTypes {
		want := f.ArgType(i)
		if !t.Matches(want) && !want.Matches(t) {
			return piperr.New(piperr.InvalidArgumentType,
				"argument "+strconv.Itoa(i)+" of "+f.Name()+" expected "+want.String()+", got "+t.String())
		}
	}

	return nil
}
