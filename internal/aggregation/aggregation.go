// Package aggregation implements stateful accumulators used by Summarize:
// each named aggregation is a template that the engine Clone()s once per
// group key, then feeds every row belonging to that group before reading
// back its accumulated result.
package aggregation

import "github.com/correlator-io/featurepipe/internal/value"

// Aggregation is a stateful accumulator. One instance handles exactly one
// group's state; Clone produces a fresh, zeroed instance of the same kind
// so the engine can fan a single registered template out across groups.
type Aggregation interface {
	// Name is the registry key this aggregation is registered under.
	Name() string
	// OutputType computes the result type given the static types of Feed's
	// argument expressions.
	OutputType(argTypes []value.ValueType) (value.ValueType, error)
	// Feed folds one row's evaluated argument values into the running state.
	Feed(args []value.Value) error
	// Result returns the accumulated value. Safe to call repeatedly and
	// interleaved with further Feed calls (Summarize only calls it once
	// per group, after all feeding, but nothing here assumes that).
	Result() value.Value
	// Dump renders the aggregation for pipeline introspection.
	Dump() string
	// Clone returns a fresh, independent instance with the same
	// configuration (e.g. Sum's AllowZeroSum) and zeroed accumulated state.
	Clone() Aggregation
}
