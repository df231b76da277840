package aggregation

import (
	"github.com/correlator-io/featurepipe/internal/piperr"
	"github.com/correlator-io/featurepipe/internal/value"
)

func builtins() []Aggregation {
	return []Aggregation{
		&countAgg{},
		&countIfAgg{},
		&distinctCountAgg{buckets: map[string]struct{}{}},
		&sumAgg{},
		&arrayAggAgg{},
		&arrayAggIfAgg{},
		&allAgg{},
		&anyAgg{},
	}
}

// countAgg counts every fed row, including rows whose argument is Null —
// it is the only built-in that never inspects its argument's value.
type countAgg struct{ n int64 }

func (a *countAgg) Name() string { return "count" }
func (a *countAgg) Dump() string { return "count" }

func (a *countAgg) OutputType([]value.ValueType) (value.ValueType, error) {
	return value.TypeLong, nil
}

func (a *countAgg) Feed(args []value.Value) error {
	if len(args) != 1 {
		return piperr.New(piperr.InvalidArgumentCount, "count expects exactly one argument")
	}

	a.n++

	return nil
}

func (a *countAgg) Result() value.Value { return value.NewLong(a.n) }
func (a *countAgg) Clone() Aggregation  { return &countAgg{} }

// countIfAgg counts only rows whose (Bool) predicate argument is true.
type countIfAgg struct{ n int64 }

func (a *countIfAgg) Name() string { return "count_if" }
func (a *countIfAgg) Dump() string { return "count_if" }

func (a *countIfAgg) OutputType(argTypes []value.ValueType) (value.ValueType, error) {
	if len(argTypes) != 1 {
		return value.TypeDynamic, piperr.New(piperr.InvalidArgumentCount, "count_if expects exactly one argument")
	}

	if !argTypes[0].Matches(value.TypeBool) {
		return value.TypeDynamic, piperr.New(piperr.InvalidArgumentType, "count_if expects a Bool argument")
	}

	return value.TypeLong, nil
}

func (a *countIfAgg) Feed(args []value.Value) error {
	if len(args) != 1 {
		return piperr.New(piperr.InvalidArgumentCount, "count_if expects exactly one argument")
	}

	if b, ok := value.AsBool(args[0]); ok && b {
		a.n++
	}

	return nil
}

func (a *countIfAgg) Result() value.Value { return value.NewLong(a.n) }
func (a *countIfAgg) Clone() Aggregation  { return &countIfAgg{} }

// distinctCountAgg counts the number of distinct argument tuples fed,
// keyed via value.KeyString (so two identical Errors never collapse into
// one bucket, consistent with value.Equal's Error-always-unequal rule).
type distinctCountAgg struct {
	buckets map[string]struct{}
}

func (a *distinctCountAgg) Name() string { return "distinct_count" }
func (a *distinctCountAgg) Dump() string { return "distinct_count" }

func (a *distinctCountAgg) OutputType(argTypes []value.ValueType) (value.ValueType, error) {
	if len(argTypes) == 0 {
		return value.TypeDynamic, piperr.New(piperr.InvalidArgumentCount, "distinct_count expects at least one argument")
	}

	return value.TypeLong, nil
}

func (a *distinctCountAgg) Feed(args []value.Value) error {
	key := ""
	for _, v := range args {
		key += "\x1f" + value.KeyString(v)
	}

	a.buckets[key] = struct{}{}

	return nil
}

func (a *distinctCountAgg) Result() value.Value { return value.NewLong(int64(len(a.buckets))) }
func (a *distinctCountAgg) Clone() Aggregation  { return &distinctCountAgg{buckets: map[string]struct{}{}} }

// sumAgg sums its single numeric argument across a group. An all-Null group
// (no row ever fed a non-Null value) yields Null; set AllowZeroSum to yield
// the group's numeric zero instead (see DESIGN.md Open Question decision).
type sumAgg struct {
	sum           value.Value
	AllowZeroSum  bool
	resultType    value.ValueType
}

func (a *sumAgg) Name() string { return "sum" }
func (a *sumAgg) Dump() string { return "sum" }

func (a *sumAgg) OutputType(argTypes []value.ValueType) (value.ValueType, error) {
	if len(argTypes) != 1 {
		return value.TypeDynamic, piperr.New(piperr.InvalidArgumentCount, "sum expects exactly one argument")
	}

	if !argTypes[0].IsNumeric() && argTypes[0] != value.TypeDynamic {
		return value.TypeDynamic, piperr.New(piperr.InvalidArgumentType, "sum expects a numeric argument")
	}

	return argTypes[0], nil
}

func (a *sumAgg) Feed(args []value.Value) error {
	if len(args) != 1 {
		return piperr.New(piperr.InvalidArgumentCount, "sum expects exactly one argument")
	}

	v := args[0]

	if value.IsNull(v) {
		// Null is sum's identity element: it never changes the running total.
		if a.resultType == value.TypeNull {
			a.resultType = value.TypeDynamic
		}

		return nil
	}

	a.resultType = v.Type()

	if a.sum == nil {
		a.sum = v

		return nil
	}

	a.sum = value.Add(a.sum, v)

	return nil
}

func (a *sumAgg) Result() value.Value {
	if a.sum != nil {
		return a.sum
	}

	if a.AllowZeroSum {
		return zeroOfType(a.resultType)
	}

	return value.Null
}

func (a *sumAgg) Clone() Aggregation {
	return &sumAgg{AllowZeroSum: a.AllowZeroSum}
}

func zeroOfType(t value.ValueType) value.Value {
	switch t {
	case value.TypeInt:
		return value.NewInt(0)
	case value.TypeLong:
		return value.NewLong(0)
	case value.TypeFloat:
		return value.NewFloat(0)
	default:
		return value.NewDouble(0)
	}
}

// arrayAggAgg collects every fed argument, in feed order, into an Array.
type arrayAggAgg struct{ out []value.Value }

func (a *arrayAggAgg) Name() string { return "array_agg" }
func (a *arrayAggAgg) Dump() string { return "array_agg" }

func (a *arrayAggAgg) OutputType(argTypes []value.ValueType) (value.ValueType, error) {
	if len(argTypes) != 1 {
		return value.TypeDynamic, piperr.New(piperr.InvalidArgumentCount, "array_agg expects exactly one argument")
	}

	return value.TypeArray, nil
}

func (a *arrayAggAgg) Feed(args []value.Value) error {
	if len(args) != 1 {
		return piperr.New(piperr.InvalidArgumentCount, "array_agg expects exactly one argument")
	}

	a.out = append(a.out, args[0])

	return nil
}

func (a *arrayAggAgg) Result() value.Value { return value.NewArray(append([]value.Value{}, a.out...)) }
func (a *arrayAggAgg) Clone() Aggregation  { return &arrayAggAgg{} }

// arrayAggIfAgg collects its first argument only for rows whose (Bool)
// second argument is true.
type arrayAggIfAgg struct{ out []value.Value }

func (a *arrayAggIfAgg) Name() string { return "array_agg_if" }
func (a *arrayAggIfAgg) Dump() string { return "array_agg_if" }

func (a *arrayAggIfAgg) OutputType(argTypes []value.ValueType) (value.ValueType, error) {
	if len(argTypes) != 2 {
		return value.TypeDynamic, piperr.New(piperr.InvalidArgumentCount, "array_agg_if expects exactly two arguments")
	}

	if !argTypes[1].Matches(value.TypeBool) {
		return value.TypeDynamic, piperr.New(piperr.InvalidArgumentType, "array_agg_if second argument must be Bool")
	}

	return value.TypeArray, nil
}

func (a *arrayAggIfAgg) Feed(args []value.Value) error {
	if len(args) != 2 {
		return piperr.New(piperr.InvalidArgumentCount, "array_agg_if expects exactly two arguments")
	}

	if b, ok := value.AsBool(args[1]); ok && b {
		a.out = append(a.out, args[0])
	}

	return nil
}

func (a *arrayAggIfAgg) Result() value.Value { return value.NewArray(append([]value.Value{}, a.out...)) }
func (a *arrayAggIfAgg) Clone() Aggregation  { return &arrayAggIfAgg{} }

// allAgg implements Kleene AND-fold: a Null input makes the running result
// Null (per spec.md §4.5); an empty group (never fed) also yields Null.
type allAgg struct{ result value.Value }

func (a *allAgg) Name() string { return "all" }
func (a *allAgg) Dump() string { return "all" }

func (a *allAgg) OutputType(argTypes []value.ValueType) (value.ValueType, error) {
	if len(argTypes) != 1 {
		return value.TypeDynamic, piperr.New(piperr.InvalidArgumentCount, "all expects exactly one argument")
	}

	return value.TypeBool, nil
}

func (a *allAgg) Feed(args []value.Value) error {
	if len(args) != 1 {
		return piperr.New(piperr.InvalidArgumentCount, "all expects exactly one argument")
	}

	if value.IsNull(args[0]) {
		a.result = value.Null

		return nil
	}

	if a.result != nil && value.IsNull(a.result) {
		return nil
	}

	if a.result == nil {
		a.result = args[0]

		return nil
	}

	a.result = kleeneAnd(a.result, args[0])

	return nil
}

func (a *allAgg) Result() value.Value {
	if a.result == nil {
		return value.Null
	}

	return a.result
}

func (a *allAgg) Clone() Aggregation { return &allAgg{} }

// anyAgg implements Kleene OR-fold, matching allAgg's Null handling.
type anyAgg struct{ result value.Value }

func (a *anyAgg) Name() string { return "any" }
func (a *anyAgg) Dump() string { return "any" }

func (a *anyAgg) OutputType(argTypes []value.ValueType) (value.ValueType, error) {
	if len(argTypes) != 1 {
		return value.TypeDynamic, piperr.New(piperr.InvalidArgumentCount, "any expects exactly one argument")
	}

	return value.TypeBool, nil
}

func (a *anyAgg) Feed(args []value.Value) error {
	if len(args) != 1 {
		return piperr.New(piperr.InvalidArgumentCount, "any expects exactly one argument")
	}

	if value.IsNull(args[0]) {
		a.result = value.Null

		return nil
	}

	if a.result != nil && value.IsNull(a.result) {
		return nil
	}

	if a.result == nil {
		a.result = args[0]

		return nil
	}

	a.result = kleeneOr(a.result, args[0])

	return nil
}

func (a *anyAgg) Result() value.Value {
	if a.result == nil {
		return value.Null
	}

	return a.result
}

func (a *anyAgg) Clone() Aggregation { return &anyAgg{} }

func kleeneAnd(a, b value.Value) value.Value {
	ab, _ := value.AsBool(a)
	bb, _ := value.AsBool(b)

	return value.NewBool(ab && bb)
}

func kleeneOr(a, b value.Value) value.Value {
	ab, _ := value.AsBool(a)
	bb, _ := value.AsBool(b)

	return value.NewBool(ab || bb)
}
