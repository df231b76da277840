package aggregation

import (
	"testing"

	"github.com/correlator-io/featurepipe/internal/value"
)

func lookupTemplate(t *testing.T, name string) Aggregation {
	t.Helper()

	r := NewBuiltinRegistry()

	a, ok := r.Lookup(name)
	if !ok {
		t.Fatalf("builtin aggregation %q not registered", name)
	}

	return a
}

func TestCountCountsEveryRowIncludingNull(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	a := lookupTemplate(t, "count")

	for _, v := range []value.Value{value.NewInt(1), value.Null, value.NewInt(2)} {
		if err := a.Feed([]value.Value{v}); err != nil {
			t.Fatalf("unexpected Feed error: %v", err)
		}
	}

	if got := a.Result(); !value.Equal(got, value.NewLong(3)) {
		t.Fatalf("count = %v, want Long(3)", got)
	}
}

func TestCountIfCountsOnlyTruthyPredicate(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	a := lookupTemplate(t, "count_if")

	for _, v := range []bool{true, false, true} {
		if err := a.Feed([]value.Value{value.NewBool(v)}); err != nil {
			t.Fatalf("unexpected Feed error: %v", err)
		}
	}

	if got := a.Result(); !value.Equal(got, value.NewLong(2)) {
		t.Fatalf("count_if = %v, want Long(2)", got)
	}
}

func TestSumOnAllNullGroupReturnsNull(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	a := lookupTemplate(t, "sum")

	for i := 0; i < 3; i++ {
		if err := a.Feed([]value.Value{value.Null}); err != nil {
			t.Fatalf("unexpected Feed error: %v", err)
		}
	}

	if got := a.Result(); !value.IsNull(got) {
		t.Fatalf("sum over all-Null group = %v, want Null", got)
	}
}

func TestSumTreatsNullAsIdentity(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	a := lookupTemplate(t, "sum")

	for _, v := range []value.Value{value.NewInt(1), value.Null, value.NewInt(3)} {
		if err := a.Feed([]value.Value{v}); err != nil {
			t.Fatalf("unexpected Feed error: %v", err)
		}
	}

	if got := a.Result(); !value.Equal(got, value.NewInt(4)) {
		t.Fatalf("sum(1, null, 3) = %v, want Int(4)", got)
	}
}

func TestArrayAggCollectsInFeedOrder(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	a := lookupTemplate(t, "array_agg")

	for _, v := range []int32{1, 2, 3} {
		if err := a.Feed([]value.Value{value.NewInt(v)}); err != nil {
			t.Fatalf("unexpected Feed error: %v", err)
		}
	}

	got, ok := value.AsArray(a.Result())
	if !ok || len(got) != 3 {
		t.Fatalf("array_agg result = %v, want a 3-element array", a.Result())
	}

	for i, want := range []int32{1, 2, 3} {
		if !value.Equal(got[i], value.NewInt(want)) {
			t.Fatalf("array_agg[%d] = %v, want Int(%d)", i, got[i], want)
		}
	}
}

func TestArrayAggOnEmptyGroupYieldsEmptyArray(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	a := lookupTemplate(t, "array_agg")

	got, ok := value.AsArray(a.Result())
	if !ok || len(got) != 0 {
		t.Fatalf("array_agg on an unfed group = %v, want []", a.Result())
	}
}

func TestAllNullInputMakesResultNull(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	a := lookupTemplate(t, "all")

	if err := a.Feed([]value.Value{value.NewBool(true)}); err != nil {
		t.Fatalf("unexpected Feed error: %v", err)
	}

	if err := a.Feed([]value.Value{value.Null}); err != nil {
		t.Fatalf("unexpected Feed error: %v", err)
	}

	if got := a.Result(); !value.IsNull(got) {
		t.Fatalf("all(true, null) = %v, want Null", got)
	}
}

func TestAnyShortCircuitsOnTrueDespiteLaterNull(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	a := lookupTemplate(t, "any")

	if err := a.Feed([]value.Value{value.NewBool(true)}); err != nil {
		t.Fatalf("unexpected Feed error: %v", err)
	}

	if got := a.Result(); !value.Equal(got, value.NewBool(true)) {
		t.Fatalf("any(true) = %v, want Bool(true)", got)
	}
}

func TestDistinctCountDeduplicatesArguments(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	a := lookupTemplate(t, "distinct_count")

	for _, v := range []int32{1, 2, 1, 3, 2} {
		if err := a.Feed([]value.Value{value.NewInt(v)}); err != nil {
			t.Fatalf("unexpected Feed error: %v", err)
		}
	}

	if got := a.Result(); !value.Equal(got, value.NewLong(3)) {
		t.Fatalf("distinct_count = %v, want Long(3)", got)
	}
}

func TestCloneProducesIndependentState(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	template := lookupTemplate(t, "count")

	a := template.Clone()
	b := template.Clone()

	if err := a.Feed([]value.Value{value.NewInt(1)}); err != nil {
		t.Fatalf("unexpected Feed error: %v", err)
	}

	if !value.Equal(a.Result(), value.NewLong(1)) {
		t.Fatalf("a.Result() = %v, want Long(1)", a.Result())
	}

	if !value.Equal(b.Result(), value.NewLong(0)) {
		t.Fatalf("b.Result() = %v, want Long(0) (clones must not share state)", b.Result())
	}
}

func TestRegisterRejectsDuplicateName(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	r := NewBuiltinRegistry()

	if err := r.Register(&countAgg{}); err == nil {
		t.Fatalf("re-registering \"count\" should fail with FunctionAlreadyDefined")
	}
}
