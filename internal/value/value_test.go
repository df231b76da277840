package value

import (
	"testing"
	"time"

	"github.com/correlator-io/featurepipe/internal/piperr"
)

func TestConvertToIdentityAndNull(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	tests := []struct {
		name   string
		v      Value
		target ValueType
	}{
		{"null stays null at any target", Null, TypeInt},
		{"int identity", NewInt(3), TypeInt},
		{"string identity", NewString("x"), TypeString},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ConvertTo(tt.v, tt.target)
			if !IsNull(tt.v) && !Equal(got, tt.v) {
				t.Fatalf("ConvertTo(%v, %v) = %v, want %v", tt.v, tt.target, got, tt.v)
			}

			if IsNull(tt.v) && !IsNull(got) {
				t.Fatalf("ConvertTo(Null, %v) = %v, want Null", tt.target, got)
			}
		})
	}
}

func TestConvertToNumericWidening(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	got := ConvertTo(NewInt(5), TypeDouble)

	d, ok := got.(doubleValue)
	if !ok {
		t.Fatalf("expected doubleValue, got %T", got)
	}

	if d.v != 5 {
		t.Fatalf("expected 5.0, got %v", d.v)
	}
}

func TestConvertToNarrowingOutOfRange(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	got := ConvertTo(NewDouble(1e20), TypeInt)

	err, ok := IsError(got)
	if !ok {
		t.Fatalf("expected Error, got %v", got)
	}

	if err.Kind != piperr.InvalidTypeCast {
		t.Fatalf("expected InvalidTypeCast, got %v", err.Kind)
	}
}

func TestConvertToStringParseFailure(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	got := ConvertTo(NewString("not-a-number"), TypeInt)

	err, ok := IsError(got)
	if !ok {
		t.Fatalf("expected Error, got %v", got)
	}

	if err.Kind != piperr.FormatError {
		t.Fatalf("expected FormatError, got %v", err.Kind)
	}
}

func TestConvertToBoolNumeric(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	tests := []struct {
		in   Value
		want bool
	}{
		{NewInt(1), true},
		{NewInt(0), false},
		{NewDouble(2.5), true},
	}

	for _, tt := range tests {
		got := ConvertTo(tt.in, TypeBool)

		b, ok := AsBool(got)
		if !ok {
			t.Fatalf("ConvertTo(%v, Bool) did not return a Bool: %v", tt.in, got)
		}

		if b != tt.want {
			t.Fatalf("ConvertTo(%v, Bool) = %v, want %v", tt.in, b, tt.want)
		}
	}
}

func TestConvertArrayObjectOnlyToThemselves(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	arr := NewArray([]Value{NewInt(1)})

	got := ConvertTo(arr, TypeString)

	if _, ok := IsError(got); !ok {
		t.Fatalf("expected Error converting Array to String, got %v", got)
	}

	same := ConvertTo(arr, TypeArray)
	if !Equal(same, arr) {
		t.Fatalf("Array->Array conversion should be identity")
	}
}

func TestErrorPropagationWinsOverNull(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	errVal := NewError(piperr.New(piperr.InvalidValue, "boom"))

	got := Add(errVal, Null)

	if _, ok := IsError(got); !ok {
		t.Fatalf("expected Error to propagate through Add, got %v", got)
	}
}

func TestArithmeticNullPropagation(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	got := Add(NewInt(1), Null)
	if !IsNull(got) {
		t.Fatalf("expected Null, got %v", got)
	}
}

func TestArithmeticCommutativity(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	a := NewInt(3)
	b := NewDouble(4.5)

	ab := Add(a, b)
	ba := Add(b, a)

	if !Equal(ab, ba) {
		t.Fatalf("Add should be commutative: %v != %v", ab, ba)
	}
}

func TestIntegerDivisionByZero(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	got := Div(NewInt(1), NewInt(0))

	err, ok := IsError(got)
	if !ok {
		t.Fatalf("expected Error, got %v", got)
	}

	if err.Kind != piperr.InvalidValue {
		t.Fatalf("expected InvalidValue, got %v", err.Kind)
	}
}

func TestFloatDivisionByZeroFollowsIEEE754(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	got := Div(NewDouble(1), NewDouble(0))

	f, ok := AsFloat64(got)
	if !ok {
		t.Fatalf("expected numeric result, got %v", got)
	}

	if f != f+1 { // +Inf check without importing math
		return
	}

	t.Fatalf("expected +Inf, got %v", f)
}

func TestStringConcatenation(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	got := Add(NewString("foo"), NewString("bar"))

	s, ok := AsString(got)
	if !ok || s != "foobar" {
		t.Fatalf("expected \"foobar\", got %v", got)
	}
}

func TestCompareNumericAcrossPromotionLattice(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	cmp, err := Compare(NewInt(1), NewDouble(2.0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cmp >= 0 {
		t.Fatalf("expected Int(1) < Double(2.0), got cmp=%d", cmp)
	}
}

func TestEqualNullsEqualEachOther(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	if !Equal(Null, Null) {
		t.Fatalf("Null should equal Null")
	}
}

func TestEqualErrorsAlwaysUnequal(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	e1 := NewError(piperr.New(piperr.InvalidValue, "x"))
	e2 := NewError(piperr.New(piperr.InvalidValue, "x"))

	if Equal(e1, e1) || Equal(e1, e2) {
		t.Fatalf("two Errors must never compare equal, even to themselves")
	}
}

func TestDateTimeRoundTrip(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	dt := NewDateTime(now)

	s := ConvertTo(dt, TypeString)

	back := ConvertTo(s, TypeDateTime)

	got, ok := AsDateTime(back)
	if !ok || !got.Equal(now) {
		t.Fatalf("DateTime round-trip failed: got %v, want %v", got, now)
	}
}
