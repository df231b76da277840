package value

import (
	"github.com/correlator-io/featurepipe/internal/piperr"
)

// Compare returns -1, 0, 1 for a<b, a==b, a>b within a compatible group
// (numeric kinds compare across the promotion lattice, String compares
// lexicographically, DateTime by instant, Bool false<true). Incompatible
// types, or either side being Error, return an error; callers that need
// Kleene-style Null propagation handle that before calling Compare.
func Compare(a, b Value) (int, error) {
	if ea, ok := IsError(a); ok {
		return 0, ea
	}

	if eb, ok := IsError(b); ok {
		return 0, eb
	}

	switch {
	case a.Type().IsNumeric() && b.Type().IsNumeric():
		fa, _ := AsFloat64(a)
		fb, _ := AsFloat64(b)

		return compareFloat(fa, fb), nil
	case a.Type() == TypeString && b.Type() == TypeString:
		sa, _ := AsString(a)
		sb, _ := AsString(b)

		return compareString(sa, sb), nil
	case a.Type() == TypeDateTime && b.Type() == TypeDateTime:
		da, _ := AsDateTime(a)
		db, _ := AsDateTime(b)

		switch {
		case da.Before(db):
			return -1, nil
		case da.After(db):
			return 1, nil
		default:
			return 0, nil
		}
	case a.Type() == TypeBool && b.Type() == TypeBool:
		ba, _ := AsBool(a)
		bb, _ := AsBool(b)

		switch {
		case ba == bb:
			return 0, nil
		case !ba:
			return -1, nil
		default:
			return 1, nil
		}
	default:
		return 0, piperr.New(piperr.TypeMismatch,
			"cannot compare "+a.Type().String()+" with "+b.Type().String())
	}
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareString(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Equal implements the equality relation used by Distinct/grouping keys:
// two Error values always compare unequal (even to themselves), Nulls
// compare equal to each other, and otherwise structural/typed equality holds.
func Equal(a, b Value) bool {
	if _, ok := IsError(a); ok {
		return false
	}

	if _, ok := IsError(b); ok {
		return false
	}

	if IsNull(a) && IsNull(b) {
		return true
	}

	if IsNull(a) != IsNull(b) {
		return false
	}

	if a.Type().IsNumeric() && b.Type().IsNumeric() {
		fa, _ := AsFloat64(a)
		fb, _ := AsFloat64(b)

		return fa == fb
	}

	if a.Type() != b.Type() {
		return false
	}

	switch av := a.(type) {
	case stringValue:
		bv, _ := b.(stringValue)

		return av.v == bv.v
	case boolValue:
		bv, _ := b.(boolValue)

		return av.v == bv.v
	case dateTimeValue:
		bv, _ := b.(dateTimeValue)

		return av.v.Equal(bv.v)
	case arrayValue:
		bv, _ := b.(arrayValue)

		return equalArray(av.v, bv.v)
	case objectValue:
		bv, _ := b.(objectValue)

		return equalObject(av.v, bv.v)
	default:
		return false
	}
}

func equalArray(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}

	return true
}

func equalObject(a, b map[string]Value) bool {
	if len(a) != len(b) {
		return false
	}

	for k, av := range a {
		bv, ok := b[k]
		if !ok || !Equal(av, bv) {
			return false
		}
	}

	return true
}

// KeyString renders a Value as a canonical string usable as a Go map key,
// backing Distinct/Summarize's hash-set-by-key-tuple semantics. Null maps
// to a sentinel distinct from any String value; Errors get a unique key
// per call so they never collide (two Errors compare unequal).
func KeyString(v Value) string {
	if IsNull(v) {
		return "\x00null"
	}

	if e, ok := IsError(v); ok {
		return "\x00error:" + e.Kind.String() + ":" + e.Message
	}

	switch n := v.(type) {
	case boolValue:
		if n.v {
			return "\x01true"
		}

		return "\x01false"
	case stringValue:
		return "\x02" + n.v
	case dateTimeValue:
		return "\x03" + n.v.Format("2006-01-02T15:04:05.999999999Z07:00")
	default:
		if f, ok := AsFloat64(v); ok {
			return "\x04" + formatCanonicalFloat(f)
		}

		s := convertToString(v)
		if sv, ok := AsString(s); ok {
			return "\x05" + sv
		}

		return "\x06"
	}
}

func formatCanonicalFloat(f float64) string {
	s := NewDouble(f)
	out, _ := AsString(convertToString(s))

	return out
}
