// Package value implements the tagged value/type universe shared by every
// layer of the feature pipeline engine: expressions, functions,
// aggregations, transformations and lookup sources all speak Value.
//
// Errors are first-class values (see ErrorValue) rather than Go panics or
// returned errors — this lets a single bad cell flow through an entire
// transformation chain without unwinding the stack, exactly as §4.1 of the
// engine's design requires.
package value

import (
	"encoding/json"
	"time"

	"github.com/correlator-io/featurepipe/internal/piperr"
)

// ValueType is the closed set of value kinds a cell can hold. Dynamic is a
// meta-type used only in schema/function declarations to mean "matches any
// type"; no Value instance ever reports ValueType Dynamic.
type ValueType int

const (
	TypeNull ValueType = iota
	TypeBool
	TypeInt
	TypeLong
	TypeFloat
	TypeDouble
	TypeString
	TypeDateTime
	TypeArray
	TypeObject
	TypeError
	// TypeDynamic matches any ValueType when used as a declared expectation.
	TypeDynamic
)

//nolint:gochecknoglobals
var typeNames = map[ValueType]string{
	TypeNull:     "Null",
	TypeBool:     "Bool",
	TypeInt:      "Int",
	TypeLong:     "Long",
	TypeFloat:    "Float",
	TypeDouble:   "Double",
	TypeString:   "String",
	TypeDateTime: "DateTime",
	TypeArray:    "Array",
	TypeObject:   "Object",
	TypeError:    "Error",
	TypeDynamic:  "Dynamic",
}

// String returns the display name of the type, used in error messages and
// in schema dumps served by the introspection endpoints.
func (t ValueType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}

	return "Unknown"
}

// Matches reports whether a value of type t satisfies a declared expectation
// want (which may be TypeDynamic).
func (t ValueType) Matches(want ValueType) bool {
	return want == TypeDynamic || t == want
}

// numericRank orders the numeric promotion lattice Int < Long < Float < Double.
//
//nolint:gochecknoglobals
var numericRank = map[ValueType]int{
	TypeInt:    0,
	TypeLong:   1,
	TypeFloat:  2,
	TypeDouble: 3,
}

// IsNumeric reports whether t is one of the four numeric kinds.
func (t ValueType) IsNumeric() bool {
	_, ok := numericRank[t]

	return ok
}

// Value is the single cell type flowing through the engine. Every row is a
// slice of Value; every expression evaluates to exactly one Value.
type Value interface {
	// Type returns the value's runtime ValueType.
	Type() ValueType
	// Dump renders the value as a JSON-compatible value for introspection
	// endpoints and error/sample rendering.
	Dump() interface{}
}

type (
	nullValue     struct{}
	boolValue     struct{ v bool }
	intValue      struct{ v int32 }
	longValue     struct{ v int64 }
	floatValue    struct{ v float32 }
	doubleValue   struct{ v float64 }
	stringValue   struct{ v string }
	dateTimeValue struct{ v time.Time }
	arrayValue    struct{ v []Value }
	objectValue   struct{ v map[string]Value }
	errorValue    struct{ err *piperr.Error }
)

// Null is the single shared Null value.
//
//nolint:gochecknoglobals
var Null Value = nullValue{}

func NewBool(v bool) Value         { return boolValue{v} }
func NewInt(v int32) Value         { return intValue{v} }
func NewLong(v int64) Value        { return longValue{v} }
func NewFloat(v float32) Value     { return floatValue{v} }
func NewDouble(v float64) Value    { return doubleValue{v} }
func NewString(v string) Value     { return stringValue{v} }
func NewDateTime(v time.Time) Value { return dateTimeValue{v} }
func NewArray(v []Value) Value     { return arrayValue{v} }
func NewObject(v map[string]Value) Value { return objectValue{v} }

// NewError wraps a structured piperr.Error as a row-level Error value.
func NewError(err *piperr.Error) Value { return errorValue{err} }

func (nullValue) Type() ValueType     { return TypeNull }
func (boolValue) Type() ValueType     { return TypeBool }
func (intValue) Type() ValueType      { return TypeInt }
func (longValue) Type() ValueType     { return TypeLong }
func (floatValue) Type() ValueType    { return TypeFloat }
func (doubleValue) Type() ValueType   { return TypeDouble }
func (stringValue) Type() ValueType   { return TypeString }
func (dateTimeValue) Type() ValueType { return TypeDateTime }
func (arrayValue) Type() ValueType    { return TypeArray }
func (objectValue) Type() ValueType   { return TypeObject }
func (errorValue) Type() ValueType    { return TypeError }

func (nullValue) Dump() interface{} { return nil }
func (b boolValue) Dump() interface{} { return b.v }
func (i intValue) Dump() interface{} { return i.v }
func (l longValue) Dump() interface{} { return l.v }
func (f floatValue) Dump() interface{} { return f.v }
func (d doubleValue) Dump() interface{} { return d.v }
func (s stringValue) Dump() interface{} { return s.v }
func (d dateTimeValue) Dump() interface{} { return d.v.Format(time.RFC3339Nano) }

func (a arrayValue) Dump() interface{} {
	out := make([]interface{}, len(a.v))
	for i, el := range a.v {
		out[i] = el.Dump()
	}

	return out
}

func (o objectValue) Dump() interface{} {
	out := make(map[string]interface{}, len(o.v))
	for k, el := range o.v {
		out[k] = el.Dump()
	}

	return out
}

func (e errorValue) Dump() interface{} {
	return map[string]interface{}{
		"kind":    e.err.Kind.String(),
		"message": e.err.Message,
	}
}

// MarshalJSON lets Value slices/maps serialize naturally via encoding/json,
// backing get_pipelines()/get_lookup_sources() sample rendering.
func marshalJSON(v Value) ([]byte, error) {
	return json.Marshal(v.Dump())
}

func (v nullValue) MarshalJSON() ([]byte, error)     { return marshalJSON(v) }
func (v boolValue) MarshalJSON() ([]byte, error)     { return marshalJSON(v) }
func (v intValue) MarshalJSON() ([]byte, error)      { return marshalJSON(v) }
func (v longValue) MarshalJSON() ([]byte, error)     { return marshalJSON(v) }
func (v floatValue) MarshalJSON() ([]byte, error)    { return marshalJSON(v) }
func (v doubleValue) MarshalJSON() ([]byte, error)   { return marshalJSON(v) }
func (v stringValue) MarshalJSON() ([]byte, error)   { return marshalJSON(v) }
func (v dateTimeValue) MarshalJSON() ([]byte, error) { return marshalJSON(v) }
func (v arrayValue) MarshalJSON() ([]byte, error)    { return marshalJSON(v) }
func (v objectValue) MarshalJSON() ([]byte, error)   { return marshalJSON(v) }
func (v errorValue) MarshalJSON() ([]byte, error)    { return marshalJSON(v) }

// IsNull reports whether v is the Null value.
func IsNull(v Value) bool {
	_, ok := v.(nullValue)

	return ok
}

// IsError reports whether v is an Error value, and returns the wrapped
// structured error when it is.
func IsError(v Value) (*piperr.Error, bool) {
	e, ok := v.(errorValue)
	if !ok {
		return nil, false
	}

	return e.err, true
}

// AsBool extracts the bool payload; ok is false for any other type.
func AsBool(v Value) (bool, bool) {
	b, ok := v.(boolValue)

	return b.v, ok
}

// AsString extracts the string payload; ok is false for any other type.
func AsString(v Value) (string, bool) {
	s, ok := v.(stringValue)

	return s.v, ok
}

// AsDateTime extracts the DateTime payload; ok is false for any other type.
func AsDateTime(v Value) (time.Time, bool) {
	d, ok := v.(dateTimeValue)

	return d.v, ok
}

// AsArray extracts the array payload; ok is false for any other type.
func AsArray(v Value) ([]Value, bool) {
	a, ok := v.(arrayValue)

	return a.v, ok
}

// AsObject extracts the object payload; ok is false for any other type.
func AsObject(v Value) (map[string]Value, bool) {
	o, ok := v.(objectValue)

	return o.v, ok
}

// AsFloat64 extracts a numeric value (Int/Long/Float/Double) widened to
// float64. ok is false for any non-numeric type.
func AsFloat64(v Value) (float64, bool) {
	switch n := v.(type) {
	case intValue:
		return float64(n.v), true
	case longValue:
		return float64(n.v), true
	case floatValue:
		return float64(n.v), true
	case doubleValue:
		return n.v, true
	default:
		return 0, false
	}
}

// AsInt64 extracts a whole-numbered value (Int/Long) as int64. ok is false
// for Float/Double or any non-numeric type — callers that accept floating
// inputs should use AsFloat64 instead.
func AsInt64(v Value) (int64, bool) {
	switch n := v.(type) {
	case intValue:
		return int64(n.v), true
	case longValue:
		return n.v, true
	default:
		return 0, false
	}
}
