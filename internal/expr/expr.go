// Package expr implements compiled, immutable expression trees: pure
// functions from a Row to a Value, plus a static OutputType operation
// evaluated bottom-up during DSL compilation. Column references are
// resolved to positional indices by the compiler before an Expression
// tree is built, so evaluation here never does a name lookup.
package expr

import (
	"github.com/correlator-io/featurepipe/internal/schema"
	"github.com/correlator-io/featurepipe/internal/value"
)

// Expression is a pure, immutable (row) -> Value computation with a static
// output type derivable from an input schema.
type Expression interface {
	// OutputType returns the expression's static result type given the
	// schema it will be evaluated against. Returns a piperr error (e.g. TypeMismatch)
	// when the expression is not well-typed against that schema.
	OutputType(s schema.Schema) (value.ValueType, error)
	// Eval evaluates the expression against one row. Errors never panic or
	// return via the error-return channel; they are represented as Error
	// values per the engine's error-as-value policy.
	Eval(row schema.Row) value.Value
	// String renders the expression for pipeline dumps.
	String() string
}

// Literal is a compile-time constant.
type Literal struct {
	Value value.Value
}

func (l Literal) OutputType(schema.Schema) (value.ValueType, error) { return l.Value.Type(), nil }
func (l Literal) Eval(schema.Row) value.Value                      { return l.Value }
func (l Literal) String() string                                   { return l.Value.Type().String() + "Literal" }

// ColumnRef is a reference to a column resolved to its positional index at
// compile time.
type ColumnRef struct {
	Index int
	Name  string
}

func (c ColumnRef) OutputType(s schema.Schema) (value.ValueType, error) {
	if c.Index < 0 || c.Index >= len(s) {
		return value.TypeDynamic, columnNotFound(c.Name)
	}

	return s[c.Index].Type, nil
}

func (c ColumnRef) Eval(row schema.Row) value.Value {
	if c.Index < 0 || c.Index >= len(row) {
		return value.Null
	}

	return row[c.Index]
}

func (c ColumnRef) String() string { return c.Name }
