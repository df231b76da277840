package expr

import (
	"github.com/correlator-io/featurepipe/internal/function"
	"github.com/correlator-io/featurepipe/internal/schema"
	"github.com/correlator-io/featurepipe/internal/value"
)

// FunctionCall dispatches into a resolved scalar Function. The compiler
// resolves Name to Fn via the BuildContext's function registry during the
// Resolve phase, before any FunctionCall node is evaluated — Fn is never
// nil on a tree returned from a successful compile.
type FunctionCall struct {
	Name string
	Args []Expression
	Fn   function.Function
}

func (c FunctionCall) String() string {
	s := c.Name + "("

	for i, a := range c.Args {
		if i > 0 {
			s += ", "
		}

		s += a.String()
	}

	return s + ")"
}

func (c FunctionCall) OutputType(s schema.Schema) (value.ValueType, error) {
	if c.Fn == nil {
		return value.TypeDynamic, typeMismatch("unresolved function call: " + c.Name)
	}

	if err := function.CheckArity(c.Fn, len(c.Args)); err != nil {
		return value.TypeDynamic, err
	}

	argTypes := make([]value.ValueType, len(c.Args))

	for i, a := range c.Args {
		t, err := a.OutputType(s)
		if err != nil {
			return value.TypeDynamic, err
		}

		argTypes[i] = t
	}

	if err := function.CheckArgTypes(c.Fn, argTypes); err != nil {
		return value.TypeDynamic, err
	}

	return c.Fn.ResultType(argTypes), nil
}

func (c FunctionCall) Eval(row schema.Row) value.Value {
	if c.Fn == nil {
		return value.NewError(typeMismatch("unresolved function call: " + c.Name))
	}

	args := make([]value.Value, len(c.Args))

	for i, a := range c.Args {
		args[i] = a.Eval(row)
	}

	return c.Fn.Eval(args)
}
