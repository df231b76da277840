package expr

import (
	"github.com/correlator-io/featurepipe/internal/schema"
	"github.com/correlator-io/featurepipe/internal/value"
)

// ArrayLiteral builds an Array value from a fixed list of element
// expressions, evaluated fresh per row (elements need not themselves be
// compile-time constants).
type ArrayLiteral struct {
	Elements []Expression
}

func (a ArrayLiteral) String() string {
	s := "["
	for i, e := range a.Elements {
		if i > 0 {
			s += ", "
		}

		s += e.String()
	}

	return s + "]"
}

func (a ArrayLiteral) OutputType(s schema.Schema) (value.ValueType, error) {
	for _, e := range a.Elements {
		if _, err := e.OutputType(s); err != nil {
			return value.TypeDynamic, err
		}
	}

	return value.TypeArray, nil
}

func (a ArrayLiteral) Eval(row schema.Row) value.Value {
	els := make([]value.Value, len(a.Elements))
	for i, e := range a.Elements {
		els[i] = e.Eval(row)
	}

	return value.NewArray(els)
}
