package function

import (
	"regexp"
	"strings"
	"time"

	"github.com/correlator-io/featurepipe/internal/piperr"
	"github.com/correlator-io/featurepipe/internal/value"
)

// simpleFunc is the uniform Function wrapper every built-in is expressed
// through, mirroring the arity-wrapper shape (unary_fn/binary_fn/...) of the
// reference pipeline engine's function_wrapper module.
type simpleFunc struct {
	name          string
	minArity      int
	maxArity      int // -1 means variadic
	argTypes      []value.ValueType
	resultType    func(argTypes []value.ValueType) value.ValueType
	deterministic bool
	eval          func(args []value.Value) value.Value
}

func (f simpleFunc) Name() string     { return f.name }
func (f simpleFunc) MinArity() int    { return f.minArity }
func (f simpleFunc) MaxArity() int    { return f.maxArity }
func (f simpleFunc) Deterministic() bool { return f.deterministic }

func (f simpleFunc) ArgType(i int) value.ValueType {
	if len(f.argTypes) == 0 {
		return value.TypeDynamic
	}

	if i < len(f.argTypes) {
		return f.argTypes[i]
	}

	return f.argTypes[len(f.argTypes)-1]
}

func (f simpleFunc) ResultType(argTypes []value.ValueType) value.ValueType {
	if f.resultType != nil {
		return f.resultType(argTypes)
	}

	return value.TypeDynamic
}

func (f simpleFunc) Eval(args []value.Value) value.Value {
	for _, a := range args {
		if err, ok := value.IsError(a); ok {
			return value.NewError(err)
		}
	}

	return f.eval(args)
}

// fixedResult returns a resultType function that always yields t, the
// common case for every built-in below except abs and coalesce (whose result
// types depend on their arguments).
func fixedResult(t value.ValueType) func([]value.ValueType) value.ValueType {
	return func([]value.ValueType) value.ValueType { return t }
}

// nullPropagating wraps eval so a Null argument at position idx short-circuits
// to Null, matching the Null-propagation rule the operator layer applies.
func nullPropagating(idx int, eval func([]value.Value) value.Value) func([]value.Value) value.Value {
	return func(args []value.Value) value.Value {
		if idx < len(args) && value.IsNull(args[idx]) {
			return value.Null
		}

		return eval(args)
	}
}

//nolint:gochecknoglobals
func builtins() []Function {
	return []Function{
		lengthFn(),
		upperFn(),
		lowerFn(),
		trimFn(),
		absFn(),
		roundFn(),
		concatFn(),
		coalesceFn(),
		nowFn(),
		regexpFn(),
		regexpExtractFn(),
		regexpExtractAllFn(),
		regexpReplaceFn(),
	}
}

func lengthFn() Function {
	return simpleFunc{
		name: "length", minArity: 1, maxArity: 1,
		argTypes: []value.ValueType{value.TypeString}, resultType: fixedResult(value.TypeInt),
		deterministic: true,
		eval: nullPropagating(0, func(args []value.Value) value.Value {
			s, ok := value.AsString(args[0])
			if !ok {
				return value.NewError(piperr.New(piperr.InvalidArgumentType, "length expects a String"))
			}

			return value.NewInt(int32(len(s)))
		}),
	}
}

func upperFn() Function {
	return simpleFunc{
		name: "upper", minArity: 1, maxArity: 1,
		argTypes: []value.ValueType{value.TypeString}, resultType: fixedResult(value.TypeString),
		deterministic: true,
		eval: nullPropagating(0, func(args []value.Value) value.Value {
			s, ok := value.AsString(args[0])
			if !ok {
				return value.NewError(piperr.New(piperr.InvalidArgumentType, "upper expects a String"))
			}

			return value.NewString(strings.ToUpper(s))
		}),
	}
}

func lowerFn() Function {
	return simpleFunc{
		name: "lower", minArity: 1, maxArity: 1,
		argTypes: []value.ValueType{value.TypeString}, resultType: fixedResult(value.TypeString),
		deterministic: true,
		eval: nullPropagating(0, func(args []value.Value) value.Value {
			s, ok := value.AsString(args[0])
			if !ok {
				return value.NewError(piperr.New(piperr.InvalidArgumentType, "lower expects a String"))
			}

			return value.NewString(strings.ToLower(s))
		}),
	}
}

func trimFn() Function {
	return simpleFunc{
		name: "trim", minArity: 1, maxArity: 1,
		argTypes: []value.ValueType{value.TypeString}, resultType: fixedResult(value.TypeString),
		deterministic: true,
		eval: nullPropagating(0, func(args []value.Value) value.Value {
			s, ok := value.AsString(args[0])
			if !ok {
				return value.NewError(piperr.New(piperr.InvalidArgumentType, "trim expects a String"))
			}

			return value.NewString(strings.TrimSpace(s))
		}),
	}
}

func absFn() Function {
	return simpleFunc{
		name: "abs", minArity: 1, maxArity: 1,
		argTypes: []value.ValueType{value.TypeDynamic},
		resultType: func(argTypes []value.ValueType) value.ValueType {
			if len(argTypes) == 1 {
				return argTypes[0]
			}

			return value.TypeDynamic
		},
		deterministic: true,
		eval: nullPropagating(0, func(args []value.Value) value.Value {
			f, ok := value.AsFloat64(args[0])
			if !ok {
				return value.NewError(piperr.New(piperr.InvalidArgumentType, "abs expects a numeric value"))
			}

			if f < 0 {
				f = -f
			}

			return reNumeric(args[0].Type(), f)
		}),
	}
}

func roundFn() Function {
	return simpleFunc{
		name: "round", minArity: 1, maxArity: 1,
		argTypes: []value.ValueType{value.TypeDynamic}, resultType: fixedResult(value.TypeLong),
		deterministic: true,
		eval: nullPropagating(0, func(args []value.Value) value.Value {
			f, ok := value.AsFloat64(args[0])
			if !ok {
				return value.NewError(piperr.New(piperr.InvalidArgumentType, "round expects a numeric value"))
			}

			return value.NewLong(int64(f + 0.5))
		}),
	}
}

func reNumeric(t value.ValueType, f float64) value.Value {
	switch t {
	case value.TypeInt:
		return value.NewInt(int32(f))
	case value.TypeLong:
		return value.NewLong(int64(f))
	case value.TypeFloat:
		return value.NewFloat(float32(f))
	default:
		return value.NewDouble(f)
	}
}

func concatFn() Function {
	return simpleFunc{
		name: "concat", minArity: 0, maxArity: -1,
		argTypes: []value.ValueType{value.TypeString}, resultType: fixedResult(value.TypeString),
		deterministic: true,
		eval: func(args []value.Value) value.Value {
			var sb strings.Builder

			for _, a := range args {
				if value.IsNull(a) {
					continue
				}

				s, ok := value.AsString(a)
				if !ok {
					return value.NewError(piperr.New(piperr.InvalidArgumentType, "concat expects String arguments"))
				}

				sb.WriteString(s)
			}

			return value.NewString(sb.String())
		},
	}
}

// coalesceFn returns the first non-Null, non-Error argument, or Null if all
// are Null. Unlike the other built-ins it deliberately does not propagate
// Error first — that is its entire purpose.
func coalesceFn() Function {
	return simpleFunc{
		name: "coalesce", minArity: 1, maxArity: -1,
		argTypes: []value.ValueType{value.TypeDynamic},
		resultType: func(argTypes []value.ValueType) value.ValueType {
			if len(argTypes) > 0 {
				return argTypes[0]
			}

			return value.TypeDynamic
		},
		deterministic: true,
		eval: func(args []value.Value) value.Value {
			for _, a := range args {
				if !value.IsNull(a) {
					if _, isErr := value.IsError(a); !isErr {
						return a
					}
				}
			}

			return value.Null
		},
	}
}

func nowFn() Function {
	return simpleFunc{
		name: "now", minArity: 0, maxArity: 0,
		resultType: fixedResult(value.TypeDateTime), deterministic: false,
		eval: func([]value.Value) value.Value { return value.NewDateTime(time.Now().UTC()) },
	}
}

func regexpFn() Function {
	return simpleFunc{
		name: "regexp", minArity: 2, maxArity: 2,
		argTypes: []value.ValueType{value.TypeString, value.TypeString}, resultType: fixedResult(value.TypeBool),
		deterministic: true,
		eval: func(args []value.Value) value.Value {
			s, re, ok := twoStrings(args)
			if !ok {
				return value.NewError(piperr.New(piperr.InvalidArgumentType, "regexp expects two String arguments"))
			}

			pattern, err := regexp.Compile(re)
			if err != nil {
				return value.NewError(piperr.Wrap(piperr.ExternalError, err))
			}

			return value.NewBool(pattern.MatchString(s))
		},
	}
}

func regexpExtractFn() Function {
	return simpleFunc{
		name: "regexp_extract", minArity: 2, maxArity: 3,
		argTypes: []value.ValueType{value.TypeString, value.TypeString, value.TypeInt},
		resultType: fixedResult(value.TypeString), deterministic: true,
		eval: func(args []value.Value) value.Value {
			s, re, ok := twoStrings(args)
			if !ok {
				return value.NewError(piperr.New(piperr.InvalidArgumentType,
					"regexp_extract expects (String, String[, Int])"))
			}

			idx := int64(1)

			if len(args) == 3 {
				n, ok := value.AsInt64(args[2])
				if !ok {
					return value.NewError(piperr.New(piperr.InvalidArgumentType, "regexp_extract group index must be Int"))
				}

				idx = n
			}

			pattern, err := regexp.Compile(re)
			if err != nil {
				return value.NewError(piperr.Wrap(piperr.ExternalError, err))
			}

			groups := pattern.FindStringSubmatch(s)
			if groups == nil || idx < 0 || int(idx) >= len(groups) {
				return value.NewString("")
			}

			return value.NewString(groups[idx])
		},
	}
}

func regexpExtractAllFn() Function {
	return simpleFunc{
		name: "regexp_extract_all", minArity: 2, maxArity: 2,
		argTypes: []value.ValueType{value.TypeString, value.TypeString}, resultType: fixedResult(value.TypeArray),
		deterministic: true,
		eval: func(args []value.Value) value.Value {
			s, re, ok := twoStrings(args)
			if !ok {
				return value.NewError(piperr.New(piperr.InvalidArgumentType,
					"regexp_extract_all expects two String arguments"))
			}

			pattern, err := regexp.Compile(re)
			if err != nil {
				return value.NewError(piperr.Wrap(piperr.ExternalError, err))
			}

			matches := pattern.FindAllString(s, -1)
			out := make([]value.Value, len(matches))

			for i, m := range matches {
				out[i] = value.NewString(m)
			}

			return value.NewArray(out)
		},
	}
}

func regexpReplaceFn() Function {
	return simpleFunc{
		name: "regexp_replace", minArity: 3, maxArity: 3,
		argTypes: []value.ValueType{value.TypeString, value.TypeString, value.TypeString},
		resultType: fixedResult(value.TypeString), deterministic: true,
		eval: func(args []value.Value) value.Value {
			s, re, ok := twoStrings(args)
			if !ok {
				return value.NewError(piperr.New(piperr.InvalidArgumentType,
					"regexp_replace expects three String arguments"))
			}

			repl, ok := value.AsString(args[2])
			if !ok {
				return value.NewError(piperr.New(piperr.InvalidArgumentType, "regexp_replace replacement must be String"))
			}

			pattern, err := regexp.Compile(re)
			if err != nil {
				return value.NewError(piperr.Wrap(piperr.ExternalError, err))
			}

			return value.NewString(pattern.ReplaceAllString(s, repl))
		},
	}
}

func twoStrings(args []value.Value) (string, string, bool) {
	if len(args) < 2 {
		return "", "", false
	}

	a, ok1 := value.AsString(args[0])
	b, ok2 := value.AsString(args[1])

	return a, b, ok1 && ok2
}
