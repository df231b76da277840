package expr

import (
	"github.com/correlator-io/featurepipe/internal/piperr"
	"github.com/correlator-io/featurepipe/internal/schema"
	"github.com/correlator-io/featurepipe/internal/value"
)

// BinaryOperator enumerates the arithmetic, comparison, logical and string
// operators of §4.3. Element access is modeled separately (see access.go)
// since its operand/result typing doesn't fit the binary numeric/bool mold.
type BinaryOperator int

const (
	OpAdd BinaryOperator = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpEq
	OpNeq
	OpLt
	OpLte
	OpGt
	OpGte
	OpAnd
	OpOr
)

//nolint:gochecknoglobals
var binaryOpSymbols = map[BinaryOperator]string{
	OpAdd: "+", OpSub: "-", OpMul: "*", OpDiv: "/", OpMod: "%",
	OpEq: "=", OpNeq: "!=", OpLt: "<", OpLte: "<=", OpGt: ">", OpGte: ">=",
	OpAnd: "AND", OpOr: "OR",
}

func (op BinaryOperator) isArithmetic() bool {
	switch op {
	case OpAdd, OpSub, OpMul, OpDiv, OpMod:
		return true
	default:
		return false
	}
}

func (op BinaryOperator) isComparison() bool {
	switch op {
	case OpEq, OpNeq, OpLt, OpLte, OpGt, OpGte:
		return true
	default:
		return false
	}
}

func (op BinaryOperator) isLogical() bool {
	return op == OpAnd || op == OpOr
}

// BinaryOp applies a BinaryOperator to two sub-expressions.
type BinaryOp struct {
	Op          BinaryOperator
	Left, Right Expression
}

func (b BinaryOp) String() string {
	return "(" + b.Left.String() + " " + binaryOpSymbols[b.Op] + " " + b.Right.String() + ")"
}

func (b BinaryOp) OutputType(s schema.Schema) (value.ValueType, error) {
	lt, err := b.Left.OutputType(s)
	if err != nil {
		return value.TypeDynamic, err
	}

	rt, err := b.Right.OutputType(s)
	if err != nil {
		return value.TypeDynamic, err
	}

	switch {
	case b.Op.isLogical():
		if !typeCompatible(lt, value.TypeBool) || !typeCompatible(rt, value.TypeBool) {
			return value.TypeDynamic, typeMismatch("AND/OR require Bool operands")
		}

		return value.TypeBool, nil

	case b.Op.isComparison():
		if !comparableStatic(lt, rt) {
			return value.TypeDynamic, typeMismatch("incomparable operand types")
		}

		return value.TypeBool, nil

	case b.Op == OpAdd && lt == value.TypeString && rt == value.TypeString:
		return value.TypeString, nil

	case b.Op.isArithmetic():
		if !numericOrDynamic(lt) || !numericOrDynamic(rt) {
			return value.TypeDynamic, typeMismatch("arithmetic requires numeric operands")
		}

		return promoteStatic(lt, rt), nil

	default:
		return value.TypeDynamic, typeMismatch("unsupported operator")
	}
}

func typeCompatible(t, want value.ValueType) bool {
	return t == value.TypeDynamic || t == want
}

func numericOrDynamic(t value.ValueType) bool {
	return t == value.TypeDynamic || t.IsNumeric()
}

func comparableStatic(a, b value.ValueType) bool {
	if a == value.TypeDynamic || b == value.TypeDynamic {
		return true
	}

	if a.IsNumeric() && b.IsNumeric() {
		return true
	}

	return a == b
}

func promoteStatic(a, b value.ValueType) value.ValueType {
	if a == value.TypeDynamic {
		return b
	}

	if b == value.TypeDynamic {
		return a
	}

	rank := map[value.ValueType]int{value.TypeInt: 0, value.TypeLong: 1, value.TypeFloat: 2, value.TypeDouble: 3}
	if rank[a] >= rank[b] {
		return a
	}

	return b
}

func (b BinaryOp) Eval(row schema.Row) value.Value {
	left := b.Left.Eval(row)

	// Short-circuit Kleene AND/OR so the right side need not be evaluated
	// when the left side already determines the result.
	if b.Op == OpAnd {
		if lb, ok := value.AsBool(left); ok && !lb {
			return value.NewBool(false)
		}
	}

	if b.Op == OpOr {
		if lb, ok := value.AsBool(left); ok && lb {
			return value.NewBool(true)
		}
	}

	right := b.Right.Eval(row)

	switch b.Op {
	case OpAdd:
		return value.Add(left, right)
	case OpSub:
		return value.Sub(left, right)
	case OpMul:
		return value.Mul(left, right)
	case OpDiv:
		return value.Div(left, right)
	case OpMod:
		return value.Mod(left, right)
	case OpEq, OpNeq, OpLt, OpLte, OpGt, OpGte:
		return evalComparison(b.Op, left, right)
	case OpAnd, OpOr:
		return evalKleene(b.Op, left, right)
	default:
		return value.NewError(typeMismatch("unsupported operator"))
	}
}

func evalComparison(op BinaryOperator, a, b value.Value) value.Value {
	if err, ok := value.IsError(a); ok {
		return value.NewError(err)
	}

	if err, ok := value.IsError(b); ok {
		return value.NewError(err)
	}

	if op == OpEq {
		if value.IsNull(a) || value.IsNull(b) {
			return value.Null
		}

		return value.NewBool(value.Equal(a, b))
	}

	if op == OpNeq {
		if value.IsNull(a) || value.IsNull(b) {
			return value.Null
		}

		return value.NewBool(!value.Equal(a, b))
	}

	if value.IsNull(a) || value.IsNull(b) {
		return value.Null
	}

	cmp, err := value.Compare(a, b)
	if err != nil {
		if pe, ok := err.(*piperr.Error); ok {
			return value.NewError(pe)
		}

		return value.NewError(typeMismatch(err.Error()))
	}

	switch op {
	case OpLt:
		return value.NewBool(cmp < 0)
	case OpLte:
		return value.NewBool(cmp <= 0)
	case OpGt:
		return value.NewBool(cmp > 0)
	case OpGte:
		return value.NewBool(cmp >= 0)
	default:
		return value.NewError(typeMismatch("unsupported comparison"))
	}
}

// evalKleene implements three-valued logic: AND is false if either operand
// is false regardless of the other; OR is true if either operand is true
// regardless of the other; otherwise Null propagates.
func evalKleene(op BinaryOperator, a, b value.Value) value.Value {
	if err, ok := value.IsError(a); ok {
		return value.NewError(err)
	}

	if err, ok := value.IsError(b); ok {
		return value.NewError(err)
	}

	ab, aIsBool := value.AsBool(a)
	bb, bIsBool := value.AsBool(b)

	if op == OpAnd {
		if aIsBool && !ab {
			return value.NewBool(false)
		}

		if bIsBool && !bb {
			return value.NewBool(false)
		}

		if aIsBool && bIsBool {
			return value.NewBool(ab && bb)
		}

		return value.Null
	}

	if aIsBool && ab {
		return value.NewBool(true)
	}

	if bIsBool && bb {
		return value.NewBool(true)
	}

	if aIsBool && bIsBool {
		return value.NewBool(ab || bb)
	}

	return value.Null
}

// UnaryOperator enumerates the unary sign and logical-not operators.
type UnaryOperator int

const (
	OpNeg UnaryOperator = iota
	OpPos
	OpNot
)

// UnaryOp applies a UnaryOperator to one sub-expression.
type UnaryOp struct {
	Op      UnaryOperator
	Operand Expression
}

func (u UnaryOp) String() string {
	symbol := map[UnaryOperator]string{OpNeg: "-", OpPos: "+", OpNot: "NOT "}[u.Op]

	return symbol + u.Operand.String()
}

func (u UnaryOp) OutputType(s schema.Schema) (value.ValueType, error) {
	t, err := u.Operand.OutputType(s)
	if err != nil {
		return value.TypeDynamic, err
	}

	if u.Op == OpNot {
		if !typeCompatible(t, value.TypeBool) {
			return value.TypeDynamic, typeMismatch("NOT requires a Bool operand")
		}

		return value.TypeBool, nil
	}

	if !numericOrDynamic(t) {
		return value.TypeDynamic, typeMismatch("unary +/- requires a numeric operand")
	}

	return t, nil
}

func (u UnaryOp) Eval(row schema.Row) value.Value {
	v := u.Operand.Eval(row)

	if err, ok := value.IsError(v); ok {
		return value.NewError(err)
	}

	if value.IsNull(v) {
		return value.Null
	}

	switch u.Op {
	case OpNot:
		b, ok := value.AsBool(v)
		if !ok {
			return value.NewError(typeMismatch("NOT requires a Bool operand"))
		}

		return value.NewBool(!b)
	case OpPos:
		return v
	case OpNeg:
		return value.Sub(zeroOf(v), v)
	default:
		return value.NewError(typeMismatch("unsupported unary operator"))
	}
}

func zeroOf(v value.Value) value.Value {
	switch v.Type() {
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
