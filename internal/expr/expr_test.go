package expr

import (
	"testing"

	"github.com/correlator-io/featurepipe/internal/piperr"
	"github.com/correlator-io/featurepipe/internal/schema"
	"github.com/correlator-io/featurepipe/internal/value"
)

func TestColumnRefEvalAndOutputType(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	s := schema.Schema{{Name: "x", Type: value.TypeInt}}
	row := schema.Row{value.NewInt(3)}

	ref := ColumnRef{Index: 0, Name: "x"}

	tp, err := ref.OutputType(s)
	if err != nil || tp != value.TypeInt {
		t.Fatalf("OutputType = %v, %v; want Int, nil", tp, err)
	}

	if got := ref.Eval(row); !value.Equal(got, value.NewInt(3)) {
		t.Fatalf("Eval = %v, want Int(3)", got)
	}
}

func TestBinaryOpArithmeticAndProjection(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	row := schema.Row{value.NewInt(3)}

	mul := BinaryOp{Op: OpMul, Left: ColumnRef{Index: 0, Name: "x"}, Right: Literal{Value: value.NewInt(2)}}

	got := mul.Eval(row)
	if !value.Equal(got, value.NewInt(6)) {
		t.Fatalf("x * 2 with x=3 = %v, want Int(6)", got)
	}
}

func TestBinaryOpTypeMismatchAtCompileTime(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	s := schema.Schema{{Name: "s", Type: value.TypeString}}

	b := BinaryOp{Op: OpAdd, Left: ColumnRef{Index: 0, Name: "s"}, Right: Literal{Value: value.NewInt(1)}}

	if _, err := b.OutputType(s); err == nil {
		t.Fatalf("expected a type error mixing String and Int under +")
	}
}

func TestKleeneAndShortCircuitsOnFalse(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	b := BinaryOp{Op: OpAnd, Left: Literal{Value: value.NewBool(false)}, Right: Literal{Value: value.Null}}

	got := b.Eval(nil)
	if v, ok := value.AsBool(got); !ok || v {
		t.Fatalf("false AND Null = %v, want Bool(false)", got)
	}
}

func TestKleeneOrShortCircuitsOnTrue(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	b := BinaryOp{Op: OpOr, Left: Literal{Value: value.NewBool(true)}, Right: Literal{Value: value.Null}}

	got := b.Eval(nil)
	if v, ok := value.AsBool(got); !ok || !v {
		t.Fatalf("true OR Null = %v, want Bool(true)", got)
	}
}

func TestKleeneAndNullWhenNeitherOperandDecides(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	b := BinaryOp{Op: OpAnd, Left: Literal{Value: value.NewBool(true)}, Right: Literal{Value: value.Null}}

	got := b.Eval(nil)
	if !value.IsNull(got) {
		t.Fatalf("true AND Null = %v, want Null", got)
	}
}

func TestComparisonEqualityNullPropagation(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	b := BinaryOp{Op: OpEq, Left: Literal{Value: value.Null}, Right: Literal{Value: value.NewInt(1)}}

	if got := b.Eval(nil); !value.IsNull(got) {
		t.Fatalf("Null = 1 should be Null, got %v", got)
	}
}

func TestErrorPropagatesThroughBinaryOp(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	errVal := value.NewError(piperr.New(piperr.InvalidValue, "boom"))
	b := BinaryOp{Op: OpAdd, Left: Literal{Value: errVal}, Right: Literal{Value: value.NewInt(1)}}

	got := b.Eval(nil)
	if _, ok := value.IsError(got); !ok {
		t.Fatalf("expected Error to propagate, got %v", got)
	}
}

func TestUnaryNotAndNeg(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	not := UnaryOp{Op: OpNot, Operand: Literal{Value: value.NewBool(false)}}
	if got := not.Eval(nil); !value.Equal(got, value.NewBool(true)) {
		t.Fatalf("NOT false = %v, want true", got)
	}

	neg := UnaryOp{Op: OpNeg, Operand: Literal{Value: value.NewInt(5)}}
	if got := neg.Eval(nil); !value.Equal(got, value.NewInt(-5)) {
		t.Fatalf("-5 = %v, want Int(-5)", got)
	}
}

func TestIndexAccessInRangeAndOutOfRange(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	arr := ArrayLiteral{Elements: []Expression{Literal{Value: value.NewInt(1)}, Literal{Value: value.NewInt(2)}}}

	inRange := IndexAccess{Array: arr, Index: Literal{Value: value.NewInt(1)}}
	if got := inRange.Eval(nil); !value.Equal(got, value.NewInt(2)) {
		t.Fatalf("arr[1] = %v, want Int(2)", got)
	}

	outOfRange := IndexAccess{Array: arr, Index: Literal{Value: value.NewInt(5)}}
	if _, ok := value.IsError(outOfRange.Eval(nil)); !ok {
		t.Fatalf("expected Error for out-of-range index")
	}
}

func TestFieldAccessMissingKeyYieldsNull(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	obj := Literal{Value: value.NewObject(map[string]value.Value{"a": value.NewInt(1)})}

	fa := FieldAccess{Object: obj, Field: "missing"}
	if got := fa.Eval(nil); !value.IsNull(got) {
		t.Fatalf("missing field should yield Null, got %v", got)
	}
}
