package function

import (
	"testing"

	"github.com/correlator-io/featurepipe/internal/value"
)

func TestBuiltinRegistryHasExpectedNames(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	r := NewBuiltinRegistry()

	for _, name := range []string{
		"length", "upper", "lower", "trim", "abs", "round", "concat",
		"coalesce", "now", "regexp", "regexp_extract", "regexp_extract_all", "regexp_replace",
	} {
		if _, ok := r.Lookup(name); !ok {
			t.Fatalf("expected built-in %q to be registered", name)
		}
	}
}

func TestRegistryRejectsDuplicateRegistration(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	r := NewRegistry()

	if err := r.Register(lengthFn()); err != nil {
		t.Fatalf("unexpected error on first registration: %v", err)
	}

	if err := r.Register(lengthFn()); err == nil {
		t.Fatalf("expected FunctionAlreadyDefined on duplicate registration")
	}
}

func TestUpperLower(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	upper := upperFn()
	lower := lowerFn()

	if s, ok := value.AsString(upper.Eval([]value.Value{value.NewString("abc")})); !ok || s != "ABC" {
		t.Fatalf("expected upper(abc) = ABC, got %v", s)
	}

	if s, ok := value.AsString(lower.Eval([]value.Value{value.NewString("ABC")})); !ok || s != "abc" {
		t.Fatalf("expected lower(ABC) = abc, got %v", s)
	}
}

func TestLengthPropagatesNull(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	out := lengthFn().Eval([]value.Value{value.Null})
	if !value.IsNull(out) {
		t.Fatalf("expected length(Null) = Null, got %v", out)
	}
}

func TestCoalesceSkipsNullAndError(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	fn := coalesceFn()
	out := fn.Eval([]value.Value{value.Null, value.NewInt(42)})

	if n, ok := value.AsInt64(out); !ok || n != 42 {
		t.Fatalf("expected coalesce(Null, 42) = 42, got %v", out)
	}

	allNull := fn.Eval([]value.Value{value.Null, value.Null})
	if !value.IsNull(allNull) {
		t.Fatalf("expected coalesce(Null, Null) = Null, got %v", allNull)
	}
}

func TestRegexpMatch(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	fn := regexpFn()
	out := fn.Eval([]value.Value{value.NewString("hello world"), value.NewString("^hello")})

	if b, ok := value.AsBool(out); !ok || !b {
		t.Fatalf("expected regexp match to be true, got %v", out)
	}

	bad := fn.Eval([]value.Value{value.NewString("hello world"), value.NewString("[abc")})
	if _, isErr := value.IsError(bad); !isErr {
		t.Fatalf("expected invalid pattern to yield an Error value")
	}
}

func TestRegexpExtract(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	fn := regexpExtractFn()
	out := fn.Eval([]value.Value{value.NewString("hello world"), value.NewString("^(hello)")})

	if s, ok := value.AsString(out); !ok || s != "hello" {
		t.Fatalf("expected extract to yield 'hello', got %v", out)
	}

	noMatch := fn.Eval([]value.Value{value.NewString("hello world"), value.NewString("^(xyz)")})
	if s, ok := value.AsString(noMatch); !ok || s != "" {
		t.Fatalf("expected no-match extract to yield empty string, got %v", noMatch)
	}
}

func TestRegexpReplace(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	fn := regexpReplaceFn()
	out := fn.Eval([]value.Value{
		value.NewString("hello world"), value.NewString("^(hello)"), value.NewString("x"),
	})

	if s, ok := value.AsString(out); !ok || s != "x world" {
		t.Fatalf("expected replace to yield 'x world', got %v", out)
	}
}

func TestArityAndTypeChecks(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	fn := lengthFn()

	if err := CheckArity(fn, 2); err == nil {
		t.Fatalf("expected arity error for too many arguments")
	}

	if err := CheckArgTypes(fn, []value.ValueType{value.TypeInt}); err == nil {
		t.Fatalf("expected argument type error for Int where String expected")
	}
}
