package piperr

import (
	"errors"
	"testing"
)

func TestNewAndErrorFormatsKindAndMessage(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	e := New(InvalidValue, "boom")

	if got, want := e.Error(), "InvalidValue: boom"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}

func TestErrorIncludesColumnWhenSet(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	e := New(TypeMismatch, "boom").WithColumn("amount")

	if got, want := e.Error(), "TypeMismatch: boom (column=amount)"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}

func TestWithRowAndStageAnnotate(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	e := New(InvalidValue, "boom").WithRow(3).WithStage("where")

	if e.Row == nil || *e.Row != 3 {
		t.Fatalf("Row = %v, want 3", e.Row)
	}

	if e.Stage != "where" {
		t.Fatalf("Stage = %q, want where", e.Stage)
	}
}

func TestWrapPreservesCauseForUnwrap(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	cause := errors.New("connection refused")
	e := Wrap(ExternalError, cause)

	if !errors.Is(e, cause) {
		t.Fatalf("errors.Is(e, cause) = false, want true")
	}

	if e.Message != cause.Error() {
		t.Fatalf("Message = %q, want %q", e.Message, cause.Error())
	}
}

func TestFatalClassifiesCompilationAndRuntimeKinds(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	for _, k := range []Kind{SyntaxError, ValidationError, ColumnNotFound, PipelineNotFound, Interrupted} {
		if !New(k, "x").Fatal() {
			t.Errorf("%s.Fatal() = false, want true", k)
		}
	}
}

func TestFatalIsFalseForRowLevelKinds(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	for _, k := range []Kind{InvalidValue, InvalidTypeCast, ArityError, FormatError, ExternalError} {
		if New(k, "x").Fatal() {
			t.Errorf("%s.Fatal() = true, want false", k)
		}
	}
}

func TestUnknownKindStringFallsBackToUnknown(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	var bogus Kind = 9999

	if got := bogus.String(); got != "Unknown" {
		t.Fatalf("String() = %q, want Unknown", got)
	}
}
