// Package piperr provides the structured error taxonomy used throughout the
// feature pipeline engine: compilation failures, stream-fatal failures, and
// row-level errors that travel as ordinary Error-valued cells.
package piperr

import "fmt"

// Kind discriminates the error taxonomy. Each kind carries the same payload
// shape (message, optional row/column/stage, optional wrapped cause); only
// its Fatal() classification differs.
type Kind int

const (
	// Compilation errors abort loading a pipeline definition; no pipeline
	// is produced for the declaration that triggered them.
	SyntaxError Kind = iota
	ValidationError
	UnknownOperator
	UnknownFunction
	ColumnNotFound
	ColumnAlreadyExists
	FunctionAlreadyDefined
	LookupSourceNotFound

	// Type/shape errors are row-level by default: they become Error-valued
	// cells rather than aborting the stream, except under StrictValidation.
	InvalidRowLength
	InvalidColumnType
	InvalidTypeCast
	InvalidTypeConversion
	TypeMismatch
	InvalidOperandType
	InvalidValueType
	InvalidArgumentType
	InvalidArgumentCount
	ArityError
	FormatError
	InvalidValue

	// Runtime errors. PipelineNotFound and Interrupted are stream-fatal;
	// the rest travel as row-level Error values.
	PipelineNotFound
	Interrupted
	ExternalError
	AuthError
	HTTPError
	ProtobufError
	Base64Error
	EnvVarNotSet
	Unknown
)

//nolint:gochecknoglobals
var kindNames = map[Kind]string{
	SyntaxError:            "SyntaxError",
	ValidationError:        "ValidationError",
	UnknownOperator:        "UnknownOperator",
	UnknownFunction:        "UnknownFunction",
	ColumnNotFound:         "ColumnNotFound",
	ColumnAlreadyExists:    "ColumnAlreadyExists",
	FunctionAlreadyDefined: "FunctionAlreadyDefined",
	LookupSourceNotFound:   "LookupSourceNotFound",
	InvalidRowLength:       "InvalidRowLength",
	InvalidColumnType:      "InvalidColumnType",
	InvalidTypeCast:        "InvalidTypeCast",
	InvalidTypeConversion:  "InvalidTypeConversion",
	TypeMismatch:           "TypeMismatch",
	InvalidOperandType:     "InvalidOperandType",
	InvalidValueType:       "InvalidValueType",
	InvalidArgumentType:    "InvalidArgumentType",
	InvalidArgumentCount:   "InvalidArgumentCount",
	ArityError:             "ArityError",
	FormatError:            "FormatError",
	InvalidValue:           "InvalidValue",
	PipelineNotFound:       "PipelineNotFound",
	Interrupted:            "Interrupted",
	ExternalError:          "ExternalError",
	AuthError:              "AuthError",
	HTTPError:              "HttpError",
	ProtobufError:          "ProtobufError",
	Base64Error:            "Base64Error",
	EnvVarNotSet:           "EnvVarNotSet",
	Unknown:                "Unknown",
}

// String returns the wire/display name of the kind (matches spec taxonomy names).
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}

	return "Unknown"
}

//nolint:gochecknoglobals
var fatalKinds = map[Kind]bool{
	SyntaxError:            true,
	ValidationError:        true,
	UnknownOperator:        true,
	UnknownFunction:        true,
	ColumnNotFound:         true,
	ColumnAlreadyExists:    true,
	FunctionAlreadyDefined: true,
	LookupSourceNotFound:   true,
	PipelineNotFound:       true,
	Interrupted:            true,
}

// Error is the single structured error type used across the engine. Its
// Kind determines whether it is fatal to the compilation unit/request
// (Fatal() == true) or a row-level error meant to travel as an Error-valued
// cell (Fatal() == false).
type Error struct {
	Kind    Kind
	Message string
	Row     *int
	Column  string
	Stage   string
	Cause   error
}

// New creates an Error of the given kind with a plain message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an Error of the given kind around a cause, reusing the
// cause's message when no explicit message is wanted.
func Wrap(kind Kind, cause error) *Error {
	return &Error{Kind: kind, Message: cause.Error(), Cause: cause}
}

// WithRow annotates the error with the zero-based row index it occurred at.
func (e *Error) WithRow(row int) *Error {
	e.Row = &row

	return e
}

// WithColumn annotates the error with the column name it occurred at.
func (e *Error) WithColumn(column string) *Error {
	e.Column = column

	return e
}

// WithStage annotates the error with the transformation stage name it occurred at.
func (e *Error) WithStage(stage string) *Error {
	e.Stage = stage

	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("%s: %s (column=%s)", e.Kind, e.Message, e.Column)
	}

	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the wrapped cause, if any, for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Fatal reports whether this error kind aborts the compilation unit or the
// request stream, as opposed to flowing downstream as an Error-valued cell.
func (e *Error) Fatal() bool {
	return fatalKinds[e.Kind]
}
