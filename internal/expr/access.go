package expr

import (
	"strconv"

	"github.com/correlator-io/featurepipe/internal/piperr"
	"github.com/correlator-io/featurepipe/internal/schema"
	"github.com/correlator-io/featurepipe/internal/value"
)

// IndexAccess implements array element access a[i]. The index expression may
// be any Int/Long-typed expression, evaluated per row (not required to be a
// Literal), matching the DSL grammar's `expr '[' expr ']'` production.
type IndexAccess struct {
	Array Expression
	Index Expression
}

func (a IndexAccess) String() string {
	return a.Array.String() + "[" + a.Index.String() + "]"
}

func (a IndexAccess) OutputType(s schema.Schema) (value.ValueType, error) {
	arrT, err := a.Array.OutputType(s)
	if err != nil {
		return value.TypeDynamic, err
	}

	if arrT != value.TypeArray && arrT != value.TypeDynamic {
		return value.TypeDynamic, typeMismatch("element access requires an Array operand")
	}

	idxT, err := a.Index.OutputType(s)
	if err != nil {
		return value.TypeDynamic, err
	}

	if idxT != value.TypeInt && idxT != value.TypeLong && idxT != value.TypeDynamic {
		return value.TypeDynamic, typeMismatch("array index must be Int or Long")
	}

	// Element type is unknown statically — Array carries heterogeneous
	// Values — so a[i] is Dynamic until evaluated.
	return value.TypeDynamic, nil
}

func (a IndexAccess) Eval(row schema.Row) value.Value {
	arr := a.Array.Eval(row)

	if err, ok := value.IsError(arr); ok {
		return value.NewError(err)
	}

	if value.IsNull(arr) {
		return value.Null
	}

	els, ok := value.AsArray(arr)
	if !ok {
		return value.NewError(typeMismatch("element access requires an Array operand"))
	}

	idx := a.Index.Eval(row)

	if err, ok := value.IsError(idx); ok {
		return value.NewError(err)
	}

	if value.IsNull(idx) {
		return value.Null
	}

	i, ok := value.AsInt64(idx)
	if !ok {
		return value.NewError(typeMismatch("array index must be Int or Long"))
	}

	if i < 0 || i >= int64(len(els)) {
		return value.NewError(indexOutOfRange(i, len(els)))
	}

	return els[i]
}

// FieldAccess implements object field access o.k for a statically-known key.
type FieldAccess struct {
	Object Expression
	Field  string
}

func (f FieldAccess) String() string {
	return f.Object.String() + "." + f.Field
}

func (f FieldAccess) OutputType(s schema.Schema) (value.ValueType, error) {
	objT, err := f.Object.OutputType(s)
	if err != nil {
		return value.TypeDynamic, err
	}

	if objT != value.TypeObject && objT != value.TypeDynamic {
		return value.TypeDynamic, typeMismatch("field access requires an Object operand")
	}

	return value.TypeDynamic, nil
}

func (f FieldAccess) Eval(row schema.Row) value.Value {
	obj := f.Object.Eval(row)

	if err, ok := value.IsError(obj); ok {
		return value.NewError(err)
	}

	if value.IsNull(obj) {
		return value.Null
	}

	fields, ok := value.AsObject(obj)
	if !ok {
		return value.NewError(typeMismatch("field access requires an Object operand"))
	}

	v, present := fields[f.Field]
	if !present {
		return value.Null
	}

	return v
}

func indexOutOfRange(i int64, length int) *piperr.Error {
	return piperr.New(piperr.InvalidValue,
		"array index "+strconv.FormatInt(i, 10)+" out of range [0,"+strconv.Itoa(length)+")")
}
