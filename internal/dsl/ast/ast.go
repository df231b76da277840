// Package ast defines the untyped parse tree the parser produces: each node
// is a builder that, given a threaded-through schema and a BuildContext,
// resolves names, type-checks, and produces the corresponding compiled
// internal/expr or internal/transform value. This mirrors the
// parse-tree-of-builders shape used for column/function/aggregation/
// lookup-source resolution during the Resolve phase of compilation.
package ast

import (
	"strconv"

	"github.com/correlator-io/featurepipe/internal/dsl/token"
	"github.com/correlator-io/featurepipe/internal/expr"
	"github.com/correlator-io/featurepipe/internal/piperr"
	"github.com/correlator-io/featurepipe/internal/pipeline"
	"github.com/correlator-io/featurepipe/internal/schema"
	"github.com/correlator-io/featurepipe/internal/transform"
	"github.com/correlator-io/featurepipe/internal/value"
)

// ExprNode resolves to a compiled expr.Expression against a threaded
// schema and the registries in ctx.
type ExprNode interface {
	Build(s schema.Schema, ctx *pipeline.BuildContext) (expr.Expression, error)
}

// TransformNode resolves to a compiled transform.Transformation and returns
// the schema it leaves downstream nodes to thread through.
type TransformNode interface {
	Build(s schema.Schema, ctx *pipeline.BuildContext) (transform.Transformation, schema.Schema, error)
}

// LiteralNode is a parsed compile-time constant.
type LiteralNode struct {
	Value value.Value
}

func (n LiteralNode) Build(schema.Schema, *pipeline.BuildContext) (expr.Expression, error) {
	return expr.Literal{Value: n.Value}, nil
}

// ColumnNode references a column by name, resolved to a positional index.
type ColumnNode struct {
	Name string
}

func (n ColumnNode) Build(s schema.Schema, _ *pipeline.BuildContext) (expr.Expression, error) {
	idx := s.IndexOf(n.Name)
	if idx < 0 {
		return nil, piperr.New(piperr.ColumnNotFound, "unknown column: "+n.Name)
	}

	return expr.ColumnRef{Index: idx, Name: n.Name}, nil
}

var binaryOps = map[token.Type]expr.BinaryOperator{
	token.PLUS: expr.OpAdd, token.MINUS: expr.OpSub, token.ASTERISK: expr.OpMul,
	token.SLASH: expr.OpDiv, token.PERCENT: expr.OpMod,
	token.EQ: expr.OpEq, token.NEQ: expr.OpNeq, token.LT: expr.OpLt, token.LTE: expr.OpLte,
	token.GT: expr.OpGt, token.GTE: expr.OpGte, token.AND: expr.OpAnd, token.OR: expr.OpOr,
}

// BinaryNode is a parsed binary operator application.
type BinaryNode struct {
	Op          token.Type
	Left, Right ExprNode
}

func (n BinaryNode) Build(s schema.Schema, ctx *pipeline.BuildContext) (expr.Expression, error) {
	left, err := n.Left.Build(s, ctx)
	if err != nil {
		return nil, err
	}

	right, err := n.Right.Build(s, ctx)
	if err != nil {
		return nil, err
	}

	op, ok := binaryOps[n.Op]
	if !ok {
		return nil, piperr.New(piperr.SyntaxError, "unsupported binary operator: "+n.Op.String())
	}

	b := expr.BinaryOp{Op: op, Left: left, Right: right}
	if _, err := b.OutputType(s); err != nil {
		return nil, err
	}

	return b, nil
}

// UnaryNode is a parsed unary operator application.
type UnaryNode struct {
	Op      token.Type
	Operand ExprNode
}

func (n UnaryNode) Build(s schema.Schema, ctx *pipeline.BuildContext) (expr.Expression, error) {
	operand, err := n.Operand.Build(s, ctx)
	if err != nil {
		return nil, err
	}

	var op expr.UnaryOperator

	switch n.Op {
	case token.MINUS:
		op = expr.OpNeg
	case token.PLUS:
		op = expr.OpPos
	case token.NOT, token.BANG:
		op = expr.OpNot
	default:
		return nil, piperr.New(piperr.SyntaxError, "unsupported unary operator: "+n.Op.String())
	}

	u := expr.UnaryOp{Op: op, Operand: operand}
	if _, err := u.OutputType(s); err != nil {
		return nil, err
	}

	return u, nil
}

// CallNode is a parsed function call f(args...).
type CallNode struct {
	Name string
	Args []ExprNode
}

func (n CallNode) Build(s schema.Schema, ctx *pipeline.BuildContext) (expr.Expression, error) {
	fn, ok := ctx.Functions.Lookup(n.Name)
	if !ok {
		return nil, piperr.New(piperr.UnknownFunction, "unknown function: "+n.Name)
	}

	args := make([]expr.Expression, len(n.Args))

	for i, a := range n.Args {
		built, err := a.Build(s, ctx)
		if err != nil {
			return nil, err
		}

		args[i] = built
	}

	call := expr.FunctionCall{Name: n.Name, Args: args, Fn: fn}
	if _, err := call.OutputType(s); err != nil {
		return nil, err
	}

	return call, nil
}

// IndexNode is a parsed array element access expr[index].
type IndexNode struct {
	Array ExprNode
	Index ExprNode
}

func (n IndexNode) Build(s schema.Schema, ctx *pipeline.BuildContext) (expr.Expression, error) {
	arr, err := n.Array.Build(s, ctx)
	if err != nil {
		return nil, err
	}

	idx, err := n.Index.Build(s, ctx)
	if err != nil {
		return nil, err
	}

	access := expr.IndexAccess{Array: arr, Index: idx}
	if _, err := access.OutputType(s); err != nil {
		return nil, err
	}

	return access, nil
}

// FieldNode is a parsed object field access expr.field.
type FieldNode struct {
	Object ExprNode
	Field  string
}

func (n FieldNode) Build(s schema.Schema, ctx *pipeline.BuildContext) (expr.Expression, error) {
	obj, err := n.Object.Build(s, ctx)
	if err != nil {
		return nil, err
	}

	access := expr.FieldAccess{Object: obj, Field: n.Field}
	if _, err := access.OutputType(s); err != nil {
		return nil, err
	}

	return access, nil
}

// ArrayLiteralNode is a parsed `[e1, e2, ...]` array literal.
type ArrayLiteralNode struct {
	Elements []ExprNode
}

func (n ArrayLiteralNode) Build(s schema.Schema, ctx *pipeline.BuildContext) (expr.Expression, error) {
	els := make([]expr.Expression, len(n.Elements))

	for i, e := range n.Elements {
		built, err := e.Build(s, ctx)
		if err != nil {
			return nil, err
		}

		els[i] = built
	}

	return expr.ArrayLiteral{Elements: els}, nil
}

// ColumnDecl is one `name: type` pair of a pipeline's declared input schema.
type ColumnDecl struct {
	Name string
	Type string
}

var typeNames = map[string]value.ValueType{
	"Null": value.TypeNull, "Bool": value.TypeBool, "Int": value.TypeInt,
	"Long": value.TypeLong, "Float": value.TypeFloat, "Double": value.TypeDouble,
	"String": value.TypeString, "DateTime": value.TypeDateTime, "Array": value.TypeArray,
	"Object": value.TypeObject, "Error": value.TypeError, "Dynamic": value.TypeDynamic,
}

// resolveTypeName maps a DSL type keyword to its ValueType, or an error
// naming the offending token.
func resolveTypeName(name string) (value.ValueType, error) {
	t, ok := typeNames[name]
	if !ok {
		return value.TypeDynamic, piperr.New(piperr.SyntaxError, "unknown type name: "+name)
	}

	return t, nil
}

// PipelineNode is the parsed top-level declaration
// `name(input_schema) | transformation | ... ;`.
type PipelineNode struct {
	Name        string
	InputSchema []ColumnDecl
	Transforms  []TransformNode
}

// Build resolves the pipeline's declared input schema and threads it
// through every transformation builder, producing a frozen *pipeline.Pipeline.
func (n PipelineNode) Build(ctx *pipeline.BuildContext) (*pipeline.Pipeline, error) {
	input := make(schema.Schema, len(n.InputSchema))

	seen := make(map[string]bool, len(n.InputSchema))

	for i, c := range n.InputSchema {
		if seen[c.Name] {
			return nil, piperr.New(piperr.ColumnAlreadyExists, "duplicate input column: "+c.Name)
		}

		seen[c.Name] = true

		t, err := resolveTypeName(c.Type)
		if err != nil {
			return nil, err
		}

		input[i] = schema.Column{Name: c.Name, Type: t}
	}

	current := input
	transforms := make([]transform.Transformation, 0, len(n.Transforms))

	for _, tn := range n.Transforms {
		t, next, err := tn.Build(current, ctx)
		if err != nil {
			return nil, err
		}

		transforms = append(transforms, t)
		current = next
	}

	return &pipeline.Pipeline{
		Name:            n.Name,
		InputSchema:     input,
		Transformations: transforms,
		OutputSchema:    current,
	}, nil
}

// ProjectFieldNode is one `name: expr` entry of a Project transformation.
type ProjectFieldNode struct {
	Name string
	Expr ExprNode
}

// ProjectNode parses Project(name: expr, ...).
type ProjectNode struct {
	Fields []ProjectFieldNode
}

func (n ProjectNode) Build(s schema.Schema, ctx *pipeline.BuildContext) (transform.Transformation, schema.Schema, error) {
	fields := make([]transform.ProjectField, len(n.Fields))

	for i, f := range n.Fields {
		built, err := f.Expr.Build(s, ctx)
		if err != nil {
			return nil, nil, err
		}

		fields[i] = transform.ProjectField{Name: f.Name, Expr: built}
	}

	t := transform.Project{Fields: fields}

	out, err := t.OutputSchema(s)
	if err != nil {
		return nil, nil, err
	}

	return t, out, nil
}

// ProjectRenameNode parses ProjectRename(from: to, ...).
type ProjectRenameNode struct {
	Renames map[string]string
}

func (n ProjectRenameNode) Build(s schema.Schema, _ *pipeline.BuildContext) (transform.Transformation, schema.Schema, error) {
	t := transform.ProjectRename{Renames: n.Renames}

	out, err := t.OutputSchema(s)
	if err != nil {
		return nil, nil, err
	}

	return t, out, nil
}

// ProjectKeepNode parses ProjectKeep(name, ...).
type ProjectKeepNode struct {
	Names []string
}

func (n ProjectKeepNode) Build(s schema.Schema, _ *pipeline.BuildContext) (transform.Transformation, schema.Schema, error) {
	t := transform.ProjectKeep{Names: n.Names}

	out, err := t.OutputSchema(s)
	if err != nil {
		return nil, nil, err
	}

	return t, out, nil
}

// ProjectRemoveNode parses ProjectRemove(name, ...).
type ProjectRemoveNode struct {
	Names []string
}

func (n ProjectRemoveNode) Build(s schema.Schema, _ *pipeline.BuildContext) (transform.Transformation, schema.Schema, error) {
	t := transform.ProjectRemove{Names: n.Names}

	out, err := t.OutputSchema(s)
	if err != nil {
		return nil, nil, err
	}

	return t, out, nil
}

// WhereNode parses Where(predicate).
type WhereNode struct {
	Predicate ExprNode
}

func (n WhereNode) Build(s schema.Schema, ctx *pipeline.BuildContext) (transform.Transformation, schema.Schema, error) {
	pred, err := n.Predicate.Build(s, ctx)
	if err != nil {
		return nil, nil, err
	}

	return transform.Where{Predicate: pred}, s, nil
}

// TakeNode parses Take(n).
type TakeNode struct {
	N int
}

func (n TakeNode) Build(s schema.Schema, _ *pipeline.BuildContext) (transform.Transformation, schema.Schema, error) {
	return transform.Take{N: n.N}, s, nil
}

// SortKeyNode is one (expr, order, nullPos) entry of a Top transformation.
type SortKeyNode struct {
	Expr    ExprNode
	Order   token.Type
	NullPos token.Type
}

// TopNode parses Top(n, sort_keys).
type TopNode struct {
	N    int
	Keys []SortKeyNode
}

func (n TopNode) Build(s schema.Schema, ctx *pipeline.BuildContext) (transform.Transformation, schema.Schema, error) {
	keys := make([]transform.SortKey, len(n.Keys))

	for i, k := range n.Keys {
		built, err := k.Expr.Build(s, ctx)
		if err != nil {
			return nil, nil, err
		}

		order := transform.Asc
		if k.Order == token.DESC {
			order = transform.Desc
		}

		nullPos := transform.NullLast
		if k.NullPos == token.FIRST {
			nullPos = transform.NullFirst
		}

		keys[i] = transform.SortKey{Expr: built, Order: order, NullPos: nullPos}
	}

	return transform.Top{N: n.N, Keys: keys}, s, nil
}

// ExplodeNode parses Explode(column).
type ExplodeNode struct {
	Column string
}

func (n ExplodeNode) Build(s schema.Schema, _ *pipeline.BuildContext) (transform.Transformation, schema.Schema, error) {
	t := transform.Explode{Column: n.Column}

	out, err := t.OutputSchema(s)
	if err != nil {
		return nil, nil, err
	}

	return t, out, nil
}

// DistinctNode parses Distinct(keys...).
type DistinctNode struct {
	Keys []ExprNode
}

func (n DistinctNode) Build(s schema.Schema, ctx *pipeline.BuildContext) (transform.Transformation, schema.Schema, error) {
	keys := make([]expr.Expression, len(n.Keys))

	for i, k := range n.Keys {
		built, err := k.Build(s, ctx)
		if err != nil {
			return nil, nil, err
		}

		keys[i] = built
	}

	return transform.Distinct{Keys: keys}, s, nil
}

// GroupByNode is one `name: expr` entry of Summarize's group_by list.
type GroupByNode struct {
	Name string
	Expr ExprNode
}

// AggNode is one `name: agg_name(args...)` entry of Summarize's
// aggregation list.
type AggNode struct {
	Name    string
	AggName string
	Args    []ExprNode
}

// SummarizeNode parses Summarize(group_by, aggregations).
type SummarizeNode struct {
	GroupBy []GroupByNode
	Aggs    []AggNode
}

func (n SummarizeNode) Build(s schema.Schema, ctx *pipeline.BuildContext) (transform.Transformation, schema.Schema, error) {
	groupBy := make([]transform.GroupByField, len(n.GroupBy))

	for i, g := range n.GroupBy {
		built, err := g.Expr.Build(s, ctx)
		if err != nil {
			return nil, nil, err
		}

		groupBy[i] = transform.GroupByField{Name: g.Name, Expr: built}
	}

	aggs := make([]transform.AggField, len(n.Aggs))

	for i, a := range n.Aggs {
		template, ok := ctx.Aggregations.Lookup(a.AggName)
		if !ok {
			return nil, nil, piperr.New(piperr.UnknownOperator, "unknown aggregation: "+a.AggName)
		}

		args := make([]expr.Expression, len(a.Args))

		for j, arg := range a.Args {
			built, err := arg.Build(s, ctx)
			if err != nil {
				return nil, nil, err
			}

			args[j] = built
		}

		aggs[i] = transform.AggField{Name: a.Name, Agg: template, Args: args}
	}

	t := transform.Summarize{GroupBy: groupBy, Aggs: aggs}

	out, err := t.OutputSchema(s)
	if err != nil {
		return nil, nil, err
	}

	return t, out, nil
}

var joinKinds = map[token.Type]transform.JoinKind{
	token.LEFT_OUTER: transform.LeftOuter, token.INNER: transform.Inner,
	token.LEFT_SEMI: transform.LeftSemi, token.LEFT_ANTI: transform.LeftAnti,
	token.CROSS: transform.Cross,
}

// LookupNode parses Lookup(source_name, keys, fields, join_kind).
type LookupNode struct {
	SourceName string
	Keys       []ExprNode
	Fields     []string
	As         []string
	Join       token.Type
}

func (n LookupNode) Build(s schema.Schema, ctx *pipeline.BuildContext) (transform.Transformation, schema.Schema, error) {
	src, err := ctx.ResolveLookupSource(n.SourceName)
	if err != nil {
		return nil, nil, err
	}

	keys := make([]expr.Expression, len(n.Keys))

	for i, k := range n.Keys {
		built, err := k.Build(s, ctx)
		if err != nil {
			return nil, nil, err
		}

		keys[i] = built
	}

	join, ok := joinKinds[n.Join]
	if !ok {
		join = transform.LeftOuter
	}

	t := transform.Lookup{
		SourceName: n.SourceName, Source: src, Keys: keys, Fields: n.Fields, As: n.As, Join: join,
	}

	out, err := t.OutputSchema(s)
	if err != nil {
		return nil, nil, err
	}

	return t, out, nil
}

// IgnoreErrorNode parses IgnoreError().
type IgnoreErrorNode struct{}

func (IgnoreErrorNode) Build(s schema.Schema, _ *pipeline.BuildContext) (transform.Transformation, schema.Schema, error) {
	return transform.IgnoreError{}, s, nil
}

// ParseIntLiteral converts a scanned INT literal into an Int64-backed Long
// value; the DSL has no integer-width suffix, so literals widen to Long by
// default rather than risk silent Int32 overflow.
func ParseIntLiteral(lit string) (value.Value, error) {
	n, err := strconv.ParseInt(lit, 10, 64)
	if err != nil {
		return nil, piperr.Wrap(piperr.SyntaxError, err)
	}

	return value.NewLong(n), nil
}

// ParseFloatLiteral converts a scanned FLOAT literal into a Double value.
func ParseFloatLiteral(lit string) (value.Value, error) {
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return nil, piperr.Wrap(piperr.SyntaxError, err)
	}

	return value.NewDouble(f), nil
}
