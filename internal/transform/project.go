package transform

import (
	"context"

	"github.com/correlator-io/featurepipe/internal/expr"
	"github.com/correlator-io/featurepipe/internal/piperr"
	"github.com/correlator-io/featurepipe/internal/schema"
)

// ProjectField is one output column of a Project transformation.
type ProjectField struct {
	Name string
	Expr expr.Expression
}

// Project computes a fresh row for every input row from a list of named
// expressions. One input row always yields exactly one output row.
type Project struct {
	Fields []ProjectField
}

func (p Project) Stage() string { return "project" }

func (p Project) OutputSchema(input schema.Schema) (schema.Schema, error) {
	out := make(schema.Schema, 0, len(p.Fields))
	seen := make(map[string]bool, len(p.Fields))

	for _, f := range p.Fields {
		if seen[f.Name] {
			return nil, piperr.New(piperr.ColumnAlreadyExists, "duplicate projected column: "+f.Name)
		}

		seen[f.Name] = true

		t, err := f.Expr.OutputType(input)
		if err != nil {
			return nil, err
		}

		out = append(out, schema.Column{Name: f.Name, Type: t})
	}

	return out, nil
}

func (p Project) Transform(input schema.DataSet, collector *schema.ErrorCollector) schema.DataSet {
	out, err := p.OutputSchema(input.Schema())
	if err != nil {
		out = schema.Schema{}
	}

	return &projectDataSet{baseDataSet{out}, input, p.Fields}
}

func (p Project) Dump() map[string]interface{} {
	fields := make([]map[string]string, len(p.Fields))
	for i, f := range p.Fields {
		fields[i] = map[string]string{"name": f.Name, "expr": f.Expr.String()}
	}

	return map[string]interface{}{"kind": "project", "fields": fields}
}

type projectDataSet struct {
	baseDataSet
	src    schema.DataSet
	fields []ProjectField
}

func (d *projectDataSet) NextRow(ctx context.Context) (schema.Row, bool, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, false, err
	}

	row, ok, err := d.src.NextRow(ctx)
	if err != nil || !ok {
		return nil, ok, err
	}

	out := make(schema.Row, len(d.fields))
	for i, f := range d.fields {
		out[i] = f.Expr.Eval(row)
	}

	return out, true, nil
}

// ProjectRename renames existing columns without touching row data.
type ProjectRename struct {
	Renames map[string]string // existing name -> new name
}

func (p ProjectRename) Stage() string { return "project-rename" }

func (p ProjectRename) OutputSchema(input schema.Schema) (schema.Schema, error) {
	out := make(schema.Schema, len(input))
	copy(out, input)

	seen := make(map[string]bool, len(input))
	for _, c := range input {
		seen[c.Name] = true
	}

	for from, to := range p.Renames {
		idx := input.IndexOf(from)
		if idx < 0 {
			return nil, piperr.New(piperr.ColumnNotFound, "rename: unknown source column: "+from)
		}

		if seen[to] && to != from {
			return nil, piperr.New(piperr.ColumnAlreadyExists, "rename: target column already exists: "+to)
		}

		delete(seen, from)
		seen[to] = true
		out[idx].Name = to
	}

	if dup := firstDuplicate(out); dup != "" {
		return nil, piperr.New(piperr.ColumnAlreadyExists, "rename produces duplicate column: "+dup)
	}

	return out, nil
}

func (p ProjectRename) Transform(input schema.DataSet, collector *schema.ErrorCollector) schema.DataSet {
	out, err := p.OutputSchema(input.Schema())
	if err != nil {
		out = input.Schema()
	}

	return &passthroughDataSet{baseDataSet{out}, input}
}

func (p ProjectRename) Dump() map[string]interface{} {
	return map[string]interface{}{"kind": "project-rename", "renames": p.Renames}
}

func firstDuplicate(s schema.Schema) string {
	seen := make(map[string]bool, len(s))
	for _, c := range s {
		if seen[c.Name] {
			return c.Name
		}

		seen[c.Name] = true
	}

	return ""
}

// passthroughDataSet re-tags rows from src against a different schema
// without touching their contents; used by ProjectRename.
type passthroughDataSet struct {
	baseDataSet
	src schema.DataSet
}

func (d *passthroughDataSet) NextRow(ctx context.Context) (schema.Row, bool, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, false, err
	}

	return d.src.NextRow(ctx)
}

// ProjectKeep retains only the named columns, in the order they are listed.
type ProjectKeep struct {
	Names []string
}

func (p ProjectKeep) Stage() string { return "project-keep" }

func (p ProjectKeep) indices(input schema.Schema) ([]int, schema.Schema, error) {
	idx := make([]int, len(p.Names))
	out := make(schema.Schema, len(p.Names))

	for i, name := range p.Names {
		pos := input.IndexOf(name)
		if pos < 0 {
			return nil, nil, piperr.New(piperr.ColumnNotFound, "project-keep: unknown column: "+name)
		}

		idx[i] = pos
		out[i] = input[pos]
	}

	return idx, out, nil
}

func (p ProjectKeep) OutputSchema(input schema.Schema) (schema.Schema, error) {
	_, out, err := p.indices(input)

	return out, err
}

func (p ProjectKeep) Transform(input schema.DataSet, collector *schema.ErrorCollector) schema.DataSet {
	idx, out, err := p.indices(input.Schema())
	if err != nil {
		idx, out = nil, schema.Schema{}
	}

	return &selectColumnsDataSet{baseDataSet{out}, input, idx}
}

func (p ProjectKeep) Dump() map[string]interface{} {
	return map[string]interface{}{"kind": "project-keep", "names": p.Names}
}

// ProjectRemove retains every column except the named ones, preserving the
// input schema's original order.
type ProjectRemove struct {
	Names []string
}

func (p ProjectRemove) Stage() string { return "project-remove" }

func (p ProjectRemove) indices(input schema.Schema) ([]int, schema.Schema, error) {
	remove := make(map[string]bool, len(p.Names))

	for _, name := range p.Names {
		if !input.Has(name) {
			return nil, nil, piperr.New(piperr.ColumnNotFound, "project-remove: unknown column: "+name)
		}

		remove[name] = true
	}

	var idx []int

	out := make(schema.Schema, 0, len(input))

	for i, c := range input {
		if remove[c.Name] {
			continue
		}

		idx = append(idx, i)
		out = append(out, c)
	}

	return idx, out, nil
}

func (p ProjectRemove) OutputSchema(input schema.Schema) (schema.Schema, error) {
	_, out, err := p.indices(input)

	return out, err
}

func (p ProjectRemove) Transform(input schema.DataSet, collector *schema.ErrorCollector) schema.DataSet {
	idx, out, err := p.indices(input.Schema())
	if err != nil {
		idx, out = nil, schema.Schema{}
	}

	return &selectColumnsDataSet{baseDataSet{out}, input, idx}
}

func (p ProjectRemove) Dump() map[string]interface{} {
	return map[string]interface{}{"kind": "project-remove", "names": p.Names}
}

// selectColumnsDataSet projects each input row onto a fixed set of positional
// indices, shared by ProjectKeep and ProjectRemove.
type selectColumnsDataSet struct {
	baseDataSet
	src     schema.DataSet
	indices []int
}

func (d *selectColumnsDataSet) NextRow(ctx context.Context) (schema.Row, bool, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, false, err
	}

	row, ok, err := d.src.NextRow(ctx)
	if err != nil || !ok {
		return nil, ok, err
	}

	out := make(schema.Row, len(d.indices))
	for i, pos := range d.indices {
		out[i] = row[pos]
	}

	return out, true, nil
}
