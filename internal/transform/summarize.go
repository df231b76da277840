package transform

import (
	"context"

	"github.com/correlator-io/featurepipe/internal/aggregation"
	"github.com/correlator-io/featurepipe/internal/expr"
	"github.com/correlator-io/featurepipe/internal/piperr"
	"github.com/correlator-io/featurepipe/internal/schema"
	"github.com/correlator-io/featurepipe/internal/value"
)

// GroupByField is one group-key column of a Summarize transformation.
type GroupByField struct {
	Name string
	Expr expr.Expression
}

// AggField is one aggregation-result column of a Summarize transformation.
type AggField struct {
	Name string
	Agg  aggregation.Aggregation // template; cloned per group
	Args []expr.Expression
}

// Summarize groups input rows by the tuple of group-by expression values and
// accumulates each aggregation per group, emitting one row per group in
// first-seen order once the input is exhausted. It is a pipeline barrier:
// no row is emitted until the entire input has been consumed. The output
// schema is the group-by columns followed by the aggregation columns.
type Summarize struct {
	GroupBy []GroupByField
	Aggs    []AggField
}

func (s Summarize) Stage() string { return "summarize" }

func (s Summarize) OutputSchema(input schema.Schema) (schema.Schema, error) {
	out := make(schema.Schema, 0, len(s.GroupBy)+len(s.Aggs))
	seen := make(map[string]bool, len(s.GroupBy)+len(s.Aggs))

	for _, g := range s.GroupBy {
		if seen[g.Name] {
			return nil, piperr.New(piperr.ColumnAlreadyExists, "duplicate group-by column: "+g.Name)
		}

		seen[g.Name] = true

		t, err := g.Expr.OutputType(input)
		if err != nil {
			return nil, err
		}

		out = append(out, schema.Column{Name: g.Name, Type: t})
	}

	for _, a := range s.Aggs {
		if seen[a.Name] {
			return nil, piperr.New(piperr.ColumnAlreadyExists, "duplicate aggregation column: "+a.Name)
		}

		seen[a.Name] = true

		argTypes := make([]value.ValueType, len(a.Args))

		for i, arg := range a.Args {
			t, err := arg.OutputType(input)
			if err != nil {
				return nil, err
			}

			argTypes[i] = t
		}

		t, err := a.Agg.OutputType(argTypes)
		if err != nil {
			return nil, err
		}

		out = append(out, schema.Column{Name: a.Name, Type: t})
	}

	return out, nil
}

func (s Summarize) Transform(input schema.DataSet, collector *schema.ErrorCollector) schema.DataSet {
	out, err := s.OutputSchema(input.Schema())
	if err != nil {
		out = schema.Schema{}
	}

	return &summarizeDataSet{baseDataSet: baseDataSet{out}, src: input, groupBy: s.GroupBy, aggFlds: s.Aggs}
}

func (s Summarize) Dump() map[string]interface{} {
	groups := make([]string, len(s.GroupBy))
	for i, g := range s.GroupBy {
		groups[i] = g.Name
	}

	aggs := make([]string, len(s.Aggs))
	for i, a := range s.Aggs {
		aggs[i] = a.Name + "=" + a.Agg.Name()
	}

	return map[string]interface{}{"kind": "summarize", "by": groups, "aggregations": aggs}
}

type groupState struct {
	keyValues []value.Value
	aggs      []aggregation.Aggregation
}

type summarizeDataSet struct {
	baseDataSet
	src      schema.DataSet
	groupBy  []GroupByField
	aggFlds  []AggField
	groups   []groupState
	computed bool
	emitIdx  int
}

func (d *summarizeDataSet) materialize(ctx context.Context) ([]groupState, error) {
	groups := make(map[string]*groupState)
	var order []string

	for {
		if err := checkCtx(ctx); err != nil {
			return nil, err
		}

		row, ok, err := d.src.NextRow(ctx)
		if err != nil {
			return nil, err
		}

		if !ok {
			break
		}

		keyValues := make([]value.Value, len(d.groupBy))
		keyStr := ""

		for i, g := range d.groupBy {
			v := g.Expr.Eval(row)
			keyValues[i] = v
			keyStr += "\x1f" + value.KeyString(v)
		}

		g, exists := groups[keyStr]
		if !exists {
			g = &groupState{keyValues: keyValues, aggs: make([]aggregation.Aggregation, len(d.aggFlds))}

			for i, a := range d.aggFlds {
				g.aggs[i] = a.Agg.Clone()
			}

			groups[keyStr] = g
			order = append(order, keyStr)
		}

		for i, a := range d.aggFlds {
			args := make([]value.Value, len(a.Args))
			for j, argExpr := range a.Args {
				args[j] = argExpr.Eval(row)
			}

			_ = g.aggs[i].Feed(args)
		}
	}

	if len(order) == 0 && len(d.groupBy) == 0 {
		// §8 boundary: zero group keys, zero input rows still yields one row
		// of aggregation-identity values.
		g := &groupState{aggs: make([]aggregation.Aggregation, len(d.aggFlds))}
		for i, a := range d.aggFlds {
			g.aggs[i] = a.Agg.Clone()
		}

		return []groupState{*g}, nil
	}

	out := make([]groupState, len(order))
	for i, k := range order {
		out[i] = *groups[k]
	}

	return out, nil
}

func (d *summarizeDataSet) NextRow(ctx context.Context) (schema.Row, bool, error) {
	if !d.computed {
		groups, err := d.materialize(ctx)
		if err != nil {
			return nil, false, err
		}

		d.groups = groups
		d.computed = true
	}

	if d.emitIdx >= len(d.groups) {
		return nil, false, nil
	}

	g := d.groups[d.emitIdx]
	d.emitIdx++

	row := make(schema.Row, 0, len(d.groupBy)+len(d.aggFlds))
	row = append(row, g.keyValues...)

	for _, a := range g.aggs {
		row = append(row, a.Result())
	}

	return row, true, nil
}
