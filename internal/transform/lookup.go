package transform

import (
	"context"

	"github.com/correlator-io/featurepipe/internal/expr"
	"github.com/correlator-io/featurepipe/internal/lookup"
	"github.com/correlator-io/featurepipe/internal/piperr"
	"github.com/correlator-io/featurepipe/internal/schema"
	"github.com/correlator-io/featurepipe/internal/value"
)

// JoinKind selects how a Lookup transformation reconciles an input row
// against its matches.
type JoinKind int

const (
	// LeftOuter keeps every input row, padding absent matches with Null for
	// each looked-up field.
	LeftOuter JoinKind = iota
	// Inner drops input rows with no match.
	Inner
	// LeftSemi emits the input row, unmodified, once per input row that has
	// at least one match; no fields are appended.
	LeftSemi
	// LeftAnti emits the input row, unmodified, for input rows with no
	// match at all.
	LeftAnti
	// Cross fans an input row out into one output row per match, appending
	// fields each time; zero matches yields zero output rows.
	Cross
)

// Lookup resolves one or more key expressions per row against a named
// lookup.Source and joins in the requested fields, per the chosen JoinKind.
// The source itself is resolved by name at compile time (see internal/dsl);
// by the time a Lookup reaches the runtime it already holds the concrete
// Source.
type Lookup struct {
	SourceName string
	Source     lookup.Source
	Keys       []expr.Expression
	Fields     []string
	As         []string // output names for Fields; defaults to Fields when empty
	Join       JoinKind
}

func (l Lookup) Stage() string { return "lookup" }

func (l Lookup) outNames() []string {
	if len(l.As) == len(l.Fields) {
		return l.As
	}

	return l.Fields
}

func (l Lookup) appendsFields() bool {
	return l.Join == LeftOuter || l.Join == Inner || l.Join == Cross
}

func (l Lookup) OutputSchema(input schema.Schema) (schema.Schema, error) {
	if l.Source == nil {
		return nil, piperr.New(piperr.LookupSourceNotFound, "lookup source not resolved: "+l.SourceName)
	}

	out := make(schema.Schema, len(input), len(input)+len(l.Fields))
	copy(out, input)

	if !l.appendsFields() {
		return out, nil
	}

	names := l.outNames()
	seen := make(map[string]bool, len(input))

	for _, c := range input {
		seen[c.Name] = true
	}

	for _, name := range names {
		if seen[name] {
			return nil, piperr.New(piperr.ColumnAlreadyExists, "lookup: column already exists: "+name)
		}

		seen[name] = true

		out = append(out, schema.Column{Name: name, Type: value.TypeDynamic})
	}

	return out, nil
}

func (l Lookup) Transform(input schema.DataSet, collector *schema.ErrorCollector) schema.DataSet {
	out, err := l.OutputSchema(input.Schema())
	if err != nil {
		out = schema.Schema{}
	}

	return &lookupDataSet{baseDataSet: baseDataSet{out}, src: input, def: l, collector: collector}
}

func (l Lookup) Dump() map[string]interface{} {
	return map[string]interface{}{
		"kind":   "lookup",
		"source": l.SourceName,
		"fields": l.Fields,
		"join":   l.Join.String(),
	}
}

func (k JoinKind) String() string {
	switch k {
	case LeftOuter:
		return "LeftOuter"
	case Inner:
		return "Inner"
	case LeftSemi:
		return "LeftSemi"
	case LeftAnti:
		return "LeftAnti"
	case Cross:
		return "Cross"
	default:
		return "Unknown"
	}
}

// lookupDataSet suspends on every NextRow call that needs a fresh source
// round-trip; buffered holds fan-out rows awaiting emission for the current
// input row (Cross/LeftOuter/Inner may yield more than one output row per
// input row).
type lookupDataSet struct {
	baseDataSet
	src       schema.DataSet
	def       Lookup
	collector *schema.ErrorCollector
	rowIndex  int
	buffered  []schema.Row
	bufIdx    int
}

func (d *lookupDataSet) key(row schema.Row) value.Value {
	if len(d.def.Keys) == 1 {
		return d.def.Keys[0].Eval(row)
	}

	parts := make([]value.Value, len(d.def.Keys))
	for i, k := range d.def.Keys {
		parts[i] = k.Eval(row)
	}

	return value.NewArray(parts)
}

func (d *lookupDataSet) NextRow(ctx context.Context) (schema.Row, bool, error) {
	for {
		if d.bufIdx < len(d.buffered) {
			row := d.buffered[d.bufIdx]
			d.bufIdx++

			return row, true, nil
		}

		if err := checkCtx(ctx); err != nil {
			return nil, false, err
		}

		row, ok, err := d.src.NextRow(ctx)
		if err != nil || !ok {
			return nil, ok, err
		}

		idx := d.rowIndex
		d.rowIndex++

		matches, err := d.def.Source.Join(ctx, d.key(row), d.def.Fields)
		if err != nil {
			return nil, false, piperr.Wrap(piperr.ExternalError, err)
		}

		d.buffered, d.bufIdx = d.emit(row, idx, matches), 0
	}
}

func (d *lookupDataSet) emit(row schema.Row, rowIndex int, matches [][]value.Value) []schema.Row {
	switch d.def.Join {
	case LeftSemi:
		if len(matches) == 0 {
			return nil
		}

		return []schema.Row{row}

	case LeftAnti:
		if len(matches) > 0 {
			return nil
		}

		return []schema.Row{row}

	case Inner, Cross:
		if len(matches) == 0 {
			return nil
		}

		return d.appendMatches(row, rowIndex, matches)

	default: // LeftOuter
		if len(matches) == 0 {
			matches = [][]value.Value{padNullMatch(len(d.def.Fields))}
		}

		return d.appendMatches(row, rowIndex, matches)
	}
}

func (d *lookupDataSet) appendMatches(row schema.Row, rowIndex int, matches [][]value.Value) []schema.Row {
	out := make([]schema.Row, len(matches))

	for i, m := range matches {
		joined := make(schema.Row, 0, len(row)+len(m))
		joined = append(joined, row...)
		joined = append(joined, m...)

		for j, cell := range m {
			if perr, isErr := value.IsError(cell); isErr {
				d.collector.Record(rowIndex, d.def.outNames()[j], "lookup", perr)
			}
		}

		out[i] = joined
	}

	return out
}

func padNullMatch(n int) []value.Value {
	out := make([]value.Value, n)
	for i := range out {
		out[i] = value.Null
	}

	return out
}
