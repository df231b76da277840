package transform

import (
	"context"
	"testing"

	"github.com/correlator-io/featurepipe/internal/aggregation"
	"github.com/correlator-io/featurepipe/internal/expr"
	"github.com/correlator-io/featurepipe/internal/lookup"
	"github.com/correlator-io/featurepipe/internal/piperr"
	"github.com/correlator-io/featurepipe/internal/schema"
	"github.com/correlator-io/featurepipe/internal/value"
)

func drain(t *testing.T, ds schema.DataSet) []schema.Row {
	t.Helper()

	rows, err := schema.Drain(context.Background(), ds)
	if err != nil {
		t.Fatalf("unexpected stream-fatal error: %v", err)
	}

	return rows
}

// TestProjectionWithCast covers spec.md §8 scenario 1: p(x: int) |
// project y = x * 2 ; on {x: 3} -> {y: 6}.
func TestProjectionWithCast(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	in := schema.Schema{{Name: "x", Type: value.TypeInt}}
	ds := schema.NewSliceDataSet(in, []schema.Row{{value.NewInt(3)}})

	proj := Project{Fields: []ProjectField{
		{Name: "y", Expr: expr.BinaryOp{Op: expr.OpMul, Left: expr.ColumnRef{Index: 0, Name: "x"}, Right: expr.Literal{Value: value.NewInt(2)}}},
	}}

	out, err := proj.OutputSchema(in)
	if err != nil {
		t.Fatalf("unexpected schema error: %v", err)
	}

	if len(out) != 1 || out[0].Name != "y" {
		t.Fatalf("output schema = %v, want single column \"y\"", out)
	}

	rows := drain(t, proj.Transform(ds, nil))
	if len(rows) != 1 || !value.Equal(rows[0][0], value.NewInt(6)) {
		t.Fatalf("rows = %v, want [[Int(6)]]", rows)
	}
}

func TestProjectDuplicateNameIsValidationError(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	in := schema.Schema{{Name: "x", Type: value.TypeInt}}

	proj := Project{Fields: []ProjectField{
		{Name: "y", Expr: expr.ColumnRef{Index: 0, Name: "x"}},
		{Name: "y", Expr: expr.ColumnRef{Index: 0, Name: "x"}},
	}}

	if _, err := proj.OutputSchema(in); err == nil {
		t.Fatalf("expected ValidationError for duplicate projected column")
	}
}

// TestWhereDropsNulls covers spec.md §8 scenario 2.
func TestWhereDropsNulls(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	in := schema.Schema{{Name: "x", Type: value.TypeInt}}
	ds := schema.NewSliceDataSet(in, []schema.Row{
		{value.NewInt(1)}, {value.NewInt(3)}, {value.Null},
	})

	w := Where{Predicate: expr.BinaryOp{
		Op: expr.OpGt, Left: expr.ColumnRef{Index: 0, Name: "x"}, Right: expr.Literal{Value: value.NewInt(2)},
	}}

	rows := drain(t, w.Transform(ds, schema.NewErrorCollector(schema.CollectOff)))
	if len(rows) != 1 || !value.Equal(rows[0][0], value.NewInt(3)) {
		t.Fatalf("rows = %v, want [[Int(3)]]", rows)
	}
}

func TestWhereRecordsErrorAndDropsRow(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	in := schema.Schema{{Name: "x", Type: value.TypeInt}}
	errVal := value.NewError(piperr.New(piperr.InvalidValue, "boom"))
	ds := schema.NewSliceDataSet(in, []schema.Row{{value.NewInt(1)}})

	w := Where{Predicate: expr.Literal{Value: errVal}}

	collector := schema.NewErrorCollector(schema.CollectOnWithRow)
	rows := drain(t, w.Transform(ds, collector))

	if len(rows) != 0 {
		t.Fatalf("expected the row to be dropped, got %v", rows)
	}

	if len(collector.Errors()) != 1 {
		t.Fatalf("expected one recorded row error, got %d", len(collector.Errors()))
	}
}

func TestTakeZeroYieldsEmptyStream(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	in := schema.Schema{{Name: "x", Type: value.TypeInt}}
	ds := schema.NewSliceDataSet(in, []schema.Row{{value.NewInt(1)}, {value.NewInt(2)}})

	rows := drain(t, Take{N: 0}.Transform(ds, nil))
	if len(rows) != 0 {
		t.Fatalf("Take(0) rows = %v, want []", rows)
	}
}

func TestTakeEmitsFirstN(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	in := schema.Schema{{Name: "x", Type: value.TypeInt}}
	ds := schema.NewSliceDataSet(in, []schema.Row{{value.NewInt(1)}, {value.NewInt(2)}, {value.NewInt(3)}})

	rows := drain(t, Take{N: 2}.Transform(ds, nil))
	if len(rows) != 2 || !value.Equal(rows[0][0], value.NewInt(1)) || !value.Equal(rows[1][0], value.NewInt(2)) {
		t.Fatalf("Take(2) rows = %v, want [[1],[2]]", rows)
	}
}

// TestTopKeepsKSmallestDescending covers spec.md §8 scenario 3.
func TestTopKeepsKSmallestDescending(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	in := schema.Schema{{Name: "a", Type: value.TypeInt}}
	ds := schema.NewSliceDataSet(in, []schema.Row{
		{value.NewInt(1)}, {value.NewInt(5)}, {value.NewInt(3)}, {value.NewInt(4)},
	})

	top := Top{N: 2, Keys: []SortKey{{Expr: expr.ColumnRef{Index: 0, Name: "a"}, Order: Desc, NullPos: NullLast}}}

	rows := drain(t, top.Transform(ds, nil))
	if len(rows) != 2 {
		t.Fatalf("Top(2) returned %d rows, want 2", len(rows))
	}

	if !value.Equal(rows[0][0], value.NewInt(5)) || !value.Equal(rows[1][0], value.NewInt(4)) {
		t.Fatalf("rows = %v, want [[5],[4]]", rows)
	}
}

func TestTopZeroYieldsEmpty(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	in := schema.Schema{{Name: "a", Type: value.TypeInt}}
	ds := schema.NewSliceDataSet(in, []schema.Row{{value.NewInt(1)}})

	top := Top{N: 0, Keys: []SortKey{{Expr: expr.ColumnRef{Index: 0, Name: "a"}, Order: Asc}}}

	rows := drain(t, top.Transform(ds, nil))
	if len(rows) != 0 {
		t.Fatalf("Top(0) rows = %v, want []", rows)
	}
}

func TestTopIsStableOnTies(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	in := schema.Schema{{Name: "a", Type: value.TypeInt}, {Name: "tag", Type: value.TypeString}}
	ds := schema.NewSliceDataSet(in, []schema.Row{
		{value.NewInt(1), value.NewString("first")},
		{value.NewInt(1), value.NewString("second")},
	})

	top := Top{N: 2, Keys: []SortKey{{Expr: expr.ColumnRef{Index: 0, Name: "a"}, Order: Asc}}}

	rows := drain(t, top.Transform(ds, nil))
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	if s, _ := value.AsString(rows[0][1]); s != "first" {
		t.Fatalf("stable tie-break should keep input order, got %v first", rows[0])
	}
}

// TestExplodeWithNonArray covers spec.md §8 scenario 4.
func TestExplodeWithNonArray(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	in := schema.Schema{{Name: "xs", Type: value.TypeArray}}

	exploded := schema.NewSliceDataSet(in, []schema.Row{
		{value.NewArray([]value.Value{value.NewInt(1), value.NewInt(2)})},
	})

	ex := Explode{Column: "xs"}
	rows := drain(t, ex.Transform(exploded, schema.NewErrorCollector(schema.CollectOff)))

	if len(rows) != 2 || !value.Equal(rows[0][0], value.NewInt(1)) || !value.Equal(rows[1][0], value.NewInt(2)) {
		t.Fatalf("explode([1,2]) = %v, want [[1],[2]]", rows)
	}

	nonArray := schema.NewSliceDataSet(in, []schema.Row{{value.NewInt(7)}})
	collector := schema.NewErrorCollector(schema.CollectOnWithRow)
	rows2 := drain(t, ex.Transform(nonArray, collector))

	if len(rows2) != 1 {
		t.Fatalf("explode(7) rows = %v, want one row", rows2)
	}

	if _, ok := value.IsError(rows2[0][0]); !ok {
		t.Fatalf("explode(7) cell should be an Error, got %v", rows2[0][0])
	}

	if len(collector.Errors()) != 1 {
		t.Fatalf("expected one recorded row error, got %d", len(collector.Errors()))
	}
}

func TestExplodeNullArrayYieldsZeroRows(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	in := schema.Schema{{Name: "xs", Type: value.TypeArray}}
	ds := schema.NewSliceDataSet(in, []schema.Row{{value.Null}})

	rows := drain(t, Explode{Column: "xs"}.Transform(ds, schema.NewErrorCollector(schema.CollectOff)))
	if len(rows) != 0 {
		t.Fatalf("explode(Null) rows = %v, want []", rows)
	}
}

func TestDistinctDeduplicatesByKey(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	in := schema.Schema{{Name: "k", Type: value.TypeString}}
	ds := schema.NewSliceDataSet(in, []schema.Row{
		{value.NewString("a")}, {value.NewString("b")}, {value.NewString("a")},
	})

	d := Distinct{Keys: []expr.Expression{expr.ColumnRef{Index: 0, Name: "k"}}}

	rows := drain(t, d.Transform(ds, nil))
	if len(rows) != 2 {
		t.Fatalf("distinct rows = %v, want 2 unique keys", rows)
	}
}

func TestDistinctTwoErrorsNeverCollapse(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	in := schema.Schema{{Name: "x", Type: value.TypeInt}}
	errVal := value.NewError(piperr.New(piperr.InvalidValue, "boom"))
	ds := schema.NewSliceDataSet(in, []schema.Row{{errVal}, {errVal}})

	d := Distinct{Keys: []expr.Expression{expr.ColumnRef{Index: 0, Name: "x"}}}

	rows := drain(t, d.Transform(ds, nil))
	if len(rows) != 2 {
		t.Fatalf("two equal Errors should never collapse under Distinct, got %d rows", len(rows))
	}
}

func TestDistinctNullsCollapseToOne(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	in := schema.Schema{{Name: "x", Type: value.TypeInt}}
	ds := schema.NewSliceDataSet(in, []schema.Row{{value.Null}, {value.Null}})

	d := Distinct{Keys: []expr.Expression{expr.ColumnRef{Index: 0, Name: "x"}}}

	rows := drain(t, d.Transform(ds, nil))
	if len(rows) != 1 {
		t.Fatalf("two Nulls should collapse under Distinct, got %d rows", len(rows))
	}
}

// TestSummarizeGroups covers spec.md §8 scenario 5.
func TestSummarizeGroups(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	in := schema.Schema{{Name: "k", Type: value.TypeString}, {Name: "v", Type: value.TypeInt}}
	ds := schema.NewSliceDataSet(in, []schema.Row{
		{value.NewString("a"), value.NewInt(1)},
		{value.NewString("b"), value.NewInt(2)},
		{value.NewString("a"), value.NewInt(3)},
	})

	sumTemplate, _ := aggregation.NewBuiltinRegistry().Lookup("sum")

	s := Summarize{
		GroupBy: []GroupByField{{Name: "k", Expr: expr.ColumnRef{Index: 0, Name: "k"}}},
		Aggs: []AggField{
			{Name: "s", Agg: sumTemplate, Args: []expr.Expression{expr.ColumnRef{Index: 1, Name: "v"}}},
		},
	}

	rows := drain(t, s.Transform(ds, nil))
	if len(rows) != 2 {
		t.Fatalf("expected one row per group, got %d", len(rows))
	}

	ka, _ := value.AsString(rows[0][0])
	if ka != "a" || !value.Equal(rows[0][1], value.NewInt(4)) {
		t.Fatalf("group \"a\" row = %v, want [\"a\", 4]", rows[0])
	}

	kb, _ := value.AsString(rows[1][0])
	if kb != "b" || !value.Equal(rows[1][1], value.NewInt(2)) {
		t.Fatalf("group \"b\" row = %v, want [\"b\", 2]", rows[1])
	}
}

func TestSummarizeZeroGroupKeysZeroRowsYieldsOneIdentityRow(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	in := schema.Schema{{Name: "v", Type: value.TypeInt}}
	ds := schema.NewSliceDataSet(in, nil)

	countTemplate, _ := aggregation.NewBuiltinRegistry().Lookup("count")

	s := Summarize{
		Aggs: []AggField{{Name: "c", Agg: countTemplate, Args: []expr.Expression{expr.ColumnRef{Index: 0, Name: "v"}}}},
	}

	rows := drain(t, s.Transform(ds, nil))
	if len(rows) != 1 {
		t.Fatalf("zero group keys, zero rows should still yield one row, got %d", len(rows))
	}

	if !value.Equal(rows[0][0], value.NewLong(0)) {
		t.Fatalf("count over zero rows = %v, want Long(0)", rows[0][0])
	}
}

func TestIgnoreErrorErasesErrorCellsToNull(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	in := schema.Schema{{Name: "x", Type: value.TypeInt}}
	errVal := value.NewError(piperr.New(piperr.InvalidValue, "boom"))
	ds := schema.NewSliceDataSet(in, []schema.Row{{errVal}})

	collector := schema.NewErrorCollector(schema.CollectOnWithRow)
	rows := drain(t, IgnoreError{}.Transform(ds, collector))

	if len(rows) != 1 || !value.IsNull(rows[0][0]) {
		t.Fatalf("IgnoreError should replace the Error cell with Null, got %v", rows)
	}

	if len(collector.Errors()) != 1 {
		t.Fatalf("expected the erased error to be recorded, got %d", len(collector.Errors()))
	}
}

// TestLookupLeftOuter covers spec.md §8 scenario 6.
func TestLookupLeftOuter(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	src := lookup.NewMemorySource()
	src.Put(value.NewString("1"), map[string]value.Value{"name": value.NewString("x")})

	in := schema.Schema{{Name: "id", Type: value.TypeString}}
	ds := schema.NewSliceDataSet(in, []schema.Row{{value.NewString("1")}, {value.NewString("2")}})

	l := Lookup{
		SourceName: "users", Source: src, Keys: []expr.Expression{expr.ColumnRef{Index: 0, Name: "id"}},
		Fields: []string{"name"}, Join: LeftOuter,
	}

	rows := drain(t, l.Transform(ds, schema.NewErrorCollector(schema.CollectOff)))
	if len(rows) != 2 {
		t.Fatalf("LeftOuter should keep every input row, got %d", len(rows))
	}

	name0, _ := value.AsString(rows[0][1])
	if name0 != "x" {
		t.Fatalf("row for id=1 should join name=\"x\", got %v", rows[0])
	}

	if !value.IsNull(rows[1][1]) {
		t.Fatalf("row for id=2 should pad with Null, got %v", rows[1])
	}
}

func TestLookupInnerDropsUnmatched(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	src := lookup.NewMemorySource()
	src.Put(value.NewString("1"), map[string]value.Value{"name": value.NewString("x")})

	in := schema.Schema{{Name: "id", Type: value.TypeString}}
	ds := schema.NewSliceDataSet(in, []schema.Row{{value.NewString("1")}, {value.NewString("2")}})

	l := Lookup{
		SourceName: "users", Source: src, Keys: []expr.Expression{expr.ColumnRef{Index: 0, Name: "id"}},
		Fields: []string{"name"}, Join: Inner,
	}

	rows := drain(t, l.Transform(ds, schema.NewErrorCollector(schema.CollectOff)))
	if len(rows) != 1 {
		t.Fatalf("Inner should drop unmatched rows, got %d rows", len(rows))
	}
}

func TestLookupLeftSemiAndLeftAnti(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	src := lookup.NewMemorySource()
	src.Put(value.NewString("1"), map[string]value.Value{"name": value.NewString("x")})

	in := schema.Schema{{Name: "id", Type: value.TypeString}}

	semiDS := schema.NewSliceDataSet(in, []schema.Row{{value.NewString("1")}, {value.NewString("2")}})
	semi := Lookup{SourceName: "users", Source: src, Keys: []expr.Expression{expr.ColumnRef{Index: 0, Name: "id"}}, Fields: []string{"name"}, Join: LeftSemi}

	semiRows := drain(t, semi.Transform(semiDS, schema.NewErrorCollector(schema.CollectOff)))
	if len(semiRows) != 1 {
		t.Fatalf("LeftSemi should keep only matched rows, got %d", len(semiRows))
	}

	antiDS := schema.NewSliceDataSet(in, []schema.Row{{value.NewString("1")}, {value.NewString("2")}})
	anti := Lookup{SourceName: "users", Source: src, Keys: []expr.Expression{expr.ColumnRef{Index: 0, Name: "id"}}, Fields: []string{"name"}, Join: LeftAnti}

	antiRows := drain(t, anti.Transform(antiDS, schema.NewErrorCollector(schema.CollectOff)))
	if len(antiRows) != 1 {
		t.Fatalf("LeftAnti should keep only unmatched rows, got %d", len(antiRows))
	}
}

func TestProjectKeepAndRemove(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	in := schema.Schema{{Name: "a", Type: value.TypeInt}, {Name: "b", Type: value.TypeInt}}
	ds := schema.NewSliceDataSet(in, []schema.Row{{value.NewInt(1), value.NewInt(2)}})

	keepRows := drain(t, ProjectKeep{Names: []string{"b"}}.Transform(ds, nil))
	if len(keepRows) != 1 || len(keepRows[0]) != 1 || !value.Equal(keepRows[0][0], value.NewInt(2)) {
		t.Fatalf("ProjectKeep([b]) = %v, want [[2]]", keepRows)
	}

	ds2 := schema.NewSliceDataSet(in, []schema.Row{{value.NewInt(1), value.NewInt(2)}})
	removeRows := drain(t, ProjectRemove{Names: []string{"a"}}.Transform(ds2, nil))
	if len(removeRows) != 1 || len(removeRows[0]) != 1 || !value.Equal(removeRows[0][0], value.NewInt(2)) {
		t.Fatalf("ProjectRemove([a]) = %v, want [[2]]", removeRows)
	}
}

func TestProjectRenameIsNoOpOnRows(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	in := schema.Schema{{Name: "a", Type: value.TypeInt}}
	ds := schema.NewSliceDataSet(in, []schema.Row{{value.NewInt(1)}})

	rename := ProjectRename{Renames: map[string]string{"a": "b"}}

	out, err := rename.OutputSchema(in)
	if err != nil || out[0].Name != "b" {
		t.Fatalf("rename schema = %v, %v; want column \"b\"", out, err)
	}

	rows := drain(t, rename.Transform(ds, nil))
	if len(rows) != 1 || !value.Equal(rows[0][0], value.NewInt(1)) {
		t.Fatalf("rename should pass rows through unchanged, got %v", rows)
	}
}

func TestProjectRenameUnknownSourceIsValidationError(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	in := schema.Schema{{Name: "a", Type: value.TypeInt}}

	if _, err := (ProjectRename{Renames: map[string]string{"missing": "b"}}).OutputSchema(in); err == nil {
		t.Fatalf("expected ColumnNotFound for unknown source column")
	}
}
