package dsl

import (
	"context"
	"testing"

	"github.com/correlator-io/featurepipe/internal/aggregation"
	"github.com/correlator-io/featurepipe/internal/function"
	"github.com/correlator-io/featurepipe/internal/lookup"
	"github.com/correlator-io/featurepipe/internal/pipeline"
	"github.com/correlator-io/featurepipe/internal/schema"
	"github.com/correlator-io/featurepipe/internal/value"
)

func newTestContext(sources map[string]lookup.Source) *pipeline.BuildContext {
	return pipeline.NewBuildContext(function.NewBuiltinRegistry(), aggregation.NewBuiltinRegistry(), sources)
}

func runOne(t *testing.T, p *pipeline.Pipeline, row schema.Row) []schema.Row {
	t.Helper()

	ds := schema.NewSliceDataSet(p.InputSchema, []schema.Row{row})
	collector := schema.NewErrorCollector(schema.CollectOff)

	rows, err := schema.Drain(context.Background(), p.Run(ds, collector))
	if err != nil {
		t.Fatalf("unexpected stream-fatal error: %v", err)
	}

	return rows
}

// TestCompileProjectionWithCast covers spec.md §8 scenario 1 end to end
// through the DSL compiler.
func TestCompileProjectionWithCast(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	src := `p(x: Int) | Project(y: x * 2);`

	pipelines, err := Compile(src, newTestContext(nil))
	if err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}

	p, ok := pipelines["p"]
	if !ok {
		t.Fatalf("expected a compiled pipeline named \"p\"")
	}

	rows := runOne(t, p, schema.Row{value.NewInt(3)})
	if len(rows) != 1 || !value.Equal(rows[0][0], value.NewInt(6)) {
		t.Fatalf("rows = %v, want [[6]]", rows)
	}
}

// TestCompileWhereDropsNulls covers spec.md §8 scenario 2.
func TestCompileWhereDropsNulls(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	src := `p(x: Int) | Where(x > 2);`

	pipelines, err := Compile(src, newTestContext(nil))
	if err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}

	p := pipelines["p"]

	for _, tc := range []struct {
		in      value.Value
		matches bool
	}{
		{value.NewInt(1), false},
		{value.NewInt(3), true},
		{value.Null, false},
	} {
		rows := runOne(t, p, schema.Row{tc.in})
		if tc.matches && len(rows) != 1 {
			t.Fatalf("expected row for %v to pass Where, got %d rows", tc.in, len(rows))
		}

		if !tc.matches && len(rows) != 0 {
			t.Fatalf("expected row for %v to be dropped by Where, got %d rows", tc.in, len(rows))
		}
	}
}

// TestCompileTopKSmallestDescending covers spec.md §8 scenario 3.
func TestCompileTopKSmallestDescending(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	src := `p(a: Int) | Top(2, [a Desc]);`

	pipelines, err := Compile(src, newTestContext(nil))
	if err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}

	p := pipelines["p"]

	ds := schema.NewSliceDataSet(p.InputSchema, []schema.Row{
		{value.NewInt(1)}, {value.NewInt(5)}, {value.NewInt(3)}, {value.NewInt(4)},
	})

	rows, err := schema.Drain(context.Background(), p.Run(ds, schema.NewErrorCollector(schema.CollectOff)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(rows) != 2 || !value.Equal(rows[0][0], value.NewInt(5)) || !value.Equal(rows[1][0], value.NewInt(4)) {
		t.Fatalf("rows = %v, want [[5],[4]]", rows)
	}
}

// TestCompileExplodeWithNonArray covers spec.md §8 scenario 4.
func TestCompileExplodeWithNonArray(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	src := `p(xs: Array) | Explode(xs);`

	pipelines, err := Compile(src, newTestContext(nil))
	if err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}

	p := pipelines["p"]

	arrayRows := runOne(t, p, schema.Row{value.NewArray([]value.Value{value.NewInt(1), value.NewInt(2)})})
	if len(arrayRows) != 2 {
		t.Fatalf("explode([1,2]) should yield 2 rows, got %d", len(arrayRows))
	}

	scalarDS := schema.NewSliceDataSet(p.InputSchema, []schema.Row{{value.NewInt(7)}})
	collector := schema.NewErrorCollector(schema.CollectOnWithRow)

	scalarRows, err := schema.Drain(context.Background(), p.Run(scalarDS, collector))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(scalarRows) != 1 {
		t.Fatalf("explode(7) should yield one error row, got %d", len(scalarRows))
	}

	if _, ok := value.IsError(scalarRows[0][0]); !ok {
		t.Fatalf("explode(7) cell should be an Error, got %v", scalarRows[0][0])
	}

	if len(collector.Errors()) != 1 {
		t.Fatalf("expected one recorded row error, got %d", len(collector.Errors()))
	}
}

// TestCompileSummarizeGroups covers spec.md §8 scenario 5, driven over
// multiple input rows rather than a single request row.
func TestCompileSummarizeGroups(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	src := `p(k: String, v: Int) | Summarize([k: k], [s: sum(v)]);`

	pipelines, err := Compile(src, newTestContext(nil))
	if err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}

	p := pipelines["p"]

	ds := schema.NewSliceDataSet(p.InputSchema, []schema.Row{
		{value.NewString("a"), value.NewInt(1)},
		{value.NewString("b"), value.NewInt(2)},
		{value.NewString("a"), value.NewInt(3)},
	})

	rows, err := schema.Drain(context.Background(), p.Run(ds, schema.NewErrorCollector(schema.CollectOff)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(rows) != 2 {
		t.Fatalf("expected one row per group, got %d", len(rows))
	}

	ka, _ := value.AsString(rows[0][0])
	if ka != "a" || !value.Equal(rows[0][1], value.NewInt(4)) {
		t.Fatalf("group \"a\" row = %v, want [\"a\", 4]", rows[0])
	}
}

// TestCompileLookupLeftOuter covers spec.md §8 scenario 6.
func TestCompileLookupLeftOuter(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	src := `p(id: String) | Lookup(users, [id], [name], LeftOuter);`

	users := lookup.NewMemorySource()
	users.Put(value.NewString("1"), map[string]value.Value{"name": value.NewString("x")})

	pipelines, err := Compile(src, newTestContext(map[string]lookup.Source{"users": users}))
	if err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}

	p := pipelines["p"]

	ds := schema.NewSliceDataSet(p.InputSchema, []schema.Row{{value.NewString("1")}, {value.NewString("2")}})

	rows, err := schema.Drain(context.Background(), p.Run(ds, schema.NewErrorCollector(schema.CollectOff)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

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

func TestCompileUnknownLookupSourceFailsCompilation(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	src := `p(id: String) | Lookup(missing, [id], [name], LeftOuter);`

	if _, err := Compile(src, newTestContext(nil)); err == nil {
		t.Fatalf("expected LookupSourceNotFound for an unresolved source name")
	}
}

func TestCompileUnknownFunctionFailsCompilation(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	src := `p(x: Int) | Project(y: not_a_real_fn(x));`

	if _, err := Compile(src, newTestContext(nil)); err == nil {
		t.Fatalf("expected UnknownFunction for an unregistered function name")
	}
}

func TestCompileColumnNotFoundFailsCompilation(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	src := `p(x: Int) | Project(y: missing_column);`

	if _, err := Compile(src, newTestContext(nil)); err == nil {
		t.Fatalf("expected ColumnNotFound for an unresolved column reference")
	}
}

func TestCompileUnknownAggregationFailsCompilation(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	src := `p(k: String, v: Int) | Summarize([k: k], [s: not_a_real_agg(v)]);`

	if _, err := Compile(src, newTestContext(nil)); err == nil {
		t.Fatalf("expected UnknownOperator for an unregistered aggregation name")
	}
}

func TestCompileDuplicateInputSchemaColumnFails(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	src := `p(x: Int, x: String);`

	if _, err := Compile(src, newTestContext(nil)); err == nil {
		t.Fatalf("expected ColumnAlreadyExists for a duplicate input schema column")
	}
}

func TestCompileDuplicatePipelineNameFails(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	src := `p(x: Int); p(y: Int);`

	if _, err := Compile(src, newTestContext(nil)); err == nil {
		t.Fatalf("expected ValidationError for a duplicate pipeline name")
	}
}

func TestCompileZeroTransformationsIsLegal(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	src := `p(x: Int);`

	pipelines, err := Compile(src, newTestContext(nil))
	if err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}

	p := pipelines["p"]
	if !p.OutputSchema.Equal(p.InputSchema) {
		t.Fatalf("a pipeline with zero transformations should leave its schema unchanged")
	}
}
