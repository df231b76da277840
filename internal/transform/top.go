package transform

import (
	"container/heap"
	"context"

	"github.com/correlator-io/featurepipe/internal/expr"
	"github.com/correlator-io/featurepipe/internal/schema"
	"github.com/correlator-io/featurepipe/internal/value"
)

// SortOrder picks ascending or descending comparison for one Top sort key.
type SortOrder int

const (
	Asc SortOrder = iota
	Desc
)

// NullPos controls where Null values sort relative to non-null ones.
type NullPos int

const (
	NullFirst NullPos = iota
	NullLast
)

// SortKey is one ORDER BY-style clause of a Top transformation.
type SortKey struct {
	Expr    expr.Expression
	Order   SortOrder
	NullPos NullPos
}

// Top materializes the smallest N rows under the given sort keys using a
// bounded max-heap of size N: the heap never grows past N, so memory is
// O(N) regardless of input size. It is a pipeline barrier — the entire
// input is consumed before the first row is emitted. Ties break on input
// order (stable: earlier input rows sort first).
type Top struct {
	N    int
	Keys []SortKey
}

func (t Top) Stage() string { return "top" }

func (t Top) OutputSchema(input schema.Schema) (schema.Schema, error) {
	for _, k := range t.Keys {
		if _, err := k.Expr.OutputType(input); err != nil {
			return nil, err
		}
	}

	return input, nil
}

func (t Top) Transform(input schema.DataSet, collector *schema.ErrorCollector) schema.DataSet {
	n := t.N
	if n < 0 {
		n = 0
	}

	return &topDataSet{baseDataSet{input.Schema()}, input, t.Keys, n, nil, false}
}

func (t Top) Dump() map[string]interface{} {
	keys := make([]map[string]interface{}, len(t.Keys))
	for i, k := range t.Keys {
		keys[i] = map[string]interface{}{
			"expr": k.Expr.String(), "desc": k.Order == Desc, "nullsLast": k.NullPos == NullLast,
		}
	}

	return map[string]interface{}{"kind": "top", "n": t.N, "by": keys}
}

type topHeapItem struct {
	row schema.Row
	seq int
}

type topHeap struct {
	items []topHeapItem
	keys  []SortKey
}

func (h *topHeap) Len() int { return len(h.items) }

// Less reports whether item i is worse (sorts later) than item j, so the
// heap root (the minimum per this ordering) is always the current worst
// surviving row — the one we evict when a better row arrives.
func (h *topHeap) Less(i, j int) bool {
	return cmpRows(h.items[i].row, h.items[i].seq, h.items[j].row, h.items[j].seq, h.keys) > 0
}

func (h *topHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *topHeap) Push(x interface{}) { h.items = append(h.items, x.(topHeapItem)) }

func (h *topHeap) Pop() interface{} {
	old := h.items
	n := len(old)
	item := old[n-1]
	h.items = old[:n-1]

	return item
}

// cmpRows returns <0 if a sorts before b, >0 if after, 0 if equal under
// every key (sequence numbers as a last-resort stable tiebreak).
func cmpRows(a schema.Row, aSeq int, b schema.Row, bSeq int, keys []SortKey) int {
	for _, k := range keys {
		va := k.Expr.Eval(a)
		vb := k.Expr.Eval(b)

		c := cmpValuesForSort(va, vb, k.NullPos)
		if k.Order == Desc {
			c = -c
		}

		if c != 0 {
			return c
		}
	}

	switch {
	case aSeq < bSeq:
		return -1
	case aSeq > bSeq:
		return 1
	default:
		return 0
	}
}

func cmpValuesForSort(a, b value.Value, nulls NullPos) int {
	_, aErr := value.IsError(a)
	_, bErr := value.IsError(b)
	aNull := value.IsNull(a) || aErr
	bNull := value.IsNull(b) || bErr

	if aNull && bNull {
		return 0
	}

	if aNull {
		if nulls == NullFirst {
			return -1
		}

		return 1
	}

	if bNull {
		if nulls == NullFirst {
			return 1
		}

		return -1
	}

	c, err := value.Compare(a, b)
	if err != nil {
		return 0
	}

	return c
}

type topDataSet struct {
	baseDataSet
	src      schema.DataSet
	keys     []SortKey
	n        int
	sorted   []schema.Row
	computed bool
}

func (d *topDataSet) materialize(ctx context.Context) error {
	if d.computed {
		return nil
	}

	d.computed = true

	if d.n == 0 {
		d.sorted = nil

		return nil
	}

	h := &topHeap{keys: d.keys}
	heap.Init(h)

	seq := 0

	for {
		if err := checkCtx(ctx); err != nil {
			return err
		}

		row, ok, err := d.src.NextRow(ctx)
		if err != nil {
			return err
		}

		if !ok {
			break
		}

		item := topHeapItem{row: row, seq: seq}
		seq++

		switch {
		case h.Len() < d.n:
			heap.Push(h, item)
		case cmpRows(item.row, item.seq, h.items[0].row, h.items[0].seq, d.keys) < 0:
			h.items[0] = item
			heap.Fix(h, 0)
		}
	}

	items := append([]topHeapItem{}, h.items...)
	sortItems(items, d.keys)

	out := make([]schema.Row, len(items))
	for i, it := range items {
		out[i] = it.row
	}

	d.sorted = out

	return nil
}

// sortItems performs a simple stable insertion sort: Top's materialized set
// is bounded by N, which is expected to be small relative to input size.
func sortItems(items []topHeapItem, keys []SortKey) {
	for i := 1; i < len(items); i++ {
		j := i
		for j > 0 && cmpRows(items[j].row, items[j].seq, items[j-1].row, items[j-1].seq, keys) < 0 {
			items[j], items[j-1] = items[j-1], items[j]
			j--
		}
	}
}

func (d *topDataSet) NextRow(ctx context.Context) (schema.Row, bool, error) {
	if err := d.materialize(ctx); err != nil {
		return nil, false, err
	}

	if len(d.sorted) == 0 {
		return nil, false, nil
	}

	row := d.sorted[0]
	d.sorted = d.sorted[1:]

	return row, true, nil
}
