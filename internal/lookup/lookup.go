// Package lookup implements the engine's external join boundary: a Source
// resolves a Value key against some key/value-like backing store and
// returns the requested fields, either as a single padded row (Lookup) or
// as zero-or-more rows for a one-to-many relationship (Join). Concrete
// backends (HTTP/JSON, SQLite, CosmosDB, a Feathr-online/Redis client) are
// external collaborators per spec.md §1; this package specifies the
// contract plus an in-process MemorySource (tests, local dev) and a
// PostgresSource grounded on the teacher's storage layer.
package lookup

import (
	"context"

	"github.com/correlator-io/featurepipe/internal/piperr"
	"github.com/correlator-io/featurepipe/internal/value"
)

// Source is an async external store joined against rows by a LookupSource
// transformation (spec.md §4.8). Implementations must be safe for
// concurrent use across every in-flight request, and are responsible for
// their own internal synchronization (connection pools, single-flight,
// caches) per spec.md §5.
type Source interface {
	// Lookup resolves key and returns exactly one row of length
	// len(fields), padded with Null for any field absent from a match (or
	// when the key itself has no match at all).
	Lookup(ctx context.Context, key value.Value, fields []string) ([]value.Value, error)
	// Join resolves key and returns zero or more matching rows, each of
	// length len(fields), for a one-to-many relationship.
	Join(ctx context.Context, key value.Value, fields []string) ([][]value.Value, error)
	// Dump renders a redacted, JSON-serializable description of this source
	// safe to expose via the /lookup-sources introspection endpoint. It
	// must never include credentials.
	Dump() interface{}
	// Probe is used by health_check: it must return promptly and report
	// whether the backing store is currently reachable.
	Probe(ctx context.Context) error
}

// KeyError validates a lookup key per spec.md §4.8: Array/Object keys are
// always an error, and a Null key short-circuits to an all-Null row without
// ever reaching the backing store. ok is true when the key should be sent to
// the store; when ok is false, rows (already fully formed) is the answer.
func KeyError(key value.Value, fields []string) (rows []value.Value, ok bool) {
	if value.IsNull(key) {
		return padNull(fields), false
	}

	switch key.Type() {
	case value.TypeArray, value.TypeObject:
		err := piperr.New(piperr.InvalidValue, "lookup key must be a scalar, got "+key.Type().String())
		return padError(fields, err), false
	default:
		return nil, true
	}
}

func padNull(fields []string) []value.Value {
	out := make([]value.Value, len(fields))
	for i := range out {
		out[i] = value.Null
	}

	return out
}

func padError(fields []string, err *piperr.Error) []value.Value {
	out := make([]value.Value, len(fields))
	for i := range out {
		out[i] = value.NewError(err)
	}

	return out
}
