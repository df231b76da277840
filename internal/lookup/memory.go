package lookup

import (
	"context"
	"sync"

	"github.com/correlator-io/featurepipe/internal/value"
)

// MemorySource is a thread-safe in-process lookup table, grounded on
// storage.InMemoryKeyStore's mutex-guarded map pattern. It backs local
// development and tests; one key maps to one-or-more field-value rows so it
// can answer both Lookup (first match) and Join (all matches).
type MemorySource struct {
	mu   sync.RWMutex
	rows map[string][]map[string]value.Value
}

// NewMemorySource returns an empty MemorySource.
func NewMemorySource() *MemorySource {
	return &MemorySource{rows: make(map[string][]map[string]value.Value)}
}

// Put registers one row under key, appending to any rows already present
// under that key (supporting one-to-many Join semantics).
func (m *MemorySource) Put(key value.Value, row map[string]value.Value) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := value.KeyString(key)
	m.rows[k] = append(m.rows[k], row)
}

func (m *MemorySource) Lookup(ctx context.Context, key value.Value, fields []string) ([]value.Value, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if rows, ok := KeyError(key, fields); !ok {
		return rows, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	matches := m.rows[value.KeyString(key)]
	if len(matches) == 0 {
		return padNull(fields), nil
	}

	return projectFields(matches[0], fields), nil
}

func (m *MemorySource) Join(ctx context.Context, key value.Value, fields []string) ([][]value.Value, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if rows, ok := KeyError(key, fields); !ok {
		if value.IsNull(key) {
			// Join against a Null key yields zero rows, not one all-Null row
			// (Lookup's single-row padding contract doesn't apply to joins).
			return nil, nil
		}

		return [][]value.Value{rows}, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	matches := m.rows[value.KeyString(key)]
	out := make([][]value.Value, len(matches))

	for i, row := range matches {
		out[i] = projectFields(row, fields)
	}

	return out, nil
}

func projectFields(row map[string]value.Value, fields []string) []value.Value {
	out := make([]value.Value, len(fields))

	for i, f := range fields {
		if v, ok := row[f]; ok {
			out[i] = v
		} else {
			out[i] = value.Null
		}
	}

	return out
}

func (m *MemorySource) Probe(ctx context.Context) error {
	return ctx.Err()
}

func (m *MemorySource) Dump() interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{"class": "memory", "keys": len(m.rows)}
}
