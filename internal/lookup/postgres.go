package lookup

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/correlator-io/featurepipe/internal/piperr"
	"github.com/correlator-io/featurepipe/internal/value"
)

// PostgresSource joins rows against a Postgres-backed key/value table,
// grounded on storage.Connection's pooled-*sql.DB pattern (NewConnection,
// HealthCheck) and storage.APIKeyStore's interface shape, retargeted from
// API-key storage to generic lookup rows. Table/column names are
// config-supplied, never string-built from request data, so every query
// is parameterized.
type PostgresSource struct {
	db        *sql.DB
	table     string
	keyColumn string
}

// NewPostgresSource wires a PostgresSource against an already-open pool; the
// caller owns the pool's lifecycle (shared across lookup sources is
// permitted, per spec.md §5's "each lookup source is responsible for its
// own internal synchronization").
func NewPostgresSource(db *sql.DB, table, keyColumn string) *PostgresSource {
	return &PostgresSource{db: db, table: table, keyColumn: keyColumn}
}

// normalizeKey trims and lower-cases a string lookup key before it reaches
// the query, the same small string-rewrite-table idiom the teacher's
// canonicalization layer uses for scheme normalization, applied here to
// lookup keys instead of dataset URNs.
func normalizeKey(key value.Value) value.Value {
	s, ok := value.AsString(key)
	if !ok {
		return key
	}

	return value.NewString(strings.ToLower(strings.TrimSpace(s)))
}

func (p *PostgresSource) Lookup(ctx context.Context, key value.Value, fields []string) ([]value.Value, error) {
	if rows, ok := KeyError(key, fields); !ok {
		return rows, nil
	}

	key = normalizeKey(key)

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1 LIMIT 1", columnList(fields), p.table, p.keyColumn)

	dest := make([]interface{}, len(fields))
	scan := make([]sql.NullString, len(fields))

	for i := range scan {
		dest[i] = &scan[i]
	}

	row := p.db.QueryRowContext(ctx, query, keyParam(key))

	switch err := row.Scan(dest...); {
	case err == sql.ErrNoRows:
		return padNull(fields), nil
	case err != nil:
		return padError(fields, piperr.Wrap(piperr.ExternalError, err)), nil
	default:
		return scanToValues(scan), nil
	}
}

func (p *PostgresSource) Join(ctx context.Context, key value.Value, fields []string) ([][]value.Value, error) {
	if rows, ok := KeyError(key, fields); !ok {
		if value.IsNull(key) {
			return nil, nil
		}

		return [][]value.Value{rows}, nil
	}

	key = normalizeKey(key)

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1", columnList(fields), p.table, p.keyColumn)

	rows, err := p.db.QueryContext(ctx, query, keyParam(key))
	if err != nil {
		return [][]value.Value{padError(fields, piperr.Wrap(piperr.ExternalError, err))}, nil
	}
	defer rows.Close()

	var out [][]value.Value

	for rows.Next() {
		scan := make([]sql.NullString, len(fields))
		dest := make([]interface{}, len(fields))

		for i := range scan {
			dest[i] = &scan[i]
		}

		if err := rows.Scan(dest...); err != nil {
			out = append(out, padError(fields, piperr.Wrap(piperr.ExternalError, err)))

			continue
		}

		out = append(out, scanToValues(scan))
	}

	return out, rows.Err()
}

func (p *PostgresSource) Probe(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// Dump renders a redacted description: table/column shape only, no
// connection string or credentials.
func (p *PostgresSource) Dump() interface{} {
	return map[string]interface{}{
		"class":     "postgres",
		"table":     p.table,
		"keyColumn": p.keyColumn,
	}
}

func columnList(fields []string) string {
	return strings.Join(fields, ", ")
}

func keyParam(key value.Value) interface{} {
	if s, ok := value.AsString(key); ok {
		return s
	}

	if n, ok := value.AsInt64(key); ok {
		return n
	}

	if f, ok := value.AsFloat64(key); ok {
		return f
	}

	return key.Dump()
}

func scanToValues(scan []sql.NullString) []value.Value {
	out := make([]value.Value, len(scan))

	for i, s := range scan {
		if !s.Valid {
			out[i] = value.Null

			continue
		}

		out[i] = value.NewString(s.String)
	}

	return out
}
