package pipeline

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	_ "github.com/lib/pq" // PostgreSQL driver, registered for lookup-source class "postgres"

	"github.com/correlator-io/featurepipe/internal/lookup"
	"github.com/correlator-io/featurepipe/internal/value"
)

// LookupDefinition describes one named lookup source as it appears in the
// file pointed to by LOOKUP_DEFINITION_FILE. Concrete source classes
// (memory, postgres) are this spec's external collaborators; the file
// format itself is an ambient wiring concern, not part of the DSL.
type LookupDefinition struct {
	Class     string                   `yaml:"class"`
	DSN       string                   `yaml:"dsn,omitempty"`
	Table     string                   `yaml:"table,omitempty"`
	KeyColumn string                   `yaml:"key_column,omitempty"`
	Rows      []map[string]interface{} `yaml:"rows,omitempty"`
}

// LookupConfig is the top-level shape of a lookup-source definition file.
type LookupConfig struct {
	//nolint:tagliatelle // snake_case is intentional for YAML config files
	Sources map[string]LookupDefinition `yaml:"sources"`
}

// ErrUnknownLookupClass is returned when a lookup definition names a class
// this build doesn't know how to construct.
var ErrUnknownLookupClass = errors.New("unknown lookup source class")

// LoadLookupSources reads path and builds one lookup.Source per entry.
//
// Unlike the teacher's aliasing.LoadConfig (missing or malformed file is a
// silent, warn-and-continue no-op because dataset aliasing is optional), an
// empty LOOKUP_DEFINITION_FILE path, a path to a file that does not exist,
// or an empty file all yield no lookup sources (not every pipeline needs
// one), but a file that exists and fails to parse, or names an unknown class, is a
// startup failure per spec.md §6's exit-code contract: a pipeline compiled
// against a source that silently didn't load would fail confusingly later,
// at request time, instead of at startup.
func LoadLookupSources(path string) (map[string]lookup.Source, error) {
	sources := make(map[string]lookup.Source)

	if path == "" {
		return sources, nil
	}

	data, err := os.ReadFile(path) //nolint:gosec // path is operator-supplied, from trusted config source
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Debug("lookup definition file not found, starting with no lookup sources",
				slog.String("path", path))

			return sources, nil
		}

		return nil, fmt.Errorf("reading lookup definition file %s: %w", path, err)
	}

	if len(data) == 0 {
		return sources, nil
	}

	var cfg LookupConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing lookup definition file %s: %w", path, err)
	}

	for name, def := range cfg.Sources {
		src, err := buildLookupSource(def)
		if err != nil {
			return nil, fmt.Errorf("lookup source %q: %w", name, err)
		}

		sources[name] = src
	}

	return sources, nil
}

func buildLookupSource(def LookupDefinition) (lookup.Source, error) {
	switch def.Class {
	case "memory":
		return buildMemorySource(def), nil
	case "postgres":
		return buildPostgresSource(def)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownLookupClass, def.Class)
	}
}

func buildMemorySource(def LookupDefinition) *lookup.MemorySource {
	src := lookup.NewMemorySource()

	for _, row := range def.Rows {
		rawKey, ok := row["key"]
		if !ok {
			continue
		}

		fields, _ := row["fields"].(map[string]interface{})

		valueRow := make(map[string]value.Value, len(fields))
		for k, v := range fields {
			valueRow[k] = scalarToValue(v)
		}

		src.Put(scalarToValue(rawKey), valueRow)
	}

	return src
}

func buildPostgresSource(def LookupDefinition) (*lookup.PostgresSource, error) {
	if def.DSN == "" {
		return nil, errors.New("postgres lookup source requires dsn")
	}

	if def.Table == "" || def.KeyColumn == "" {
		return nil, errors.New("postgres lookup source requires table and key_column")
	}

	db, err := sql.Open("postgres", def.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening postgres connection: %w", err)
	}

	return lookup.NewPostgresSource(db, def.Table, def.KeyColumn), nil
}

// scalarToValue converts a YAML-decoded scalar (string, int, float, bool, or
// nil) into a Value. Unsupported types (maps, slices) are rendered as Null
// rather than failing the whole load - a malformed row shouldn't prevent
// every other row from being usable.
func scalarToValue(v interface{}) value.Value {
	switch t := v.(type) {
	case nil:
		return value.Null
	case string:
		return value.NewString(t)
	case int:
		return value.NewLong(int64(t))
	case int64:
		return value.NewLong(t)
	case float64:
		return value.NewDouble(t)
	case bool:
		return value.NewBool(t)
	default:
		return value.Null
	}
}
