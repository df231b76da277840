package schema

import (
	"sync"

	"github.com/google/uuid"

	"github.com/correlator-io/featurepipe/internal/piperr"
)

// CollectMode controls how row-level errors are surfaced in a request's
// response, mirroring the HTTP collaborator's "off"|"on"|"onWithRow" flag.
type CollectMode int

const (
	// CollectOff discards row-level errors entirely.
	CollectOff CollectMode = iota
	// CollectOn records errors without the originating row index.
	CollectOn
	// CollectOnWithRow records errors together with the originating row index.
	CollectOnWithRow
)

// ParseCollectMode maps the wire values "off"/"on"/"onWithRow" to a CollectMode.
func ParseCollectMode(s string) CollectMode {
	switch s {
	case "on":
		return CollectOn
	case "onWithRow":
		return CollectOnWithRow
	default:
		return CollectOff
	}
}

// RowError is one recorded row-level error, rendered into the response's
// errors[] array. Row is populated only under CollectOnWithRow.
type RowError struct {
	ID      string `json:"-"`
	Row     *int   `json:"row,omitempty"`
	Column  string `json:"column,omitempty"`
	Stage   string `json:"stage,omitempty"`
	Message string `json:"message"`
}

// ErrorCollector accumulates row-level errors for one request according to
// its CollectMode. It is safe for concurrent use because a single request's
// transformation chain may itself fan out (e.g. concurrent lookups).
type ErrorCollector struct {
	mode CollectMode

	mu     sync.Mutex
	errors []RowError
}

// NewErrorCollector creates a collector operating in the given mode.
func NewErrorCollector(mode CollectMode) *ErrorCollector {
	return &ErrorCollector{mode: mode}
}

// Record stores a row-level error per the collector's mode. stage and
// column may be empty when not applicable to the calling transformation.
func (c *ErrorCollector) Record(rowIndex int, column, stage string, err *piperr.Error) {
	if c == nil || c.mode == CollectOff {
		return
	}

	entry := RowError{
		ID:      uuid.NewString(),
		Column:  column,
		Stage:   stage,
		Message: err.Error(),
	}

	if c.mode == CollectOnWithRow {
		entry.Row = &rowIndex
	}

	c.mu.Lock()
	c.errors = append(c.errors, entry)
	c.mu.Unlock()
}

// Errors returns the errors recorded so far, in recording order.
func (c *ErrorCollector) Errors() []RowError {
	if c == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]RowError, len(c.errors))
	copy(out, c.errors)

	return out
}
