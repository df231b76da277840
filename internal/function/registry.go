package function

import (
	"sync"

	"github.com/correlator-io/featurepipe/internal/piperr"
)

// Registry is a name -> Function mapping, part of a pipeline's BuildContext.
// It is open for plugin-style extension: callers register additional
// Functions before compiling pipelines against it. Safe for concurrent
// reads; Register is expected at startup before a Registry is shared.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]Function
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]Function)}
}

// NewBuiltinRegistry returns a Registry pre-seeded with the engine's
// built-in scalar functions.
func NewBuiltinRegistry() *Registry {
	r := NewRegistry()
	for _, f := range builtins() {
		if err := r.Register(f); err != nil {
			panic(err) // programmer error: duplicate built-in name
		}
	}

	return r
}

// Register adds f under f.Name(). Re-registering an existing name rejects
// with FunctionAlreadyDefined.
func (r *Registry) Register(f Function) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.funcs[f.Name()]; exists {
		return piperr.New(piperr.FunctionAlreadyDefined, "function already defined: "+f.Name())
	}

	r.funcs[f.Name()] = f

	return nil
}

// Lookup returns the Function registered under name, if any.
func (r *Registry) Lookup(name string) (Function, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.funcs[name]

	return f, ok
}

// Names returns every registered function name, used by introspection dumps.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		out = append(out, name)
	}

	return out
}
