package aggregation

import (
	"sync"

	"github.com/correlator-io/featurepipe/internal/piperr"
)

// Registry is a name -> Aggregation template mapping. Cloning happens at
// Summarize build/feed time, once per group key; the Registry itself only
// hands out templates.
type Registry struct {
	mu    sync.RWMutex
	templ map[string]Aggregation
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{templ: make(map[string]Aggregation)}
}

// NewBuiltinRegistry returns a Registry pre-seeded with the built-in
// aggregations named in spec.md §4.5: count, count_if, distinct_count, sum,
// array_agg, array_agg_if, all, any.
func NewBuiltinRegistry() *Registry {
	r := NewRegistry()
	for _, a := range builtins() {
		if err := r.Register(a); err != nil {
			panic(err)
		}
	}

	return r
}

// Register adds a template under name. Re-registering an existing name
// rejects with FunctionAlreadyDefined (the aggregation and scalar-function
// namespaces share the same redefinition-rejection rule in spec.md §4.4/§4.5).
func (r *Registry) Register(a Aggregation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := a.Name()
	if _, exists := r.templ[name]; exists {
		return piperr.New(piperr.FunctionAlreadyDefined, "aggregation already defined: "+name)
	}

	r.templ[name] = a

	return nil
}

// Lookup returns a fresh Clone of the template registered under name.
func (r *Registry) Lookup(name string) (Aggregation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.templ[name]
	if !ok {
		return nil, false
	}

	return a.Clone(), true
}
