// Package pipeline holds the compiled, immutable transformation plans the
// DSL compiler produces, the registries a plan is resolved against, and the
// runtime that drives requests through them.
package pipeline

import (
	"github.com/correlator-io/featurepipe/internal/aggregation"
	"github.com/correlator-io/featurepipe/internal/function"
	"github.com/correlator-io/featurepipe/internal/lookup"
	"github.com/correlator-io/featurepipe/internal/piperr"
	"github.com/correlator-io/featurepipe/internal/schema"
	"github.com/correlator-io/featurepipe/internal/transform"
)

// Pipeline is an immutable, named transformation plan: an input schema and
// an ordered chain of transformations, frozen by the compiler. A Pipeline
// with zero transformations is legal; its output schema equals its input
// schema.
type Pipeline struct {
	Name            string
	InputSchema     schema.Schema
	Transformations []transform.Transformation
	OutputSchema    schema.Schema
}

// Run threads a single input row through every transformation in order,
// returning the terminal DataSet. collector records row-level errors
// surfaced anywhere along the chain.
func (p *Pipeline) Run(input schema.DataSet, collector *schema.ErrorCollector) schema.DataSet {
	ds := input
	for _, t := range p.Transformations {
		ds = t.Transform(ds, collector)
	}

	return ds
}

// Dump renders a pipeline's schemas and operator chain for the
// GET /pipelines introspection endpoint.
func (p *Pipeline) Dump() map[string]interface{} {
	ops := make([]map[string]interface{}, len(p.Transformations))
	for i, t := range p.Transformations {
		ops[i] = t.Dump()
	}

	return map[string]interface{}{
		"input_schema":    p.InputSchema.Dump(),
		"output_schema":   p.OutputSchema.Dump(),
		"transformations": ops,
	}
}

// BuildContext is the read-only set of registries a pipeline's
// transformation builders are resolved against: scalar functions,
// aggregations, and named lookup sources. It is immutable after
// construction, so the runtime shares one instance across every in-flight
// request without locking.
type BuildContext struct {
	Functions     *function.Registry
	Aggregations  *aggregation.Registry
	LookupSources map[string]lookup.Source
}

// NewBuildContext wires a BuildContext from already-constructed registries.
func NewBuildContext(
	functions *function.Registry,
	aggregations *aggregation.Registry,
	lookupSources map[string]lookup.Source,
) *BuildContext {
	if lookupSources == nil {
		lookupSources = make(map[string]lookup.Source)
	}

	return &BuildContext{Functions: functions, Aggregations: aggregations, LookupSources: lookupSources}
}

// ResolveLookupSource returns the named lookup source, or
// LookupSourceNotFound if no source was registered under that name.
func (c *BuildContext) ResolveLookupSource(name string) (lookup.Source, error) {
	src, ok := c.LookupSources[name]
	if !ok {
		return nil, piperr.New(piperr.LookupSourceNotFound, "lookup source not found: "+name)
	}

	return src, nil
}

// DumpLookupSources renders every registered lookup source's redacted
// description for the GET /lookup-sources introspection endpoint.
func (c *BuildContext) DumpLookupSources() map[string]interface{} {
	out := make(map[string]interface{}, len(c.LookupSources))
	for name, src := range c.LookupSources {
		out[name] = src.Dump()
	}

	return out
}
