// Package dsl ties together the lexer, parser and ast packages into the
// three-phase compiler described by the pipeline definition language: Parse
// produces an untyped tree of builders, Resolve threads each pipeline's
// declared input schema through its transformation builders (resolving
// column/function/aggregation/lookup-source names along the way), and
// Freeze assembles the result as an immutable Pipeline registered under its
// declared name.
package dsl

import (
	"github.com/correlator-io/featurepipe/internal/dsl/parser"
	"github.com/correlator-io/featurepipe/internal/piperr"
	"github.com/correlator-io/featurepipe/internal/pipeline"
)

// Compile parses and resolves every pipeline declaration in src, returning
// them keyed by declared name. A duplicate pipeline name is a
// ValidationError; any parse or resolve failure aborts the whole compile
// unit (spec.md §4.7's Parse/Resolve/Freeze phases are not partially
// recoverable — a single pipeline definition file either compiles whole or
// fails whole).
func Compile(src string, ctx *pipeline.BuildContext) (map[string]*pipeline.Pipeline, error) {
	p := parser.New(src)

	nodes, err := p.ParsePipelines()
	if err != nil {
		return nil, err
	}

	out := make(map[string]*pipeline.Pipeline, len(nodes))

	for _, n := range nodes {
		built, err := n.Build(ctx)
		if err != nil {
			return nil, err
		}

		if _, exists := out[built.Name]; exists {
			return nil, piperr.New(piperr.ValidationError, "duplicate pipeline name: "+built.Name)
		}

		out[built.Name] = built
	}

	return out, nil
}
