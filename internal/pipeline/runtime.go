package pipeline

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/correlator-io/featurepipe/internal/piperr"
	"github.com/correlator-io/featurepipe/internal/schema"
)

// Request is one item of a POST /process request body (spec.md §6).
type Request struct {
	Pipeline string                 `json:"pipeline"`
	Data     map[string]interface{} `json:"data"`
	Validate bool                   `json:"validate"`
	Errors   string                 `json:"errors"`
}

// ResultError is one entry of a Result's errors[] array.
type ResultError struct {
	Row     *int   `json:"row,omitempty"`
	Column  string `json:"column,omitempty"`
	Message string `json:"message"`
	Stage   string `json:"stage,omitempty"`
}

// Result is one item of a POST /process response body.
type Result struct {
	Pipeline string                   `json:"pipeline"`
	Status   string                   `json:"status"`
	Time     float64                  `json:"time,omitempty"`
	Count    int                      `json:"count,omitempty"`
	Data     []map[string]interface{} `json:"data,omitempty"`
	Errors   []ResultError            `json:"errors,omitempty"`
}

// Runtime holds the active pipeline set and the registries they were
// compiled against, and drives the request cycle described in spec.md §4.9.
// Pipelines may be hot-reloaded by atomic replacement of the map; in-flight
// requests continue against the snapshot they started with.
type Runtime struct {
	pipelines atomic.Pointer[map[string]*Pipeline]
	ctx       atomic.Pointer[BuildContext]
	logger    *slog.Logger
}

// NewRuntime constructs a Runtime over an initial pipeline set.
func NewRuntime(pipelines map[string]*Pipeline, ctx *BuildContext, logger *slog.Logger) *Runtime {
	r := &Runtime{logger: logger}
	r.ReloadWith(pipelines, ctx)

	return r
}

// Reload atomically replaces the active pipeline set, keeping the current
// BuildContext (lookup sources, functions, aggregations) unchanged. Requests
// already in flight keep running against the map snapshot they started
// with, per spec.md §5's "Pipelines may be hot-reloaded by atomic
// replacement of the map" guarantee.
func (r *Runtime) Reload(pipelines map[string]*Pipeline) {
	r.storePipelines(pipelines)

	if r.logger != nil {
		r.logger.Info("pipelines reloaded", slog.Int("count", len(pipelines)))
	}
}

// ReloadWith atomically replaces both the active pipeline set and the
// BuildContext they were compiled against (functions, aggregations, and -
// notably - lookup sources, which may themselves have changed across a
// reload of LOOKUP_DEFINITION_FILE). Used directly by callers that recompile
// in-process, and by ReloadConsumer on a Kafka reload signal.
func (r *Runtime) ReloadWith(pipelines map[string]*Pipeline, ctx *BuildContext) {
	r.ctx.Store(ctx)
	r.storePipelines(pipelines)

	if r.logger != nil {
		r.logger.Info("pipelines and build context reloaded", slog.Int("count", len(pipelines)))
	}
}

func (r *Runtime) storePipelines(pipelines map[string]*Pipeline) {
	snapshot := make(map[string]*Pipeline, len(pipelines))
	for k, v := range pipelines {
		snapshot[k] = v
	}

	r.pipelines.Store(&snapshot)
}

func (r *Runtime) buildContext() *BuildContext {
	return r.ctx.Load()
}

func (r *Runtime) lookupPipeline(name string) (*Pipeline, bool) {
	snapshot := *r.pipelines.Load()
	p, ok := snapshot[name]

	return p, ok
}

// Process runs one Request through its named pipeline, draining the
// resulting DataSet and rendering a Result per spec.md §4.9 steps 1-5.
func (r *Runtime) Process(ctx context.Context, req Request) Result {
	start := time.Now()

	p, ok := r.lookupPipeline(req.Pipeline)
	if !ok {
		return Result{
			Pipeline: req.Pipeline,
			Status:   "ERROR",
			Errors:   []ResultError{{Message: piperr.New(piperr.PipelineNotFound, "pipeline not found: "+req.Pipeline).Error()}},
		}
	}

	mode := schema.Strict
	if !req.Validate {
		mode = schema.Lenient
	}

	row, err := schema.RowFromRequestData(p.InputSchema, req.Data, mode)
	if err != nil {
		return errorResult(req.Pipeline, err)
	}

	collector := schema.NewErrorCollector(schema.ParseCollectMode(req.Errors))

	input := schema.NewSliceDataSet(p.InputSchema, []schema.Row{row})

	rows, err := schema.Drain(ctx, p.Run(input, collector))
	if err != nil {
		return errorResult(req.Pipeline, err)
	}

	data := make([]map[string]interface{}, len(rows))

	for i, outRow := range rows {
		m := make(map[string]interface{}, len(p.OutputSchema))
		for j, col := range p.OutputSchema {
			if j < len(outRow) {
				m[col.Name] = schema.ToJSON(outRow[j])
			}
		}

		data[i] = m
	}

	return Result{
		Pipeline: req.Pipeline,
		Status:   "OK",
		Time:     time.Since(start).Seconds(),
		Count:    len(rows),
		Data:     data,
		Errors:   renderErrors(collector.Errors()),
	}
}

func errorResult(name string, err error) Result {
	return Result{Pipeline: name, Status: "ERROR", Errors: []ResultError{{Message: err.Error()}}}
}

func renderErrors(rowErrors []schema.RowError) []ResultError {
	if len(rowErrors) == 0 {
		return nil
	}

	out := make([]ResultError, len(rowErrors))
	for i, e := range rowErrors {
		out[i] = ResultError{Row: e.Row, Column: e.Column, Stage: e.Stage, Message: e.Message}
	}

	return out
}

// healthCheckTimeout bounds how long a single lookup source's probe may
// take before HealthCheck gives up on it.
const healthCheckTimeout = 2 * time.Second

// HealthCheck reports true iff every registered lookup source's probe
// succeeds within healthCheckTimeout, per spec.md §4.9.
func (r *Runtime) HealthCheck(ctx context.Context) bool {
	for name, src := range r.buildContext().LookupSources {
		probeCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
		err := src.Probe(probeCtx)
		cancel()

		if err != nil {
			if r.logger != nil {
				r.logger.Warn("lookup source probe failed", slog.String("source", name), slog.String("error", err.Error()))
			}

			return false
		}
	}

	return true
}

// GetPipelines renders every active pipeline's schemas and operator
// descriptions for the GET /pipelines introspection endpoint.
func (r *Runtime) GetPipelines() map[string]interface{} {
	snapshot := *r.pipelines.Load()
	out := make(map[string]interface{}, len(snapshot))

	for name, p := range snapshot {
		out[name] = p.Dump()
	}

	return out
}

// GetLookupSources renders every registered lookup source's redacted
// description for the GET /lookup-sources introspection endpoint.
func (r *Runtime) GetLookupSources() map[string]interface{} {
	return r.buildContext().DumpLookupSources()
}
