package api

import (
	"testing"

	"github.com/correlator-io/featurepipe/internal/aggregation"
	"github.com/correlator-io/featurepipe/internal/function"
	"github.com/correlator-io/featurepipe/internal/pipeline"
)

func TestNewServer_PanicsOnNilRuntime(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	defer func() {
		if recover() == nil {
			t.Fatal("NewServer should panic when runtime is nil")
		}
	}()

	cfg := LoadServerConfig()
	cfg.PipelineDefinitionFile = "/tmp/pipelines.yaml"

	NewServer(&cfg, nil, nil, nil)
}

func TestNewServer_RegistersRoutes(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	ctx := pipeline.NewBuildContext(function.NewBuiltinRegistry(), aggregation.NewBuiltinRegistry(), nil)
	runtime := pipeline.NewRuntime(nil, ctx, testLogger())

	cfg := LoadServerConfig()
	cfg.PipelineDefinitionFile = "/tmp/pipelines.yaml"

	srv := NewServer(&cfg, nil, nil, runtime)

	if srv.httpServer == nil {
		t.Fatal("NewServer should set up an http.Server")
	}

	if srv.httpServer.Addr != cfg.Address() {
		t.Errorf("Addr = %q, want %q", srv.httpServer.Addr, cfg.Address())
	}
}

func TestServer_Start_RejectsInvalidConfig(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	ctx := pipeline.NewBuildContext(function.NewBuiltinRegistry(), aggregation.NewBuiltinRegistry(), nil)
	runtime := pipeline.NewRuntime(nil, ctx, testLogger())

	cfg := LoadServerConfig()
	cfg.PipelineDefinitionFile = "/tmp/pipelines.yaml"
	cfg.Port = 0 // invalid

	srv := NewServer(&cfg, nil, nil, runtime)

	if err := srv.Start(); err == nil {
		t.Error("Start() should fail fast on an invalid config")
	}
}
