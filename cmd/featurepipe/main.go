// Package main provides the featurepipe feature transformation service.
//
// It loads a pipeline definition file and an optional lookup-source
// definition file, compiles the declared pipelines against the built-in
// function/aggregation registries and any configured lookup sources, and
// serves the result over the HTTP API described by spec.md §6.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"

	"github.com/correlator-io/featurepipe/internal/aggregation"
	"github.com/correlator-io/featurepipe/internal/api"
	"github.com/correlator-io/featurepipe/internal/api/middleware"
	"github.com/correlator-io/featurepipe/internal/dsl"
	"github.com/correlator-io/featurepipe/internal/function"
	"github.com/correlator-io/featurepipe/internal/pipeline"
	"github.com/correlator-io/featurepipe/internal/storage"
)

// Version information.
const (
	version = "1.0.0-dev"
	name    = "featurepipe"
)

func main() {
	versionFlag := flag.Bool("version", false, "show version information")
	flag.Parse()

	if *versionFlag {
		log.Printf("%s v%s\n", name, version)
		os.Exit(0)
	}

	serverConfig := api.LoadServerConfig()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: serverConfig.LogLevel,
	}))

	logger.Info("Starting featurepipe service",
		slog.String("service", name),
		slog.String("version", version),
	)

	logger.Info("Loaded server configuration",
		slog.String("host", serverConfig.Host),
		slog.Int("port", serverConfig.Port),
		slog.Duration("read_timeout", serverConfig.ReadTimeout),
		slog.Duration("write_timeout", serverConfig.WriteTimeout),
		slog.Duration("shutdown_timeout", serverConfig.ShutdownTimeout),
		slog.String("log_level", serverConfig.LogLevel.String()),
	)

	if err := serverConfig.Validate(); err != nil {
		logger.Error("Invalid server configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	runtime, err := buildRuntime(serverConfig, logger)
	if err != nil {
		logger.Error("Failed to build pipeline runtime", slog.String("error", err.Error()))
		os.Exit(1)
	}

	apiKeyStore, err := buildAPIKeyStore(serverConfig, logger)
	if err != nil {
		logger.Error("Failed to build API key store", slog.String("error", err.Error()))
		os.Exit(1)
	}

	rateLimiter := middleware.NewInMemoryRateLimiter(middleware.LoadConfig())

	reloadConsumer := startReloadConsumer(serverConfig, runtime, logger)
	if reloadConsumer != nil {
		defer reloadConsumer.Close()
	}

	server := api.NewServer(&serverConfig, apiKeyStore, rateLimiter, runtime)

	if err := server.Start(); err != nil {
		logger.Error("Server failed to start", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("featurepipe service stopped")
}

// compilePipelines loads the lookup-source definition file and the pipeline
// definition file named by cfg and compiles the latter against the former,
// returning a fresh pipeline set and the BuildContext it was compiled
// against. Shared between the initial startup build and every subsequent
// hot reload so the two paths can never drift.
func compilePipelines(cfg api.ServerConfig, logger *slog.Logger) (map[string]*pipeline.Pipeline, *pipeline.BuildContext, error) {
	lookupSources, err := pipeline.LoadLookupSources(cfg.LookupDefinitionFile)
	if err != nil {
		return nil, nil, err
	}

	logger.Info("Loaded lookup sources", slog.Int("count", len(lookupSources)))

	buildCtx := pipeline.NewBuildContext(
		function.NewBuiltinRegistry(),
		aggregation.NewBuiltinRegistry(),
		lookupSources,
	)

	src, err := os.ReadFile(cfg.PipelineDefinitionFile) //nolint:gosec // path is operator-supplied
	if err != nil {
		return nil, nil, err
	}

	pipelines, err := dsl.Compile(string(src), buildCtx)
	if err != nil {
		return nil, nil, err
	}

	logger.Info("Compiled pipelines", slog.Int("count", len(pipelines)))

	return pipelines, buildCtx, nil
}

// buildRuntime performs the initial compile and wraps the result in a
// Runtime. Any failure here is a startup failure per spec.md §6's exit-code
// contract.
func buildRuntime(cfg api.ServerConfig, logger *slog.Logger) (*pipeline.Runtime, error) {
	pipelines, buildCtx, err := compilePipelines(cfg, logger)
	if err != nil {
		return nil, err
	}

	return pipeline.NewRuntime(pipelines, buildCtx, logger), nil
}

// startReloadConsumer wires an optional Kafka-driven hot-reload consumer
// (spec.md §5's atomic-replacement guarantee, triggered externally). Returns
// nil when FEATUREPIPE_RELOAD_KAFKA_BROKERS/_TOPIC are not configured - not
// every deployment needs externally-triggered reload.
func startReloadConsumer(cfg api.ServerConfig, runtime *pipeline.Runtime, logger *slog.Logger) *pipeline.ReloadConsumer {
	reloadCfg, enabled := pipeline.LoadReloadConfig()
	if !enabled {
		return nil
	}

	rebuild := func() (map[string]*pipeline.Pipeline, *pipeline.BuildContext, error) {
		return compilePipelines(cfg, logger)
	}

	consumer := pipeline.NewReloadConsumer(reloadCfg, runtime, rebuild, logger)

	go func() {
		if err := consumer.Run(context.Background()); err != nil {
			logger.Error("reload consumer stopped", slog.String("error", err.Error()))
		}
	}()

	logger.Info("Hot-reload consumer started",
		slog.Any("brokers", reloadCfg.Brokers),
		slog.String("topic", reloadCfg.Topic),
		slog.String("group_id", reloadCfg.GroupID),
	)

	return consumer
}

// buildAPIKeyStore chooses between a durable, Postgres-backed key store and
// an in-process one based on ENABLE_MANAGED_IDENTITY: a managed-identity
// deployment is a real cloud deployment, where API keys must survive a
// restart; local/dev runs (the common case for a definition-file-driven
// pipeline engine) get a zero-dependency in-memory store.
func buildAPIKeyStore(cfg api.ServerConfig, logger *slog.Logger) (storage.APIKeyStore, error) {
	if !cfg.EnableManagedIdentity {
		logger.Info("Managed identity disabled, using in-memory API key store")

		return storage.NewInMemoryKeyStore(), nil
	}

	dbConfig := storage.LoadConfig()

	conn, err := storage.NewConnection(dbConfig)
	if err != nil {
		return nil, err
	}

	logger.Info("Managed identity enabled, using persistent API key store",
		slog.String("database", dbConfig.MaskDatabaseURL()))

	return storage.NewPersistentKeyStore(conn)
}
