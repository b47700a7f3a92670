package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/ferg-cod3s/docsyncer/internal/app"
	"github.com/ferg-cod3s/docsyncer/internal/config"
	"github.com/ferg-cod3s/docsyncer/internal/connectors"
	"github.com/ferg-cod3s/docsyncer/internal/embedding"
	"github.com/ferg-cod3s/docsyncer/internal/indexer"
	"github.com/ferg-cod3s/docsyncer/internal/observability"
	"github.com/ferg-cod3s/docsyncer/internal/vectorstore/sqlite"
)

// Version is the build version reported by the health endpoint and CLI.
const Version = "0.1.3-alpha"

// runtime bundles every long-lived component a CLI command might need.
// Close releases everything it owns; commands that don't need the full
// pipeline (e.g. a future `config validate`) can still use runtime for
// the ambient stack alone.
type runtime struct {
	cfg            *config.Config
	logger         *observability.Logger
	metrics        *observability.MetricsCollector
	tracerProvider *observability.TracerProvider
	errorHandler   *observability.ErrorHandler
	vectorStore    *sqlite.Store
	connectorStore connectors.ConnectorStore
	embedder       embedding.Embedder
	indexController indexer.IndexController
	pipeline       *app.Pipeline
}

// newRuntime loads configuration and assembles the GitSync -> ... ->
// ContextGenerator pipeline plus the observability stack, exactly once,
// so every CLI command sees the same wiring the long-running server does.
func newRuntime(ctx context.Context, toStderr bool) (*runtime, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	logOutput := os.Stdout
	if toStderr {
		logOutput = os.Stderr
	}
	logger := observability.NewLogger(observability.LoggerConfig{
		Level:         cfg.Logging.Level,
		Format:        cfg.Logging.Format,
		Output:        logOutput,
		AddSource:     true,
		SentryEnabled: cfg.Observability.Sentry.Enabled,
	})

	var metrics *observability.MetricsCollector
	if cfg.Observability.Metrics.Enabled {
		metrics = observability.NewMetricsCollector("conexus")
	}

	var tracerProvider *observability.TracerProvider
	if cfg.Observability.Tracing.Enabled {
		tracerProvider, err = observability.NewTracerProvider(observability.TracerConfig{
			ServiceName:    "conexus",
			ServiceVersion: Version,
			Environment:    "development",
			OTLPEndpoint:   cfg.Observability.Tracing.Endpoint,
			SamplingRate:   cfg.Observability.Tracing.SampleRate,
			Enabled:        true,
		})
		if err != nil {
			return nil, fmt.Errorf("initializing tracing: %w", err)
		}
	}

	if cfg.Observability.Sentry.Enabled {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.Observability.Sentry.DSN,
			Environment:      cfg.Observability.Sentry.Environment,
			Release:          cfg.Observability.Sentry.Release,
			TracesSampleRate: cfg.Observability.Sentry.SampleRate,
			EnableTracing:    true,
			EnableLogs:       true,
		}); err != nil {
			return nil, fmt.Errorf("initializing sentry: %w", err)
		}
	}

	errorHandler := observability.NewErrorHandler(logger, metrics, cfg.Observability.Sentry.Enabled)

	vectorStore, err := sqlite.NewStore(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("initializing vector store: %w", err)
	}

	connectorStore, err := connectors.NewStore(cfg.Database.Path)
	if err != nil {
		vectorStore.Close()
		return nil, fmt.Errorf("initializing connector store: %w", err)
	}

	provider, err := embedding.Get(cfg.Embedding.Provider)
	if err != nil {
		return nil, fmt.Errorf("getting embedding provider %q: %w", cfg.Embedding.Provider, err)
	}
	providerConfig := make(map[string]interface{}, len(cfg.Embedding.Config)+2)
	for k, v := range cfg.Embedding.Config {
		providerConfig[k] = v
	}
	providerConfig["model"] = cfg.Embedding.Model
	providerConfig["dimensions"] = cfg.Embedding.Dimensions
	embedder, err := provider.Create(providerConfig)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	idx := indexer.NewIndexController("./data/indexer_state.json")

	pipeline, err := app.NewPipeline(cfg, vectorStore, embedder)
	if err != nil {
		logger.Error("documentation pipeline unavailable, continuing without repository tools", "error", err)
		pipeline = nil
	}

	return &runtime{
		cfg:              cfg,
		logger:           logger,
		metrics:          metrics,
		tracerProvider:   tracerProvider,
		errorHandler:     errorHandler,
		vectorStore:      vectorStore,
		connectorStore:   connectorStore,
		embedder:         embedder,
		indexController:  idx,
		pipeline:         pipeline,
	}, nil
}

func (rt *runtime) Close() {
	if rt.pipeline != nil {
		rt.pipeline.Close()
	}
	if rt.tracerProvider != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		rt.tracerProvider.Shutdown(shutdownCtx)
	}
	if rt.cfg.Observability.Sentry.Enabled {
		sentry.Flush(2 * time.Second)
	}
	rt.connectorStore.Close()
	rt.vectorStore.Close()
}
