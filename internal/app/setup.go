package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/greenloop/esgpilot/db"
	"github.com/greenloop/esgpilot/internal/config"
	"github.com/greenloop/esgpilot/internal/database"
	"github.com/greenloop/esgpilot/internal/enrich"
	"github.com/greenloop/esgpilot/internal/esg"
	"github.com/greenloop/esgpilot/internal/generate"
	"github.com/greenloop/esgpilot/internal/observability"
	"github.com/greenloop/esgpilot/internal/report"
	"github.com/greenloop/esgpilot/internal/session"
	"github.com/greenloop/esgpilot/internal/workflow"
)

// Setup creates and initializes the application.
// Returns an App with embedded cleanup — call Close() to release.
func Setup(ctx context.Context, cfg *config.Config) (_ *App, retErr error) {
	a := &App{Config: cfg}

	// On error, clean up everything already initialized
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				slog.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	a.otelCleanup = provideOtelShutdown(ctx, cfg)

	pool, dbCleanup, err := provideDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.dbCleanup = dbCleanup
	a.DBPool = pool

	g, err := provideGenkit(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	logger := slog.Default()

	a.Generator = generate.New(g, generate.Config{
		ModelName:   cfg.ModelName,
		Temperature: float64(cfg.Temperature),
		Timeout:     cfg.GenerationTimeout,
		Retry: generate.RetryConfig{
			MaxRetries:      cfg.GenerationRetries,
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     10 * time.Second,
		},
		Breaker: generate.CircuitBreakerConfig{
			FailureThreshold: cfg.BreakerFailureThreshold,
			SuccessThreshold: cfg.BreakerSuccessThreshold,
			Timeout:          cfg.BreakerCooldown,
		},
		RateLimit: cfg.GenerationRateLimit,
		RateBurst: cfg.GenerationRateBurst,
	}, logger)

	a.Enricher = provideEnricher(a.Generator, cfg, logger)

	dataStore := esg.NewStore(pool, logger)
	a.SessionStore = session.NewPGStore(pool, logger)

	assembler := report.NewAssembler(dataStore, a.Enricher, logger)
	registry := workflow.NewRegistry(dataStore, assembler)

	a.Engine = workflow.NewEngine(dataStore, registry, a.Generator, a.SessionStore, logger)
	a.ChatFlow = workflow.DefineChatFlow(g, a.Engine)

	return a, nil
}

// provideOtelShutdown sets up OTLP tracing before Genkit initialization
// so Genkit's TracerProvider is ready when flows are defined.
func provideOtelShutdown(ctx context.Context, cfg *config.Config) func() {
	obs := cfg.Observability
	shutdown, err := observability.Setup(ctx, observability.Config{
		Enabled:     obs.Enabled,
		AgentHost:   obs.AgentHost,
		Environment: obs.Environment,
		ServiceName: obs.ServiceName,
	})
	if err != nil {
		slog.Warn("setting up tracing, continuing without it", "error", err)
		return func() {}
	}

	//nolint:contextcheck // Independent context: shutdown runs during teardown when parent is canceled
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			slog.Warn("shutting down tracer provider", "error", err)
		}
	}
}

// provideDBPool runs migrations and creates the PostgreSQL connection
// pool.
func provideDBPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, func(), error) {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, nil, fmt.Errorf("running migrations: %w", err)
	}

	pool, err := database.NewPool(ctx, cfg.PostgresConnectionString())
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		pool.Close()
	}

	return pool, cleanup, nil
}

// provideGenkit initializes Genkit with the configured AI provider.
// Call ordering in Setup ensures tracing is set up first.
func provideGenkit(ctx context.Context, cfg *config.Config) (*genkit.Genkit, error) {
	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	if g == nil {
		return nil, errors.New("initializing genkit with gemini provider")
	}
	slog.Info("initialized Genkit with gemini provider", "model", cfg.ModelName)

	return g, nil
}

// provideEnricher creates the enrichment coordinator. Caching can be
// switched off in configuration for debugging narrative generation.
func provideEnricher(gen *generate.Generator, cfg *config.Config, logger *slog.Logger) *enrich.Coordinator {
	var cache enrich.Cache = enrich.NopCache{}
	if cfg.EnrichmentCache {
		cache = enrich.NewMemoryCache()
	}
	return enrich.NewCoordinator(gen, cache, cfg.SectionTimeout, logger)
}
