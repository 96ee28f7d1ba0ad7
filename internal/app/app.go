// Package app provides application initialization and dependency
// wiring.
//
// App is the container that assembles the conversational orchestrator:
// configuration, tracing, the database pool, Genkit, the response
// generator with its resilience stack, the enrichment coordinator,
// the tool registry, and the workflow engine. Setup builds everything
// in dependency order; Close releases it in reverse.
package app

import (
	"log/slog"

	"github.com/firebase/genkit/go/core"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/greenloop/esgpilot/internal/config"
	"github.com/greenloop/esgpilot/internal/enrich"
	"github.com/greenloop/esgpilot/internal/generate"
	"github.com/greenloop/esgpilot/internal/session"
	"github.com/greenloop/esgpilot/internal/workflow"
)

// App is the core application container.
type App struct {
	// Configuration
	Config *config.Config

	// Core services
	Genkit       *genkit.Genkit
	DBPool       *pgxpool.Pool
	SessionStore session.Store
	Generator    *generate.Generator
	Enricher     *enrich.Coordinator
	Engine       *workflow.Engine
	ChatFlow     *core.Flow[workflow.ChatInput, string, string]

	// Lifecycle management
	otelCleanup func()
	dbCleanup   func()
}

// Close gracefully shuts down all resources.
func (a *App) Close() error {
	slog.Info("shutting down application")

	if a.dbCleanup != nil {
		a.dbCleanup()
		slog.Info("database pool closed")
	}

	// Flush pending trace spans last so shutdown itself is traced.
	if a.otelCleanup != nil {
		a.otelCleanup()
	}

	return nil
}
