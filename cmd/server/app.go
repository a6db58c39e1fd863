package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	apiv2 "github.com/atlarge-research/opendc-api/internal/api/v2"
	"github.com/atlarge-research/opendc-api/internal/config"
	"github.com/atlarge-research/opendc-api/internal/platform/metrics"
	"github.com/atlarge-research/opendc-api/internal/platform/postgres"
	"github.com/atlarge-research/opendc-api/internal/rest"
	"github.com/atlarge-research/opendc-api/internal/service/auth"
	"github.com/atlarge-research/opendc-api/internal/store"
)

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	store      store.DocumentStore
	verifier   auth.Verifier
	registry   *rest.Registry
	dispatcher *rest.Dispatcher

	promRegistry *prometheus.Registry
}

// newApplication creates a new application instance with all dependencies
// initialized. It accepts core dependencies like configuration, logger, and
// database connection that must be established before application
// initialization.
func newApplication(cfg *config.Config, log *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: log,
		db:     db,
	}

	app.store = postgres.NewDocumentStore(db, log)

	verifier, err := auth.NewJWKSVerifier(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token verifier: %w", err)
	}
	app.verifier = verifier
	log.Info("Token verifier initialized",
		"issuer", cfg.Auth.Issuer,
		"jwks_url", cfg.Auth.JWKSURL)

	app.promRegistry = prometheus.NewRegistry()
	app.promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	requestMetrics := metrics.New(app.promRegistry)

	app.registry = rest.NewRegistry(apiv2.Version)
	handlers := apiv2.New(app.store, log)
	if err := handlers.Register(app.registry); err != nil {
		return nil, fmt.Errorf("failed to register %s routes: %w", apiv2.Version, err)
	}

	app.dispatcher = rest.NewDispatcher(app.registry, app.verifier, log, requestMetrics)

	log.Info("Application initialized successfully")
	return app, nil
}

// Run starts the application server, handling lifecycle and cleanup.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}

	app.logger.Info("Application shutdown completed")
}
