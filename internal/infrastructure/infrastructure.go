// Package infrastructure provides core service initialization for application startup.
// It assembles common dependencies (logging, database, storage, events, telemetry)
// that domain systems require.
package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/JaimeStill/concord/internal/config"
	"github.com/JaimeStill/concord/pkg/database"
	"github.com/JaimeStill/concord/pkg/events"
	"github.com/JaimeStill/concord/pkg/lifecycle"
	"github.com/JaimeStill/concord/pkg/storage"
	"github.com/JaimeStill/concord/pkg/telemetry"
	"github.com/JaimeStill/concord/workflow"
)

// Infrastructure holds the core systems required by all domain modules.
// It provides a single point of initialization for lifecycle coordination,
// logging, database access, file storage, event publication, and telemetry.
type Infrastructure struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	Database  database.System
	Storage   storage.System
	Events    events.Publisher
	Telemetry *telemetry.Telemetry
	Metrics   *workflow.Metrics
}

// New creates an Infrastructure from the application configuration.
// It initializes all systems but does not start them; call Start separately.
// Events use a noop publisher when no NATS URL is configured.
func New(ctx context.Context, cfg *config.Config) (*Infrastructure, error) {
	lc := lifecycle.New()
	logger := NewLogger(&cfg.Logging, os.Stderr)

	tel, err := telemetry.New(ctx, &cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("telemetry init failed: %w", err)
	}

	db, err := database.New(&cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}

	store, err := storage.New(&cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("storage init failed: %w", err)
	}

	publisher := events.Noop()
	if cfg.Events.Enabled() {
		js, err := events.Connect(ctx, &cfg.Events, logger)
		if err != nil {
			return nil, fmt.Errorf("events init failed: %w", err)
		}
		publisher = js
	} else {
		logger.Info("event publishing disabled")
	}

	return &Infrastructure{
		Lifecycle: lc,
		Logger:    logger,
		Database:  db,
		Storage:   store,
		Events:    publisher,
		Telemetry: tel,
		Metrics:   workflow.NewMetrics(tel.Registry()),
	}, nil
}

// Start registers all infrastructure systems with the lifecycle coordinator.
// Database and storage hooks are registered for startup and shutdown coordination;
// the event connection and telemetry exporters are flushed on shutdown.
func (i *Infrastructure) Start() error {
	if err := i.Database.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("database start failed: %w", err)
	}
	if err := i.Storage.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("storage start failed: %w", err)
	}

	i.Lifecycle.OnShutdown(func() {
		<-i.Lifecycle.Context().Done()

		if err := i.Events.Close(); err != nil {
			i.Logger.Error("event publisher close failed", "error", err)
		}
		if err := i.Telemetry.Shutdown(context.Background()); err != nil {
			i.Logger.Error("telemetry shutdown failed", "error", err)
		}
	})

	return nil
}

// Ready reports whether the database and blob container are reachable.
func (i *Infrastructure) Ready(ctx context.Context) error {
	if err := i.Database.Ping(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := i.Storage.Ping(ctx); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	return nil
}
