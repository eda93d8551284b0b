// Package database owns the PostgreSQL pool behind the document, prompt and
// classification repositories.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/JaimeStill/concord/pkg/lifecycle"
)

// System exposes the pool and ties it to the process lifecycle.
type System interface {
	Connection() *sql.DB
	// Start pings the database at startup and closes the pool once the
	// lifecycle context ends.
	Start(lc *lifecycle.Coordinator) error
	// Ping reports ErrNotReady when the database does not answer within
	// the configured connection timeout.
	Ping(ctx context.Context) error
}

type database struct {
	conn    *sql.DB
	logger  *slog.Logger
	timeout time.Duration
}

// New configures the pool. sql.Open is lazy, so no connection is made
// until the first query or Ping.
func New(cfg *Config, logger *slog.Logger) (System, error) {
	conn, err := sql.Open("pgx", cfg.Dsn())
	if err != nil {
		return nil, fmt.Errorf("open database %s@%s: %w", cfg.Name, cfg.Host, err)
	}
	conn.SetMaxOpenConns(cfg.MaxOpenConns)
	conn.SetMaxIdleConns(cfg.MaxIdleConns)
	conn.SetConnMaxLifetime(cfg.ConnMaxLifetimeDuration())

	return &database{
		conn:    conn,
		logger:  logger.With("system", "database", "name", cfg.Name),
		timeout: cfg.ConnTimeoutDuration(),
	}, nil
}

func (d *database) Connection() *sql.DB { return d.conn }

func (d *database) Ping(ctx context.Context) error {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	if err := d.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrNotReady, err)
	}
	return nil
}

func (d *database) Start(lc *lifecycle.Coordinator) error {
	lc.OnStartup(func() {
		if err := d.Ping(lc.Context()); err != nil {
			// Readiness keeps failing until the database answers.
			d.logger.Error("startup ping failed", "error", err)
			return
		}
		d.logger.Info("database reachable")
	})

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		if err := d.conn.Close(); err != nil {
			d.logger.Error("close pool", "error", err)
			return
		}
		d.logger.Info("pool closed")
	})
	return nil
}
