package main

import (
	"embed"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"

	"github.com/JaimeStill/concord/internal/config"
	"github.com/JaimeStill/concord/pkg/database"
)

//go:embed migrations/*.sql
var migrations embed.FS

const envDSN = "CONCORD_DB_DSN"

func main() {
	var (
		dsn     = flag.String("dsn", "", "Database connection URL (default: $CONCORD_DB_DSN or CONCORD_DB_* settings)")
		up      = flag.Bool("up", false, "Run all up migrations")
		down    = flag.Bool("down", false, "Run all down migrations")
		steps   = flag.Int("steps", 0, "Number of migrations (positive=up, negative=down)")
		version = flag.Bool("version", false, "Print current migration version")
		force   = flag.Int("force", -1, "Force set version (use with caution)")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil)).With("system", "migrate")

	forceSet := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "force" {
			forceSet = true
		}
	})

	url, err := resolveDSN(*dsn)
	if err != nil {
		fatal(logger, "database config invalid", err)
	}

	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		fatal(logger, "failed to create migration source", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, url)
	if err != nil {
		fatal(logger, "failed to create migrator", err)
	}
	defer m.Close()

	switch {
	case *version:
		v, dirty, err := m.Version()
		if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
			fatal(logger, "failed to get version", err)
		}
		fmt.Printf("version: %d, dirty: %v\n", v, dirty)
	case forceSet:
		if err := m.Force(*force); err != nil {
			fatal(logger, "failed to force version", err)
		}
		logger.Info("forced version", "version", *force)
	case *up:
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			fatal(logger, "failed to run up migrations", err)
		}
		logger.Info("migrations applied")
	case *down:
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			fatal(logger, "failed to run down migrations", err)
		}
		logger.Info("migrations reverted")
	case *steps != 0:
		if err := m.Steps(*steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			fatal(logger, "failed to run migrations", err)
		}
		logger.Info("migration steps applied", "steps", *steps)
	default:
		fmt.Println("usage: migrate [-dsn <url>] [-up|-down|-steps N|-version|-force N]")
		flag.PrintDefaults()
	}
}

// resolveDSN prefers the flag, then CONCORD_DB_DSN, then the same
// CONCORD_DB_* variables the server reads.
func resolveDSN(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if v := os.Getenv(envDSN); v != "" {
		return v, nil
	}

	cfg := database.Config{Name: "concord", User: "concord", Password: "concord"}
	if err := cfg.Finalize(config.DatabaseEnv); err != nil {
		return "", err
	}
	return cfg.URL(), nil
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "error", err)
	os.Exit(1)
}
