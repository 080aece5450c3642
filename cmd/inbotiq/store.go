package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/itz-ankit01/inbotiq-core/internal/audit"
	"github.com/itz-ankit01/inbotiq-core/internal/auth"
	"github.com/itz-ankit01/inbotiq-core/internal/auth/pgstore"
	"github.com/itz-ankit01/inbotiq-core/internal/infrastructure/config"
	"github.com/itz-ankit01/inbotiq-core/internal/infrastructure/database"
	"github.com/itz-ankit01/inbotiq-core/internal/infrastructure/logging"
	"github.com/itz-ankit01/inbotiq-core/internal/infrastructure/postgres"
)

// store bundles the repositories of whichever backend the DSN selects.
type store struct {
	driver      string
	users       auth.UserRepository
	revocations auth.RevocationRepository
	audit       audit.Repository
	healthCheck func(ctx context.Context) error
	close       func() error
}

// openStore connects to the durable store and applies migrations. Any
// failure here is fatal to startup.
func openStore(ctx context.Context, cfg config.DatabaseConfig, log *logging.Logger) (*store, error) {
	switch cfg.Driver() {
	case config.DriverPostgres:
		return openPostgres(ctx, cfg, log)
	default:
		return openSQLite(ctx, cfg, log)
	}
}

func openSQLite(ctx context.Context, cfg config.DatabaseConfig, log *logging.Logger) (*store, error) {
	db, err := database.Open(ctx, database.Config{
		Path:        cfg.SQLitePath(),
		WALMode:     cfg.WALMode,
		BusyTimeout: cfg.BusyTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	log.Info("database connected", "driver", config.DriverSQLite, "path", db.Path())

	if err := db.Migrate(ctx); err != nil {
		return nil, errors.Join(fmt.Errorf("running migrations: %w", err), db.Close())
	}
	log.Info("database migrations complete")

	return &store{
		driver:      config.DriverSQLite,
		users:       auth.NewUserRepository(db.DB),
		revocations: auth.NewRevocationRepository(db.DB),
		audit:       audit.NewSQLiteRepository(db.DB),
		healthCheck: db.HealthCheck,
		close:       db.Close,
	}, nil
}

func openPostgres(ctx context.Context, cfg config.DatabaseConfig, log *logging.Logger) (*store, error) {
	pool, err := postgres.Open(ctx, postgres.Config{
		DSN:      cfg.DSN,
		MaxConns: int32(cfg.MaxConns), //nolint:gosec // validated to a small positive value
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	log.Info("database connected", "driver", config.DriverPostgres)

	if err := migratePostgres(cfg.DSN); err != nil {
		pool.Close()
		return nil, err
	}
	log.Info("database migrations complete")

	return &store{
		driver:      config.DriverPostgres,
		users:       pgstore.NewUserRepository(pool),
		revocations: pgstore.NewRevocationRepository(pool),
		audit:       audit.NewPostgresRepository(pool),
		healthCheck: pool.Ping,
		close: func() error {
			pool.Close()
			return nil
		},
	}, nil
}

func migratePostgres(dsn string) error {
	m, err := postgres.NewMigrator(dsn)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	if err := m.Up(); err != nil {
		return errors.Join(fmt.Errorf("running migrations: %w", err), m.Close())
	}
	return m.Close()
}
