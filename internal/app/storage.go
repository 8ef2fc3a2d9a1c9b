package app

import (
	"context"
	"fmt"

	"github.com/bissquit/incident-tracker/internal/config"
	"github.com/bissquit/incident-tracker/internal/incidents"
	incidentspostgres "github.com/bissquit/incident-tracker/internal/incidents/postgres"
	incidentssqlite "github.com/bissquit/incident-tracker/internal/incidents/sqlite"
	"github.com/bissquit/incident-tracker/internal/pkg/dbmigrate"
	"github.com/bissquit/incident-tracker/internal/pkg/metrics"
	"github.com/bissquit/incident-tracker/internal/pkg/postgres"
	"github.com/bissquit/incident-tracker/internal/pkg/sqlite"
)

// storage is the incident store selected by configuration together with
// the lifecycle hooks of its connection.
type storage struct {
	repo          incidents.Repository
	ping          func(context.Context) error
	recordMetrics func()
	close         func()
}

func openStorage(ctx context.Context, cfg config.DatabaseConfig) (*storage, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		return openPostgres(ctx, cfg)
	case config.DriverSQLite:
		return openSQLite(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func openPostgres(ctx context.Context, cfg config.DatabaseConfig) (*storage, error) {
	pool, err := postgres.Connect(ctx, postgres.Config{
		URL:             cfg.URL,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnectAttempts: cfg.ConnectAttempts,
		ApplicationName: "incident-tracker",
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if cfg.AutoMigrate {
		if err := dbmigrate.Up(dbmigrate.DriverPostgres, cfg.URL); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
	}

	return &storage{
		repo:          incidentspostgres.NewRepository(pool),
		ping:          pool.Ping,
		recordMetrics: func() { metrics.RecordPgxPoolMetrics(pool) },
		close:         pool.Close,
	}, nil
}

func openSQLite(ctx context.Context, cfg config.DatabaseConfig) (*storage, error) {
	db, err := sqlite.Open(ctx, sqlite.Config{Path: cfg.Path})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if cfg.AutoMigrate {
		if err := dbmigrate.UpSQLite(ctx, cfg.Path); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
	}

	return &storage{
		repo:          incidentssqlite.NewRepository(db),
		ping:          db.PingContext,
		recordMetrics: func() { metrics.RecordSQLDBMetrics(config.DriverSQLite, db) },
		close:         func() { _ = db.Close() },
	}, nil
}
