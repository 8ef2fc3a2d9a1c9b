// Package dbmigrate applies the embedded schema migrations with golang-migrate.
package dbmigrate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bissquit/incident-tracker/internal/pkg/sqlite"
	"github.com/bissquit/incident-tracker/migrations"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres" // postgres:// URLs
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// Supported drivers. Each names a directory in migrations.FS.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Up applies all pending migrations of driver to the database at url.
func Up(driver, url string) error {
	src, err := iofs.New(migrations.FS, driver)
	if err != nil {
		return fmt.Errorf("open %s migrations: %w", driver, err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, url)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	return apply(driver, m)
}

// UpSQLite applies all pending sqlite migrations to the database file at
// path. The file is opened through sqlite.Open, so any path it accepts
// works here too.
func UpSQLite(ctx context.Context, path string) error {
	db, err := sqlite.Open(ctx, sqlite.Config{Path: path})
	if err != nil {
		return err
	}

	drv, err := sqlitemigrate.WithInstance(db, &sqlitemigrate.Config{})
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("create sqlite migration driver: %w", err)
	}

	src, err := iofs.New(migrations.FS, DriverSQLite)
	if err != nil {
		_ = drv.Close()
		return fmt.Errorf("open %s migrations: %w", DriverSQLite, err)
	}

	m, err := migrate.NewWithInstance("iofs", src, DriverSQLite, drv)
	if err != nil {
		_ = drv.Close()
		return fmt.Errorf("create migrator: %w", err)
	}
	return apply(DriverSQLite, m)
}

// apply runs m up to the latest version and closes it.
func apply(driver string, m *migrate.Migrate) error {
	defer func() {
		srcErr, dbErr := m.Close()
		if err := errors.Join(srcErr, dbErr); err != nil {
			slog.Warn("failed to close migrator", "error", err)
		}
	}()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("read schema version: %w", err)
	}

	slog.Info("database schema up to date",
		"driver", driver,
		"version", version,
		"dirty", dirty,
	)
	return nil
}
