package store

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed migrations
var migrationsFS embed.FS

// migrateUp applies pending migrations over a dedicated connection, which
// golang-migrate closes when done.
func migrateUp(d dialect, cfg Config, log *zap.Logger) error {
	db, err := sql.Open(d.driverName, d.dsn(cfg))
	if err != nil {
		return fmt.Errorf("opening database for migrations: %w", err)
	}

	var drv database.Driver
	switch d.name {
	case DriverPostgres:
		drv, err = postgres.WithInstance(db, &postgres.Config{})
	default:
		drv, err = sqlite3.WithInstance(db, &sqlite3.Config{})
	}
	if err != nil {
		db.Close()
		return fmt.Errorf("creating %s migration driver: %w", d.name, d.classify(err))
	}

	src, err := iofs.New(migrationsFS, d.migrateDir)
	if err != nil {
		drv.Close()
		return fmt.Errorf("reading embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, d.name, drv)
	if err != nil {
		drv.Close()
		return fmt.Errorf("creating migration instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Debug("no new migrations")
			return nil
		}
		var dirtyErr migrate.ErrDirty
		if errors.As(err, &dirtyErr) {
			return fmt.Errorf("migration failed: dirty database version %d", dirtyErr.Version)
		}
		return fmt.Errorf("migration failed: %w", err)
	}

	version, _, _ := m.Version()
	log.Info("migrations applied", zap.String("driver", d.name), zap.Uint("version", version))
	return nil
}
