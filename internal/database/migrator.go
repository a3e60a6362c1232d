package database

import (
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"
)

// Migrator applies SQL migrations from a directory against the pool's
// database. It holds a database/sql handle onto the pool that must be
// released with Close.
type Migrator struct {
	m      *migrate.Migrate
	sqlDB  *sql.DB
	logger zerolog.Logger
}

// NewMigrator opens the migrations directory and binds it to db.
func NewMigrator(db *DB, dir string, logger zerolog.Logger) (*Migrator, error) {
	if db == nil || db.pool == nil {
		return nil, errors.New("database connection is required")
	}
	if dir == "" {
		return nil, errors.New("migrations directory is required")
	}
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("migrations directory: %w", err)
	}

	sqlDB := stdlib.OpenDBFromPool(db.pool)
	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{
		MigrationsTable: "schema_migrations",
	})
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("postgres migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+dir, "postgres", driver)
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("opening migrations: %w", err)
	}

	return &Migrator{m: m, sqlDB: sqlDB, logger: logger}, nil
}

// Up applies every pending migration. Already being at the latest
// version is not an error.
func (mg *Migrator) Up() error {
	err := mg.m.Up()
	switch {
	case err == nil:
		mg.logger.Info().Msg("migrations applied")
	case errors.Is(err, migrate.ErrNoChange):
		mg.logger.Info().Msg("schema already up to date")
	default:
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}

// Down rolls back every applied migration.
func (mg *Migrator) Down() error {
	err := mg.m.Down()
	switch {
	case err == nil:
		mg.logger.Info().Msg("migrations rolled back")
	case errors.Is(err, migrate.ErrNoChange):
		mg.logger.Info().Msg("nothing to roll back")
	default:
		return fmt.Errorf("rolling back migrations: %w", err)
	}
	return nil
}

// Steps applies n migrations forward, or backward when n is negative.
func (mg *Migrator) Steps(n int) error {
	err := mg.m.Steps(n)
	switch {
	case err == nil:
		mg.logger.Info().Int("steps", n).Msg("migration steps applied")
	case errors.Is(err, migrate.ErrNoChange):
		mg.logger.Info().Msg("schema already up to date")
	case errors.Is(err, os.ErrNotExist):
		// Stepping past the newest or oldest migration.
		mg.logger.Info().Msg("no further migrations in that direction")
	default:
		return fmt.Errorf("applying migration steps: %w", err)
	}
	return nil
}

// Version reports the current schema version and whether it is dirty.
func (mg *Migrator) Version() (uint, bool, error) {
	return mg.m.Version()
}

// Force overwrites the recorded schema version without running any
// migration. Recovery tool for a dirty version after a failed run.
func (mg *Migrator) Force(version int) error {
	mg.logger.Warn().Int("version", version).Msg("forcing schema version")
	return mg.m.Force(version)
}

// Close releases the migration source and the sql.DB handle on the pool.
func (mg *Migrator) Close() error {
	srcErr, dbErr := mg.m.Close()
	if closeErr := mg.sqlDB.Close(); closeErr != nil && dbErr == nil {
		dbErr = closeErr
	}
	if srcErr != nil {
		return fmt.Errorf("closing migration source: %w", srcErr)
	}
	if dbErr != nil {
		return fmt.Errorf("closing migration database handle: %w", dbErr)
	}
	return nil
}
