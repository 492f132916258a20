package db

import (
	"embed"
	"errors"
	"fmt"

	"github.com/IgorGrieder/tinylink/internal/infrastructure/logger"
	"github.com/golang-migrate/migrate/v4"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrator applies the embedded schema migrations through an existing pool.
type Migrator struct {
	migrate *migrate.Migrate
}

func NewMigrator(p *Postgres) (*Migrator, error) {
	if p == nil || p.Pool == nil {
		return nil, errors.New("postgres pool is nil")
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("unable to open migration source: %w", err)
	}

	sqlDB := stdlib.OpenDBFromPool(p.Pool)
	driver, err := migratepgx.WithInstance(sqlDB, &migratepgx.Config{})
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("unable to create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "pgx5", driver)
	if err != nil {
		return nil, fmt.Errorf("unable to create migrator: %w", err)
	}

	return &Migrator{migrate: m}, nil
}

// Up applies every pending migration. A dirty version is forced clean first
// so a crashed run can be retried.
func (m *Migrator) Up() error {
	version, dirty, err := m.migrate.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("unable to read schema version: %w", err)
	}

	if dirty {
		logger.Warn("schema is dirty, forcing version", zap.Uint("version", version))
		if err := m.migrate.Force(int(version)); err != nil {
			return fmt.Errorf("unable to force schema version: %w", err)
		}
	}

	if err := m.migrate.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("schema is up to date", zap.Uint("version", version))
			return nil
		}
		return fmt.Errorf("unable to apply migrations: %w", err)
	}

	newVersion, _, _ := m.migrate.Version()
	logger.Info("schema migrated", zap.Uint("version", newVersion))
	return nil
}

// Down rolls back one migration.
func (m *Migrator) Down() error {
	if err := m.migrate.Steps(-1); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return nil
		}
		return fmt.Errorf("unable to roll back migration: %w", err)
	}
	version, _, _ := m.migrate.Version()
	logger.Info("schema rolled back", zap.Uint("version", version))
	return nil
}

func (m *Migrator) Version() (uint, bool, error) {
	return m.migrate.Version()
}

// Close releases the migration source and the database/sql wrapper. The
// underlying pool stays open.
func (m *Migrator) Close() error {
	sourceErr, dbErr := m.migrate.Close()
	if sourceErr != nil {
		return fmt.Errorf("unable to close migration source: %w", sourceErr)
	}
	if dbErr != nil {
		return fmt.Errorf("unable to close migration database: %w", dbErr)
	}
	return nil
}
