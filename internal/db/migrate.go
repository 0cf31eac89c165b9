package db

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrator applies the embedded schema migrations. Each call opens its own
// connection so the application pool is never closed by the migrate driver.
type Migrator struct {
	DatabaseURL string
}

func NewMigrator(databaseURL string) Migrator {
	return Migrator{DatabaseURL: databaseURL}
}

func (m Migrator) run(fn func(*migrate.Migrate) error) error {
	conn, err := sql.Open("postgres", m.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open migration database: %w", err)
	}
	defer conn.Close()

	driver, err := postgres.WithInstance(conn, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create postgres driver: %w", err)
	}
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}
	instance, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer instance.Close()

	return fn(instance)
}

// Up applies every pending migration.
func (m Migrator) Up() error {
	return m.run(func(instance *migrate.Migrate) error {
		if err := instance.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("run migrations: %w", err)
		}
		return nil
	})
}

// Down rolls every migration back.
func (m Migrator) Down() error {
	return m.run(func(instance *migrate.Migrate) error {
		if err := instance.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("roll back migrations: %w", err)
		}
		return nil
	})
}

// Reset drops and recreates the schema, leaving every table empty.
func (m Migrator) Reset() error {
	return m.run(func(instance *migrate.Migrate) error {
		if err := instance.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("roll back migrations: %w", err)
		}
		if err := instance.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("run migrations: %w", err)
		}
		return nil
	})
}

// Version reports the applied schema version and whether it is dirty.
func (m Migrator) Version() (uint, bool, error) {
	var (
		version uint
		dirty   bool
	)
	err := m.run(func(instance *migrate.Migrate) error {
		v, d, err := instance.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			return nil
		}
		version, dirty = v, d
		return err
	})
	return version, dirty, err
}
