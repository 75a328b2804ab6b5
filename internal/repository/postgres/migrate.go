package postgres

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// newMigrator builds a migrator over the embedded SQL files.
// Closing the migrator also closes db.
func newMigrator(db *sql.DB) (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("load migrations: %w", err)
	}
	driver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		return nil, fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		_ = driver.Close()
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return m, nil
}

// runMigration hands db to a migrator and closes db on every path.
func runMigration(db *sql.DB, step func(*migrate.Migrate) error) error {
	m, err := newMigrator(db)
	if err != nil {
		_ = db.Close()
		return err
	}
	defer m.Close()
	if err := step(m); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// MigrateUp applies all pending migrations and closes db.
func MigrateUp(db *sql.DB) error {
	if err := runMigration(db, (*migrate.Migrate).Up); err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// MigrateDown rolls back all migrations and closes db.
func MigrateDown(db *sql.DB) error {
	if err := runMigration(db, (*migrate.Migrate).Down); err != nil {
		return fmt.Errorf("migrate down: %w", err)
	}
	return nil
}
