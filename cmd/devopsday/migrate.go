package main

import (
	"context"
	"database/sql"
	"errors"

	"github.com/spf13/cobra"

	"talkregistration/config"
	"talkregistration/internal/repository/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	RunE:  runMigrateUp,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE:  runMigrateUp,
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Rollback all migrations",
	RunE:  runMigrateDown,
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd)
	rootCmd.AddCommand(migrateCmd)
}

func runMigrateUp(cmd *cobra.Command, args []string) error {
	return runMigration(cmd, postgres.MigrateUp, "migrations applied successfully")
}

func runMigrateDown(cmd *cobra.Command, args []string) error {
	return runMigration(cmd, postgres.MigrateDown, "migrations rolled back successfully")
}

func runMigration(cmd *cobra.Command, apply func(*sql.DB) error, done string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.StoreBackend != config.StorePostgres {
		return errors.New("migrations need STORE_BACKEND=postgres")
	}
	logger := config.NewLogger()

	if err := migrateDatabase(cmd.Context(), cfg.DBUrl, apply); err != nil {
		return err
	}
	logger.Info(done)
	return nil
}

// migrateDatabase runs apply on a short-lived pool of its own. apply closes
// the pool, so it never outlives the migration.
func migrateDatabase(ctx context.Context, dsn string, apply func(*sql.DB) error) error {
	db, err := postgres.Open(ctx, dsn)
	if err != nil {
		return err
	}
	return apply(db)
}
