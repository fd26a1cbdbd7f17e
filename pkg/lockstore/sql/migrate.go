package sql

import (
	gosql "database/sql"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver for golang-migrate

	"github.com/condlock/condlock/internal/logger"
	"github.com/condlock/condlock/pkg/lockstore/sql/migrations"
)

// runPostgresMigrations applies the embedded schema migrations to a
// PostgreSQL lock table, using golang-migrate's Postgres advisory locks to
// make concurrent migration runs from multiple condlockd instances safe.
func runPostgresMigrations(connString string) error {
	logger.Info("running lock table migrations")

	db, err := gosql.Open("pgx", connString)
	if err != nil {
		return fmt.Errorf("sql: open migration connection: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{
		MigrationsTable: "condlock_schema_migrations",
		DatabaseName:    "condlock",
	})
	if err != nil {
		return fmt.Errorf("sql: create postgres migration driver: %w", err)
	}

	sourceDriver, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("sql: create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", driver)
	if err != nil {
		return fmt.Errorf("sql: create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("sql: apply migrations: %w", err)
	}

	logger.Info("lock table migrations applied")
	return nil
}
