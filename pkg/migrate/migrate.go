package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/wycenapp/wycena-sync/pkg/config"
)

//go:embed migrations/*.sql
var migrations embed.FS

const migrationsDir = "migrations"

func gooseDialect(driver string) (string, error) {
	switch driver {
	case config.DriverSQLite:
		return "sqlite3", nil
	case config.DriverPostgres:
		return "postgres", nil
	default:
		return "", fmt.Errorf("unsupported driver %q", driver)
	}
}

// Up applies all pending local-store migrations.
func Up(ctx context.Context, db *sql.DB, driver string) error {
	if db == nil {
		return fmt.Errorf("db is required")
	}

	dialect, err := gooseDialect(driver)
	if err != nil {
		return err
	}
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	goose.SetBaseFS(migrations)
	defer goose.SetBaseFS(nil)

	if err := goose.UpContext(ctx, db, migrationsDir); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// Status prints the migration status to stdout (goose internal output).
func Status(ctx context.Context, db *sql.DB, driver string) error {
	if db == nil {
		return fmt.Errorf("db is required")
	}

	dialect, err := gooseDialect(driver)
	if err != nil {
		return err
	}
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	goose.SetBaseFS(migrations)
	defer goose.SetBaseFS(nil)

	if err := goose.StatusContext(ctx, db, migrationsDir); err != nil {
		return fmt.Errorf("goose status: %w", err)
	}
	return nil
}
