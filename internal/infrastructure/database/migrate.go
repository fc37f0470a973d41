package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

const migrationsDir = "migrations"

// goose keeps its dialect and filesystem in package state
var gooseMu sync.Mutex

// GooseDialect maps a DB_DRIVER value onto the goose dialect name.
func GooseDialect(driver string) (string, error) {
	switch driver {
	case DriverPostgres, "postgresql", "":
		return "postgres", nil
	case DriverMySQL:
		return "mysql", nil
	case DriverSQLite, "sqlite3":
		return "sqlite3", nil
	}
	return "", fmt.Errorf("unsupported DB_DRIVER %q", driver)
}

// Migrate executes a goose command (up, down, status, version, redo, reset,
// up-to, down-to) using the migrations embedded in the binary.
func Migrate(ctx context.Context, db *sql.DB, driver string, command string, args ...string) error {
	if db == nil {
		return fmt.Errorf("db is required")
	}
	dialect, err := GooseDialect(driver)
	if err != nil {
		return err
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrations)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.RunContext(ctx, command, db, migrationsDir, args...); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}

// Create writes a new SQL migration skeleton into dir on disk.
func Create(dir, name string) error {
	if name == "" {
		return fmt.Errorf("migration name is required")
	}
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(nil)
	if err := goose.Create(nil, dir, name, "sql"); err != nil {
		return fmt.Errorf("goose create: %w", err)
	}
	return nil
}
