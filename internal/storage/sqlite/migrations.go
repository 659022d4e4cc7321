package sqlite

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// migrationFS holds the numbered schema migrations applied on startup.
//
//go:embed migrations/*.sql
var migrationFS embed.FS

// runMigrations brings the schema up to the latest version.
// The migrate instance is not closed: closing it would close db.
func runMigrations(db *sql.DB) error {
	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open migration source: %w", err)
	}

	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	m.Log = migrateLogger{}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	slog.Debug("Schema migrated", "version", version, "dirty", dirty)
	return nil
}

// migrateLogger routes golang-migrate output to slog at debug level.
type migrateLogger struct{}

func (migrateLogger) Printf(format string, v ...any) {
	slog.Debug(fmt.Sprintf(format, v...))
}

func (migrateLogger) Verbose() bool {
	return false
}
