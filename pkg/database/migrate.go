package database

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
)

// MigrationSet names the schema owned by one service.
type MigrationSet string

// Schemas owned by the two services. Each service migrates only its own store.
const (
	EnrollmentSchema MigrationSet = "enrollment"
	ProgressSchema   MigrationSet = "progress"
)

//go:embed migrations
var migrationFS embed.FS

// Migrate applies pending migrations for the given schema. When dir is set the
// migrations are read from disk instead of the embedded copy.
func Migrate(db *sqlx.DB, set MigrationSet, dir string) error {
	driver, err := postgres.WithInstance(db.DB, &postgres.Config{
		MigrationsTable: fmt.Sprintf("schema_migrations_%s", set),
	})
	if err != nil {
		return fmt.Errorf("create migrate driver: %w", err)
	}

	var m *migrate.Migrate
	if dir != "" {
		m, err = migrate.NewWithDatabaseInstance("file://"+dir, "postgres", driver)
	} else {
		var sub fs.FS
		sub, err = fs.Sub(migrationFS, "migrations/"+string(set))
		if err != nil {
			return fmt.Errorf("open embedded migrations %s: %w", set, err)
		}
		source, srcErr := iofs.New(sub, ".")
		if srcErr != nil {
			return fmt.Errorf("open migration source %s: %w", set, srcErr)
		}
		m, err = migrate.NewWithInstance("iofs", source, "postgres", driver)
	}
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run %s migrations: %w", set, err)
	}
	return nil
}
