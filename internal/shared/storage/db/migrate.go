package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"

	"docanalyzer/internal/shared/telemetry"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationFiles embed.FS

// Migration commands accepted by Migrate.
const (
	MigrateUp      = "up"
	MigrateDown    = "down"
	MigrateStatus  = "status"
	MigrateVersion = "version"
)

// RunMigrations applies the embedded migrations for dialect. A nil database is a no-op.
func RunMigrations(ctx context.Context, database *sql.DB, dialect Dialect) error {
	return Migrate(ctx, database, dialect, MigrateUp)
}

// Migrate runs one goose command against the embedded migrations.
func Migrate(ctx context.Context, database *sql.DB, dialect Dialect, command string) error {
	if database == nil {
		return nil
	}
	dir, err := useDialect(dialect)
	if err != nil {
		return err
	}

	switch command {
	case MigrateUp:
		return goose.UpContext(ctx, database, dir)
	case MigrateDown:
		return goose.DownContext(ctx, database, dir)
	case MigrateStatus:
		return goose.StatusContext(ctx, database, dir)
	case MigrateVersion:
		version, err := goose.GetDBVersionContext(ctx, database)
		if err != nil {
			return err
		}
		telemetry.Info("db.migrations.version", map[string]any{"dialect": string(dialect), "version": version})
		return nil
	default:
		return fmt.Errorf("unknown migration command %q", command)
	}
}

func useDialect(dialect Dialect) (string, error) {
	var gooseDialect, dir string
	switch dialect {
	case DialectPostgres:
		gooseDialect, dir = "postgres", "migrations/postgres"
	case DialectSQLite:
		gooseDialect, dir = "sqlite3", "migrations/sqlite"
	default:
		return "", fmt.Errorf("unsupported dialect %q", dialect)
	}
	goose.SetBaseFS(migrationFiles)
	if err := goose.SetDialect(gooseDialect); err != nil {
		return "", err
	}
	return dir, nil
}
