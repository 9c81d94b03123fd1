package main

// Apply or inspect the embedded database migrations:
//   go run ./cmd/migrate [up|down|status|version]

import (
	"context"
	"flag"
	"fmt"
	"os"

	"docanalyzer/internal/shared/config"
	"docanalyzer/internal/shared/storage/db"
	"docanalyzer/internal/shared/telemetry"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: migrate [%s|%s|%s|%s]\n", db.MigrateUp, db.MigrateDown, db.MigrateStatus, db.MigrateVersion)
	}
	flag.Parse()

	cfg := config.Load()
	if err := telemetry.Init(cfg.Env, cfg.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer telemetry.Sync()

	if err := run(context.Background(), cfg.DatabaseURL, command(flag.Args())); err != nil {
		telemetry.Error("migrate.failed", map[string]any{"error": err.Error()})
		telemetry.Sync()
		os.Exit(1)
	}
}

func command(args []string) string {
	if len(args) == 0 {
		return db.MigrateUp
	}
	return args[0]
}

func run(ctx context.Context, databaseURL, cmd string) error {
	sqlDB, target, err := db.Open(ctx, databaseURL, db.ProfileMigrate)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if err := db.Migrate(ctx, sqlDB, target.Dialect, cmd); err != nil {
		return fmt.Errorf("%s: %w", cmd, err)
	}
	telemetry.Info("migrate.done", map[string]any{"command": cmd, "dialect": string(target.Dialect), "target": target.Redacted()})
	return nil
}
