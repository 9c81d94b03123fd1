package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as database/sql driver
	_ "modernc.org/sqlite"             // register sqlite as database/sql driver

	"docanalyzer/internal/shared/telemetry"
)

var openDB = sql.Open

// IsLambdaRuntime reports whether the current process is running in AWS Lambda.
func IsLambdaRuntime() bool {
	return strings.TrimSpace(os.Getenv("AWS_LAMBDA_FUNCTION_NAME")) != ""
}

// Open parses databaseURL and connects with the profile's pool defaults,
// overridable through DB_* env vars. The Lambda profile reuses one handle per
// execution environment.
func Open(ctx context.Context, databaseURL string, profile Profile) (*sql.DB, Target, error) {
	target, err := ParseURL(databaseURL)
	if err != nil {
		return nil, Target{}, err
	}
	opts := OptionsFromEnv(DefaultOptions(profile))

	var sqlDB *sql.DB
	if profile == ProfileLambda {
		sqlDB, err = GetSingleton(ctx, databaseURL, opts)
	} else {
		sqlDB, err = Connect(ctx, databaseURL, opts)
	}
	if err != nil {
		return nil, target, err
	}
	return sqlDB, target, nil
}

// Connect opens a *sql.DB for databaseURL and verifies connectivity.
func Connect(ctx context.Context, databaseURL string, opts Options) (*sql.DB, error) {
	target, err := ParseURL(databaseURL)
	if err != nil {
		return nil, err
	}
	if err := target.prepare(); err != nil {
		return nil, err
	}

	sqlDB, err := openDB(target.Driver, target.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	opts = opts.forDialect(target.Dialect)
	opts.apply(sqlDB)

	pingCtx, cancel := context.WithTimeout(ctx, opts.PingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping database %s: %w", target.Redacted(), err)
	}
	if err := target.initSession(ctx, sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	telemetry.Info("db.init", map[string]any{
		"dialect":  string(target.Dialect),
		"target":   target.Redacted(),
		"max_open": sqlDB.Stats().MaxOpenConnections,
	})
	return sqlDB, nil
}

type sharedDB struct {
	mu sync.Mutex
	db *sql.DB
}

var shared sharedDB

// GetSingleton returns a process-wide *sql.DB. Concurrent callers wait for
// the first connection attempt; a failed attempt is retried by the next call.
func GetSingleton(ctx context.Context, databaseURL string, opts Options) (*sql.DB, error) {
	shared.mu.Lock()
	defer shared.mu.Unlock()
	if shared.db != nil {
		telemetry.Debug("db.singleton.reuse", nil)
		return shared.db, nil
	}
	sqlDB, err := Connect(ctx, databaseURL, opts)
	if err != nil {
		return nil, err
	}
	shared.db = sqlDB
	return sqlDB, nil
}

func resetSingleton() {
	shared.mu.Lock()
	shared.db = nil
	shared.mu.Unlock()
}
