package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// Dialect names the SQL flavour behind a DATABASE_URL.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

const (
	sqlitePrefix = "sqlite:"
	sqliteMemory = ":memory:"
)

// Target is a parsed DATABASE_URL.
type Target struct {
	Dialect Dialect
	Driver  string
	DSN     string
}

// ParseURL maps DATABASE_URL to a driver:
//
//	sqlite:<path>            embedded sqlite (modernc)
//	postgres://, postgresql:// pgx
//	host=... dbname=...       pgx keyword/value DSN
func ParseURL(databaseURL string) (Target, error) {
	raw := strings.TrimSpace(databaseURL)
	if raw == "" {
		return Target{}, fmt.Errorf("DATABASE_URL is empty")
	}
	lower := strings.ToLower(raw)

	switch {
	case strings.HasPrefix(lower, sqlitePrefix):
		path := strings.TrimPrefix(raw[len(sqlitePrefix):], "//")
		if path == "" {
			return Target{}, fmt.Errorf("DATABASE_URL %q has no sqlite path", raw)
		}
		return Target{Dialect: DialectSQLite, Driver: "sqlite", DSN: path}, nil
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		if _, err := url.Parse(raw); err != nil {
			return Target{}, fmt.Errorf("parse DATABASE_URL: %w", err)
		}
		return Target{Dialect: DialectPostgres, Driver: "pgx", DSN: raw}, nil
	case !strings.Contains(raw, "://") && strings.Contains(raw, "="):
		return Target{Dialect: DialectPostgres, Driver: "pgx", DSN: raw}, nil
	default:
		scheme, _, _ := strings.Cut(raw, "://")
		return Target{}, fmt.Errorf("DATABASE_URL scheme %q is not supported", scheme)
	}
}

// Redacted returns the DSN with any password masked, for logs.
func (t Target) Redacted() string {
	if t.Dialect == DialectSQLite {
		return sqlitePrefix + t.DSN
	}
	if u, err := url.Parse(t.DSN); err == nil && u.Scheme != "" {
		return u.Redacted()
	}
	fields := strings.Fields(t.DSN)
	for i, field := range fields {
		if strings.HasPrefix(strings.ToLower(field), "password=") {
			fields[i] = "password=xxxxx"
		}
	}
	return strings.Join(fields, " ")
}

// prepare creates the parent directory of a file-backed sqlite database.
func (t Target) prepare() error {
	if t.Dialect != DialectSQLite || t.DSN == sqliteMemory || strings.HasPrefix(t.DSN, "file:") {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(t.DSN), 0o755); err != nil {
		return fmt.Errorf("create sqlite directory: %w", err)
	}
	return nil
}

var sqlitePragmas = []string{
	"PRAGMA busy_timeout = 5000",
	"PRAGMA journal_mode = WAL",
	"PRAGMA foreign_keys = ON",
	"PRAGMA synchronous = NORMAL",
}

func (t Target) initSession(ctx context.Context, db *sql.DB) error {
	if t.Dialect != DialectSQLite {
		return nil
	}
	for _, pragma := range sqlitePragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("set pragma %q: %w", pragma, err)
		}
	}
	return nil
}
