package store

import (
	"database/sql"
	"fmt"
	"regexp"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Driver names accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// dialect hides the SQL differences between the supported databases.
// Queries are written with PostgreSQL placeholders and rebound at runtime.
type dialect interface {
	Name() string
	Rebind(query string) string
	Schema() string

	// InsertOrder names a column that grows with every inserted message. It
	// orders messages that share a created_at millisecond.
	InsertOrder() string
}

var (
	pgPlaceholderRe = regexp.MustCompile(`\$(\d+)`)
	pgCastRe        = regexp.MustCompile(`::(\w+)`)
)

type sqliteDialect struct{}

func (sqliteDialect) Name() string { return DriverSQLite }

func (sqliteDialect) Rebind(query string) string {
	return pgCastRe.ReplaceAllString(pgPlaceholderRe.ReplaceAllString(query, "?"), "")
}

func (sqliteDialect) Schema() string { return sqliteSchema }

// Messages are never deleted, so rowid only grows.
func (sqliteDialect) InsertOrder() string { return "rowid" }

type postgresDialect struct{}

func (postgresDialect) Name() string { return DriverPostgres }

func (postgresDialect) Rebind(query string) string { return query }

func (postgresDialect) Schema() string { return postgresSchema }

func (postgresDialect) InsertOrder() string { return "seq" }

func openSQLite(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %s: %w", p, err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite: %w", err)
	}
	return db, nil
}

func openPostgres(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return db, nil
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS messages (
    id VARCHAR(64) PRIMARY KEY,
    project_id VARCHAR(64) NOT NULL,
    content TEXT NOT NULL,
    role VARCHAR(16) NOT NULL,
    type VARCHAR(16) NOT NULL,
    created_at BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_project_created ON messages (project_id, created_at DESC);

CREATE TABLE IF NOT EXISTS fragments (
    id VARCHAR(64) PRIMARY KEY,
    message_id VARCHAR(64) NOT NULL UNIQUE REFERENCES messages(id) ON DELETE CASCADE,
    sandbox_url TEXT NOT NULL,
    title TEXT NOT NULL,
    files TEXT NOT NULL DEFAULT '{}',
    created_at BIGINT NOT NULL
);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS messages (
    id VARCHAR(64) PRIMARY KEY,
    project_id VARCHAR(64) NOT NULL,
    content TEXT NOT NULL,
    role VARCHAR(16) NOT NULL,
    type VARCHAR(16) NOT NULL,
    created_at BIGINT NOT NULL
);

ALTER TABLE messages ADD COLUMN IF NOT EXISTS seq BIGSERIAL;

CREATE INDEX IF NOT EXISTS idx_messages_project_created ON messages (project_id, created_at DESC);

CREATE TABLE IF NOT EXISTS fragments (
    id VARCHAR(64) PRIMARY KEY,
    message_id VARCHAR(64) NOT NULL UNIQUE REFERENCES messages(id) ON DELETE CASCADE,
    sandbox_url TEXT NOT NULL,
    title TEXT NOT NULL,
    files JSONB NOT NULL DEFAULT '{}'::jsonb,
    created_at BIGINT NOT NULL
);
`
