// Package cache is the SQLite-backed event cache. The upstream backend
// stays the source of truth; this copy exists so reads survive backend
// hiccups and so mutations can be patched optimistically before the
// reconciling refetch lands.
package cache

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS events (
	id           TEXT PRIMARY KEY,
	title        TEXT NOT NULL DEFAULT '',
	description  TEXT NOT NULL DEFAULT '',
	type         TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'ACTIVE',
	start_utc    TEXT NOT NULL,
	end_utc      TEXT NOT NULL,
	agent_id     TEXT NOT NULL DEFAULT '',
	client_id    TEXT NOT NULL DEFAULT '',
	property_id  TEXT NOT NULL DEFAULT '',
	operation_id TEXT NOT NULL DEFAULT '',
	visit_id     TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_events_start ON events(start_utc);
CREATE INDEX IF NOT EXISTS idx_events_agent ON events(agent_id);
`

// DB wraps a sql.DB with event-cache operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the cache database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cache: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("cache: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("cache: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
