// Package db is the turn/tool-invocation audit ledger: a write-mostly
// SQLite store used internally by the Turn Controller for operational
// observability, built on an Open()/embedded-migration/goose-provider
// plumbing. Nothing in this package is exposed over HTTP.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection to the SQLite audit ledger.
type DB struct {
	conn *sql.DB
}

// TurnRecord is one completed (or aborted) turn.
type TurnRecord struct {
	ID         int64
	SessionID  string // stored as given; the session id is opaque, not a secret
	Language   string
	Rounds     int
	ToolNames  string // comma-joined, for quick human inspection
	DurationMs int64
	Outcome    string // OK, ABORTED
	CreatedAt  string
}

// ToolInvocation is one tool-call trace entry, persisted for
// observability. It never stores argument values or backend payloads.
type ToolInvocation struct {
	ID         int64
	TurnID     int64
	Name       string
	Status     string // OK, ERROR, TIMEOUT
	DurationMs int64
	CreatedAt  string
}

// Open creates a new DB connection and runs all pending migrations.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	migrationsFS, err := fs.Sub(MigrationFS, "migrations")
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("migrations sub-fs: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, conn, migrationsFS)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("create migration provider: %w", err)
	}

	if _, err := provider.Up(context.Background()); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	return &DB{conn: conn}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.conn.Close()
}

// Conn exposes the underlying *sql.DB for callers (tests) that need to
// inspect schema state directly.
func (d *DB) Conn() *sql.DB {
	return d.conn
}

// InsertTurn records a completed turn and its tool invocation traces in a
// single transaction. Errors are returned to the caller, who is expected
// to log and discard them rather than fail an otherwise-successful turn.
func (d *DB) InsertTurn(rec TurnRecord, invocations []ToolInvocation) (int64, error) {
	tx, err := d.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.Exec(
		`INSERT INTO turns (session_id, language, rounds, tool_names, duration_ms, outcome, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.SessionID, rec.Language, rec.Rounds, rec.ToolNames, rec.DurationMs, rec.Outcome, rec.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert turn: %w", err)
	}
	turnID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("turn id: %w", err)
	}

	for _, inv := range invocations {
		if _, err := tx.Exec(
			`INSERT INTO tool_invocations (turn_id, name, status, duration_ms, created_at)
			 VALUES (?, ?, ?, ?, ?)`,
			turnID, inv.Name, inv.Status, inv.DurationMs, inv.CreatedAt,
		); err != nil {
			return 0, fmt.Errorf("insert tool invocation: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}
	return turnID, nil
}

// JoinNames is a small helper for callers building TurnRecord.ToolNames
// from a []string.
func JoinNames(names []string) string {
	return strings.Join(names, ",")
}

// NowString formats a timestamp the way the ledger's created_at columns expect.
func NowString(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
