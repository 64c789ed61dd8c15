// Package sqlite implements the repository interfaces using SQLite as the
// storage backend.
//
// We use modernc.org/sqlite rather than mattn/go-sqlite3: it's a pure Go
// translation of SQLite, so there's no CGo and no C compiler needed, and
// cross-compilation stays painless.
package sqlite

import (
	"database/sql"
	"fmt"

	// Side-effect import: registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and implements the repository interfaces.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the SQLite database at dbPath and runs migrations.
// Use ":memory:" for tests.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Force an immediate connection so a bad path fails here, not on the
	// first query.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets reads proceed while a write is in flight — needed once
	// multiple requests hit the pool concurrently.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Referential integrity for form_details.user_id → users.id.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the connection pool. Always defer this next to New().
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. CREATE TABLE IF NOT EXISTS keeps it idempotent.
//
// users.clerk_id is UNIQUE: one auth-provider account maps to exactly one row.
// form_details.user_id is UNIQUE: one questionnaire record per user — the
// upsert relies on this constraint.
//
// The goal list and preference set are stored as JSON text; api_out_json holds
// the engine's document verbatim (NULL until an analysis succeeds).
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id         TEXT PRIMARY KEY,
			clerk_id   TEXT NOT NULL UNIQUE,
			email      TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS form_details (
			id                   TEXT PRIMARY KEY,
			user_id              TEXT NOT NULL UNIQUE REFERENCES users(id),
			name                 TEXT NOT NULL DEFAULT '',
			phone                TEXT NOT NULL DEFAULT '',
			age                  INTEGER NOT NULL DEFAULT 0,
			employment_status    TEXT NOT NULL DEFAULT '',
			annual_income        REAL NOT NULL DEFAULT 0,
			marital_status       TEXT NOT NULL DEFAULT '',
			dependents           INTEGER NOT NULL DEFAULT 0,
			selected_goals       TEXT NOT NULL DEFAULT '[]',
			investment_horizon   TEXT NOT NULL DEFAULT '',
			risk_tolerance       TEXT NOT NULL DEFAULT '',
			risk_comfort_level   INTEGER NOT NULL DEFAULT 0,
			monthly_income       REAL NOT NULL DEFAULT 0,
			monthly_expenses     REAL NOT NULL DEFAULT 0,
			selected_investments TEXT NOT NULL DEFAULT '[]',
			management_style     TEXT NOT NULL DEFAULT '',
			life_changes_details TEXT NOT NULL DEFAULT '',
			comments             TEXT NOT NULL DEFAULT '',
			api_out_json         TEXT,
			created_at           DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at           DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_form_details_user_id ON form_details(user_id);
	`)
	if err != nil {
		return fmt.Errorf("creating form_details table: %w", err)
	}

	return nil
}
