// Package sqlite stores accounts and audit entries in a single SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Schema creates the ledger tables. It is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS accounts (
	card_nr  TEXT PRIMARY KEY,
	position INTEGER NOT NULL,
	name     TEXT NOT NULL,
	balance  INTEGER NOT NULL,
	pin_code TEXT NOT NULL,
	next_otp TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_accounts_position ON accounts(position);

CREATE TABLE IF NOT EXISTS audit_logs (
	id         TEXT PRIMARY KEY,
	card_nr    TEXT NOT NULL,
	action     TEXT NOT NULL,
	amount     INTEGER NOT NULL,
	created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_logs_card_nr ON audit_logs(card_nr);
`

// Open opens the database at path, applies the connection pragmas and the
// schema. ":memory:" gives a private in-memory database.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// One connection: SQLite serializes writers, and ":memory:" is per connection.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA busy_timeout = 5000;",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	if _, err := db.ExecContext(ctx, Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return db, nil
}

// HealthCheck reports SQLite healthy once the accounts table answers.
type HealthCheck struct {
	db *sql.DB
}

func NewHealthCheck(db *sql.DB) *HealthCheck {
	return &HealthCheck{db: db}
}

func (h *HealthCheck) Ping(ctx context.Context) error {
	var accounts int64
	if err := h.db.QueryRowContext(ctx, `SELECT count(*) FROM accounts`).Scan(&accounts); err != nil {
		return fmt.Errorf("accounts table: %w", err)
	}
	return nil
}

func (h *HealthCheck) Name() string {
	return "sqlite"
}
