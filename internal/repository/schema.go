package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Supported database/sql driver names. The drivers themselves are registered by
// blank imports in cmd/main.go.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

const sqliteDefaultParams = "_busy_timeout=5000&_journal_mode=WAL"

var schemas = map[string][]string{
	DriverSQLite: {
		`CREATE TABLE IF NOT EXISTS business_info (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			name TEXT,
			rc_number TEXT,
			tin TEXT,
			fiscal_year_start TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			type TEXT NOT NULL CHECK (type IN ('sale', 'expense')),
			tx_date TEXT,
			data TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
	},
	DriverPostgres: {
		`CREATE TABLE IF NOT EXISTS business_info (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			name TEXT,
			rc_number TEXT,
			tin TEXT,
			fiscal_year_start TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id BIGSERIAL PRIMARY KEY,
			type TEXT NOT NULL CHECK (type IN ('sale', 'expense')),
			tx_date TEXT,
			data TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	},
}

// Open opens and pings the store. SQLite paths without query parameters get a busy
// timeout and WAL journaling so concurrent writers queue inside the engine.
func Open(driver, dsn string) (*sql.DB, error) {
	if _, ok := schemas[driver]; !ok {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	if driver == DriverSQLite && !strings.Contains(dsn, "?") {
		dsn += "?" + sqliteDefaultParams
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// Initialize creates both tables and the blank business profile row when missing.
// Safe to run on every start.
func Initialize(ctx context.Context, db *sql.DB, driver string) error {
	ddl, ok := schemas[driver]
	if !ok {
		return fmt.Errorf("unsupported database driver %q", driver)
	}
	for _, stmt := range ddl {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}

	query := `
		INSERT INTO business_info (id, name, rc_number, tin, fiscal_year_start)
		VALUES (1, '', '', '', $1)
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := db.ExecContext(ctx, query, FiscalYearStart(time.Now())); err != nil {
		return fmt.Errorf("failed to seed business profile: %w", err)
	}
	return nil
}

// FiscalYearStart returns January 1 of t's year as an ISO date.
func FiscalYearStart(t time.Time) string {
	return fmt.Sprintf("%04d-01-01", t.Year())
}
