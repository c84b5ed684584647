// Package store persists canonical transactions and learned rules in the
// append-only SQLite store, handling additive schema evolution so that
// legacy databases keep working and read-only dashboard consumers never
// break.
package store

import (
	"database/sql"
	"fmt"
	"sync"
)

// evolved guards schema evolution: it runs at most once per database handle
// for the life of the process.
var (
	evolvedMu sync.Mutex
	evolved   = map[*sql.DB]bool{}
)

// transactionColumns are the columns added over the life of the schema.
// Legacy stores predate id/raw_data/created_at/updated_at; they are added
// additively, preserving existing rows.
var transactionColumns = map[string]string{
	"id":         "TEXT",
	"raw_data":   "TEXT",
	"created_at": "INTEGER",
	"updated_at": "INTEGER",
}

// transactionIndexes covers the read paths: Phase B dedup probes
// (date, amount, source) and the dashboard queries by category and month.
var transactionIndexes = map[string]string{
	"idx_transactions_date":      "CREATE INDEX IF NOT EXISTS idx_transactions_date ON transactions(date)",
	"idx_transactions_category":  "CREATE INDEX IF NOT EXISTS idx_transactions_category ON transactions(category)",
	"idx_transactions_source":    "CREATE INDEX IF NOT EXISTS idx_transactions_source ON transactions(source)",
	"idx_transactions_month_ref": "CREATE INDEX IF NOT EXISTS idx_transactions_month_ref ON transactions(month_ref)",
}

// EnsureSchema creates missing tables with the full schema, additively adds
// any missing columns to a legacy transactions table, and creates indices.
// Safe to call repeatedly; the work happens once per process.
func EnsureSchema(db *sql.DB) error {
	evolvedMu.Lock()
	defer evolvedMu.Unlock()
	if evolved[db] {
		return nil
	}
	if err := evolve(db); err != nil {
		return fmt.Errorf("schema evolution failed: %w", err)
	}
	evolved[db] = true
	return nil
}

func evolve(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS transactions (
			id TEXT PRIMARY KEY,
			date TEXT NOT NULL,
			description TEXT NOT NULL,
			amount REAL NOT NULL,
			source TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT 'Undefined',
			month_ref TEXT NOT NULL,
			raw_data TEXT,
			created_at INTEGER,
			updated_at INTEGER
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create transactions table: %w", err)
	}

	existing, err := tableColumns(db, "transactions")
	if err != nil {
		return err
	}
	for col, typ := range transactionColumns {
		if existing[col] {
			continue
		}
		if _, err := db.Exec(fmt.Sprintf("ALTER TABLE transactions ADD COLUMN %s %s", col, typ)); err != nil {
			return fmt.Errorf("failed to add column %s: %w", col, err)
		}
	}

	for _, stmt := range transactionIndexes {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS learned_rules (
			description TEXT PRIMARY KEY,
			category TEXT NOT NULL,
			confidence REAL NOT NULL DEFAULT 1.0,
			learned_at INTEGER NOT NULL,
			usage_count INTEGER NOT NULL DEFAULT 1
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create learned_rules table: %w", err)
	}

	return nil
}

// tableColumns returns the set of existing column names for a table.
func tableColumns(db *sql.DB, table string) (map[string]bool, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, fmt.Errorf("failed to inspect table %s: %w", table, err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var cid int
		var name, typ string
		var notNull int
		var dflt sql.NullString
		var pk int
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan table info: %w", err)
		}
		cols[name] = true
	}
	return cols, rows.Err()
}
