package repository

import (
	"database/sql"
	"fmt"
	"log"

	_ "modernc.org/sqlite" // Pure Go SQLite driver - no CGO required
)

// OpenStateDB opens the SQLite database holding sync-layer state
// (cached tokens, store config, sync queue) and creates the schema.
// Thread-safe with WAL mode for high-concurrency reads.
func OpenStateDB(dbPath string) (*sql.DB, error) {
	// Open with WAL mode and other optimizations
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}

	// SQLite connection pool settings
	db.SetMaxOpenConns(1) // SQLite only supports 1 writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0) // Keep connection alive

	if err := createStateTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	log.Printf("[StateDB] Initialized with database: %s", dbPath)
	return db, nil
}

// createStateTables creates the sync-layer state tables.
// Timestamps are stored as unix seconds.
func createStateTables(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS cached_tokens (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		account TEXT NOT NULL,
		token TEXT NOT NULL,
		expires_at INTEGER NOT NULL,
		refreshed_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_tokens_account ON cached_tokens(account);

	CREATE TABLE IF NOT EXISTS store_config (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sync_queue (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		entity_type TEXT NOT NULL,
		entity_id INTEGER NOT NULL,
		operation TEXT NOT NULL,
		payload TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'pending',
		retry_count INTEGER NOT NULL DEFAULT 0,
		max_retries INTEGER NOT NULL DEFAULT 5,
		scheduled_at INTEGER NOT NULL,
		last_error TEXT NOT NULL DEFAULT '',
		processed_at INTEGER,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_queue_status_due ON sync_queue(status, scheduled_at);
	`
	_, err := db.Exec(query)
	return err
}
