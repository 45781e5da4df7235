package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SQLiteConfigRepository implements ConfigRepository using SQLite.
type SQLiteConfigRepository struct {
	db *sql.DB
}

// NewSQLiteConfigRepository creates a new SQLite config repository.
func NewSQLiteConfigRepository(db *sql.DB) *SQLiteConfigRepository {
	return &SQLiteConfigRepository{db: db}
}

// Get returns the value for key, or "" if the key is absent.
func (r *SQLiteConfigRepository) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM store_config WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("failed to get config %q: %w", key, err)
	}
	return value, nil
}

// Set upserts the value for key.
func (r *SQLiteConfigRepository) Set(ctx context.Context, key, value, description string) error {
	query := `
		INSERT INTO store_config (key, value, description, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			description = excluded.description,
			updated_at = excluded.updated_at`

	if _, err := r.db.ExecContext(ctx, query, key, value, description, time.Now().Unix()); err != nil {
		return fmt.Errorf("failed to set config %q: %w", key, err)
	}
	return nil
}

// Ensure SQLiteConfigRepository implements ConfigRepository
var _ ConfigRepository = (*SQLiteConfigRepository)(nil)
