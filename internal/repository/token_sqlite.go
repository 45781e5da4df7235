package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"shelfsync-api/internal/model"
)

// SQLiteTokenRepository implements TokenRepository using SQLite.
type SQLiteTokenRepository struct {
	db *sql.DB
}

// NewSQLiteTokenRepository creates a new SQLite token repository.
func NewSQLiteTokenRepository(db *sql.DB) *SQLiteTokenRepository {
	return &SQLiteTokenRepository{db: db}
}

// GetLive returns the most recently refreshed unexpired token for the account.
func (r *SQLiteTokenRepository) GetLive(ctx context.Context, account string, now time.Time) (*model.CachedToken, error) {
	query := `
		SELECT id, account, token, expires_at, refreshed_at
		FROM cached_tokens
		WHERE account = ? AND expires_at > ?
		ORDER BY refreshed_at DESC
		LIMIT 1`

	var tok model.CachedToken
	var expiresAt, refreshedAt int64

	err := r.db.QueryRowContext(ctx, query, account, now.Unix()).Scan(
		&tok.ID, &tok.Account, &tok.Token, &expiresAt, &refreshedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cached token: %w", err)
	}

	tok.ExpiresAt = time.Unix(expiresAt, 0)
	tok.RefreshedAt = time.Unix(refreshedAt, 0)
	return &tok, nil
}

// Replace deletes all rows for the token's account and inserts the new
// one within a single transaction.
func (r *SQLiteTokenRepository) Replace(ctx context.Context, token *model.CachedToken) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM cached_tokens WHERE account = ?`, token.Account); err != nil {
		return fmt.Errorf("failed to delete superseded tokens: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO cached_tokens (account, token, expires_at, refreshed_at)
		VALUES (?, ?, ?, ?)`,
		token.Account, token.Token, token.ExpiresAt.Unix(), token.RefreshedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert token: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit token replace: %w", err)
	}

	if id, err := res.LastInsertId(); err == nil {
		token.ID = id
	}
	return nil
}

// Delete removes all rows for the account.
func (r *SQLiteTokenRepository) Delete(ctx context.Context, account string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM cached_tokens WHERE account = ?`, account); err != nil {
		return fmt.Errorf("failed to delete tokens: %w", err)
	}
	return nil
}

// Ensure SQLiteTokenRepository implements TokenRepository
var _ TokenRepository = (*SQLiteTokenRepository)(nil)
