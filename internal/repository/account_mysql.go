package repository

import (
	"context"
	"database/sql"
	"fmt"

	"shelfsync-api/internal/model"
)

// MySQLAccountRepository implements AccountRepository against the admin
// application's MySQL database.
type MySQLAccountRepository struct {
	db *sql.DB
}

// NewMySQLAccountRepository creates a new MySQL account repository.
func NewMySQLAccountRepository(db *sql.DB) *MySQLAccountRepository {
	return &MySQLAccountRepository{db: db}
}

// FirstByOwner returns the first account scoped to the owner, ordered by id.
func (r *MySQLAccountRepository) FirstByOwner(ctx context.Context, ownerID int64) (*model.Account, error) {
	query := `SELECT id, owner_id, username FROM users WHERE owner_id = ? ORDER BY id ASC LIMIT 1`

	var acc model.Account
	err := r.db.QueryRowContext(ctx, query, ownerID).Scan(&acc.ID, &acc.OwnerID, &acc.Username)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query owner accounts: %w", err)
	}
	return &acc, nil
}

// Ensure MySQLAccountRepository implements AccountRepository
var _ AccountRepository = (*MySQLAccountRepository)(nil)
