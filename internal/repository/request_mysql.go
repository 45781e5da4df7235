package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"shelfsync-api/internal/model"
)

// MySQLRequestRepository implements RequestRepository against the admin
// application's MySQL database.
type MySQLRequestRepository struct {
	db *sql.DB
}

// NewMySQLRequestRepository creates a new MySQL request repository.
func NewMySQLRequestRepository(db *sql.DB) *MySQLRequestRepository {
	return &MySQLRequestRepository{db: db}
}

// FindRecentPending returns an existing pending request for the same
// product, device and method created at or after since.
func (r *MySQLRequestRepository) FindRecentPending(ctx context.Context, productID int64, deviceID, method string, since time.Time) (*model.ReplenishmentRequest, error) {
	query := `
		SELECT id, product_id, method, device_id, quantity, priority, status, requester_id, created_at
		FROM replenishment_requests
		WHERE product_id = ? AND device_id = ? AND method = ? AND status = 'pending' AND created_at >= ?
		ORDER BY created_at DESC
		LIMIT 1`

	var req model.ReplenishmentRequest
	var priority string

	err := r.db.QueryRowContext(ctx, query, productID, deviceID, method, since).Scan(
		&req.ID, &req.ProductID, &req.Method, &req.DeviceID,
		&req.Quantity, &priority, &req.Status, &req.RequesterID, &req.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query recent requests: %w", err)
	}

	req.Priority = model.Priority(priority)
	return &req, nil
}

// Create inserts a new request and sets its ID.
func (r *MySQLRequestRepository) Create(ctx context.Context, req *model.ReplenishmentRequest) error {
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now()
	}
	if req.Status == "" {
		req.Status = "pending"
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO replenishment_requests
			(product_id, method, device_id, quantity, priority, status, requester_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		req.ProductID, req.Method, req.DeviceID, req.Quantity,
		string(req.Priority), req.Status, req.RequesterID, req.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create replenishment request: %w", err)
	}

	if id, err := res.LastInsertId(); err == nil {
		req.ID = id
	}
	return nil
}

// Ensure MySQLRequestRepository implements RequestRepository
var _ RequestRepository = (*MySQLRequestRepository)(nil)
