package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"shelfsync-api/internal/model"
)

// MySQLProductRepository implements ProductRepository against the admin
// application's MySQL database.
type MySQLProductRepository struct {
	db *sql.DB
}

// NewMySQLProductRepository creates a new MySQL product repository.
func NewMySQLProductRepository(db *sql.DB) *MySQLProductRepository {
	return &MySQLProductRepository{db: db}
}

const productColumns = `
	id, owner_id, name, barcode,
	COALESCE(esl_tag_mac, ''), COALESCE(standard_order_qty, 0),
	COALESCE(esl_goods_id, ''), synced, synced_at, COALESCE(sync_error, '')`

// GetByTagMAC finds the product bound to a shelf label by canonical MAC.
func (r *MySQLProductRepository) GetByTagMAC(ctx context.Context, mac string) (*model.Product, error) {
	query := `SELECT` + productColumns + `FROM products WHERE esl_tag_mac = ? LIMIT 1`
	return r.queryOne(ctx, query, mac)
}

// GetByGoodsID finds the product by its platform-side goods id.
func (r *MySQLProductRepository) GetByGoodsID(ctx context.Context, goodsID string) (*model.Product, error) {
	query := `SELECT` + productColumns + `FROM products WHERE esl_goods_id = ? LIMIT 1`
	return r.queryOne(ctx, query, goodsID)
}

// GetByID returns the product by primary key.
func (r *MySQLProductRepository) GetByID(ctx context.Context, id int64) (*model.Product, error) {
	query := `SELECT` + productColumns + `FROM products WHERE id = ? LIMIT 1`
	return r.queryOne(ctx, query, id)
}

func (r *MySQLProductRepository) queryOne(ctx context.Context, query string, arg interface{}) (*model.Product, error) {
	var p model.Product
	var syncedAt sql.NullTime

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&p.ID, &p.OwnerID, &p.Name, &p.Barcode,
		&p.ESLTagMAC, &p.StandardOrderQty,
		&p.ESLGoodsID, &p.Synced, &syncedAt, &p.SyncError,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query product: %w", err)
	}

	if syncedAt.Valid {
		p.SyncedAt = &syncedAt.Time
	}
	return &p, nil
}

// MarkSynced flips the synced flag and records the platform goods id.
func (r *MySQLProductRepository) MarkSynced(ctx context.Context, id int64, goodsID string, at time.Time) error {
	query := `UPDATE products SET synced = 1, esl_goods_id = ?, synced_at = ?, sync_error = '' WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, goodsID, at, id); err != nil {
		return fmt.Errorf("failed to mark product %d synced: %w", id, err)
	}
	return nil
}

// MarkSyncError records the latest sync failure on the product.
func (r *MySQLProductRepository) MarkSyncError(ctx context.Context, id int64, message string) error {
	query := `UPDATE products SET synced = 0, sync_error = ? WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, message, id); err != nil {
		return fmt.Errorf("failed to record sync error for product %d: %w", id, err)
	}
	return nil
}

// Ensure MySQLProductRepository implements ProductRepository
var _ ProductRepository = (*MySQLProductRepository)(nil)
