package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"shelfsync-api/internal/model"
)

// SQLiteQueueRepository implements QueueRepository using SQLite.
type SQLiteQueueRepository struct {
	db *sql.DB
}

// NewSQLiteQueueRepository creates a new SQLite queue repository.
func NewSQLiteQueueRepository(db *sql.DB) *SQLiteQueueRepository {
	return &SQLiteQueueRepository{db: db}
}

// Enqueue inserts a new pending item and sets its ID.
func (r *SQLiteQueueRepository) Enqueue(ctx context.Context, item *model.SyncItem) error {
	now := time.Now()
	if item.ScheduledAt.IsZero() {
		item.ScheduledAt = now
	}
	item.Status = model.SyncPending
	item.CreatedAt = now

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO sync_queue
			(entity_type, entity_id, operation, payload, status, retry_count, max_retries, scheduled_at, last_error, created_at)
		VALUES (?, ?, ?, ?, ?, 0, ?, ?, '', ?)`,
		string(item.EntityType), item.EntityID, string(item.Operation), string(item.Payload),
		string(model.SyncPending), item.MaxRetries, item.ScheduledAt.Unix(), item.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to enqueue sync item: %w", err)
	}

	if id, err := res.LastInsertId(); err == nil {
		item.ID = id
	}
	return nil
}

// Get returns the item, or nil, nil when it does not exist.
func (r *SQLiteQueueRepository) Get(ctx context.Context, id int64) (*model.SyncItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, entity_type, entity_id, operation, payload, status,
		       retry_count, max_retries, scheduled_at, last_error, processed_at, created_at
		FROM sync_queue WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get sync item %d: %w", id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanSyncItem(rows)
}

// DuePending returns up to limit pending items due at now, oldest first.
func (r *SQLiteQueueRepository) DuePending(ctx context.Context, now time.Time, limit int) ([]*model.SyncItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, entity_type, entity_id, operation, payload, status,
		       retry_count, max_retries, scheduled_at, last_error, processed_at, created_at
		FROM sync_queue
		WHERE status = ? AND scheduled_at <= ?
		ORDER BY scheduled_at ASC, id ASC
		LIMIT ?`,
		string(model.SyncPending), now.Unix(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query due items: %w", err)
	}
	defer rows.Close()

	var items []*model.SyncItem
	for rows.Next() {
		item, err := scanSyncItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Claim transitions one item from pending to processing via a single
// conditional update. RowsAffected == 0 means someone else claimed it.
func (r *SQLiteQueueRepository) Claim(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sync_queue SET status = ?, processed_at = ?
		WHERE id = ? AND status = ?`,
		string(model.SyncProcessing), time.Now().Unix(), id, string(model.SyncPending))
	if err != nil {
		return false, fmt.Errorf("failed to claim item %d: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// MarkSuccess marks an item terminally succeeded.
func (r *SQLiteQueueRepository) MarkSuccess(ctx context.Context, id int64, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sync_queue SET status = ?, last_error = '', processed_at = ?
		WHERE id = ?`,
		string(model.SyncSuccess), at.Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to mark item %d success: %w", id, err)
	}
	return nil
}

// Reschedule returns an item to pending for a later attempt.
func (r *SQLiteQueueRepository) Reschedule(ctx context.Context, id int64, retryCount int, scheduledAt time.Time, lastError string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sync_queue SET status = ?, retry_count = ?, scheduled_at = ?, last_error = ?
		WHERE id = ?`,
		string(model.SyncPending), retryCount, scheduledAt.Unix(), lastError, id)
	if err != nil {
		return fmt.Errorf("failed to reschedule item %d: %w", id, err)
	}
	return nil
}

// MarkFailed marks an item terminally failed.
func (r *SQLiteQueueRepository) MarkFailed(ctx context.Context, id int64, retryCount int, lastError string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sync_queue SET status = ?, retry_count = ?, last_error = ?, processed_at = ?
		WHERE id = ?`,
		string(model.SyncFailed), retryCount, lastError, at.Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to mark item %d failed: %w", id, err)
	}
	return nil
}

// ReclaimStale returns items stuck in processing since before the
// cutoff back to pending.
func (r *SQLiteQueueRepository) ReclaimStale(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sync_queue SET status = ?, scheduled_at = ?
		WHERE status = ? AND processed_at IS NOT NULL AND processed_at < ?`,
		string(model.SyncPending), time.Now().Unix(), string(model.SyncProcessing), before.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to reclaim stale items: %w", err)
	}
	return res.RowsAffected()
}

// CountByStatus returns the number of items per status.
func (r *SQLiteQueueRepository) CountByStatus(ctx context.Context) (map[model.SyncStatus]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM sync_queue GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count queue items: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.SyncStatus]int64)
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[model.SyncStatus(status)] = n
	}
	return counts, rows.Err()
}

// scanSyncItem scans one sync_queue row.
func scanSyncItem(rows *sql.Rows) (*model.SyncItem, error) {
	var item model.SyncItem
	var entityType, operation, status, payload string
	var scheduledAt, createdAt int64
	var processedAt sql.NullInt64

	err := rows.Scan(&item.ID, &entityType, &item.EntityID, &operation, &payload, &status,
		&item.RetryCount, &item.MaxRetries, &scheduledAt, &item.LastError, &processedAt, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan sync item: %w", err)
	}

	item.EntityType = model.EntityType(entityType)
	item.Operation = model.Operation(operation)
	item.Status = model.SyncStatus(status)
	if payload != "" {
		item.Payload = []byte(payload)
	}
	item.ScheduledAt = time.Unix(scheduledAt, 0)
	item.CreatedAt = time.Unix(createdAt, 0)
	if processedAt.Valid {
		t := time.Unix(processedAt.Int64, 0)
		item.ProcessedAt = &t
	}
	return &item, nil
}

// Ensure SQLiteQueueRepository implements QueueRepository
var _ QueueRepository = (*SQLiteQueueRepository)(nil)
