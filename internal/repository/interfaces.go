package repository

import (
	"context"
	"time"

	"shelfsync-api/internal/model"
)

// TokenRepository defines durable credential storage.
type TokenRepository interface {
	// GetLive returns the most recently refreshed unexpired token for
	// the account, or nil if none exists.
	GetLive(ctx context.Context, account string, now time.Time) (*model.CachedToken, error)

	// Replace atomically deletes all rows for the token's account and
	// inserts the new one. A reader never observes a partial token.
	Replace(ctx context.Context, token *model.CachedToken) error

	// Delete removes all rows for the account.
	Delete(ctx context.Context, account string) error
}

// ConfigRepository defines cached key/value storage for platform-side
// configuration values.
type ConfigRepository interface {
	// Get returns the value for key, or "" if the key is absent.
	Get(ctx context.Context, key string) (string, error)

	// Set upserts the value for key.
	Set(ctx context.Context, key, value, description string) error
}

// QueueRepository defines the durable sync outbox.
type QueueRepository interface {
	// Enqueue inserts a new pending item and sets its ID.
	Enqueue(ctx context.Context, item *model.SyncItem) error

	// Get returns the item, or nil, nil when it does not exist.
	Get(ctx context.Context, id int64) (*model.SyncItem, error)

	// DuePending returns up to limit pending items with
	// scheduled_at <= now, oldest first.
	DuePending(ctx context.Context, now time.Time, limit int) ([]*model.SyncItem, error)

	// Claim transitions one item from pending to processing. Returns
	// false if the item was not pending anymore (claimed elsewhere).
	// This is the cross-run concurrency boundary and must be a single
	// conditional update, never a read followed by a write.
	Claim(ctx context.Context, id int64) (bool, error)

	// MarkSuccess marks an item terminally succeeded.
	MarkSuccess(ctx context.Context, id int64, at time.Time) error

	// Reschedule returns an item to pending with an advanced retry
	// count, a later scheduled_at, and the error that caused the retry.
	Reschedule(ctx context.Context, id int64, retryCount int, scheduledAt time.Time, lastError string) error

	// MarkFailed marks an item terminally failed after exhausting retries.
	MarkFailed(ctx context.Context, id int64, retryCount int, lastError string, at time.Time) error

	// ReclaimStale returns items stuck in processing since before the
	// cutoff back to pending (crash recovery).
	ReclaimStale(ctx context.Context, before time.Time) (int64, error)

	// CountByStatus returns the number of items per status.
	CountByStatus(ctx context.Context) (map[model.SyncStatus]int64, error)
}

// ProductRepository defines the narrow product access the sync layer needs.
type ProductRepository interface {
	// GetByTagMAC finds the product bound to a shelf label by its
	// canonical MAC. Returns nil, nil when no product is bound.
	GetByTagMAC(ctx context.Context, mac string) (*model.Product, error)

	// GetByGoodsID finds the product by its platform-side goods id.
	// Returns nil, nil when unknown.
	GetByGoodsID(ctx context.Context, goodsID string) (*model.Product, error)

	// GetByID returns the product, or nil, nil when it does not exist.
	GetByID(ctx context.Context, id int64) (*model.Product, error)

	// MarkSynced flips the synced flag and records the platform goods id.
	MarkSynced(ctx context.Context, id int64, goodsID string, at time.Time) error

	// MarkSyncError records the latest sync failure on the product.
	MarkSyncError(ctx context.Context, id int64, message string) error
}

// RequestRepository defines replenishment request access for the
// webhook ingestor.
type RequestRepository interface {
	// FindRecentPending returns an existing pending request for the
	// same product, device and method created at or after since, or
	// nil, nil when there is none. Used for dedup of bouncing buttons.
	FindRecentPending(ctx context.Context, productID int64, deviceID, method string, since time.Time) (*model.ReplenishmentRequest, error)

	// Create inserts a new request and sets its ID.
	Create(ctx context.Context, req *model.ReplenishmentRequest) error
}

// AccountRepository defines the requester-fallback lookup.
type AccountRepository interface {
	// FirstByOwner returns the first account scoped to the owner,
	// ordered by id, or nil, nil when the owner has no accounts.
	FirstByOwner(ctx context.Context, ownerID int64) (*model.Account, error)
}
