package model

import (
	"encoding/json"
	"time"
)

// EntityType identifies which kind of record a queued mutation targets.
type EntityType string

const (
	EntityProduct EntityType = "product"
	EntityOrder   EntityType = "order"
	EntityDevice  EntityType = "device"
)

// Operation is the remote mutation to perform for a queued item.
type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// SyncStatus is the lifecycle state of a queued item.
//
// pending -> processing -> success (terminal)
//                       -> pending (rescheduled with a later ScheduledAt)
//                       -> failed  (terminal, retries exhausted)
type SyncStatus string

const (
	SyncPending    SyncStatus = "pending"
	SyncProcessing SyncStatus = "processing"
	SyncSuccess    SyncStatus = "success"
	SyncFailed     SyncStatus = "failed"
)

// SyncItem is one durable outbox entry for a pending platform mutation.
type SyncItem struct {
	ID          int64           `json:"id"`
	EntityType  EntityType      `json:"entity_type"`
	EntityID    int64           `json:"entity_id"`
	Operation   Operation       `json:"operation"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Status      SyncStatus      `json:"status"`
	RetryCount  int             `json:"retry_count"`
	MaxRetries  int             `json:"max_retries"`
	ScheduledAt time.Time       `json:"scheduled_at"`
	LastError   string          `json:"last_error,omitempty"`
	ProcessedAt *time.Time      `json:"processed_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}
