package service

import (
	"context"
	"encoding/json"
	"log"

	"shelfsync-api/internal/model"
)

// SyncOrEnqueue is the single fallback policy shared by every mutation
// path: try the remote call right now, and on any failure or missing
// prerequisite (no token, no store id) durably enqueue the mutation
// instead. The local mutation has already committed by the time this is
// called, so this never fails the user-facing operation.
//
// Returns true when the mutation synced immediately, false when it was
// queued for the processor.
func (s *QueueService) SyncOrEnqueue(ctx context.Context, entity model.EntityType, op model.Operation, entityID int64, payload json.RawMessage) (bool, error) {
	if handler, ok := s.handlers[handlerKey{entity, op}]; ok {
		if tok := s.tokens.Acquire(ctx, false); tok != nil {
			if storeID := s.stores.Resolve(ctx); storeID != "" {
				item := &model.SyncItem{
					EntityType: entity,
					EntityID:   entityID,
					Operation:  op,
					Payload:    payload,
					MaxRetries: s.maxRetries,
				}
				if err := handler(ctx, storeID, item); err == nil {
					return true, nil
				} else {
					log.Printf("[SyncQueue] immediate %s/%s for entity %d failed, queueing: %v",
						entity, op, entityID, err)
				}
			}
		}
	}

	return false, s.Enqueue(ctx, entity, op, entityID, payload)
}
