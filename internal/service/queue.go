package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"time"

	"shelfsync-api/internal/config"
	"shelfsync-api/internal/model"
	"shelfsync-api/internal/platform"
	"shelfsync-api/internal/repository"
)

// goodsClient is the slice of the platform client the queue handlers use.
type goodsClient interface {
	CreateGoods(ctx context.Context, storeID string, goods interface{}) *platform.Result
	UpdateGoods(ctx context.Context, storeID string, goods interface{}) *platform.Result
	DeleteGoods(ctx context.Context, storeID, goodsID string) *platform.Result
	BatchImportGoods(ctx context.Context, storeID string, goodsList interface{}) *platform.Result
	BindLabel(ctx context.Context, storeID, labelMAC, goodsID string) *platform.Result
	UnbindLabel(ctx context.Context, storeID, labelMAC string) *platform.Result
	RefreshLabel(ctx context.Context, storeID, labelMAC string) *platform.Result
}

// tokenAcquirer and storeIDResolver decouple the processor from the
// concrete TokenManager / StoreResolver for testing.
type tokenAcquirer interface {
	Acquire(ctx context.Context, force bool) *model.CachedToken
}

type storeIDResolver interface {
	Resolve(ctx context.Context) string
}

// handlerKey selects the remote operation for a queued item. The table
// is closed at construction: adding an entity type means adding an
// entry here, checked at compile time through the enum constants.
type handlerKey struct {
	entity model.EntityType
	op     model.Operation
}

type handlerFunc func(ctx context.Context, storeID string, item *model.SyncItem) error

// BatchResult summarizes one processor run. Failed counts terminal
// failures only; rescheduled items count toward Processed.
type BatchResult struct {
	Processed int `json:"processed"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// QueueService is the durable outbox of pending platform mutations and
// its batch processor. Enqueue never performs network I/O; the remote
// calls happen in ProcessBatch, invoked by a periodic or manual trigger.
type QueueService struct {
	repo     repository.QueueRepository
	products repository.ProductRepository
	tokens   tokenAcquirer
	stores   storeIDResolver
	client   goodsClient

	batchLimit  int
	maxRetries  int
	backoffBase int
	staleAfter  time.Duration

	handlers map[handlerKey]handlerFunc
}

// NewQueueService creates the queue service and its handler table.
func NewQueueService(
	repo repository.QueueRepository,
	products repository.ProductRepository,
	tokens tokenAcquirer,
	stores storeIDResolver,
	client goodsClient,
	cfg config.QueueConfig,
) *QueueService {
	s := &QueueService{
		repo:        repo,
		products:    products,
		tokens:      tokens,
		stores:      stores,
		client:      client,
		batchLimit:  cfg.BatchLimit,
		maxRetries:  cfg.MaxRetries,
		backoffBase: cfg.BackoffBaseMinutes,
		staleAfter:  cfg.StaleAfter,
	}

	s.handlers = map[handlerKey]handlerFunc{
		{model.EntityProduct, model.OpCreate}: s.syncProductCreate,
		{model.EntityProduct, model.OpUpdate}: s.syncProductUpdate,
		{model.EntityProduct, model.OpDelete}: s.syncProductDelete,
		{model.EntityDevice, model.OpCreate}:  s.syncDeviceBind,
		{model.EntityDevice, model.OpUpdate}:  s.syncDeviceRefresh,
		{model.EntityDevice, model.OpDelete}:  s.syncDeviceUnbind,
		{model.EntityOrder, model.OpCreate}:   s.syncOrderGoods,
		{model.EntityOrder, model.OpUpdate}:   s.syncOrderGoods,
		{model.EntityOrder, model.OpDelete}:   s.syncOrderGoods,
	}

	return s
}

// Enqueue appends one pending item. Safe to call from any business
// handler: no network I/O happens here.
func (s *QueueService) Enqueue(ctx context.Context, entity model.EntityType, op model.Operation, entityID int64, payload json.RawMessage) error {
	item := &model.SyncItem{
		EntityType: entity,
		EntityID:   entityID,
		Operation:  op,
		Payload:    payload,
		MaxRetries: s.maxRetries,
	}

	if err := s.repo.Enqueue(ctx, item); err != nil {
		return err
	}

	log.Printf("[SyncQueue] enqueued %s/%s for entity %d as item %d", entity, op, entityID, item.ID)
	return nil
}

// ProcessBatch claims and dispatches up to limit due items. The token
// and store id are resolved once per batch. Items whose remote call
// fails are rescheduled with exponential backoff until retries are
// exhausted, then marked failed terminally.
func (s *QueueService) ProcessBatch(ctx context.Context, limit int) BatchResult {
	if limit <= 0 || limit > s.batchLimit {
		limit = s.batchLimit
	}

	var res BatchResult

	items, err := s.repo.DuePending(ctx, time.Now(), limit)
	if err != nil {
		log.Printf("[QueueProcessor] failed to load due items: %v", err)
		return res
	}
	if len(items) == 0 {
		return res
	}

	// One token + store id per batch. If either is unavailable the
	// platform is down: leave the whole batch pending for the next run
	// rather than burning retries on every item.
	if tok := s.tokens.Acquire(ctx, false); tok == nil {
		log.Printf("[QueueProcessor] no platform token, leaving %d items for next run", len(items))
		return res
	}
	storeID := s.stores.Resolve(ctx)
	if storeID == "" {
		log.Printf("[QueueProcessor] no store id, leaving %d items for next run", len(items))
		return res
	}

	for _, item := range items {
		claimed, err := s.repo.Claim(ctx, item.ID)
		if err != nil {
			log.Printf("[QueueProcessor] claim of item %d failed: %v", item.ID, err)
			continue
		}
		if !claimed {
			// Another processor run got there first.
			continue
		}
		res.Processed++

		handler, ok := s.handlers[handlerKey{item.EntityType, item.Operation}]
		if !ok {
			// Unknown combination can never succeed; fail terminally.
			msg := fmt.Sprintf("no handler for %s/%s", item.EntityType, item.Operation)
			if err := s.repo.MarkFailed(ctx, item.ID, item.RetryCount, msg, time.Now()); err != nil {
				log.Printf("[QueueProcessor] failed to mark item %d: %v", item.ID, err)
			}
			res.Failed++
			continue
		}

		if err := handler(ctx, storeID, item); err != nil {
			s.recordFailure(ctx, item, err, &res)
			continue
		}

		if err := s.repo.MarkSuccess(ctx, item.ID, time.Now()); err != nil {
			log.Printf("[QueueProcessor] failed to mark item %d success: %v", item.ID, err)
		}
		res.Succeeded++
	}

	log.Printf("[QueueProcessor] batch done: processed=%d succeeded=%d failed=%d",
		res.Processed, res.Succeeded, res.Failed)
	return res
}

// recordFailure reschedules or terminally fails one claimed item.
func (s *QueueService) recordFailure(ctx context.Context, item *model.SyncItem, cause error, res *BatchResult) {
	item.RetryCount++

	if item.RetryCount >= item.MaxRetries {
		if err := s.repo.MarkFailed(ctx, item.ID, item.RetryCount, cause.Error(), time.Now()); err != nil {
			log.Printf("[QueueProcessor] failed to mark item %d failed: %v", item.ID, err)
		}
		log.Printf("[QueueProcessor] item %d failed terminally after %d attempts: %v",
			item.ID, item.RetryCount, cause)
		res.Failed++
		return
	}

	next := time.Now().Add(s.backoffDelay(item.RetryCount))
	if err := s.repo.Reschedule(ctx, item.ID, item.RetryCount, next, cause.Error()); err != nil {
		log.Printf("[QueueProcessor] failed to reschedule item %d: %v", item.ID, err)
		return
	}
	log.Printf("[QueueProcessor] item %d rescheduled for %v (retry %d/%d): %v",
		item.ID, next, item.RetryCount, item.MaxRetries, cause)
}

// backoffDelay grows exponentially with the retry count, in minutes.
func (s *QueueService) backoffDelay(retryCount int) time.Duration {
	minutes := math.Pow(float64(s.backoffBase), float64(retryCount))
	return time.Duration(minutes) * time.Minute
}

// ReclaimStale returns items stuck in processing by a crashed run back
// to pending.
func (s *QueueService) ReclaimStale(ctx context.Context) int64 {
	n, err := s.repo.ReclaimStale(ctx, time.Now().Add(-s.staleAfter))
	if err != nil {
		log.Printf("[QueueProcessor] stale reclaim failed: %v", err)
		return 0
	}
	if n > 0 {
		log.Printf("[QueueProcessor] reclaimed %d stale processing items", n)
	}
	return n
}

// Stats returns queue depth per status for the admin surface.
func (s *QueueService) Stats(ctx context.Context) (map[model.SyncStatus]int64, error) {
	return s.repo.CountByStatus(ctx)
}

// --- operation handlers -------------------------------------------------
//
// Each handler performs one idempotent remote mutation plus its local
// side effect. The remote API is keyed by stable identifiers, so a
// crash between the remote call and the local marking produces at worst
// a harmless duplicate call, never inconsistent local state.

func (s *QueueService) syncProductCreate(ctx context.Context, storeID string, item *model.SyncItem) error {
	res := s.client.CreateGoods(ctx, storeID, json.RawMessage(item.Payload))
	if err := res.AsError(); err != nil {
		s.noteSyncError(ctx, item.EntityID, err)
		return err
	}

	goodsID := platform.ParseGoodsID(res)
	if err := s.products.MarkSynced(ctx, item.EntityID, goodsID, time.Now()); err != nil {
		return err
	}
	return nil
}

func (s *QueueService) syncProductUpdate(ctx context.Context, storeID string, item *model.SyncItem) error {
	res := s.client.UpdateGoods(ctx, storeID, json.RawMessage(item.Payload))
	if err := res.AsError(); err != nil {
		s.noteSyncError(ctx, item.EntityID, err)
		return err
	}

	goodsID := platform.ParseGoodsID(res)
	if goodsID == "" {
		// Updates usually echo no id; keep the one we already have.
		if p, err := s.products.GetByID(ctx, item.EntityID); err == nil && p != nil {
			goodsID = p.ESLGoodsID
		}
	}
	return s.products.MarkSynced(ctx, item.EntityID, goodsID, time.Now())
}

func (s *QueueService) syncProductDelete(ctx context.Context, storeID string, item *model.SyncItem) error {
	var payload struct {
		GoodsID string `json:"goodsId"`
	}
	if err := json.Unmarshal(item.Payload, &payload); err != nil || payload.GoodsID == "" {
		return fmt.Errorf("product delete payload carries no goodsId")
	}
	// The local row is already gone; only the remote side effect remains.
	return s.client.DeleteGoods(ctx, storeID, payload.GoodsID).AsError()
}

// devicePayload is the queued shape for label operations.
type devicePayload struct {
	LabelMAC string `json:"labelMac"`
	GoodsID  string `json:"goodsId,omitempty"`
}

func (s *QueueService) syncDeviceBind(ctx context.Context, storeID string, item *model.SyncItem) error {
	var p devicePayload
	if err := json.Unmarshal(item.Payload, &p); err != nil || p.LabelMAC == "" {
		return fmt.Errorf("device bind payload carries no labelMac")
	}
	return s.client.BindLabel(ctx, storeID, p.LabelMAC, p.GoodsID).AsError()
}

func (s *QueueService) syncDeviceRefresh(ctx context.Context, storeID string, item *model.SyncItem) error {
	var p devicePayload
	if err := json.Unmarshal(item.Payload, &p); err != nil || p.LabelMAC == "" {
		return fmt.Errorf("device refresh payload carries no labelMac")
	}
	return s.client.RefreshLabel(ctx, storeID, p.LabelMAC).AsError()
}

func (s *QueueService) syncDeviceUnbind(ctx context.Context, storeID string, item *model.SyncItem) error {
	var p devicePayload
	if err := json.Unmarshal(item.Payload, &p); err != nil || p.LabelMAC == "" {
		return fmt.Errorf("device unbind payload carries no labelMac")
	}
	return s.client.UnbindLabel(ctx, storeID, p.LabelMAC).AsError()
}

// syncOrderGoods pushes the goods affected by an order (quantities,
// prices) in one batch import. Create, update and delete all reduce to
// the same upsert of the order's goods list.
func (s *QueueService) syncOrderGoods(ctx context.Context, storeID string, item *model.SyncItem) error {
	var payload struct {
		GoodsList json.RawMessage `json:"goodsList"`
	}
	if err := json.Unmarshal(item.Payload, &payload); err != nil || len(payload.GoodsList) == 0 {
		return fmt.Errorf("order payload carries no goodsList")
	}
	return s.client.BatchImportGoods(ctx, storeID, payload.GoodsList).AsError()
}

// noteSyncError records the failure on the product for the admin UI's
// soft sync indicator. Best effort.
func (s *QueueService) noteSyncError(ctx context.Context, productID int64, cause error) {
	if err := s.products.MarkSyncError(ctx, productID, cause.Error()); err != nil {
		log.Printf("[QueueProcessor] failed to record sync error on product %d: %v", productID, err)
	}
}
