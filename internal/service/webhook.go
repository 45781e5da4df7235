package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"shelfsync-api/internal/cache"
	"shelfsync-api/internal/model"
	"shelfsync-api/internal/platform"
	"shelfsync-api/internal/repository"
)

// Button event type codes as sent by the hardware platform.
const (
	EventShortPress = 1
	EventLongPress  = 2
)

// Fixed quantity fallbacks when a product has no standard order
// quantity configured. This mapping is policy: short press orders the
// standard amount at normal priority, long press doubles it at urgent.
const (
	fallbackShortQty = 10
	fallbackLongQty  = 50
)

// ButtonEvent is the inbound webhook payload for a label button press.
type ButtonEvent struct {
	TagMAC    string `json:"mac"`
	ButtonID  string `json:"button_id"`
	EventType int    `json:"event_type"`
	Timestamp int64  `json:"timestamp"`
}

// IngestResult is the always-success-shaped webhook outcome. Status is
// one of success, duplicate, skipped, error; the HTTP layer returns 2xx
// for all of them so the sender's retry logic never amplifies load.
type IngestResult struct {
	Status    string         `json:"status"`
	Message   string         `json:"message"`
	RequestID int64          `json:"request_id,omitempty"`
	ProductID int64          `json:"product_id,omitempty"`
	Quantity  int            `json:"quantity,omitempty"`
	Priority  model.Priority `json:"priority,omitempty"`
}

// bindingFinder is the optional platform lookup for labels bound
// remotely but not yet mirrored locally.
type bindingFinder interface {
	QueryOperationLogs(ctx context.Context, storeID, labelMAC string, page, pageSize int) *platform.Result
}

// WebhookIngestor converts hardware button events into replenishment
// requests, with dedup against bouncing buttons and the fixed
// priority/quantity mapping. It depends only on the data store and an
// optional platform binding lookup, never on the sync queue.
type WebhookIngestor struct {
	products repository.ProductRepository
	requests repository.RequestRepository
	accounts repository.AccountRepository

	client bindingFinder   // optional
	stores storeIDResolver // optional, needed only for client
	cache  cache.Cache     // optional fast-path dedup marks

	dedupWindow time.Duration
}

// NewWebhookIngestor creates the ingestor. client, stores and cache may
// be nil; everything degrades to the local store.
func NewWebhookIngestor(
	products repository.ProductRepository,
	requests repository.RequestRepository,
	accounts repository.AccountRepository,
	client bindingFinder,
	stores storeIDResolver,
	c cache.Cache,
	dedupWindow time.Duration,
) *WebhookIngestor {
	return &WebhookIngestor{
		products:    products,
		requests:    requests,
		accounts:    accounts,
		client:      client,
		stores:      stores,
		cache:       c,
		dedupWindow: dedupWindow,
	}
}

// Handle processes one button event. It never panics and never returns
// an error: internal failures come back as an error-shaped result the
// HTTP layer still answers with 2xx.
func (w *WebhookIngestor) Handle(ctx context.Context, ev ButtonEvent) IngestResult {
	if strings.TrimSpace(ev.TagMAC) == "" {
		return IngestResult{Status: "error", Message: "missing hardware identifier"}
	}

	mac := NormalizeMAC(ev.TagMAC)

	product, err := w.products.GetByTagMAC(ctx, mac)
	if err != nil {
		log.Printf("[WebhookIngestor] product lookup failed for %s: %v", mac, err)
		return IngestResult{Status: "error", Message: "product lookup failed"}
	}
	if product == nil {
		product = w.findRemoteBinding(ctx, mac)
	}
	if product == nil {
		// Expected for labels not yet bound; not a fault.
		log.Printf("[WebhookIngestor] no product bound to label %s, skipping", mac)
		return IngestResult{Status: "skipped", Message: "no product bound to this label"}
	}

	if existing := w.findDuplicate(ctx, product.ID, mac); existing != nil {
		log.Printf("[WebhookIngestor] duplicate press for product %d within window, request %d", product.ID, existing.ID)
		return IngestResult{
			Status:    "duplicate",
			Message:   "request already created for this press",
			RequestID: existing.ID,
			ProductID: product.ID,
			Quantity:  existing.Quantity,
			Priority:  existing.Priority,
		}
	}

	priority, quantity, ok := mapButtonEvent(ev.EventType, product.StandardOrderQty)
	if !ok {
		return IngestResult{Status: "error", Message: fmt.Sprintf("unknown event type %d", ev.EventType)}
	}

	requester, err := w.accounts.FirstByOwner(ctx, product.OwnerID)
	if err != nil {
		log.Printf("[WebhookIngestor] requester lookup failed: %v", err)
		return IngestResult{Status: "error", Message: "requester lookup failed"}
	}
	if requester == nil {
		return IngestResult{Status: "error", Message: "no account available to own the request"}
	}

	req := &model.ReplenishmentRequest{
		ProductID:   product.ID,
		Method:      model.MethodESLButton,
		DeviceID:    mac,
		Quantity:    quantity,
		Priority:    priority,
		Status:      "pending",
		RequesterID: requester.ID,
	}
	if err := w.requests.Create(ctx, req); err != nil {
		log.Printf("[WebhookIngestor] failed to create request: %v", err)
		return IngestResult{Status: "error", Message: "failed to create request"}
	}

	log.Printf("[WebhookIngestor] created request %d: product=%d qty=%d priority=%s",
		req.ID, product.ID, quantity, priority)
	return IngestResult{
		Status:    "success",
		Message:   "replenishment request created",
		RequestID: req.ID,
		ProductID: product.ID,
		Quantity:  quantity,
		Priority:  priority,
	}
}

// findDuplicate returns an existing pending request for the same
// product + device + channel within the trailing dedup window. The
// cache mark is only a fast path; the store query is authoritative.
func (w *WebhookIngestor) findDuplicate(ctx context.Context, productID int64, mac string) *model.ReplenishmentRequest {
	if w.cache != nil {
		key := fmt.Sprintf("dedup:%d:%s:%s", productID, mac, model.MethodESLButton)
		if set, err := w.cache.SetNX(ctx, key, []byte("1"), w.dedupWindow); err == nil && !set {
			// Mark already present: a press landed moments ago.
			if existing, err := w.requests.FindRecentPending(ctx, productID, mac, model.MethodESLButton, time.Now().Add(-w.dedupWindow)); err == nil && existing != nil {
				return existing
			}
		}
	}

	existing, err := w.requests.FindRecentPending(ctx, productID, mac, model.MethodESLButton, time.Now().Add(-w.dedupWindow))
	if err != nil {
		log.Printf("[WebhookIngestor] dedup lookup failed: %v", err)
		return nil
	}
	return existing
}

// findRemoteBinding asks the platform's operation log whether the label
// was bound remotely to goods we know locally. Best effort.
func (w *WebhookIngestor) findRemoteBinding(ctx context.Context, mac string) *model.Product {
	if w.client == nil || w.stores == nil {
		return nil
	}
	storeID := w.stores.Resolve(ctx)
	if storeID == "" {
		return nil
	}

	res := w.client.QueryOperationLogs(ctx, storeID, mac, 1, 10)
	if !res.OK() {
		return nil
	}

	var data struct {
		List []struct {
			LabelMAC string `json:"labelMac"`
			GoodsID  string `json:"goodsId"`
		} `json:"list"`
	}
	if err := json.Unmarshal(res.Data, &data); err != nil {
		return nil
	}

	for _, entry := range data.List {
		if entry.GoodsID == "" {
			continue
		}
		product, err := w.products.GetByGoodsID(ctx, entry.GoodsID)
		if err == nil && product != nil {
			log.Printf("[WebhookIngestor] recovered binding %s -> product %d from platform logs", mac, product.ID)
			return product
		}
	}
	return nil
}

// NormalizeMAC strips separators and uppercases a hardware identifier.
func NormalizeMAC(mac string) string {
	replacer := strings.NewReplacer(":", "", "-", "", ".", "", " ", "")
	return strings.ToUpper(replacer.Replace(strings.TrimSpace(mac)))
}

// mapButtonEvent is the fixed event -> priority/quantity policy. Short
// press orders the standard quantity (or 10) at normal priority; long
// press doubles the standard quantity (or 50) at urgent priority.
func mapButtonEvent(eventType, standardQty int) (model.Priority, int, bool) {
	switch eventType {
	case EventShortPress:
		qty := standardQty
		if qty <= 0 {
			qty = fallbackShortQty
		}
		return model.PriorityNormal, qty, true
	case EventLongPress:
		qty := standardQty * 2
		if standardQty <= 0 {
			qty = fallbackLongQty
		}
		return model.PriorityUrgent, qty, true
	default:
		return "", 0, false
	}
}
