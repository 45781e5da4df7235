package model

import "time"

// Product mirrors the admin application's product record. Only the
// fields the sync layer reads or writes are mapped; the admin app owns
// the rest of the table.
type Product struct {
	ID               int64      `json:"id"`
	OwnerID          int64      `json:"owner_id"`
	Name             string     `json:"name"`
	Barcode          string     `json:"barcode"`
	ESLTagMAC        string     `json:"esl_tag_mac"` // hardware-binding identifier, canonical form
	StandardOrderQty int        `json:"standard_order_qty"`
	ESLGoodsID       string     `json:"esl_goods_id,omitempty"`
	Synced           bool       `json:"synced"`
	SyncedAt         *time.Time `json:"synced_at,omitempty"`
	SyncError        string     `json:"sync_error,omitempty"`
}
