package platform

import (
	"context"
	"encoding/json"
	"fmt"
)

// CodeSuccess is the platform's success code carried in response bodies.
const CodeSuccess = 200

// TokenSource supplies bearer tokens for authenticated calls. force
// requests a real refresh instead of trusting the cache.
type TokenSource interface {
	Token(ctx context.Context, force bool) (string, bool)

	// Invalidate discards the cached credential after the platform
	// rejected it.
	Invalidate(ctx context.Context)
}

// Errors for expected failure categories. These are carried inside a
// Result, never returned as a bare error from Do.
type clientError string

func (e clientError) Error() string { return string(e) }

const (
	// ErrNoToken means no platform credential could be obtained; the
	// platform is temporarily unavailable and callers should queue.
	ErrNoToken clientError = "no platform token available"
)

// Result is the structured outcome of a platform call. Expected
// failures (network error, rejection codes) are carried in the Result
// so callers decide policy rather than handling exceptions.
type Result struct {
	Code    int
	Message string
	Data    json.RawMessage
	Err     error
}

// OK reports whether the call reached the platform and was accepted.
func (r *Result) OK() bool {
	return r != nil && r.Err == nil && r.Code == CodeSuccess
}

// AsError converts a non-OK result into an error for recording on
// queue items. Returns nil for successful results.
func (r *Result) AsError() error {
	if r.OK() {
		return nil
	}
	if r.Err != nil {
		return r.Err
	}
	return fmt.Errorf("platform rejected request: code=%d message=%q", r.Code, r.Message)
}

// failure builds a Result for a call that never got a platform answer.
func failure(err error) *Result {
	return &Result{Code: -1, Message: err.Error(), Err: err}
}

// envelope is the platform's JSON response shape. Older endpoints use
// "msg" instead of "message".
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Msg     string          `json:"msg"`
	Data    json.RawMessage `json:"data"`
}

func (e *envelope) text() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Msg
}

// Store is one entry of the platform's store listing.
type Store struct {
	StoreID string `json:"storeId"`
	Name    string `json:"storeName"`
	Status  int    `json:"status"` // 1 = active
}

// Active reports whether the store is usable for goods and labels.
func (s *Store) Active() bool {
	return s.Status == 1
}

// ParseStores decodes a store-listing result's data.
func ParseStores(res *Result) ([]Store, error) {
	if !res.OK() {
		return nil, res.AsError()
	}
	var stores []Store
	if err := json.Unmarshal(res.Data, &stores); err != nil {
		return nil, fmt.Errorf("failed to parse store list: %w", err)
	}
	return stores, nil
}

// ParseGoodsID extracts the platform goods id from a goods mutation
// result. Returns "" when the response carries none.
func ParseGoodsID(res *Result) string {
	if !res.OK() || len(res.Data) == 0 {
		return ""
	}
	var data struct {
		GoodsID string `json:"goodsId"`
	}
	if err := json.Unmarshal(res.Data, &data); err != nil {
		return ""
	}
	return data.GoodsID
}
