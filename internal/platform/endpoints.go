package platform

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// Endpoint wrappers over Do. All of them return the structured Result;
// none of them raise for expected platform failures.

// ListStores returns the stores visible to the account.
func (c *Client) ListStores(ctx context.Context) *Result {
	return c.Do(ctx, http.MethodGet, "/api/store/list", nil, nil)
}

// CreateGoods registers one goods record in the given store. The remote
// API is keyed by the goods' stable identifier, so repeating a create
// after a crash is harmless.
func (c *Client) CreateGoods(ctx context.Context, storeID string, goods interface{}) *Result {
	return c.Do(ctx, http.MethodPost, "/api/goods/create", map[string]interface{}{
		"storeId": storeID,
		"goods":   goods,
	}, nil)
}

// UpdateGoods updates one goods record.
func (c *Client) UpdateGoods(ctx context.Context, storeID string, goods interface{}) *Result {
	return c.Do(ctx, http.MethodPost, "/api/goods/update", map[string]interface{}{
		"storeId": storeID,
		"goods":   goods,
	}, nil)
}

// DeleteGoods removes one goods record by its platform id.
func (c *Client) DeleteGoods(ctx context.Context, storeID, goodsID string) *Result {
	return c.Do(ctx, http.MethodPost, "/api/goods/delete", map[string]interface{}{
		"storeId": storeID,
		"goodsId": goodsID,
	}, nil)
}

// BatchImportGoods upserts a batch of goods records in one call.
func (c *Client) BatchImportGoods(ctx context.Context, storeID string, goodsList interface{}) *Result {
	return c.Do(ctx, http.MethodPost, "/api/goods/batchImport", map[string]interface{}{
		"storeId":   storeID,
		"goodsList": goodsList,
	}, nil)
}

// BindLabel binds a shelf label to a goods record.
func (c *Client) BindLabel(ctx context.Context, storeID, labelMAC, goodsID string) *Result {
	return c.Do(ctx, http.MethodPost, "/api/label/bind", map[string]interface{}{
		"storeId":  storeID,
		"labelMac": labelMAC,
		"goodsId":  goodsID,
	}, nil)
}

// UnbindLabel releases a shelf label from its goods record.
func (c *Client) UnbindLabel(ctx context.Context, storeID, labelMAC string) *Result {
	return c.Do(ctx, http.MethodPost, "/api/label/unbind", map[string]interface{}{
		"storeId":  storeID,
		"labelMac": labelMAC,
	}, nil)
}

// RefreshLabel redraws a label's display from its bound goods record.
func (c *Client) RefreshLabel(ctx context.Context, storeID, labelMAC string) *Result {
	return c.Do(ctx, http.MethodPost, "/api/label/refresh", map[string]interface{}{
		"storeId":  storeID,
		"labelMac": labelMAC,
	}, nil)
}

// WakeLabel wakes a label from deep sleep.
func (c *Client) WakeLabel(ctx context.Context, storeID, labelMAC string) *Result {
	return c.Do(ctx, http.MethodPost, "/api/label/wake", map[string]interface{}{
		"storeId":  storeID,
		"labelMac": labelMAC,
	}, nil)
}

// LocateLabel flashes a label's LED so staff can find it on the shelf.
func (c *Client) LocateLabel(ctx context.Context, storeID, labelMAC string) *Result {
	return c.Do(ctx, http.MethodPost, "/api/label/locate", map[string]interface{}{
		"storeId":  storeID,
		"labelMac": labelMAC,
	}, nil)
}

// QueryOperationLogs pages through the platform's operation log,
// optionally filtered to one label.
func (c *Client) QueryOperationLogs(ctx context.Context, storeID, labelMAC string, page, pageSize int) *Result {
	params := url.Values{}
	params.Set("storeId", storeID)
	if labelMAC != "" {
		params.Set("labelMac", labelMAC)
	}
	params.Set("page", strconv.Itoa(page))
	params.Set("pageSize", strconv.Itoa(pageSize))

	return c.Do(ctx, http.MethodGet, "/api/log/list", nil, params)
}
