package platform

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// recordedRequest captures what the fake platform received.
type recordedRequest struct {
	method string
	path   string
	query  map[string]string
	body   map[string]interface{}
}

func recordingServer(t *testing.T) (*httptest.Server, func() recordedRequest) {
	t.Helper()
	var mu sync.Mutex
	var last recordedRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{method: r.Method, path: r.URL.Path, query: map[string]string{}}
		for k := range r.URL.Query() {
			rec.query[k] = r.URL.Query().Get(k)
		}
		json.NewDecoder(r.Body).Decode(&rec.body)
		mu.Lock()
		last = rec
		mu.Unlock()
		writeEnvelope(w, CodeSuccess, nil)
	}))
	t.Cleanup(srv.Close)

	return srv, func() recordedRequest {
		mu.Lock()
		defer mu.Unlock()
		return last
	}
}

func TestEndpoints_RequestShapes(t *testing.T) {
	srv, last := recordingServer(t)
	c := testClient(srv.URL, &staticTokens{token: "tok", available: true})
	ctx := context.Background()

	cases := []struct {
		name     string
		call     func()
		method   string
		path     string
		wantBody map[string]interface{}
	}{
		{
			name:   "list stores",
			call:   func() { c.ListStores(ctx) },
			method: http.MethodGet,
			path:   "/api/store/list",
		},
		{
			name:     "delete goods",
			call:     func() { c.DeleteGoods(ctx, "s-1", "G-9") },
			method:   http.MethodPost,
			path:     "/api/goods/delete",
			wantBody: map[string]interface{}{"storeId": "s-1", "goodsId": "G-9"},
		},
		{
			name:     "bind label",
			call:     func() { c.BindLabel(ctx, "s-1", "AABB", "G-9") },
			method:   http.MethodPost,
			path:     "/api/label/bind",
			wantBody: map[string]interface{}{"storeId": "s-1", "labelMac": "AABB", "goodsId": "G-9"},
		},
		{
			name:     "unbind label",
			call:     func() { c.UnbindLabel(ctx, "s-1", "AABB") },
			method:   http.MethodPost,
			path:     "/api/label/unbind",
			wantBody: map[string]interface{}{"storeId": "s-1", "labelMac": "AABB"},
		},
		{
			name:     "refresh label",
			call:     func() { c.RefreshLabel(ctx, "s-1", "AABB") },
			method:   http.MethodPost,
			path:     "/api/label/refresh",
			wantBody: map[string]interface{}{"storeId": "s-1", "labelMac": "AABB"},
		},
		{
			name:     "wake label",
			call:     func() { c.WakeLabel(ctx, "s-1", "AABB") },
			method:   http.MethodPost,
			path:     "/api/label/wake",
			wantBody: map[string]interface{}{"storeId": "s-1", "labelMac": "AABB"},
		},
		{
			name:     "locate label",
			call:     func() { c.LocateLabel(ctx, "s-1", "AABB") },
			method:   http.MethodPost,
			path:     "/api/label/locate",
			wantBody: map[string]interface{}{"storeId": "s-1", "labelMac": "AABB"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.call()
			got := last()
			if got.method != tc.method || got.path != tc.path {
				t.Fatalf("got %s %s, want %s %s", got.method, got.path, tc.method, tc.path)
			}
			for k, want := range tc.wantBody {
				if got.body[k] != want {
					t.Errorf("body[%q] = %v, want %v", k, got.body[k], want)
				}
			}
		})
	}
}

func TestEndpoints_QueryOperationLogsParams(t *testing.T) {
	srv, last := recordingServer(t)
	c := testClient(srv.URL, &staticTokens{token: "tok", available: true})

	c.QueryOperationLogs(context.Background(), "s-1", "AABB", 2, 25)

	got := last()
	if got.path != "/api/log/list" || got.method != http.MethodGet {
		t.Fatalf("got %s %s", got.method, got.path)
	}
	want := map[string]string{"storeId": "s-1", "labelMac": "AABB", "page": "2", "pageSize": "25"}
	for k, v := range want {
		if got.query[k] != v {
			t.Errorf("query[%q] = %q, want %q", k, got.query[k], v)
		}
	}

	// Without a label filter the param stays absent.
	c.QueryOperationLogs(context.Background(), "s-1", "", 1, 10)
	if _, ok := last().query["labelMac"]; ok {
		t.Error("labelMac must be omitted when empty")
	}
}
