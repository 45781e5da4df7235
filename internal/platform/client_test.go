package platform

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shelfsync-api/internal/config"
)

// staticTokens is a TokenSource with a fixed token and call counters.
type staticTokens struct {
	token       string
	available   bool
	forcedCalls atomic.Int64
	invalidates atomic.Int64
}

func (s *staticTokens) Token(ctx context.Context, force bool) (string, bool) {
	if force {
		s.forcedCalls.Add(1)
	}
	return s.token, s.available
}

func (s *staticTokens) Invalidate(ctx context.Context) {
	s.invalidates.Add(1)
}

func testClient(baseURL string, ts TokenSource) *Client {
	c := NewClient(config.PlatformConfig{
		BaseURL:          baseURL,
		HTTPTimeout:      5 * time.Second,
		MaxAttempts:      2,
		RetryDelay:       time.Millisecond,
		TokenInvalidCode: 401,
	})
	c.SetTokenSource(ts)
	return c
}

func writeEnvelope(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"code": code, "message": "", "data": data})
}

func TestClient_Do_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		writeEnvelope(w, CodeSuccess, map[string]string{"goodsId": "G-9"})
	}))
	defer srv.Close()

	tokens := &staticTokens{token: "tok-1", available: true}
	res := testClient(srv.URL, tokens).Do(context.Background(), http.MethodPost, "/api/goods/add", map[string]string{"name": "milk"}, nil)

	require.True(t, res.OK())
	assert.Equal(t, "G-9", ParseGoodsID(res))
	assert.Zero(t, tokens.invalidates.Load())
}

func TestClient_Do_TokenInvalidTriggersOneForcedRefresh(t *testing.T) {
	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) == 1 {
			writeEnvelope(w, 401, nil)
			return
		}
		writeEnvelope(w, CodeSuccess, nil)
	}))
	defer srv.Close()

	tokens := &staticTokens{token: "tok-1", available: true}
	res := testClient(srv.URL, tokens).Do(context.Background(), http.MethodPost, "/api/goods/add", nil, nil)

	require.True(t, res.OK())
	assert.Equal(t, int64(2), requests.Load(), "rejection then one retry")
	assert.Equal(t, int64(1), tokens.invalidates.Load())
	assert.Equal(t, int64(1), tokens.forcedCalls.Load())
}

func TestClient_Do_PersistentTokenRejectionIsBounded(t *testing.T) {
	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		writeEnvelope(w, 401, nil)
	}))
	defer srv.Close()

	tokens := &staticTokens{token: "tok-1", available: true}
	res := testClient(srv.URL, tokens).Do(context.Background(), http.MethodPost, "/api/goods/add", nil, nil)

	require.NotNil(t, res)
	assert.False(t, res.OK())
	assert.Equal(t, 401, res.Code)
	assert.Equal(t, int64(2), requests.Load(), "attempts must stay within the configured bound")
}

func TestClient_Do_RetriesServerErrorOnce(t *testing.T) {
	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		writeEnvelope(w, CodeSuccess, nil)
	}))
	defer srv.Close()

	tokens := &staticTokens{token: "tok-1", available: true}
	res := testClient(srv.URL, tokens).Do(context.Background(), http.MethodGet, "/api/store/list", nil, nil)

	require.True(t, res.OK())
	assert.Equal(t, int64(2), requests.Load())
}

func TestClient_Do_ExhaustedRetriesReturnStructuredFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	tokens := &staticTokens{token: "tok-1", available: true}
	res := testClient(srv.URL, tokens).Do(context.Background(), http.MethodGet, "/api/store/list", nil, nil)

	require.NotNil(t, res)
	assert.False(t, res.OK())
	assert.Error(t, res.AsError())
}

func TestClient_Do_NoTokenSource(t *testing.T) {
	c := NewClient(config.PlatformConfig{BaseURL: "http://unreachable.invalid", HTTPTimeout: time.Second, MaxAttempts: 2})
	res := c.Do(context.Background(), http.MethodGet, "/api/store/list", nil, nil)

	require.NotNil(t, res)
	assert.ErrorIs(t, res.AsError(), ErrNoToken)
}

func TestClient_Do_NoTokenAvailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request should be sent without a token")
	}))
	defer srv.Close()

	tokens := &staticTokens{available: false}
	res := testClient(srv.URL, tokens).Do(context.Background(), http.MethodGet, "/api/store/list", nil, nil)

	assert.ErrorIs(t, res.AsError(), ErrNoToken)
}

func TestClient_Login(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/auth/login", r.URL.Path)
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "admin", body["account"])
			writeEnvelope(w, CodeSuccess, map[string]string{"token": "tok-new"})
		}))
		defer srv.Close()

		token, err := testClient(srv.URL, &staticTokens{}).Login(context.Background(), "admin", "digest")
		require.NoError(t, err)
		assert.Equal(t, "tok-new", token)
	})

	t.Run("rejected credentials", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeEnvelope(w, 403, nil)
		}))
		defer srv.Close()

		_, err := testClient(srv.URL, &staticTokens{}).Login(context.Background(), "admin", "digest")
		assert.Error(t, err)
	})

	t.Run("missing token in response", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeEnvelope(w, CodeSuccess, map[string]string{})
		}))
		defer srv.Close()

		_, err := testClient(srv.URL, &staticTokens{}).Login(context.Background(), "admin", "digest")
		assert.Error(t, err)
	})
}

func TestParseStores(t *testing.T) {
	data, _ := json.Marshal([]Store{
		{StoreID: "s-1", Name: "closed", Status: 0},
		{StoreID: "s-2", Name: "main", Status: 1},
	})
	stores, err := ParseStores(&Result{Code: CodeSuccess, Data: data})
	require.NoError(t, err)
	require.Len(t, stores, 2)
	assert.False(t, stores[0].Active())
	assert.True(t, stores[1].Active())

	_, err = ParseStores(&Result{Code: 500, Message: "boom"})
	assert.Error(t, err)
}
