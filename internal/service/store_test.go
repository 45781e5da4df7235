package service

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shelfsync-api/internal/cache"
	"shelfsync-api/internal/model"
	"shelfsync-api/internal/platform"
)

// fakeConfigRepo is an in-memory ConfigRepository.
type fakeConfigRepo struct {
	mu     sync.Mutex
	values map[string]string
	sets   int
}

func newFakeConfigRepo() *fakeConfigRepo {
	return &fakeConfigRepo{values: make(map[string]string)}
}

func (r *fakeConfigRepo) Get(ctx context.Context, key string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.values[key], nil
}

func (r *fakeConfigRepo) Set(ctx context.Context, key, value, description string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[key] = value
	r.sets++
	return nil
}

// fakeLister returns a canned store listing and counts calls.
type fakeLister struct {
	calls  atomic.Int64
	stores []platform.Store
	err    error
}

func (l *fakeLister) ListStores(ctx context.Context) *platform.Result {
	l.calls.Add(1)
	if l.err != nil {
		return &platform.Result{Code: -1, Message: l.err.Error(), Err: l.err}
	}
	data, _ := json.Marshal(l.stores)
	return &platform.Result{Code: platform.CodeSuccess, Data: data}
}

func TestStoreResolver_ResolveOnceThenCached(t *testing.T) {
	repo := newFakeConfigRepo()
	lister := &fakeLister{stores: []platform.Store{
		{StoreID: "s-old", Status: 0},
		{StoreID: "s-main", Name: "Main", Status: 1},
	}}
	r := NewStoreResolver(repo, lister, nil, time.Minute)

	first := r.Resolve(context.Background())
	assert.Equal(t, "s-main", first, "first active store wins")

	second := r.Resolve(context.Background())
	assert.Equal(t, "s-main", second)
	assert.Equal(t, int64(1), lister.calls.Load(), "second resolve must be served from the config cache")
	assert.Equal(t, "s-main", repo.values[model.ConfigKeyDefaultStore])
}

func TestStoreResolver_EmptyResultNeverCached(t *testing.T) {
	repo := newFakeConfigRepo()
	lister := &fakeLister{stores: []platform.Store{{StoreID: "s-dead", Status: 0}}}
	r := NewStoreResolver(repo, lister, nil, time.Minute)

	got := r.Resolve(context.Background())
	assert.Equal(t, "", got)
	assert.Zero(t, repo.sets, "an empty resolution must not be persisted")

	// A later call with an active store must still reach the platform.
	lister.stores = append(lister.stores, platform.Store{StoreID: "s-main", Status: 1})
	assert.Equal(t, "s-main", r.Resolve(context.Background()))
	assert.Equal(t, int64(2), lister.calls.Load())
}

func TestStoreResolver_PlatformDownReturnsEmpty(t *testing.T) {
	repo := newFakeConfigRepo()
	lister := &fakeLister{err: platform.ErrNoToken}
	r := NewStoreResolver(repo, lister, nil, time.Minute)

	assert.Equal(t, "", r.Resolve(context.Background()))
	assert.Zero(t, repo.sets)
}

func TestStoreResolver_FastPathCache(t *testing.T) {
	repo := newFakeConfigRepo()
	repo.values[model.ConfigKeyDefaultStore] = "s-main"
	lister := &fakeLister{}

	mem := cache.NewMemoryCache()
	defer mem.Close()

	r := NewStoreResolver(repo, lister, mem, time.Minute)

	require.Equal(t, "s-main", r.Resolve(context.Background()))

	// Second resolve hits the in-memory fast path, not even the repo.
	repo.values[model.ConfigKeyDefaultStore] = "poisoned"
	assert.Equal(t, "s-main", r.Resolve(context.Background()))
	assert.Equal(t, int64(0), lister.calls.Load())
}
