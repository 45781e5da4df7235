package service

import (
	"context"
	"log"
	"time"

	"shelfsync-api/internal/cache"
	"shelfsync-api/internal/model"
	"shelfsync-api/internal/platform"
	"shelfsync-api/internal/repository"
)

// storeLister is the slice of the platform client the resolver needs.
type storeLister interface {
	ListStores(ctx context.Context) *platform.Result
}

// storeIDCacheKey is the fast-path cache key for the resolved store id.
const storeIDCacheKey = "store:default_id"

// StoreResolver resolves the platform-side store id nearly every
// external call needs, caching it durably after the first successful
// resolution. An empty result is never cached.
type StoreResolver struct {
	repo     repository.ConfigRepository
	client   storeLister
	cache    cache.Cache // optional fast path, nil-guarded
	cacheTTL time.Duration
}

// NewStoreResolver creates a store resolver. cache may be nil.
func NewStoreResolver(repo repository.ConfigRepository, client storeLister, c cache.Cache, cacheTTL time.Duration) *StoreResolver {
	return &StoreResolver{
		repo:     repo,
		client:   client,
		cache:    c,
		cacheTTL: cacheTTL,
	}
}

// Resolve returns the default store id, or "" when it cannot be
// determined right now. A "" return means the platform is unavailable;
// it is never persisted.
func (r *StoreResolver) Resolve(ctx context.Context) string {
	if r.cache != nil {
		if v, err := r.cache.Get(ctx, storeIDCacheKey); err == nil && len(v) > 0 {
			return string(v)
		}
	}

	if v, err := r.repo.Get(ctx, model.ConfigKeyDefaultStore); err != nil {
		log.Printf("[StoreResolver] config read failed: %v", err)
	} else if v != "" {
		r.fillCache(ctx, v)
		return v
	}

	// Cold path: one store-listing call against the platform.
	stores, err := platform.ParseStores(r.client.ListStores(ctx))
	if err != nil {
		log.Printf("[StoreResolver] store listing failed: %v", err)
		return ""
	}

	for _, s := range stores {
		if !s.Active() {
			continue
		}
		if err := r.repo.Set(ctx, model.ConfigKeyDefaultStore, s.StoreID, "default ESL store resolved from platform"); err != nil {
			// Still usable for this run; the next cold call re-resolves.
			log.Printf("[StoreResolver] failed to persist store id: %v", err)
		}
		r.fillCache(ctx, s.StoreID)
		log.Printf("[StoreResolver] resolved default store %s (%s)", s.StoreID, s.Name)
		return s.StoreID
	}

	log.Printf("[StoreResolver] platform returned no active store")
	return ""
}

func (r *StoreResolver) fillCache(ctx context.Context, storeID string) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Set(ctx, storeIDCacheKey, []byte(storeID), r.cacheTTL); err != nil {
		log.Printf("[StoreResolver] cache write failed: %v", err)
	}
}
