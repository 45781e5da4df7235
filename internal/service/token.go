package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log"
	"sync"
	"time"

	"shelfsync-api/internal/config"
	"shelfsync-api/internal/model"
	"shelfsync-api/internal/repository"
)

// loginClient is the slice of the platform client the token manager
// needs: the unauthenticated login call.
type loginClient interface {
	Login(ctx context.Context, account, digest string) (string, error)
}

// TokenManager caches the platform credential durably and refreshes it
// with a process-local single-flight guard, so concurrent callers never
// trigger redundant logins. Failure is a first-class outcome: every
// method degrades to nil rather than raising, and callers fall back to
// queueing.
//
// The single-flight lock is in-memory, so across horizontally scaled
// instances concurrent refreshes remain possible. A database advisory
// lock would close that gap.
type TokenManager struct {
	repo    repository.TokenRepository
	client  loginClient
	account string
	secret  string
	ttl     time.Duration

	mu sync.Mutex // serializes Refresh
}

// NewTokenManager creates a token manager for the configured platform account.
func NewTokenManager(repo repository.TokenRepository, client loginClient, cfg config.PlatformConfig) *TokenManager {
	return &TokenManager{
		repo:    repo,
		client:  client,
		account: cfg.Account,
		secret:  cfg.Secret,
		ttl:     cfg.TokenTTL,
	}
}

// Acquire returns a live token, refreshing if the cache has none.
// force skips the cache read entirely. Returns nil when the platform is
// unavailable; callers must treat that as "queue for later", not as a
// fatal error.
func (m *TokenManager) Acquire(ctx context.Context, force bool) *model.CachedToken {
	if !force {
		now := time.Now()
		tok, err := m.repo.GetLive(ctx, m.account, now)
		if err != nil {
			log.Printf("[TokenManager] cache read failed: %v", err)
		} else if tok.Live(now) {
			return tok
		}
	}
	return m.Refresh(ctx)
}

// Refresh performs a login and atomically replaces the stored token.
// If another refresh completed while this caller waited for the lock,
// its token is reused instead of issuing a second login.
func (m *TokenManager) Refresh(ctx context.Context) *model.CachedToken {
	waitStart := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Re-read after the wait: a refresh that finished in the meantime
	// serves this caller too. The second of slack covers the store's
	// second-granularity timestamps.
	now := time.Now()
	if tok, err := m.repo.GetLive(ctx, m.account, now); err == nil &&
		tok.Live(now) && tok.RefreshedAt.After(waitStart.Add(-time.Second)) {
		return tok
	}

	token, err := m.client.Login(ctx, m.account, digest(m.secret))
	if err != nil {
		log.Printf("[TokenManager] login failed for account %s: %v", m.account, err)
		return nil
	}

	now = time.Now()
	tok := &model.CachedToken{
		Account:     m.account,
		Token:       token,
		ExpiresAt:   now.Add(m.ttl),
		RefreshedAt: now,
	}

	if err := m.repo.Replace(ctx, tok); err != nil {
		log.Printf("[TokenManager] failed to store refreshed token: %v", err)
		return nil
	}

	log.Printf("[TokenManager] refreshed token for account %s, expires %v", m.account, tok.ExpiresAt)
	return tok
}

// Invalidate discards the cached credential so the next Acquire
// performs a real refresh. Called when a downstream call reports the
// token as rejected by the platform.
func (m *TokenManager) Invalidate(ctx context.Context) {
	if err := m.repo.Delete(ctx, m.account); err != nil {
		log.Printf("[TokenManager] failed to invalidate token: %v", err)
		return
	}
	log.Printf("[TokenManager] invalidated cached token for account %s", m.account)
}

// Token implements platform.TokenSource.
func (m *TokenManager) Token(ctx context.Context, force bool) (string, bool) {
	tok := m.Acquire(ctx, force)
	if tok == nil {
		return "", false
	}
	return tok.Token, true
}

// digest computes the one-way hash of the credential secret expected by
// the platform's login endpoint.
func digest(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}
