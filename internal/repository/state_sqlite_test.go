package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shelfsync-api/internal/model"
)

func openStateDBForTest(t *testing.T) *SQLiteTokenRepository {
	t.Helper()
	db, err := OpenStateDB(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSQLiteTokenRepository(db)
}

func TestSQLiteToken_ReplaceKeepsSingleRow(t *testing.T) {
	repo := openStateDBForTest(t)
	ctx := context.Background()
	now := time.Now()

	first := &model.CachedToken{Account: "admin", Token: "tok-1", ExpiresAt: now.Add(time.Hour), RefreshedAt: now}
	require.NoError(t, repo.Replace(ctx, first))
	require.NotZero(t, first.ID)

	second := &model.CachedToken{Account: "admin", Token: "tok-2", ExpiresAt: now.Add(2 * time.Hour), RefreshedAt: now.Add(time.Minute)}
	require.NoError(t, repo.Replace(ctx, second))

	got, err := repo.GetLive(ctx, "admin", now)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "tok-2", got.Token, "replace must supersede the previous token")

	var count int
	require.NoError(t, repo.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cached_tokens WHERE account = ?`, "admin").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestSQLiteToken_GetLiveSkipsExpired(t *testing.T) {
	repo := openStateDBForTest(t)
	ctx := context.Background()
	now := time.Now()

	expired := &model.CachedToken{Account: "admin", Token: "tok-old", ExpiresAt: now.Add(-time.Minute), RefreshedAt: now.Add(-time.Hour)}
	require.NoError(t, repo.Replace(ctx, expired))

	got, err := repo.GetLive(ctx, "admin", now)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLiteToken_Delete(t *testing.T) {
	repo := openStateDBForTest(t)
	ctx := context.Background()
	now := time.Now()

	tok := &model.CachedToken{Account: "admin", Token: "tok-1", ExpiresAt: now.Add(time.Hour), RefreshedAt: now}
	require.NoError(t, repo.Replace(ctx, tok))
	require.NoError(t, repo.Delete(ctx, "admin"))

	got, err := repo.GetLive(ctx, "admin", now)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLiteConfig_GetSet(t *testing.T) {
	db, err := OpenStateDB(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	repo := NewSQLiteConfigRepository(db)
	ctx := context.Background()

	val, err := repo.Get(ctx, model.ConfigKeyDefaultStore)
	require.NoError(t, err)
	assert.Empty(t, val, "absent keys read as empty")

	require.NoError(t, repo.Set(ctx, model.ConfigKeyDefaultStore, "s-100", "resolved from platform"))
	val, err = repo.Get(ctx, model.ConfigKeyDefaultStore)
	require.NoError(t, err)
	assert.Equal(t, "s-100", val)

	// Upsert overwrites.
	require.NoError(t, repo.Set(ctx, model.ConfigKeyDefaultStore, "s-200", "re-resolved"))
	val, err = repo.Get(ctx, model.ConfigKeyDefaultStore)
	require.NoError(t, err)
	assert.Equal(t, "s-200", val)
}
