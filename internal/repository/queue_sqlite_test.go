package repository

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shelfsync-api/internal/model"
)

func openTestDB(t *testing.T) *SQLiteQueueRepository {
	t.Helper()
	db, err := OpenStateDB(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSQLiteQueueRepository(db)
}

func enqueueTestItem(t *testing.T, repo *SQLiteQueueRepository, entityID int64) *model.SyncItem {
	t.Helper()
	item := &model.SyncItem{
		EntityType: model.EntityProduct,
		EntityID:   entityID,
		Operation:  model.OpCreate,
		Payload:    json.RawMessage(`{"name":"milk"}`),
		MaxRetries: 5,
	}
	require.NoError(t, repo.Enqueue(context.Background(), item))
	require.NotZero(t, item.ID)
	return item
}

func TestSQLiteQueue_EnqueueAndGet(t *testing.T) {
	repo := openTestDB(t)
	item := enqueueTestItem(t, repo, 7)

	got, err := repo.Get(context.Background(), item.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, model.SyncPending, got.Status)
	assert.Equal(t, model.EntityProduct, got.EntityType)
	assert.Equal(t, model.OpCreate, got.Operation)
	assert.Equal(t, int64(7), got.EntityID)
	assert.Equal(t, 0, got.RetryCount)
	assert.Equal(t, 5, got.MaxRetries)
	assert.JSONEq(t, `{"name":"milk"}`, string(got.Payload))
	assert.Nil(t, got.ProcessedAt)

	missing, err := repo.Get(context.Background(), 9999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSQLiteQueue_DuePendingOrderingAndCutoff(t *testing.T) {
	repo := openTestDB(t)
	ctx := context.Background()

	first := enqueueTestItem(t, repo, 1)
	second := enqueueTestItem(t, repo, 2)
	future := enqueueTestItem(t, repo, 3)

	// Push one item past the cutoff.
	require.NoError(t, repo.Reschedule(ctx, future.ID, 1, time.Now().Add(time.Hour), "later"))

	due, err := repo.DuePending(ctx, time.Now(), 10)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, first.ID, due[0].ID, "oldest schedule first")
	assert.Equal(t, second.ID, due[1].ID)
}

func TestSQLiteQueue_ClaimIsExclusive(t *testing.T) {
	repo := openTestDB(t)
	ctx := context.Background()
	item := enqueueTestItem(t, repo, 7)

	claimed, err := repo.Claim(ctx, item.ID)
	require.NoError(t, err)
	assert.True(t, claimed)

	again, err := repo.Claim(ctx, item.ID)
	require.NoError(t, err)
	assert.False(t, again, "second claim of the same item must lose")

	got, err := repo.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SyncProcessing, got.Status)
	require.NotNil(t, got.ProcessedAt)
}

func TestSQLiteQueue_RescheduleReturnsToPending(t *testing.T) {
	repo := openTestDB(t)
	ctx := context.Background()
	item := enqueueTestItem(t, repo, 7)

	claimed, err := repo.Claim(ctx, item.ID)
	require.NoError(t, err)
	require.True(t, claimed)

	next := time.Now().Add(2 * time.Minute)
	require.NoError(t, repo.Reschedule(ctx, item.ID, 1, next, "connection refused"))

	got, err := repo.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SyncPending, got.Status)
	assert.Equal(t, 1, got.RetryCount)
	assert.Equal(t, "connection refused", got.LastError)
	assert.Equal(t, next.Unix(), got.ScheduledAt.Unix())

	// Not due until the schedule passes.
	due, err := repo.DuePending(ctx, time.Now(), 10)
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestSQLiteQueue_MarkSuccessAndFailedAreTerminal(t *testing.T) {
	repo := openTestDB(t)
	ctx := context.Background()

	ok := enqueueTestItem(t, repo, 1)
	bad := enqueueTestItem(t, repo, 2)

	require.NoError(t, repo.MarkSuccess(ctx, ok.ID, time.Now()))
	require.NoError(t, repo.MarkFailed(ctx, bad.ID, 5, "gave up", time.Now()))

	got, err := repo.Get(ctx, ok.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SyncSuccess, got.Status)
	assert.Empty(t, got.LastError)

	got, err = repo.Get(ctx, bad.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SyncFailed, got.Status)
	assert.Equal(t, 5, got.RetryCount)
	assert.Equal(t, "gave up", got.LastError)

	due, err := repo.DuePending(ctx, time.Now().Add(time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, due, "terminal items are never due again")
}

func TestSQLiteQueue_ReclaimStale(t *testing.T) {
	repo := openTestDB(t)
	ctx := context.Background()

	stuck := enqueueTestItem(t, repo, 1)
	fresh := enqueueTestItem(t, repo, 2)

	for _, item := range []*model.SyncItem{stuck, fresh} {
		claimed, err := repo.Claim(ctx, item.ID)
		require.NoError(t, err)
		require.True(t, claimed)
	}

	// Backdate the first claim far past the cutoff.
	_, err := repo.db.ExecContext(ctx, `UPDATE sync_queue SET processed_at = ? WHERE id = ?`,
		time.Now().Add(-time.Hour).Unix(), stuck.ID)
	require.NoError(t, err)

	n, err := repo.ReclaimStale(ctx, time.Now().Add(-10*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := repo.Get(ctx, stuck.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SyncPending, got.Status)

	got, err = repo.Get(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SyncProcessing, got.Status, "recent claims stay untouched")
}

func TestSQLiteQueue_CountByStatus(t *testing.T) {
	repo := openTestDB(t)
	ctx := context.Background()

	a := enqueueTestItem(t, repo, 1)
	enqueueTestItem(t, repo, 2)
	b := enqueueTestItem(t, repo, 3)

	require.NoError(t, repo.MarkSuccess(ctx, a.ID, time.Now()))
	require.NoError(t, repo.MarkFailed(ctx, b.ID, 5, "gave up", time.Now()))

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[model.SyncPending])
	assert.Equal(t, int64(1), counts[model.SyncSuccess])
	assert.Equal(t, int64(1), counts[model.SyncFailed])
}
