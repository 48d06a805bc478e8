package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nyumat/NyumatFlix-sub000/internal/models"
)

func openTestDB(t *testing.T) *WatchlistStore {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := Connect(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, Migrate(db, "up"))
	return NewWatchlistStore(db)
}

func TestWatchlistStoreLifecycle(t *testing.T) {
	store := openTestDB(t)
	ctx := context.Background()
	user := "user-" + uuid.NewString()

	item, err := store.Upsert(ctx, user, 1399, models.MediaTypeTV, models.WatchStatusWatching)
	require.NoError(t, err)
	assert.Equal(t, user, item.UserID)
	assert.Equal(t, models.WatchStatusWatching, item.Status)
	assert.Nil(t, item.LastWatchedSeason)

	again, err := store.Upsert(ctx, user, 1399, models.MediaTypeTV, models.WatchStatusWaiting)
	require.NoError(t, err)
	assert.Equal(t, item.ID, again.ID)
	assert.Equal(t, models.WatchStatusWaiting, again.Status)

	season, episode := 2, 5
	watched := time.Date(2025, 3, 1, 20, 0, 0, 0, time.UTC)
	progressed, err := store.UpdateProgress(ctx, user, item.ID, &season, &episode, watched)
	require.NoError(t, err)
	require.NotNil(t, progressed.LastWatchedSeason)
	assert.Equal(t, 2, *progressed.LastWatchedSeason)
	assert.Equal(t, 5, *progressed.LastWatchedEpisode)
	assert.True(t, watched.Equal(*progressed.LastWatchedAt))

	finished, err := store.UpdateStatus(ctx, user, item.ID, models.WatchStatusFinished)
	require.NoError(t, err)
	assert.Equal(t, models.WatchStatusFinished, finished.Status)

	items, err := store.List(ctx, user)
	require.NoError(t, err)
	require.Len(t, items, 1)

	_, err = store.Get(ctx, "someone-else", item.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Delete(ctx, user, item.ID))
	assert.ErrorIs(t, store.Delete(ctx, user, item.ID), ErrNotFound)

	_, err = store.Get(ctx, user, item.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWatchlistStoreRejectsMalformedID(t *testing.T) {
	store := NewWatchlistStore(nil)

	_, err := store.Get(context.Background(), "u", "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Delete(context.Background(), "u", "nope"), ErrNotFound)
}
