package runstore

import (
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/fjod/go_cart/abandoned-cart-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis, func()) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	store := NewRedisStore(client)

	cleanup := func() {
		client.Close()
		mr.Close()
	}

	return store, mr, cleanup
}

func TestLatest_NoRuns(t *testing.T) {
	store, _, cleanup := setupTestRedis(t)
	defer cleanup()

	report, err := store.Latest(context.Background())
	assert.ErrorIs(t, err, ErrNoRuns)
	assert.Nil(t, report)
}

func TestSaveAndLatest(t *testing.T) {
	store, _, cleanup := setupTestRedis(t)
	defer cleanup()
	ctx := context.Background()

	report := domain.ProcessingReport{
		RunID:          "run-1",
		Success:        true,
		TotalProcessed: 2,
		TotalCreated:   1,
		TotalSkipped:   1,
		Skipped:        map[domain.SkipReason]int{domain.SkipTooRecent: 1},
		ConfigurationUsed: domain.Configuration{
			AbandonAfterHours:        24,
			IgnoreCartsOlderThanDays: 30,
		},
		Message: "ok",
	}
	require.NoError(t, store.Save(ctx, report))

	got, err := store.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, 2, got.TotalProcessed)
	assert.Equal(t, 1, got.Skipped[domain.SkipTooRecent])
	assert.Equal(t, 24, got.ConfigurationUsed.AbandonAfterHours)
}

func TestRecent_NewestFirstAndTrimmed(t *testing.T) {
	store, mr, cleanup := setupTestRedis(t)
	defer cleanup()
	store.historySize = 3
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		require.NoError(t, store.Save(ctx, domain.ProcessingReport{RunID: fmt.Sprintf("run-%d", i), Success: true}))
	}

	reports, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, reports, 3)
	assert.Equal(t, "run-5", reports[0].RunID)
	assert.Equal(t, "run-3", reports[2].RunID)

	items, err := mr.List(historyKey)
	require.NoError(t, err)
	assert.Len(t, items, 3)

	two, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, two, 2)
}

func TestLatest_InvalidJSON(t *testing.T) {
	store, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	require.NoError(t, mr.Set(latestKey, "not json"))

	_, err := store.Latest(context.Background())
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoRuns)
}

func TestSave_RedisDown(t *testing.T) {
	store, mr, cleanup := setupTestRedis(t)
	defer cleanup()
	mr.Close()

	err := store.Save(context.Background(), domain.ProcessingReport{RunID: "run-1"})
	assert.Error(t, err)
}
