package repositories

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sproutsync/sproutsync/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// getTestRedis connects to the instance named by TEST_REDIS_URL; tests are
// skipped when it is unset.
func getTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}

	opts, err := redis.ParseURL(url)
	require.NoError(t, err)

	client := redis.NewClient(opts)
	require.NoError(t, client.Ping(context.Background()).Err())
	t.Cleanup(func() { client.Close() })
	return client
}

func TestSummaryCache_RoundTrip(t *testing.T) {
	cache := NewSummaryCache(getTestRedis(t), time.Minute)
	ctx := context.Background()

	childID := "test-" + uuid.New().String()
	summary := &models.DailySummary{
		ChildID:     childID,
		Date:        "2026-02-06",
		CheckIn:     "2026-02-06T07:45:00",
		DiaperCount: 2,
		Activities:  []models.Activity{},
		Naps:        []models.Activity{},
		Meals:       []models.Activity{},
		Notes:       []string{"ate well"},
	}

	_, err := cache.Get(ctx, childID, "2026-02-06")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, cache.Set(ctx, summary))

	cached, err := cache.Get(ctx, childID, "2026-02-06")
	require.NoError(t, err)
	assert.Equal(t, summary.CheckIn, cached.CheckIn)
	assert.Equal(t, summary.DiaperCount, cached.DiaperCount)
	assert.Equal(t, summary.Notes, cached.Notes)
}

func TestSummaryCache_Invalidate(t *testing.T) {
	cache := NewSummaryCache(getTestRedis(t), time.Minute)
	ctx := context.Background()

	childID := "test-" + uuid.New().String()
	for _, date := range []string{"2026-02-05", "2026-02-06"} {
		require.NoError(t, cache.Set(ctx, &models.DailySummary{ChildID: childID, Date: date}))
	}

	require.NoError(t, cache.Invalidate(ctx, childID))

	for _, date := range []string{"2026-02-05", "2026-02-06"} {
		_, err := cache.Get(ctx, childID, date)
		assert.ErrorIs(t, err, ErrNotFound)
	}
}

func TestSummaryCache_InvalidateUnknownChild(t *testing.T) {
	cache := NewSummaryCache(getTestRedis(t), time.Minute)
	require.NoError(t, cache.Invalidate(context.Background(), "test-"+uuid.New().String()))
}
