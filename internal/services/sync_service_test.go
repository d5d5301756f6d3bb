package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sproutsync/sproutsync/internal/models"
	"github.com/sproutsync/sproutsync/internal/procare"
	"github.com/sproutsync/sproutsync/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeUpstream serves canned kids and activity feeds and records the
// requests it sees.
type fakeUpstream struct {
	kids       []procare.Kid
	activities map[string][]procare.DailyActivity
	err        error

	feedRequests []string
}

func (f *fakeUpstream) GetKids(_ context.Context) (*procare.KidsResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &procare.KidsResponse{Kids: f.kids}, nil
}

func (f *fakeUpstream) GetAllDailyActivities(_ context.Context, kidID, dateTo string) ([]procare.DailyActivity, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.feedRequests = append(f.feedRequests, kidID+"@"+dateTo)
	return f.activities[kidID], nil
}

// recordingStore wraps a Store and counts batch writes.
type recordingStore struct {
	repositories.Store
	batchWrites int
}

func (r *recordingStore) AddActivities(ctx context.Context, activities []models.Activity) error {
	r.batchWrites++
	return r.Store.AddActivities(ctx, activities)
}

func fixedClock(date string) func() time.Time {
	return func() time.Time {
		parsed, _ := time.Parse("2006-01-02", date)
		return parsed
	}
}

func TestSyncService_SyncAll(t *testing.T) {
	upstream := &fakeUpstream{
		kids: []procare.Kid{
			{ID: "kid-1", FirstName: "Ada", LastName: "Lovelace", DOB: "2023-04-01", CurrentSectionName: "Toddler Room"},
		},
		activities: map[string][]procare.DailyActivity{
			"kid-1": {
				{
					ID:           "act-1",
					ActivityType: "meal_activity",
					ActivityTime: "2026-02-06T12:00:00",
					ActivityDate: "2026-02-06",
					KidIDs:       []string{"kid-1"},
					Data:         &procare.ActivityData{Type: "Lunch", Desc: "Pasta"},
				},
			},
		},
	}
	store := repositories.NewMemoryStore()

	engine := NewSyncService(upstream, store, SyncOptions{Now: fixedClock("2026-02-07")})
	result, err := engine.SyncAll(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, result.SyncedChildren)
	assert.Equal(t, 1, result.SyncedActivities)

	ctx := context.Background()
	child, err := store.GetChild(ctx, "kid-1")
	require.NoError(t, err)
	assert.Equal(t, "Toddler Room", child.Classroom)

	activities, err := store.GetActivities(ctx, "kid-1", "", "")
	require.NoError(t, err)
	require.Len(t, activities, 1)
	assert.Equal(t, models.ActivityMeal, activities[0].Type)

	// The per-child watermark advances to today, not to the newest event.
	watermark, err := store.GetSyncMetadata(ctx, repositories.KidSyncKeyPrefix+"kid-1")
	require.NoError(t, err)
	assert.Equal(t, "2026-02-07", watermark)

	lastSync, err := store.GetSyncMetadata(ctx, repositories.LastSyncKey)
	require.NoError(t, err)
	assert.Equal(t, "2026-02-07T00:00:00Z", lastSync)
}

func TestSyncService_SyncKid_DefaultLookback(t *testing.T) {
	upstream := &fakeUpstream{activities: map[string][]procare.DailyActivity{}}
	store := repositories.NewMemoryStore()

	engine := NewSyncService(upstream, store, SyncOptions{Now: fixedClock("2026-02-07")})
	result, err := engine.SyncKid(context.Background(), "kid-1", "")

	require.NoError(t, err)
	assert.Equal(t, "2026-01-31", result.SinceDate, "no watermark means today minus seven days")
	assert.Equal(t, []string{"kid-1@2026-02-07"}, upstream.feedRequests)
}

func TestSyncService_SyncKid_UsesWatermark(t *testing.T) {
	upstream := &fakeUpstream{
		activities: map[string][]procare.DailyActivity{
			"kid-1": {
				{ID: "old", ActivityType: "note_activity", ActivityTime: "2026-02-04T10:00:00", ActivityDate: "2026-02-04", KidIDs: []string{"kid-1"}},
				{ID: "new", ActivityType: "note_activity", ActivityTime: "2026-02-06T10:00:00", ActivityDate: "2026-02-06", KidIDs: []string{"kid-1"}},
			},
		},
	}
	store := repositories.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.SetSyncMetadata(ctx, repositories.KidSyncKeyPrefix+"kid-1", "2026-02-05"))

	engine := NewSyncService(upstream, store, SyncOptions{Now: fixedClock("2026-02-07")})
	result, err := engine.SyncKid(ctx, "kid-1", "")

	require.NoError(t, err)
	assert.Equal(t, "2026-02-05", result.SinceDate)
	assert.Equal(t, 1, result.StoredActivities, "records before the watermark are filtered out")

	activities, err := store.GetActivities(ctx, "kid-1", "", "")
	require.NoError(t, err)
	require.Len(t, activities, 1)
	assert.Equal(t, "new", activities[0].ID)
}

func TestSyncService_SyncKid_ExplicitSinceWins(t *testing.T) {
	upstream := &fakeUpstream{
		activities: map[string][]procare.DailyActivity{
			"kid-1": {
				{ID: "a1", ActivityType: "note_activity", ActivityTime: "2026-02-04T10:00:00", ActivityDate: "2026-02-04", KidIDs: []string{"kid-1"}},
			},
		},
	}
	store := repositories.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.SetSyncMetadata(ctx, repositories.KidSyncKeyPrefix+"kid-1", "2026-02-06"))

	engine := NewSyncService(upstream, store, SyncOptions{Now: fixedClock("2026-02-07")})
	result, err := engine.SyncKid(ctx, "kid-1", "2026-02-01")

	require.NoError(t, err)
	assert.Equal(t, "2026-02-01", result.SinceDate)
	assert.Equal(t, 1, result.StoredActivities)
}

// First run on a fresh child, then a second run with an explicit since
// date over an overlapping window: the overlap overwrites, never
// duplicates.
func TestSyncService_SyncKid_EndToEnd(t *testing.T) {
	mealOn := func(id, date string) procare.DailyActivity {
		return procare.DailyActivity{
			ID:           id,
			ActivityType: "meal_activity",
			ActivityTime: date + "T12:00:00",
			ActivityDate: date,
			KidIDs:       []string{"kid-1"},
			Data:         &procare.ActivityData{Type: "Lunch"},
		}
	}

	upstream := &fakeUpstream{
		activities: map[string][]procare.DailyActivity{
			"kid-1": {mealOn("act-1", "2026-02-06")},
		},
	}
	store := repositories.NewMemoryStore()
	ctx := context.Background()

	engine := NewSyncService(upstream, store, SyncOptions{Now: fixedClock("2026-02-07")})

	result, err := engine.SyncKid(ctx, "kid-1", "")
	require.NoError(t, err)
	assert.Equal(t, 1, result.StoredActivities)

	watermark, err := store.GetSyncMetadata(ctx, repositories.KidSyncKeyPrefix+"kid-1")
	require.NoError(t, err)
	assert.Equal(t, "2026-02-07", watermark)

	// Second run: upstream now also returns an older record, below the
	// explicit lower bound.
	upstream.activities["kid-1"] = []procare.DailyActivity{
		mealOn("act-0", "2026-02-02"),
		mealOn("act-1", "2026-02-06"),
	}

	result, err = engine.SyncKid(ctx, "kid-1", "2026-02-05")
	require.NoError(t, err)
	assert.Equal(t, 1, result.StoredActivities)

	activities, err := store.GetActivities(ctx, "kid-1", "", "")
	require.NoError(t, err)
	require.Len(t, activities, 1)
	assert.Equal(t, "act-1", activities[0].ID)
	assert.Equal(t, models.ActivityMeal, activities[0].Type)
}

// Fanned-out copies attributed to other children stay out of this child's
// batch.
func TestSyncService_SyncKid_ScopesToKid(t *testing.T) {
	upstream := &fakeUpstream{
		activities: map[string][]procare.DailyActivity{
			"kid-1": {
				{ID: "shared", ActivityType: "learning_activity", ActivityTime: "2026-02-06T10:00:00", ActivityDate: "2026-02-06", KidIDs: []string{"kid-1", "kid-2"}},
			},
		},
	}
	store := repositories.NewMemoryStore()
	ctx := context.Background()

	engine := NewSyncService(upstream, store, SyncOptions{Now: fixedClock("2026-02-07")})
	result, err := engine.SyncKid(ctx, "kid-1", "")

	require.NoError(t, err)
	assert.Equal(t, 1, result.StoredActivities)

	other, err := store.GetActivities(ctx, "kid-2", "", "")
	require.NoError(t, err)
	assert.Empty(t, other, "the copy for kid-2 is written by kid-2's own pass")
}

func TestSyncService_SyncKid_EmptyBatchSkipsWrite(t *testing.T) {
	upstream := &fakeUpstream{activities: map[string][]procare.DailyActivity{}}
	store := &recordingStore{Store: repositories.NewMemoryStore()}
	ctx := context.Background()

	engine := NewSyncService(upstream, store, SyncOptions{Now: fixedClock("2026-02-07")})
	result, err := engine.SyncKid(ctx, "kid-1", "")

	require.NoError(t, err)
	assert.Zero(t, result.StoredActivities)
	assert.Zero(t, store.batchWrites, "empty batches never reach the store")

	// The watermark still advances so the next run narrows its window.
	watermark, err := store.GetSyncMetadata(ctx, repositories.KidSyncKeyPrefix+"kid-1")
	require.NoError(t, err)
	assert.Equal(t, "2026-02-07", watermark)
}

// Re-running a sync over an already synced window stores nothing new.
func TestSyncService_SyncKid_Idempotent(t *testing.T) {
	upstream := &fakeUpstream{
		activities: map[string][]procare.DailyActivity{
			"kid-1": {
				{ID: "act-1", ActivityType: "meal_activity", ActivityTime: "2026-02-06T12:00:00", ActivityDate: "2026-02-06", KidIDs: []string{"kid-1"}, Data: &procare.ActivityData{Type: "Lunch"}},
			},
		},
	}
	store := repositories.NewMemoryStore()
	ctx := context.Background()

	engine := NewSyncService(upstream, store, SyncOptions{Now: fixedClock("2026-02-07")})

	_, err := engine.SyncKid(ctx, "kid-1", "2026-02-01")
	require.NoError(t, err)
	_, err = engine.SyncKid(ctx, "kid-1", "2026-02-01")
	require.NoError(t, err)

	activities, err := store.GetActivities(ctx, "kid-1", "", "")
	require.NoError(t, err)
	assert.Len(t, activities, 1)
}

func TestSyncService_SyncAll_UpstreamError(t *testing.T) {
	upstream := &fakeUpstream{err: errors.New("boom")}
	store := repositories.NewMemoryStore()

	engine := NewSyncService(upstream, store, SyncOptions{Now: fixedClock("2026-02-07")})
	_, err := engine.SyncAll(context.Background())

	require.Error(t, err)

	_, metaErr := store.GetSyncMetadata(context.Background(), repositories.LastSyncKey)
	assert.ErrorIs(t, metaErr, repositories.ErrNotFound, "failed runs leave no full-sync marker")
}
