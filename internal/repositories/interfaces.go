package repositories

import (
	"context"
	"errors"

	"github.com/sproutsync/sproutsync/internal/models"
)

var ErrNotFound = errors.New("not found")

// Watermark keys used by the sync engine.
const (
	// LastSyncKey holds the timestamp of the last completed full sync.
	LastSyncKey = "last_sync_time"
	// KidSyncKeyPrefix prefixes the per-child watermark date.
	KidSyncKeyPrefix = "last_sync_"
)

// Store is the durable storage contract the sync engine writes through and
// the read API serves from. Writes are idempotent upserts; AddActivities is
// atomic per call. Activity reads are ordered by timestamp descending.
// Implementations must treat an empty date or type filter as "no filter".
type Store interface {
	GetChildren(ctx context.Context) ([]models.Child, error)
	GetChild(ctx context.Context, childID string) (*models.Child, error)
	GetActivities(ctx context.Context, childID, date string, activityType models.ActivityType) ([]models.Activity, error)
	GetLatestActivity(ctx context.Context, childID string, activityType models.ActivityType) (*models.Activity, error)
	GetActivitiesInRange(ctx context.Context, childID, startDate, endDate string, activityType models.ActivityType) ([]models.Activity, error)
	GetDailySummary(ctx context.Context, childID, date string) (*models.DailySummary, error)

	UpsertChild(ctx context.Context, child models.Child) error
	AddActivity(ctx context.Context, activity models.Activity) error
	AddActivities(ctx context.Context, activities []models.Activity) error

	GetSyncMetadata(ctx context.Context, key string) (string, error)
	SetSyncMetadata(ctx context.Context, key, value string) error

	Close()
}
