package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sproutsync/sproutsync/internal/models"
	"github.com/sproutsync/sproutsync/internal/procare"
	"github.com/sproutsync/sproutsync/internal/repositories"
)

const DefaultSyncDaysBack = 7

// UpstreamClient is the slice of the API client the engine needs; tests
// substitute a fake.
type UpstreamClient interface {
	GetKids(ctx context.Context) (*procare.KidsResponse, error)
	GetAllDailyActivities(ctx context.Context, kidID, dateTo string) ([]procare.DailyActivity, error)
}

type SyncOptions struct {
	// SyncDaysBack bounds the first sync of a child with no watermark.
	SyncDaysBack int
	// Now overrides the clock, for tests.
	Now    func() time.Time
	Logger *slog.Logger
}

type SyncKidResult struct {
	KidID            string `json:"kid_id"`
	StoredActivities int    `json:"stored_activities"`
	SinceDate        string `json:"since_date"`
}

type SyncAllResult struct {
	SyncedChildren   int             `json:"synced_children"`
	SyncedActivities int             `json:"synced_activities"`
	PerKid           []SyncKidResult `json:"per_kid"`
	SyncedAt         string          `json:"synced_at"`
}

// SyncService pulls children and their activity feeds from upstream and
// writes them through the Store. It keeps no state of its own between runs;
// per-child watermarks in the store bound each incremental pass. Because
// upstream has no delta endpoint, every pass re-fetches up to "today" and
// filters client-side; idempotent upserts make the overlap harmless.
type SyncService struct {
	client       UpstreamClient
	store        repositories.Store
	syncDaysBack int
	now          func() time.Time
	logger       *slog.Logger
}

func NewSyncService(client UpstreamClient, store repositories.Store, opts SyncOptions) *SyncService {
	syncDaysBack := opts.SyncDaysBack
	if syncDaysBack <= 0 {
		syncDaysBack = DefaultSyncDaysBack
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &SyncService{
		client:       client,
		store:        store,
		syncDaysBack: syncDaysBack,
		now:          now,
		logger:       logger,
	}
}

// SyncAll refreshes every child and then runs an incremental activity sync
// for each. Any per-child failure aborts the run; the next run re-derives
// its bounds from the watermarks, so nothing is lost.
func (s *SyncService) SyncAll(ctx context.Context) (*SyncAllResult, error) {
	runID := uuid.New().String()
	logger := s.logger.With("run_id", runID)
	logger.Info("starting full sync")

	children, err := s.SyncChildren(ctx)
	if err != nil {
		return nil, err
	}

	result := &SyncAllResult{SyncedChildren: len(children)}
	for _, child := range children {
		kidResult, err := s.SyncKid(ctx, child.ID, "")
		if err != nil {
			return nil, fmt.Errorf("failed to sync child %s: %w", child.ID, err)
		}
		result.SyncedActivities += kidResult.StoredActivities
		result.PerKid = append(result.PerKid, *kidResult)
	}

	syncedAt := s.now().UTC().Format(time.RFC3339)
	if err := s.store.SetSyncMetadata(ctx, repositories.LastSyncKey, syncedAt); err != nil {
		return nil, err
	}
	result.SyncedAt = syncedAt

	logger.Info("full sync complete",
		"children", result.SyncedChildren,
		"activities", result.SyncedActivities,
	)
	return result, nil
}

// SyncChildren fetches the full upstream roster and upserts it. The roster
// is small and never paginated, so this is always a full refresh.
func (s *SyncService) SyncChildren(ctx context.Context) ([]models.Child, error) {
	resp, err := s.client.GetKids(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch kids: %w", err)
	}

	children := make([]models.Child, 0, len(resp.Kids))
	for _, kid := range resp.Kids {
		child := procare.MapKid(kid)
		if err := s.store.UpsertChild(ctx, child); err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	return children, nil
}

// SyncKid runs one incremental pass for a child. The lower bound is the
// explicit sinceDate if given, else the stored watermark, else today minus
// the lookback window. The watermark then advances to today — not to the
// newest event seen — so the next run may re-fetch the current day; the
// idempotent write path absorbs that.
func (s *SyncService) SyncKid(ctx context.Context, kidID, sinceDate string) (*SyncKidResult, error) {
	today := isoDate(s.now())

	resolvedSince, err := s.resolveSinceDate(ctx, kidID, sinceDate)
	if err != nil {
		return nil, err
	}

	rawActivities, err := s.client.GetAllDailyActivities(ctx, kidID, today)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch activities for %s: %w", kidID, err)
	}

	var mapped []models.Activity
	for _, raw := range rawActivities {
		if raw.ActivityDate < resolvedSince {
			continue
		}
		mapped = append(mapped, procare.MapActivity(raw)...)
	}

	// Fan-out can attribute copies of a record to other children; only
	// rows owned by this child belong in this batch.
	scoped := mapped[:0]
	dropped := 0
	for _, activity := range mapped {
		if activity.ChildID == kidID {
			scoped = append(scoped, activity)
		} else {
			dropped++
		}
	}
	if dropped > 0 {
		s.logger.Debug("dropped cross-child activities", "kid_id", kidID, "count", dropped)
	}

	if len(scoped) > 0 {
		if err := s.store.AddActivities(ctx, scoped); err != nil {
			return nil, err
		}
	}

	if err := s.store.SetSyncMetadata(ctx, repositories.KidSyncKeyPrefix+kidID, today); err != nil {
		return nil, err
	}

	return &SyncKidResult{
		KidID:            kidID,
		StoredActivities: len(scoped),
		SinceDate:        resolvedSince,
	}, nil
}

func (s *SyncService) resolveSinceDate(ctx context.Context, kidID, sinceDate string) (string, error) {
	if sinceDate != "" {
		return sinceDate, nil
	}

	watermark, err := s.store.GetSyncMetadata(ctx, repositories.KidSyncKeyPrefix+kidID)
	if err == nil {
		return watermark, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return "", err
	}

	return isoDate(s.now().AddDate(0, 0, -s.syncDaysBack)), nil
}

func isoDate(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
