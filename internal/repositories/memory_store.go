package repositories

import (
	"context"
	"sort"
	"sync"

	"github.com/sproutsync/sproutsync/internal/models"
)

type activityKey struct {
	id      string
	childID string
}

// MemoryStore is an in-memory Store used by tests and local tooling. It
// mirrors PostgresStore semantics: composite (id, child_id) identity,
// last-write-wins upserts, reads ordered by timestamp descending.
type MemoryStore struct {
	mu         sync.RWMutex
	children   map[string]models.Child
	activities map[activityKey]models.Activity
	metadata   map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		children:   make(map[string]models.Child),
		activities: make(map[activityKey]models.Activity),
		metadata:   make(map[string]string),
	}
}

func (s *MemoryStore) GetChildren(_ context.Context) ([]models.Child, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	children := make([]models.Child, 0, len(s.children))
	for _, child := range s.children {
		children = append(children, child)
	}
	sort.Slice(children, func(i, j int) bool {
		if children[i].LastName != children[j].LastName {
			return children[i].LastName < children[j].LastName
		}
		return children[i].FirstName < children[j].FirstName
	})
	return children, nil
}

func (s *MemoryStore) GetChild(_ context.Context, childID string) (*models.Child, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	child, ok := s.children[childID]
	if !ok {
		return nil, ErrNotFound
	}
	return &child, nil
}

func (s *MemoryStore) GetActivities(_ context.Context, childID, date string, activityType models.ActivityType) ([]models.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.filterActivities(func(a models.Activity) bool {
		if a.ChildID != childID {
			return false
		}
		if date != "" && activityDate(a) != date {
			return false
		}
		if activityType != "" && a.Type != activityType {
			return false
		}
		return true
	}), nil
}

func (s *MemoryStore) GetLatestActivity(ctx context.Context, childID string, activityType models.ActivityType) (*models.Activity, error) {
	activities, err := s.GetActivities(ctx, childID, "", activityType)
	if err != nil {
		return nil, err
	}
	if len(activities) == 0 {
		return nil, ErrNotFound
	}
	return &activities[0], nil
}

func (s *MemoryStore) GetActivitiesInRange(_ context.Context, childID, startDate, endDate string, activityType models.ActivityType) ([]models.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.filterActivities(func(a models.Activity) bool {
		if a.ChildID != childID {
			return false
		}
		date := activityDate(a)
		if date < startDate || date > endDate {
			return false
		}
		if activityType != "" && a.Type != activityType {
			return false
		}
		return true
	}), nil
}

func (s *MemoryStore) GetDailySummary(ctx context.Context, childID, date string) (*models.DailySummary, error) {
	activities, err := s.GetActivities(ctx, childID, date, "")
	if err != nil {
		return nil, err
	}
	return models.BuildDailySummary(childID, date, activities), nil
}

func (s *MemoryStore) UpsertChild(_ context.Context, child models.Child) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.children[child.ID] = child
	return nil
}

func (s *MemoryStore) AddActivity(_ context.Context, activity models.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.activities[activityKey{id: activity.ID, childID: activity.ChildID}] = activity
	return nil
}

func (s *MemoryStore) AddActivities(_ context.Context, activities []models.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, activity := range activities {
		s.activities[activityKey{id: activity.ID, childID: activity.ChildID}] = activity
	}
	return nil
}

func (s *MemoryStore) GetSyncMetadata(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.metadata[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

func (s *MemoryStore) SetSyncMetadata(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metadata[key] = value
	return nil
}

func (s *MemoryStore) Close() {}

// filterActivities must be called with the lock held.
func (s *MemoryStore) filterActivities(keep func(models.Activity) bool) []models.Activity {
	var matched []models.Activity
	for _, activity := range s.activities {
		if keep(activity) {
			matched = append(matched, activity)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].Timestamp > matched[j].Timestamp
	})
	return matched
}

func activityDate(a models.Activity) string {
	if len(a.Timestamp) < 10 {
		return a.Timestamp
	}
	return a.Timestamp[:10]
}
