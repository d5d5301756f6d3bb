package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sproutsync/sproutsync/internal/models"
)

const activityColumns = `id, child_id, type, timestamp, end_time, details, notes, reported_by`

// PostgresStore is the production Store. Activities are keyed by
// (id, child_id): upstream reuses one activity id across fanned-out copies,
// so the composite key keeps them distinguishable while the upsert stays
// idempotent per copy.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) GetChildren(ctx context.Context) ([]models.Child, error) {
	query := `SELECT id, first_name, last_name, classroom, date_of_birth
	          FROM children
	          ORDER BY last_name, first_name`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query children: %w", err)
	}
	defer rows.Close()

	var children []models.Child
	for rows.Next() {
		var child models.Child
		if err := rows.Scan(&child.ID, &child.FirstName, &child.LastName, &child.Classroom, &child.DateOfBirth); err != nil {
			return nil, fmt.Errorf("failed to scan child: %w", err)
		}
		children = append(children, child)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating children: %w", err)
	}
	return children, nil
}

func (s *PostgresStore) GetChild(ctx context.Context, childID string) (*models.Child, error) {
	query := `SELECT id, first_name, last_name, classroom, date_of_birth
	          FROM children
	          WHERE id = $1`

	var child models.Child
	err := s.pool.QueryRow(ctx, query, childID).
		Scan(&child.ID, &child.FirstName, &child.LastName, &child.Classroom, &child.DateOfBirth)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get child: %w", err)
	}
	return &child, nil
}

func (s *PostgresStore) GetActivities(ctx context.Context, childID, date string, activityType models.ActivityType) ([]models.Activity, error) {
	conditions := []string{"child_id = $1"}
	params := []any{childID}

	if date != "" {
		params = append(params, date)
		conditions = append(conditions, "substr(timestamp, 1, 10) = $"+strconv.Itoa(len(params)))
	}
	if activityType != "" {
		params = append(params, string(activityType))
		conditions = append(conditions, "type = $"+strconv.Itoa(len(params)))
	}

	query := `SELECT ` + activityColumns + ` FROM activities WHERE ` + strings.Join(conditions, " AND ") + ` ORDER BY timestamp DESC`
	return s.queryActivities(ctx, query, params...)
}

func (s *PostgresStore) GetLatestActivity(ctx context.Context, childID string, activityType models.ActivityType) (*models.Activity, error) {
	query := `SELECT ` + activityColumns + `
	          FROM activities
	          WHERE child_id = $1 AND type = $2
	          ORDER BY timestamp DESC
	          LIMIT 1`

	activities, err := s.queryActivities(ctx, query, childID, string(activityType))
	if err != nil {
		return nil, err
	}
	if len(activities) == 0 {
		return nil, ErrNotFound
	}
	return &activities[0], nil
}

func (s *PostgresStore) GetActivitiesInRange(ctx context.Context, childID, startDate, endDate string, activityType models.ActivityType) ([]models.Activity, error) {
	conditions := []string{"child_id = $1", "substr(timestamp, 1, 10) >= $2", "substr(timestamp, 1, 10) <= $3"}
	params := []any{childID, startDate, endDate}

	if activityType != "" {
		params = append(params, string(activityType))
		conditions = append(conditions, "type = $"+strconv.Itoa(len(params)))
	}

	query := `SELECT ` + activityColumns + ` FROM activities WHERE ` + strings.Join(conditions, " AND ") + ` ORDER BY timestamp DESC`
	return s.queryActivities(ctx, query, params...)
}

func (s *PostgresStore) GetDailySummary(ctx context.Context, childID, date string) (*models.DailySummary, error) {
	activities, err := s.GetActivities(ctx, childID, date, "")
	if err != nil {
		return nil, err
	}
	return models.BuildDailySummary(childID, date, activities), nil
}

func (s *PostgresStore) UpsertChild(ctx context.Context, child models.Child) error {
	query := `INSERT INTO children (id, first_name, last_name, classroom, date_of_birth)
	          VALUES ($1, $2, $3, $4, $5)
	          ON CONFLICT (id) DO UPDATE SET
	            first_name = EXCLUDED.first_name,
	            last_name = EXCLUDED.last_name,
	            classroom = EXCLUDED.classroom,
	            date_of_birth = EXCLUDED.date_of_birth`

	_, err := s.pool.Exec(ctx, query, child.ID, child.FirstName, child.LastName, child.Classroom, child.DateOfBirth)
	if err != nil {
		return fmt.Errorf("failed to upsert child: %w", err)
	}
	return nil
}

const upsertActivityQuery = `INSERT INTO activities (` + activityColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (id, child_id) DO UPDATE SET
	  type = EXCLUDED.type,
	  timestamp = EXCLUDED.timestamp,
	  end_time = EXCLUDED.end_time,
	  details = EXCLUDED.details,
	  notes = EXCLUDED.notes,
	  reported_by = EXCLUDED.reported_by`

func (s *PostgresStore) AddActivity(ctx context.Context, activity models.Activity) error {
	args, err := activityArgs(activity)
	if err != nil {
		return err
	}

	if _, err := s.pool.Exec(ctx, upsertActivityQuery, args...); err != nil {
		return fmt.Errorf("failed to upsert activity %s: %w", activity.ID, err)
	}
	return nil
}

// AddActivities writes the batch in one transaction; either every activity
// commits or none do.
func (s *PostgresStore) AddActivities(ctx context.Context, activities []models.Activity) error {
	if len(activities) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, activity := range activities {
		args, err := activityArgs(activity)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, upsertActivityQuery, args...); err != nil {
			return fmt.Errorf("failed to upsert activity %s: %w", activity.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit activity batch: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetSyncMetadata(ctx context.Context, key string) (string, error) {
	var value string
	err := s.pool.QueryRow(ctx, `SELECT value FROM sync_metadata WHERE key = $1`, key).Scan(&value)

	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get sync metadata: %w", err)
	}
	return value, nil
}

func (s *PostgresStore) SetSyncMetadata(ctx context.Context, key, value string) error {
	query := `INSERT INTO sync_metadata (key, value)
	          VALUES ($1, $2)
	          ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`

	if _, err := s.pool.Exec(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to set sync metadata: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) queryActivities(ctx context.Context, query string, params ...any) ([]models.Activity, error) {
	rows, err := s.pool.Query(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("failed to query activities: %w", err)
	}
	defer rows.Close()

	var activities []models.Activity
	for rows.Next() {
		activity, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		activities = append(activities, activity)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activities: %w", err)
	}
	return activities, nil
}

func scanActivity(row pgx.Row) (models.Activity, error) {
	var (
		activity   models.Activity
		endTime    *string
		detailsRaw []byte
		notes      *string
		reportedBy *string
	)

	err := row.Scan(&activity.ID, &activity.ChildID, &activity.Type, &activity.Timestamp,
		&endTime, &detailsRaw, &notes, &reportedBy)
	if err != nil {
		return models.Activity{}, fmt.Errorf("failed to scan activity: %w", err)
	}

	details, err := models.DecodeDetails(activity.Type, detailsRaw)
	if err != nil {
		return models.Activity{}, err
	}

	activity.Details = details
	if endTime != nil {
		activity.EndTime = *endTime
	}
	if notes != nil {
		activity.Notes = *notes
	}
	if reportedBy != nil {
		activity.ReportedBy = *reportedBy
	}
	return activity, nil
}

func activityArgs(activity models.Activity) ([]any, error) {
	details := activity.Details
	if details == nil {
		details = models.RawDetails{}
	}

	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return nil, fmt.Errorf("failed to encode details for activity %s: %w", activity.ID, err)
	}

	return []any{
		activity.ID,
		activity.ChildID,
		string(activity.Type),
		activity.Timestamp,
		nullable(activity.EndTime),
		detailsJSON,
		nullable(activity.Notes),
		nullable(activity.ReportedBy),
	}, nil
}

func nullable(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
