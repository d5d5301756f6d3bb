package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDailySummary(t *testing.T) {
	activities := []Activity{
		{ID: "a4", Type: ActivityNap, Timestamp: "2026-02-06T13:00:00", EndTime: "2026-02-06T14:30:00", Details: NapDetails{}},
		{ID: "a1", Type: ActivityCheckIn, Timestamp: "2026-02-06T07:45:00", Details: CheckDetails{}},
		{ID: "a3", Type: ActivityMeal, Timestamp: "2026-02-06T12:00:00", Details: MealDetails{MealType: MealLunch}, Notes: "ate well"},
		{ID: "a2", Type: ActivityDiaper, Timestamp: "2026-02-06T09:30:00", Details: DiaperDetails{Condition: DiaperWet}},
		{ID: "a5", Type: ActivityDiaper, Timestamp: "2026-02-06T15:00:00", Details: DiaperDetails{Condition: DiaperBM}},
		{ID: "a6", Type: ActivityCheckOut, Timestamp: "2026-02-06T17:05:00", Details: CheckDetails{}},
	}

	summary := BuildDailySummary("kid-1", "2026-02-06", activities)

	assert.Equal(t, "kid-1", summary.ChildID)
	assert.Equal(t, "2026-02-06", summary.Date)
	assert.Equal(t, "2026-02-06T07:45:00", summary.CheckIn)
	assert.Equal(t, "2026-02-06T17:05:00", summary.CheckOut)
	assert.Equal(t, 2, summary.DiaperCount)

	require.Len(t, summary.Naps, 1)
	assert.Equal(t, "a4", summary.Naps[0].ID)
	require.Len(t, summary.Meals, 1)
	assert.Equal(t, "a3", summary.Meals[0].ID)
	assert.Equal(t, []string{"ate well"}, summary.Notes)

	// Activities come back chronological regardless of input order.
	require.Len(t, summary.Activities, 6)
	assert.Equal(t, "a1", summary.Activities[0].ID)
	assert.Equal(t, "a6", summary.Activities[5].ID)
}

func TestBuildDailySummary_Empty(t *testing.T) {
	summary := BuildDailySummary("kid-1", "2026-02-06", nil)

	assert.Empty(t, summary.CheckIn)
	assert.Empty(t, summary.CheckOut)
	assert.Zero(t, summary.DiaperCount)
	assert.NotNil(t, summary.Naps)
	assert.NotNil(t, summary.Meals)
	assert.NotNil(t, summary.Notes)
}

// Only the first check-in and check-out of the day count.
func TestBuildDailySummary_DuplicateCheckEvents(t *testing.T) {
	activities := []Activity{
		{ID: "a2", Type: ActivityCheckIn, Timestamp: "2026-02-06T08:10:00", Details: CheckDetails{}},
		{ID: "a1", Type: ActivityCheckIn, Timestamp: "2026-02-06T07:45:00", Details: CheckDetails{}},
	}

	summary := BuildDailySummary("kid-1", "2026-02-06", activities)
	assert.Equal(t, "2026-02-06T07:45:00", summary.CheckIn)
}
