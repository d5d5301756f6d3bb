package models

import "sort"

type DailySummary struct {
	ChildID     string     `json:"child_id"`
	Date        string     `json:"date"`
	CheckIn     string     `json:"check_in,omitempty"`
	CheckOut    string     `json:"check_out,omitempty"`
	Activities  []Activity `json:"activities"`
	DiaperCount int        `json:"diaper_count"`
	Naps        []Activity `json:"naps"`
	Meals       []Activity `json:"meals"`
	Notes       []string   `json:"notes"`
}

// BuildDailySummary aggregates one day's activities into a summary. The
// input may arrive in any order; the summary lists activities
// chronologically. Aggregation happens here so every storage backend
// produces identical summaries.
func BuildDailySummary(childID, date string, activities []Activity) *DailySummary {
	sorted := make([]Activity, len(activities))
	copy(sorted, activities)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp < sorted[j].Timestamp
	})

	summary := &DailySummary{
		ChildID:    childID,
		Date:       date,
		Activities: sorted,
		Naps:       []Activity{},
		Meals:      []Activity{},
		Notes:      []string{},
	}

	for _, a := range sorted {
		switch a.Type {
		case ActivityCheckIn:
			if summary.CheckIn == "" {
				summary.CheckIn = a.Timestamp
			}
		case ActivityCheckOut:
			if summary.CheckOut == "" {
				summary.CheckOut = a.Timestamp
			}
		case ActivityDiaper:
			summary.DiaperCount++
		case ActivityNap:
			summary.Naps = append(summary.Naps, a)
		case ActivityMeal:
			summary.Meals = append(summary.Meals, a)
		}

		if a.Notes != "" {
			summary.Notes = append(summary.Notes, a.Notes)
		}
	}

	return summary
}
