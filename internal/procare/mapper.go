package procare

import (
	"math"
	"strconv"
	"strings"

	"github.com/sproutsync/sproutsync/internal/models"
)

var diaperConditions = map[string]models.DiaperCondition{
	"Wet":      models.DiaperWet,
	"BM":       models.DiaperBM,
	"BM & Wet": models.DiaperWetBM,
	"Dry":      models.DiaperDry,
}

var mealTypes = map[string]models.MealType{
	"Breakfast": models.MealBreakfast,
	"Lunch":     models.MealLunch,
	"Snack":     models.MealSnack,
	"AM Snack":  models.MealSnack,
	"PM Snack":  models.MealSnack,
	"Dinner":    models.MealDinner,
}

var mealAmounts = map[string]models.MealAmount{
	"All":  models.AmountAll,
	"Most": models.AmountMost,
	"Some": models.AmountSome,
	"None": models.AmountNone,
}

// MapKid projects a raw kid record into the domain model.
func MapKid(raw Kid) models.Child {
	classroom := raw.CurrentSectionName
	if classroom == "" {
		classroom = "Unknown"
	}

	return models.Child{
		ID:          raw.ID,
		FirstName:   raw.FirstName,
		LastName:    raw.LastName,
		Classroom:   classroom,
		DateOfBirth: raw.DOB,
	}
}

// MapActivity normalizes one raw activity record into zero or more domain
// events, one per named kid. A record naming no kids is attributed to the
// unknown-child sentinel instead of being dropped. The function is total:
// unrecognized activity types map to a NOTE event carrying the original
// type tag and raw payload.
func MapActivity(raw DailyActivity) []models.Activity {
	kidIDs := raw.KidIDs
	if len(kidIDs) == 0 {
		kidIDs = []string{models.UnknownChildID}
	}

	activities := make([]models.Activity, 0, len(kidIDs))
	for _, kidID := range kidIDs {
		activities = append(activities, mapForKid(raw, kidID))
	}
	return activities
}

func mapForKid(raw DailyActivity, kidID string) models.Activity {
	data := raw.Data
	if data == nil {
		data = &ActivityData{}
	}

	activity := models.Activity{
		ID:         raw.ID,
		ChildID:    kidID,
		Timestamp:  raw.ActivityTime,
		Notes:      raw.Comment,
		ReportedBy: raw.StaffPresentName,
	}

	switch raw.ActivityType {
	case "bathroom_activity":
		activity.Type = models.ActivityDiaper
		activity.Details = models.DiaperDetails{Condition: diaperCondition(data.SubType)}

	case "meal_activity":
		activity.Type = models.ActivityMeal
		details := models.MealDetails{
			MealType: mealType(data.Type),
			Items:    []string{},
		}
		if data.Desc != "" {
			details.Items = []string{data.Desc}
		}
		if data.Quantity != "" {
			details.Amount = mealAmounts[data.Quantity]
		}
		activity.Details = details

	case "nap_activity":
		activity.Type = models.ActivityNap
		if start := composeTimestamp(raw.ActivityDate, data.StartTime); start != "" {
			activity.Timestamp = start
		}
		activity.EndTime = composeTimestamp(raw.ActivityDate, data.EndTime)
		activity.Details = models.NapDetails{}

	case "bottle_activity":
		activity.Type = models.ActivityBottle
		details := models.BottleDetails{BottleConsumed: parseFloat(data.BottleConsumed)}
		if amount := parseFloat(data.Amount); amount != nil {
			details.Amount = *amount
		}
		activity.Details = details

	case "sign_in_activity":
		activity.Type = models.ActivityCheckIn
		details := models.CheckDetails{}
		if a := raw.Activiable; a != nil {
			if a.SignInTime != "" {
				activity.Timestamp = a.SignInTime
			}
			if a.SignedInBy != "" {
				activity.ReportedBy = a.SignedInBy
			}
			if a.Section != nil {
				details.Section = a.Section.Name
			}
		}
		activity.Details = details

	case "sign_out_activity":
		activity.Type = models.ActivityCheckOut
		details := models.CheckDetails{}
		if a := raw.Activiable; a != nil {
			if a.SignOutTime != "" {
				activity.Timestamp = a.SignOutTime
			}
			if a.SignedOutBy != "" {
				activity.ReportedBy = a.SignedOutBy
			}
			if a.Section != nil {
				details.Section = a.Section.Name
			}
		}
		activity.Details = details

	case "learning_activity":
		activity.Type = models.ActivityLearning
		details := models.LearningDetails{
			ActivityName: "Unknown",
			Categories:   []string{},
			PhotoURL:     raw.PhotoURL,
		}
		if a := raw.Activiable; a != nil {
			if a.LearningActivityName.Value != "" {
				details.ActivityName = a.LearningActivityName.Value
			}
			for _, category := range a.LearningActivityCategories {
				if category.Value != "" {
					details.Categories = append(details.Categories, category.Value)
				}
			}
		}
		if activity.Notes == "" {
			activity.Notes = data.Desc
		}
		activity.Details = details

	case "note_activity":
		activity.Type = models.ActivityNote
		activity.Details = models.NoteDetails{}
		if data.Desc != "" {
			activity.Notes = data.Desc
		}

	case "mood_activity":
		activity.Type = models.ActivityMood
		activity.Details = models.MoodDetails{Mood: data.Type}

	case "incident_activity":
		activity.Type = models.ActivityIncident
		activity.Details = models.IncidentDetails{Description: data.Desc}

	case "photo_activity":
		activity.Type = models.ActivityPhoto
		activity.Details = models.PhotoDetails{PhotoURL: raw.PhotoURL}

	default:
		activity.Type = models.ActivityNote
		activity.Details = models.NoteDetails{
			SourceType: raw.ActivityType,
			Data:       data.Raw,
		}
	}

	return activity
}

func diaperCondition(subType string) models.DiaperCondition {
	if condition, ok := diaperConditions[subType]; ok {
		return condition
	}
	return models.DiaperWet
}

func mealType(rawType string) models.MealType {
	if mt, ok := mealTypes[rawType]; ok {
		return mt
	}
	return models.MealSnack
}

// parseFloat parses loosely formatted numeric strings; anything that is not
// a finite number becomes nil rather than an error.
func parseFloat(value string) *float64 {
	if value == "" {
		return nil
	}
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || math.IsInf(parsed, 0) || math.IsNaN(parsed) {
		return nil
	}
	return &parsed
}

// composeTimestamp joins an activity date with an HH:MM or HH:MM:SS
// time-of-day into a full timestamp; short times gain their seconds.
func composeTimestamp(date, timeOfDay string) string {
	timeOfDay = strings.TrimSpace(timeOfDay)
	if timeOfDay == "" {
		return ""
	}
	if len(timeOfDay) == 5 {
		timeOfDay += ":00"
	}
	return date + "T" + timeOfDay
}
