package models

import (
	"encoding/json"
	"fmt"
)

type ActivityType string

const (
	ActivityDiaper     ActivityType = "DIAPER"
	ActivityMeal       ActivityType = "MEAL"
	ActivityNap        ActivityType = "NAP"
	ActivityBottle     ActivityType = "BOTTLE"
	ActivityCheckIn    ActivityType = "CHECK_IN"
	ActivityCheckOut   ActivityType = "CHECK_OUT"
	ActivityIncident   ActivityType = "INCIDENT"
	ActivityMedication ActivityType = "MEDICATION"
	ActivityPhoto      ActivityType = "PHOTO"
	ActivityNote       ActivityType = "NOTE"
	ActivityLearning   ActivityType = "LEARNING"
	ActivityMood       ActivityType = "MOOD"
)

func (t ActivityType) Valid() bool {
	switch t {
	case ActivityDiaper, ActivityMeal, ActivityNap, ActivityBottle,
		ActivityCheckIn, ActivityCheckOut, ActivityIncident, ActivityMedication,
		ActivityPhoto, ActivityNote, ActivityLearning, ActivityMood:
		return true
	}
	return false
}

type DiaperCondition string

const (
	DiaperWet   DiaperCondition = "wet"
	DiaperDry   DiaperCondition = "dry"
	DiaperBM    DiaperCondition = "bm"
	DiaperWetBM DiaperCondition = "wet+bm"
)

type MealType string

const (
	MealBreakfast MealType = "breakfast"
	MealLunch     MealType = "lunch"
	MealSnack     MealType = "snack"
	MealDinner    MealType = "dinner"
)

type MealAmount string

const (
	AmountAll  MealAmount = "all"
	AmountMost MealAmount = "most"
	AmountSome MealAmount = "some"
	AmountNone MealAmount = "none"
)

// ActivityDetails is the kind-specific payload of an Activity. One concrete
// struct exists per activity type; payloads are serialized as JSON at the
// storage boundary and decoded back via DecodeDetails.
type ActivityDetails interface {
	activityDetails()
}

type DiaperDetails struct {
	Condition DiaperCondition `json:"condition"`
}

type MealDetails struct {
	MealType MealType   `json:"mealType"`
	Items    []string   `json:"items"`
	Amount   MealAmount `json:"amount,omitempty"`
}

type NapDetails struct{}

type BottleDetails struct {
	Amount         float64  `json:"amount"`
	BottleConsumed *float64 `json:"bottleConsumed,omitempty"`
}

// CheckDetails covers both check-in and check-out events.
type CheckDetails struct {
	Section string `json:"section,omitempty"`
}

type IncidentDetails struct {
	Description string `json:"description"`
	Action      string `json:"action"`
}

type MedicationDetails struct {
	Name   string `json:"name"`
	Dosage string `json:"dosage"`
	Time   string `json:"time"`
}

type PhotoDetails struct {
	PhotoURL string `json:"photoUrl,omitempty"`
}

// NoteDetails is empty for plain notes. Events mapped through the
// unknown-kind fallback keep the upstream type tag and raw payload here so
// no upstream data is silently lost.
type NoteDetails struct {
	SourceType string         `json:"sourceType,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
}

type LearningDetails struct {
	ActivityName string   `json:"activityName"`
	Categories   []string `json:"categories"`
	PhotoURL     string   `json:"photoUrl,omitempty"`
}

type MoodDetails struct {
	Mood string `json:"mood,omitempty"`
}

// RawDetails is the decode fallback for activity types this version does not
// recognize (e.g. rows written by a newer build).
type RawDetails map[string]any

func (DiaperDetails) activityDetails()     {}
func (MealDetails) activityDetails()       {}
func (NapDetails) activityDetails()        {}
func (BottleDetails) activityDetails()     {}
func (CheckDetails) activityDetails()      {}
func (IncidentDetails) activityDetails()   {}
func (MedicationDetails) activityDetails() {}
func (PhotoDetails) activityDetails()      {}
func (NoteDetails) activityDetails()       {}
func (LearningDetails) activityDetails()   {}
func (MoodDetails) activityDetails()       {}
func (RawDetails) activityDetails()        {}

// DecodeDetails turns a stored JSON payload back into the concrete details
// struct for the given activity type. It is total: unknown types decode into
// RawDetails instead of failing.
func DecodeDetails(t ActivityType, data []byte) (ActivityDetails, error) {
	if len(data) == 0 {
		data = []byte("{}")
	}

	switch t {
	case ActivityDiaper:
		var d DiaperDetails
		if err := decodeInto(t, data, &d); err != nil {
			return nil, err
		}
		return d, nil
	case ActivityMeal:
		var d MealDetails
		if err := decodeInto(t, data, &d); err != nil {
			return nil, err
		}
		return d, nil
	case ActivityNap:
		var d NapDetails
		if err := decodeInto(t, data, &d); err != nil {
			return nil, err
		}
		return d, nil
	case ActivityBottle:
		var d BottleDetails
		if err := decodeInto(t, data, &d); err != nil {
			return nil, err
		}
		return d, nil
	case ActivityCheckIn, ActivityCheckOut:
		var d CheckDetails
		if err := decodeInto(t, data, &d); err != nil {
			return nil, err
		}
		return d, nil
	case ActivityIncident:
		var d IncidentDetails
		if err := decodeInto(t, data, &d); err != nil {
			return nil, err
		}
		return d, nil
	case ActivityMedication:
		var d MedicationDetails
		if err := decodeInto(t, data, &d); err != nil {
			return nil, err
		}
		return d, nil
	case ActivityPhoto:
		var d PhotoDetails
		if err := decodeInto(t, data, &d); err != nil {
			return nil, err
		}
		return d, nil
	case ActivityNote:
		var d NoteDetails
		if err := decodeInto(t, data, &d); err != nil {
			return nil, err
		}
		return d, nil
	case ActivityLearning:
		var d LearningDetails
		if err := decodeInto(t, data, &d); err != nil {
			return nil, err
		}
		return d, nil
	case ActivityMood:
		var d MoodDetails
		if err := decodeInto(t, data, &d); err != nil {
			return nil, err
		}
		return d, nil
	default:
		var d RawDetails
		if err := decodeInto(t, data, &d); err != nil {
			return nil, err
		}
		return d, nil
	}
}

func decodeInto(t ActivityType, data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s details: %w", t, err)
	}
	return nil
}

// Activity is a normalized, kind-tagged event derived from one upstream
// activity record. ID comes from upstream and is reused across fan-out
// copies, so (ID, ChildID) is the identity used for idempotent writes.
// Timestamps stay in their upstream ISO-8601 string form; lexicographic
// order matches chronological order for same-zone values.
type Activity struct {
	ID         string          `json:"id"`
	ChildID    string          `json:"child_id"`
	Type       ActivityType    `json:"type"`
	Timestamp  string          `json:"timestamp"`
	EndTime    string          `json:"end_time,omitempty"`
	Details    ActivityDetails `json:"details"`
	Notes      string          `json:"notes,omitempty"`
	ReportedBy string          `json:"reported_by,omitempty"`
}

func (a *Activity) UnmarshalJSON(b []byte) error {
	type alias Activity
	aux := struct {
		*alias
		Details json.RawMessage `json:"details"`
	}{alias: (*alias)(a)}

	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}

	details, err := DecodeDetails(a.Type, aux.Details)
	if err != nil {
		return err
	}
	a.Details = details
	return nil
}
