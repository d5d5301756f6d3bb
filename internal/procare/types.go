// Package procare talks to the Procare Connect web API: authentication,
// the rate-limited paginated feed client, and the mapping of raw activity
// payloads into the normalized domain model.
package procare

import "encoding/json"

type User struct {
	ID        string `json:"id"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
	SchoolID  string `json:"school_id,omitempty"`
	FamilyID  string `json:"family_id,omitempty"`
	AuthToken string `json:"auth_token,omitempty"`
}

type Kid struct {
	ID                 string `json:"id"`
	FirstName          string `json:"first_name"`
	LastName           string `json:"last_name"`
	DOB                string `json:"dob"`
	CurrentSectionID   string `json:"current_section_id,omitempty"`
	CurrentSectionName string `json:"current_section_name,omitempty"`
	RegistrationStatus string `json:"registration_status,omitempty"`
}

type ListOptionItem struct {
	Label string `json:"label,omitempty"`
	Value string `json:"value,omitempty"`
}

type ListOptions struct {
	MealTypes      []ListOptionItem `json:"meal_types,omitempty"`
	MealQuantities []ListOptionItem `json:"meal_quantities,omitempty"`
	DiaperTypes    []ListOptionItem `json:"diaper_types,omitempty"`
	ActivityTypes  []ListOptionItem `json:"activity_types,omitempty"`
}

// ActivityData is the loosely typed "data" object attached to most
// activity records. Known fields are projected; Raw keeps the full
// payload so the unknown-kind fallback can preserve it verbatim.
type ActivityData struct {
	Type           string `json:"type,omitempty"`
	SubType        string `json:"sub_type,omitempty"`
	Quantity       string `json:"quantity,omitempty"`
	Desc           string `json:"desc,omitempty"`
	Amount         string `json:"amount,omitempty"`
	BottleConsumed string `json:"bottle_consumed,omitempty"`
	StartTime      string `json:"start_time,omitempty"`
	EndTime        string `json:"end_time,omitempty"`

	Raw map[string]any `json:"-"`
}

func (d *ActivityData) UnmarshalJSON(b []byte) error {
	type alias ActivityData
	var a alias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}

	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	*d = ActivityData(a)
	d.Raw = raw
	return nil
}

type LearningCategory struct {
	Value string `json:"value,omitempty"`
}

type LearningActivityName struct {
	Value string `json:"value,omitempty"`
}

type Section struct {
	Name string `json:"name,omitempty"`
}

// Activiable carries the type-specific sub-record some activities embed
// (sign-in/out bookkeeping, learning activity metadata).
type Activiable struct {
	SignInTime                 string               `json:"sign_in_time,omitempty"`
	SignOutTime                string               `json:"sign_out_time,omitempty"`
	SignedInBy                 string               `json:"signed_in_by,omitempty"`
	SignedOutBy                string               `json:"signed_out_by,omitempty"`
	Section                    *Section             `json:"section,omitempty"`
	LearningActivityName       LearningActivityName `json:"learning_activity_name,omitempty"`
	LearningActivityCategories []LearningCategory   `json:"learning_activity_categories,omitempty"`
}

type DailyActivity struct {
	ID               string        `json:"id"`
	ActivityTime     string        `json:"activity_time"`
	ActivityDate     string        `json:"activity_date"`
	ActivityType     string        `json:"activity_type"`
	Data             *ActivityData `json:"data,omitempty"`
	Comment          string        `json:"comment,omitempty"`
	StaffPresentName string        `json:"staff_present_name,omitempty"`
	KidIDs           []string      `json:"kid_ids"`
	PhotoURL         string        `json:"photo_url,omitempty"`
	Activiable       *Activiable   `json:"activiable,omitempty"`
}

type KidsResponse struct {
	Kids []Kid `json:"kids"`
}

type DailyActivitiesResponse struct {
	Page            int             `json:"page"`
	PerPage         int             `json:"per_page"`
	DailyActivities []DailyActivity `json:"daily_activities"`
}
