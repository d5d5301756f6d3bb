package models

// UnknownChildID is the sentinel owner for upstream records that name no
// children. Such records are stored rather than dropped.
const UnknownChildID = "unknown-child"

type Child struct {
	ID          string `json:"id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Classroom   string `json:"classroom"`
	DateOfBirth string `json:"date_of_birth"`
}
