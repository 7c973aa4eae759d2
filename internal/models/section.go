package models

import "time"

// Section is a per-grade-level classroom section tied to one school year.
// CurrentEnrollment is always derived by counting roster rows referencing
// the section; it is never stored on the row.
type Section struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	GradeLevel   string    `db:"grade_level" json:"grade_level"`
	AdviserID    *string   `db:"adviser_id" json:"adviser_id,omitempty"`
	RoomNumber   *string   `db:"room_number" json:"room_number,omitempty"`
	Capacity     int       `db:"capacity" json:"capacity"`
	SchoolYearID string    `db:"school_year_id" json:"school_year_id"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// SectionDetail joins the adviser name and the derived enrollment count.
type SectionDetail struct {
	Section
	AdviserName       *string `db:"adviser_name" json:"adviser_name,omitempty"`
	CurrentEnrollment int     `db:"current_enrollment" json:"current_enrollment"`
}

// Subject is a read-only curriculum entry.
type Subject struct {
	ID         string    `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	GradeLevel string    `db:"grade_level" json:"grade_level"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
