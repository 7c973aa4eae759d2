package models

import "time"

// SchoolYear models an academic year. At most one row is flagged active
// system-wide; the active year is the default scope for every year-scoped
// read and write.
type SchoolYear struct {
	ID              string    `db:"id" json:"id"`
	YearName        string    `db:"year_name" json:"year_name"`
	StartDate       time.Time `db:"start_date" json:"start_date"`
	EndDate         time.Time `db:"end_date" json:"end_date"`
	EnrollmentStart time.Time `db:"enrollment_start" json:"enrollment_start"`
	EnrollmentEnd   time.Time `db:"enrollment_end" json:"enrollment_end"`
	IsActive        bool      `db:"is_active" json:"is_active"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}
