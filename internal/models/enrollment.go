package models

import "time"

// Enrollment is the per-(student, school-year) roster fact: the canonical
// "this student is in this grade/section this year" record, unique per
// (student_id, school_year_id) and upserted rather than duplicated.
type Enrollment struct {
	ID             string    `db:"id" json:"id"`
	StudentID      string    `db:"student_id" json:"student_id"`
	SchoolYearID   string    `db:"school_year_id" json:"school_year_id"`
	SectionID      *string   `db:"section_id" json:"section_id,omitempty"`
	GradeLevel     string    `db:"grade_level" json:"grade_level"`
	Status         string    `db:"status" json:"status"`
	EnrollmentDate time.Time `db:"enrollment_date" json:"enrollment_date"`
}

// EnrollmentHistoryEntry is a roster row joined with its school year for
// the per-student enrollment history view.
type EnrollmentHistoryEntry struct {
	Enrollment
	YearName string `db:"year_name" json:"year_name"`
}
