package models

import "time"

// Student is the canonical learner record. The LRN (Learner Reference
// Number) is the natural key used to deduplicate students across
// enrollment applications.
type Student struct {
	ID                string     `db:"id" json:"id"`
	LRN               string     `db:"lrn" json:"lrn"`
	FirstName         string     `db:"first_name" json:"first_name"`
	LastName          string     `db:"last_name" json:"last_name"`
	MiddleName        *string    `db:"middle_name" json:"middle_name,omitempty"`
	DateOfBirth       *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Gender            *string    `db:"gender" json:"gender,omitempty"`
	Email             *string    `db:"email" json:"email,omitempty"`
	CurrentGradeLevel *string    `db:"current_grade_level" json:"current_grade_level,omitempty"`
	CurrentSection    *string    `db:"current_section" json:"current_section,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

// StudentRow is a student joined with the enrollment facts for one year.
type StudentRow struct {
	Student
	GradeLevel       *string `db:"grade_level" json:"grade_level,omitempty"`
	SectionName      *string `db:"section_name" json:"section_name,omitempty"`
	EnrollmentStatus *string `db:"enrollment_status" json:"enrollment_status,omitempty"`
}

// StudentFilter captures list filters for the student directory.
type StudentFilter struct {
	Search       string
	GradeLevel   string
	Status       string
	SchoolYearID string
	Page         int
	PageSize     int
}
