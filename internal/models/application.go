package models

import "time"

// ApplicationStatus is the lifecycle state of an enrollment application.
// Status-change endpoints accept any target status without validating the
// prior state; this is an intentional administrative override.
type ApplicationStatus string

const (
	ApplicationStatusPreRegistered ApplicationStatus = "pre-registered"
	ApplicationStatusEnrolled      ApplicationStatus = "enrolled"
	ApplicationStatusTransferred   ApplicationStatus = "transferred"
)

// Valid reports whether the status is one of the known values.
func (s ApplicationStatus) Valid() bool {
	switch s {
	case ApplicationStatusPreRegistered, ApplicationStatusEnrolled, ApplicationStatusTransferred:
		return true
	}
	return false
}

// EnrollmentApplication is an applicant submission keyed by a generated
// human-readable application number.
type EnrollmentApplication struct {
	ID                string            `db:"id" json:"id"`
	ApplicationNumber string            `db:"application_number" json:"application_number"`
	StudentFirstName  string            `db:"student_first_name" json:"student_first_name"`
	StudentMiddleName *string           `db:"student_middle_name" json:"student_middle_name,omitempty"`
	StudentLastName   string            `db:"student_last_name" json:"student_last_name"`
	DateOfBirth       time.Time         `db:"date_of_birth" json:"date_of_birth"`
	Gender            string            `db:"gender" json:"gender"`
	GradeLevel        string            `db:"grade_level" json:"grade_level"`
	LRN               string            `db:"lrn" json:"lrn"`
	ParentEmail       string            `db:"parent_email" json:"parent_email"`
	Status            ApplicationStatus `db:"status" json:"status"`
	SchoolYearID      string            `db:"school_year_id" json:"school_year_id"`
	SectionID         *string           `db:"section_id" json:"section_id,omitempty"`
	CreatedAt         time.Time         `db:"created_at" json:"created_at"`
}

// ApplicationDetail joins the assigned section name onto an application.
type ApplicationDetail struct {
	EnrollmentApplication
	SectionName *string `db:"section_name" json:"section_name,omitempty"`
}

// ApplicationFilter captures list filters for applications.
type ApplicationFilter struct {
	SchoolYearID string
	Status       ApplicationStatus
	GradeLevel   string
	Search       string
	Page         int
	PageSize     int
}

// ApplicationStatusCounts aggregates applications per status for a year.
type ApplicationStatusCounts struct {
	PreRegistered int `db:"pre_registered" json:"pre_registered"`
	Enrolled      int `db:"enrolled" json:"enrolled"`
	Transferred   int `db:"transferred" json:"transferred"`
	Total         int `db:"total" json:"total"`
}
