package models

import "time"

// Grade is a per-(student, subject, quarter, school-year) record.
type Grade struct {
	ID           string    `db:"id" json:"id"`
	StudentID    string    `db:"student_id" json:"student_id"`
	SubjectID    string    `db:"subject_id" json:"subject_id"`
	Quarter      int       `db:"quarter" json:"quarter"`
	Score        *float64  `db:"score" json:"score,omitempty"`
	Remarks      *string   `db:"remarks" json:"remarks,omitempty"`
	SchoolYearID string    `db:"school_year_id" json:"school_year_id"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// GradeWithSubject joins the subject name for dashboard views.
type GradeWithSubject struct {
	Grade
	SubjectName string `db:"subject_name" json:"subject_name"`
}
