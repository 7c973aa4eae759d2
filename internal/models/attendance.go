package models

import "time"

// AttendanceStatus enumerates the recognised attendance marks.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "Present"
	AttendanceAbsent  AttendanceStatus = "Absent"
	AttendanceLate    AttendanceStatus = "Late"
	AttendanceExcused AttendanceStatus = "Excused"
)

// Valid reports whether the status is a recognised mark.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendancePresent, AttendanceAbsent, AttendanceLate, AttendanceExcused:
		return true
	}
	return false
}

// Attendance is a per-(student, date, school-year) status record.
type Attendance struct {
	ID           string           `db:"id" json:"id"`
	StudentID    string           `db:"student_id" json:"student_id"`
	Date         time.Time        `db:"date" json:"date"`
	Status       AttendanceStatus `db:"status" json:"status"`
	Remarks      *string          `db:"remarks" json:"remarks,omitempty"`
	SchoolYearID string           `db:"school_year_id" json:"school_year_id"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
}

// RosterEntry is one line of a section's attendance sheet for a date:
// every enrolled student with their recorded mark, defaulting to Present
// when no row exists yet.
type RosterEntry struct {
	StudentID   string           `db:"student_id" json:"student_id"`
	StudentName string           `db:"student_name" json:"student_name"`
	LRN         string           `db:"lrn" json:"lrn"`
	Status      AttendanceStatus `db:"status" json:"status"`
	Remarks     *string          `db:"remarks" json:"remarks,omitempty"`
}

// AttendanceMark is one record in a bulk attendance save.
type AttendanceMark struct {
	StudentID string           `json:"student_id" validate:"required"`
	Status    AttendanceStatus `json:"status" validate:"required"`
	Remarks   *string          `json:"remarks,omitempty"`
}
