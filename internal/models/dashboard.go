package models

import "time"

// TeacherDashboardStats aggregates the adviser's view for a school year.
type TeacherDashboardStats struct {
	TotalStudents     int `json:"totalStudents"`
	TotalClasses      int `json:"totalClasses"`
	AverageAttendance int `json:"averageAttendance"`
}

// AttendanceTally summarises a student's attendance for a school year.
type AttendanceTally struct {
	Total   int `db:"total" json:"total"`
	Present int `db:"present" json:"present"`
	Absent  int `db:"absent" json:"absent"`
	Late    int `db:"late" json:"late"`
}

// StudentDashboard is the student/parent view for a school year.
type StudentDashboard struct {
	Enrollment *Enrollment        `json:"enrollment,omitempty"`
	Attendance AttendanceTally    `json:"attendance"`
	Grades     []GradeWithSubject `json:"grades"`
}

// Event is a school calendar entry shown on the dashboard.
type Event struct {
	ID          string    `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Description *string   `db:"description" json:"description,omitempty"`
	EventDate   time.Time `db:"event_date" json:"event_date"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Notice is a notice-board entry shown on the dashboard.
type Notice struct {
	ID        string    `db:"id" json:"id"`
	Title     string    `db:"title" json:"title"`
	Body      *string   `db:"body" json:"body,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
