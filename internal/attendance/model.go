package attendance

import (
	"errors"
	"time"
)

var (
	ErrStudentExists   = errors.New("student already exists")
	ErrStudentNotFound = errors.New("student not found")
	ErrJobNotFound     = errors.New("recognition job not found")
)

// Student is an entry in the identity directory.
type Student struct {
	StudentID string    `json:"student_id" binding:"required,studentid"`
	Name      string    `json:"name" binding:"required,max=120"`
	Branch    string    `json:"branch" binding:"max=60"`
	Year      string    `json:"year" binding:"max=10"`
	CreatedAt time.Time `json:"created_at"`
}

// Event is a recorded attendance mark. There is at most one per student per date.
type Event struct {
	ID         string    `json:"id"`
	StudentID  string    `json:"student_id"`
	Date       string    `json:"date"`
	Time       string    `json:"time"`
	Source     string    `json:"source"`
	Confidence *float64  `json:"confidence,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	Name       string    `json:"name,omitempty"`
}

// EventFilter narrows ListEvents.
type EventFilter struct {
	StudentID string
	Date      string
	Limit     int
	Offset    int
}

// MonthCount is the number of marks in one YYYY-MM month.
type MonthCount struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

// StudentDashboard summarizes one student's attendance.
type StudentDashboard struct {
	Student     Student `json:"student"`
	TodayStatus string  `json:"today_status"`
	Total       int     `json:"total"`
	ThisMonth   int     `json:"this_month"`
	Latest      *Event  `json:"latest,omitempty"`
}

// ChildSummary is one row of a parent's dashboard.
type ChildSummary struct {
	StudentID   string `json:"student_id"`
	Name        string `json:"name"`
	Branch      string `json:"branch"`
	Year        string `json:"year"`
	Total       int    `json:"total"`
	TodayStatus string `json:"today_status"`
}

// TeacherDashboard summarizes the whole campus for today.
type TeacherDashboard struct {
	Date          string  `json:"date"`
	TotalStudents int     `json:"total_students"`
	TotalRecords  int     `json:"total_records"`
	PresentToday  int     `json:"present_today"`
	AbsentToday   int     `json:"absent_today"`
	Recent        []Event `json:"recent"`
}

const (
	StatusPresent = "Present"
	StatusAbsent  = "Absent"
)

// Job statuses.
const (
	JobPending   = "pending"
	JobProcessed = "processed"
	JobFailed    = "failed"
)

// Job tracks a frame submitted for asynchronous recognition.
type Job struct {
	ID         string    `json:"id"`
	Status     string    `json:"status"`
	Outcome    string    `json:"outcome,omitempty"`
	StudentID  string    `json:"student_id,omitempty"`
	Confidence *float64  `json:"confidence,omitempty"`
	Message    string    `json:"message,omitempty"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
