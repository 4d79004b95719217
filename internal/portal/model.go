package portal

import (
	"errors"
	"time"
)

const (
	KindNotes    = "notes"
	KindSyllabus = "syllabus"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrInvalid     = errors.New("invalid announcement")
	ErrInvalidFile = errors.New("invalid file")
	ErrInvalidKind = errors.New("kind must be notes or syllabus")
)

// Announcement is a notice shown on the student and parent portal.
type Announcement struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title" binding:"required,max=255"`
	Description string    `json:"description"`
	Date        string    `json:"date"`
	CreatedAt   time.Time `json:"created_at"`
}

// Resource is an uploaded notes or syllabus file.
type Resource struct {
	ID          int64     `json:"id"`
	Kind        string    `json:"kind"`
	Subject     string    `json:"subject"`
	Topic       string    `json:"topic"`
	FileName    string    `json:"file_name"`
	Backend     string    `json:"storage_backend"`
	StoragePath string    `json:"storage_path"`
	FileURL     string    `json:"file_url,omitempty"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// Suggestions are the study activities offered to students.
var Suggestions = []string{
	"Revise notes",
	"Practice coding",
	"Read textbook",
	"Watch lecture video",
}
