// Package tickets manages campus support tickets.
package tickets

import (
	"errors"
	"time"
)

var (
	ErrNotFound    = errors.New("ticket not found")
	ErrInvalidPage = errors.New("invalid page")
	ErrInvalid     = errors.New("invalid ticket")
)

const (
	CategoryClassroom = "classroom"
	CategoryHostel    = "hostel"
	CategoryNetwork   = "network"

	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"

	StatusOpen       = "open"
	StatusInProgress = "in-progress"
	StatusClosed     = "closed"
)

var (
	categories = map[string]bool{CategoryClassroom: true, CategoryHostel: true, CategoryNetwork: true}
	priorities = map[string]bool{PriorityLow: true, PriorityMedium: true, PriorityHigh: true}
	statuses   = map[string]bool{StatusOpen: true, StatusInProgress: true, StatusClosed: true}
)

// Ticket is a support request.
type Ticket struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Priority    string    `json:"priority"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Input carries the writable fields for create and full update.
type Input struct {
	Title       string `json:"title" binding:"required,max=255"`
	Description string `json:"description" binding:"required"`
	Category    string `json:"category" binding:"required,oneof=classroom hostel network"`
	Priority    string `json:"priority" binding:"required,oneof=low medium high"`
	Status      string `json:"status" binding:"omitempty,oneof=open in-progress closed"`
}

// Patch carries optional fields for a partial update.
type Patch struct {
	Title       *string `json:"title" binding:"omitempty,max=255"`
	Description *string `json:"description"`
	Category    *string `json:"category" binding:"omitempty,oneof=classroom hostel network"`
	Priority    *string `json:"priority" binding:"omitempty,oneof=low medium high"`
	Status      *string `json:"status" binding:"omitempty,oneof=open in-progress closed"`
}

// Query selects a page of tickets.
type Query struct {
	Category string
	Status   string
	Search   string
	Ordering string
	Page     int
	PageSize int
}

// Page is one page of results plus the total match count.
type Page struct {
	Count    int      `json:"count"`
	Page     int      `json:"-"`
	PageSize int      `json:"-"`
	Results  []Ticket `json:"results"`
}

// HasNext reports whether a following page exists.
func (p Page) HasNext() bool { return p.Page*p.PageSize < p.Count }

// HasPrevious reports whether a preceding page exists.
func (p Page) HasPrevious() bool { return p.Page > 1 }

func (in Input) validate() error {
	var errs []error
	if in.Title == "" || len(in.Title) > 255 {
		errs = append(errs, errors.New("title must be 1-255 characters"))
	}
	if in.Description == "" {
		errs = append(errs, errors.New("description is required"))
	}
	if !categories[in.Category] {
		errs = append(errs, errors.New("category must be classroom, hostel or network"))
	}
	if !priorities[in.Priority] {
		errs = append(errs, errors.New("priority must be low, medium or high"))
	}
	if in.Status != "" && !statuses[in.Status] {
		errs = append(errs, errors.New("status must be open, in-progress or closed"))
	}
	if len(errs) > 0 {
		return errors.Join(append([]error{ErrInvalid}, errs...)...)
	}
	return nil
}

func (p Patch) apply(t Ticket) Input {
	in := Input{Title: t.Title, Description: t.Description, Category: t.Category, Priority: t.Priority, Status: t.Status}
	if p.Title != nil {
		in.Title = *p.Title
	}
	if p.Description != nil {
		in.Description = *p.Description
	}
	if p.Category != nil {
		in.Category = *p.Category
	}
	if p.Priority != nil {
		in.Priority = *p.Priority
	}
	if p.Status != nil {
		in.Status = *p.Status
	}
	return in
}
