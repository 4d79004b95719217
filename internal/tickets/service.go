package tickets

import (
	"context"
	"math"

	"go.uber.org/zap"

	"smartcampus/internal/logger"
	"smartcampus/internal/observability"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Service validates ticket writes and pages listings.
type Service struct {
	repo *Repository
	log  *zap.Logger
}

// NewService creates a service backed by a repository.
func NewService(repo *Repository, log *zap.Logger) *Service {
	return &Service{repo: repo, log: logger.OrNop(log)}
}

// Create validates and stores a ticket. Status defaults to open.
func (s *Service) Create(ctx context.Context, in Input) (Ticket, error) {
	if in.Status == "" {
		in.Status = StatusOpen
	}
	if err := in.validate(); err != nil {
		return Ticket{}, err
	}
	ts := now()
	t, err := s.repo.Create(ctx, Ticket{
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		Priority:    in.Priority,
		Status:      in.Status,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	})
	if err != nil {
		return Ticket{}, err
	}
	observability.TicketsCreated.WithLabelValues(t.Category).Inc()
	s.log.Info("ticket created", zap.Int64("id", t.ID), zap.String("category", t.Category), zap.String("priority", t.Priority))
	return t, nil
}

// Get returns a ticket or ErrNotFound.
func (s *Service) Get(ctx context.Context, id int64) (Ticket, error) {
	return s.repo.Get(ctx, id)
}

// Update replaces all writable fields. An omitted status keeps the current one.
func (s *Service) Update(ctx context.Context, id int64, in Input) (Ticket, error) {
	cur, err := s.repo.Get(ctx, id)
	if err != nil {
		return Ticket{}, err
	}
	if in.Status == "" {
		in.Status = cur.Status
	}
	return s.save(ctx, cur, in)
}

// Patch changes only the provided fields.
func (s *Service) Patch(ctx context.Context, id int64, p Patch) (Ticket, error) {
	cur, err := s.repo.Get(ctx, id)
	if err != nil {
		return Ticket{}, err
	}
	return s.save(ctx, cur, p.apply(cur))
}

func (s *Service) save(ctx context.Context, cur Ticket, in Input) (Ticket, error) {
	if err := in.validate(); err != nil {
		return Ticket{}, err
	}
	cur.Title, cur.Description = in.Title, in.Description
	cur.Category, cur.Priority, cur.Status = in.Category, in.Priority, in.Status
	cur.UpdatedAt = now()
	if err := s.repo.Update(ctx, cur); err != nil {
		return Ticket{}, err
	}
	return cur, nil
}

// Delete removes a ticket.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// List returns one page of matching tickets. A page past the last one is
// ErrInvalidPage; page 1 of an empty result is valid.
func (s *Service) List(ctx context.Context, q Query) (Page, error) {
	if q.PageSize <= 0 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}
	if q.Page == 0 {
		q.Page = 1
	}
	if q.Page < 0 || q.Page > math.MaxInt/q.PageSize {
		return Page{}, ErrInvalidPage
	}

	items, total, err := s.repo.List(ctx, q, q.PageSize, (q.Page-1)*q.PageSize)
	if err != nil {
		return Page{}, err
	}
	if q.Page > 1 && len(items) == 0 {
		return Page{}, ErrInvalidPage
	}
	return Page{Count: total, Page: q.Page, PageSize: q.PageSize, Results: items}, nil
}
