package tickets

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"
)

const ticketColumns = `id, title, description, category, priority, status, created_at, updated_at`

// Repository persists tickets.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a ticket and returns it with its id.
func (r *Repository) Create(ctx context.Context, t Ticket) (Ticket, error) {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO tickets (title, description, category, priority, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, t.Title, t.Description, t.Category, t.Priority, t.Status, t.CreatedAt, t.UpdatedAt).Scan(&t.ID)
	if err != nil {
		return Ticket{}, err
	}
	return t, nil
}

// Get returns a ticket by id.
func (r *Repository) Get(ctx context.Context, id int64) (Ticket, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id = $1`, id)
	t, err := scanTicket(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Ticket{}, ErrNotFound
	}
	return t, err
}

// Update overwrites the writable fields of a ticket.
func (r *Repository) Update(ctx context.Context, t Ticket) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE tickets
		SET title = $1, description = $2, category = $3, priority = $4, status = $5, updated_at = $6
		WHERE id = $7
	`, t.Title, t.Description, t.Category, t.Priority, t.Status, t.UpdatedAt, t.ID)
	if err != nil {
		return err
	}
	return expectOne(res)
}

// Delete removes a ticket.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tickets WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectOne(res)
}

// List returns the tickets matching q at the given offset plus the total
// number of matches.
func (r *Repository) List(ctx context.Context, q Query, limit, offset int) ([]Ticket, int, error) {
	where, args := whereClause(q)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tickets`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + ticketColumns + ` FROM tickets` + where +
		` ORDER BY ` + orderClause(q.Ordering) +
		` LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)
	rows, err := r.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []Ticket{}
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, t)
	}
	return out, total, rows.Err()
}

// whereClause builds the filter. Every search term must appear in the title
// or the description, case-insensitively.
func whereClause(q Query) (string, []any) {
	args := []any{}
	clauses := []string{}
	if q.Category != "" {
		clauses = append(clauses, "category = $"+strconv.Itoa(len(args)+1))
		args = append(args, q.Category)
	}
	if q.Status != "" {
		clauses = append(clauses, "status = $"+strconv.Itoa(len(args)+1))
		args = append(args, q.Status)
	}
	for _, term := range searchTerms(q.Search) {
		n := "$" + strconv.Itoa(len(args)+1)
		clauses = append(clauses, "(LOWER(title) LIKE "+n+` ESCAPE '\' OR LOWER(description) LIKE `+n+` ESCAPE '\')`)
		args = append(args, likePattern(term))
	}
	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTicket(s scanner) (Ticket, error) {
	var t Ticket
	err := s.Scan(&t.ID, &t.Title, &t.Description, &t.Category, &t.Priority, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func now() time.Time { return time.Now().UTC() }
