package portal

import (
	"context"
	"database/sql"
	"errors"
)

// Repository persists announcements and resources.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CreateAnnouncement(ctx context.Context, a Announcement) (Announcement, error) {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO announcements (title, description, date, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, a.Title, a.Description, a.Date, a.CreatedAt).Scan(&a.ID)
	return a, err
}

// AnnouncementExists reports whether an identical notice was already posted.
func (r *Repository) AnnouncementExists(ctx context.Context, title, date string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM announcements WHERE title = $1 AND date = $2`, title, date).Scan(&n)
	return n > 0, err
}

// ListAnnouncements returns the newest notices first.
func (r *Repository) ListAnnouncements(ctx context.Context, limit int) ([]Announcement, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, description, date, created_at
		FROM announcements
		ORDER BY date DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Announcement{}
	for rows.Next() {
		var a Announcement
		if err := rows.Scan(&a.ID, &a.Title, &a.Description, &a.Date, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

const resourceColumns = `id, kind, subject, topic, file_name, storage_backend, storage_path, file_url, uploaded_at`

func (r *Repository) CreateResource(ctx context.Context, res Resource) (Resource, error) {
	var url sql.NullString
	if res.FileURL != "" {
		url = sql.NullString{String: res.FileURL, Valid: true}
	}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO resources (kind, subject, topic, file_name, storage_backend, storage_path, file_url, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, res.Kind, res.Subject, res.Topic, res.FileName, res.Backend, res.StoragePath, url, res.UploadedAt).Scan(&res.ID)
	return res, err
}

// ResourceExists reports whether a file name is already listed under kind.
func (r *Repository) ResourceExists(ctx context.Context, kind, fileName string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM resources WHERE kind = $1 AND file_name = $2`, kind, fileName).Scan(&n)
	return n > 0, err
}

func (r *Repository) GetResource(ctx context.Context, id int64) (Resource, error) {
	res, err := scanResource(r.db.QueryRowContext(ctx, `SELECT `+resourceColumns+` FROM resources WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Resource{}, ErrNotFound
	}
	return res, err
}

// ListResources returns resources, newest upload first. An empty kind lists all.
func (r *Repository) ListResources(ctx context.Context, kind string) ([]Resource, error) {
	query := `SELECT ` + resourceColumns + ` FROM resources`
	args := []any{}
	if kind != "" {
		query += ` WHERE kind = $1`
		args = append(args, kind)
	}
	query += ` ORDER BY uploaded_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Resource{}
	for rows.Next() {
		res, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanResource(s scanner) (Resource, error) {
	var res Resource
	var url sql.NullString
	if err := s.Scan(&res.ID, &res.Kind, &res.Subject, &res.Topic, &res.FileName,
		&res.Backend, &res.StoragePath, &url, &res.UploadedAt); err != nil {
		return Resource{}, err
	}
	res.FileURL = url.String
	return res, nil
}
