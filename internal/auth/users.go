package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// User is a login account. Parents are linked to students through
// guardianships; a student account carries its own student id.
type User struct {
	ID              int64     `json:"id"`
	Username        string    `json:"username"`
	PasswordHash    string    `json:"-"`
	Role            string    `json:"role"`
	Name            string    `json:"name"`
	LinkedStudentID *string   `json:"linked_student_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

type refreshRecord struct {
	Token     string
	UserID    int64
	ExpiresAt time.Time
	Revoked   bool
}

// Repository persists users, guardianships and refresh tokens.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// CreateUser inserts u. It returns ErrUserExists when the username is
// already taken for that role.
func (r *Repository) CreateUser(ctx context.Context, u User) (User, error) {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO users (username, password_hash, role, name, linked_student_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (username, role) DO NOTHING
		RETURNING id
	`, u.Username, u.PasswordHash, u.Role, u.Name, u.LinkedStudentID, u.CreatedAt).Scan(&u.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrUserExists
	}
	if err != nil {
		return User{}, err
	}
	return u, nil
}

const userColumns = `id, username, password_hash, role, name, linked_student_id, created_at`

func scanUser(s interface{ Scan(...any) error }) (User, error) {
	var u User
	err := s.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.Name, &u.LinkedStudentID, &u.CreatedAt)
	return u, err
}

// GetUser returns a user by id, or nil when missing.
func (r *Repository) GetUser(ctx context.Context, id int64) (*User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByUsernameRole returns the account for username in role, or nil.
func (r *Repository) GetByUsernameRole(ctx context.Context, username, role string) (*User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1 AND role = $2`, username, role))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// FindByUsername returns every account named username, one per role.
func (r *Repository) FindByUsername(ctx context.Context, username string) ([]User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1 ORDER BY role`, username)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// LinkStudent links a parent account to a student.
func (r *Repository) LinkStudent(ctx context.Context, userID int64, studentID string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO guardianships (user_id, student_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, student_id) DO NOTHING
	`, userID, studentID, time.Now().UTC())
	return err
}

// LinkedStudents returns the students a parent is linked to, in link order.
func (r *Repository) LinkedStudents(ctx context.Context, userID int64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT student_id FROM guardianships WHERE user_id = $1 ORDER BY created_at, student_id
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// SaveRefreshToken stores a refresh token for rotation checks.
func (r *Repository) SaveRefreshToken(ctx context.Context, userID int64, token string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (token, user_id, expires_at, revoked, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, token, userID, expiresAt.UTC(), false, time.Now().UTC())
	return err
}

// ConsumeRefreshToken revokes token and reports whether it was live before.
// Exactly one caller can consume a given token.
func (r *Repository) ConsumeRefreshToken(ctx context.Context, token string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE refresh_tokens SET revoked = $1 WHERE token = $2 AND revoked = $3`, true, token, false)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *Repository) getRefreshToken(ctx context.Context, token string) (*refreshRecord, error) {
	var rec refreshRecord
	err := r.db.QueryRowContext(ctx, `
		SELECT token, user_id, expires_at, revoked FROM refresh_tokens WHERE token = $1
	`, token).Scan(&rec.Token, &rec.UserID, &rec.ExpiresAt, &rec.Revoked)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
