package attendance

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"smartcampus/internal/recognition"
)

// Repository persists students and attendance events. Queries run on both
// Postgres and SQLite.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// CreateStudent inserts a new student.
func (r *Repository) CreateStudent(ctx context.Context, s Student) (Student, error) {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO students (student_id, name, branch, year, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (student_id) DO NOTHING
	`, s.StudentID, s.Name, s.Branch, s.Year, s.CreatedAt)
	if err != nil {
		return Student{}, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return Student{}, err
	} else if n == 0 {
		return Student{}, ErrStudentExists
	}
	return s, nil
}

// UpsertStudent creates a student or refreshes its profile fields.
func (r *Repository) UpsertStudent(ctx context.Context, s Student) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO students (student_id, name, branch, year, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (student_id) DO UPDATE SET
			name = EXCLUDED.name,
			branch = EXCLUDED.branch,
			year = EXCLUDED.year
	`, s.StudentID, s.Name, s.Branch, s.Year, time.Now().UTC())
	return err
}

// GetStudent returns a student by id, or nil when missing.
func (r *Repository) GetStudent(ctx context.Context, studentID string) (*Student, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT student_id, name, branch, year, created_at
		FROM students WHERE student_id = $1
	`, studentID)
	var s Student
	if err := row.Scan(&s.StudentID, &s.Name, &s.Branch, &s.Year, &s.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// ListStudents returns all students ordered by id.
func (r *Repository) ListStudents(ctx context.Context) ([]Student, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT student_id, name, branch, year, created_at
		FROM students
		ORDER BY student_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	students := []Student{}
	for rows.Next() {
		var s Student
		if err := rows.Scan(&s.StudentID, &s.Name, &s.Branch, &s.Year, &s.CreatedAt); err != nil {
			return nil, err
		}
		students = append(students, s)
	}
	return students, rows.Err()
}

// CountStudents returns the directory size.
func (r *Repository) CountStudents(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM students`).Scan(&n)
	return n, err
}

// IdentityExists reports whether key names a student in the directory.
func (r *Repository) IdentityExists(ctx context.Context, key string) (bool, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM students WHERE student_id = $1`, key).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// EventExists reports whether the student already has a mark on date.
func (r *Repository) EventExists(ctx context.Context, studentID, date string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM attendance_events WHERE student_id = $1 AND date = $2
	`, studentID, date).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// InsertEvent writes a mark. The unique (student_id, date) index makes the
// insert atomic; it returns false when the row already existed.
func (r *Repository) InsertEvent(ctx context.Context, m recognition.Mark) (bool, error) {
	at := m.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	source := m.Source
	if source == "" {
		source = recognition.SourceFrame
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO attendance_events (id, student_id, date, time, source, confidence, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (student_id, date) DO NOTHING
	`, uuid.NewString(), m.StudentID, m.Date, m.Time, source, m.Confidence, at)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ListEvents returns events, newest first, joined with the student name.
func (r *Repository) ListEvents(ctx context.Context, f EventFilter) ([]Event, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	query := `SELECT e.id, e.student_id, e.date, e.time, e.source, e.confidence, e.created_at, COALESCE(s.name, '')
		FROM attendance_events e LEFT JOIN students s ON s.student_id = e.student_id`
	args := []any{}
	clauses := []string{}
	if f.StudentID != "" {
		clauses = append(clauses, "e.student_id = $"+strconv.Itoa(len(args)+1))
		args = append(args, f.StudentID)
	}
	if f.Date != "" {
		clauses = append(clauses, "e.date = $"+strconv.Itoa(len(args)+1))
		args = append(args, f.Date)
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY e.date DESC, e.time DESC LIMIT $" + strconv.Itoa(len(args)+1) + " OFFSET $" + strconv.Itoa(len(args)+2)
	args = append(args, f.Limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []Event{}
	for rows.Next() {
		var evt Event
		if err := rows.Scan(&evt.ID, &evt.StudentID, &evt.Date, &evt.Time, &evt.Source, &evt.Confidence, &evt.CreatedAt, &evt.Name); err != nil {
			return nil, err
		}
		res = append(res, evt)
	}
	return res, rows.Err()
}

// CountEvents counts marks, optionally for one student and a date prefix
// ("2024" or "2024-03").
func (r *Repository) CountEvents(ctx context.Context, studentID, datePrefix string) (int, error) {
	query := `SELECT COUNT(*) FROM attendance_events`
	args := []any{}
	clauses := []string{}
	if studentID != "" {
		clauses = append(clauses, "student_id = $"+strconv.Itoa(len(args)+1))
		args = append(args, studentID)
	}
	if datePrefix != "" {
		clauses = append(clauses, "date LIKE $"+strconv.Itoa(len(args)+1))
		args = append(args, datePrefix+"%")
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	var n int
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&n)
	return n, err
}

// CountPresent returns how many distinct students were marked on date.
func (r *Repository) CountPresent(ctx context.Context, date string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT student_id) FROM attendance_events WHERE date = $1
	`, date).Scan(&n)
	return n, err
}

// MonthlyCounts groups marks by YYYY-MM, optionally for one student.
func (r *Repository) MonthlyCounts(ctx context.Context, studentID string) ([]MonthCount, error) {
	query := `SELECT SUBSTR(date, 1, 7) AS month, COUNT(*) FROM attendance_events`
	args := []any{}
	if studentID != "" {
		query += ` WHERE student_id = $1`
		args = append(args, studentID)
	}
	query += ` GROUP BY SUBSTR(date, 1, 7) ORDER BY month`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []MonthCount{}
	for rows.Next() {
		var mc MonthCount
		if err := rows.Scan(&mc.Month, &mc.Count); err != nil {
			return nil, err
		}
		out = append(out, mc)
	}
	return out, rows.Err()
}
