package attendance

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"

	"smartcampus/internal/recognition"
)

// CreateJob records a pending recognition job and returns it. Job ids are
// ULIDs, so they sort by submission time.
func (r *Repository) CreateJob(ctx context.Context) (Job, error) {
	now := time.Now().UTC()
	job := Job{ID: ulid.Make().String(), Status: JobPending, CreatedAt: now, UpdatedAt: now}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO recognition_jobs (id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
	`, job.ID, job.Status, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return Job{}, err
	}
	return job, nil
}

// GetJob returns a job by id.
func (r *Repository) GetJob(ctx context.Context, id string) (Job, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, status, outcome, student_id, confidence, message, error, created_at, updated_at
		FROM recognition_jobs WHERE id = $1
	`, id)
	var j Job
	if err := row.Scan(&j.ID, &j.Status, &j.Outcome, &j.StudentID, &j.Confidence, &j.Message, &j.Error, &j.CreatedAt, &j.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Job{}, ErrJobNotFound
		}
		return Job{}, err
	}
	return j, nil
}

// CompleteJob stores the decision reached for a job.
func (r *Repository) CompleteJob(ctx context.Context, id string, dec recognition.Decision) error {
	var confidence *float64
	if dec.IdentityKey != "" {
		c := dec.Confidence
		confidence = &c
	}
	return r.updateJob(ctx, id, JobProcessed, string(dec.Outcome), dec.IdentityKey, confidence, dec.Message, "")
}

// FailJob marks a job failed with a reason.
func (r *Repository) FailJob(ctx context.Context, id, reason string) error {
	return r.updateJob(ctx, id, JobFailed, "", "", nil, "", reason)
}

func (r *Repository) updateJob(ctx context.Context, id, status, outcome, studentID string, confidence *float64, message, reason string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE recognition_jobs
		SET status = $1, outcome = $2, student_id = $3, confidence = $4, message = $5, error = $6, updated_at = $7
		WHERE id = $8
	`, status, outcome, studentID, confidence, message, reason, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrJobNotFound
	}
	return nil
}
