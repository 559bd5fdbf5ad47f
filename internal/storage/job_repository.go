package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"prospector/internal/models"
)

// JobRepository is the data access layer for jobs
type JobRepository struct {
	db *DB
}

// NewJobRepository creates a new JobRepository
func NewJobRepository(db *DB) *JobRepository {
	return &JobRepository{db: db}
}

// Create inserts a new job and assigns its id
func (r *JobRepository) Create(ctx context.Context, job *models.Job) error {
	job.CreatedAt = time.Now()
	if job.Status == "" {
		job.Status = models.JobStatusPending
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO jobs (user_id, file_name, file_path, total_profiles, batch_size, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		job.UserID, job.FileName, job.FilePath, job.TotalProfiles, job.BatchSize, job.Status, job.CreatedAt)
	if err != nil {
		return err
	}

	job.ID, err = res.LastInsertId()
	return err
}

// GetByID returns a job by id, or nil if it does not exist
func (r *JobRepository) GetByID(ctx context.Context, id int64) (*models.Job, error) {
	var job models.Job
	err := r.db.GetContext(ctx, &job, `SELECT * FROM jobs WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// ListRecent returns the most recently created jobs
func (r *JobRepository) ListRecent(ctx context.Context, limit int) ([]models.Job, error) {
	if limit == 0 {
		limit = 50
	}
	var jobs []models.Job
	err := r.db.SelectContext(ctx, &jobs,
		`SELECT * FROM jobs ORDER BY created_at DESC LIMIT ?`, limit)
	return jobs, err
}

// ListByUser returns a user's jobs, newest first
func (r *JobRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]models.Job, error) {
	if limit == 0 {
		limit = 50
	}
	var jobs []models.Job
	err := r.db.SelectContext(ctx, &jobs,
		`SELECT * FROM jobs WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`, userID, limit)
	return jobs, err
}

// ListByStatus returns jobs in the given status, newest first
func (r *JobRepository) ListByStatus(ctx context.Context, status string, limit int) ([]models.Job, error) {
	if limit == 0 {
		limit = 50
	}
	var jobs []models.Job
	err := r.db.SelectContext(ctx, &jobs,
		`SELECT * FROM jobs WHERE status = ? ORDER BY created_at DESC LIMIT ?`, status, limit)
	return jobs, err
}

// Start moves a job to processing and records its start time
func (r *JobRepository) Start(ctx context.Context, id int64) error {
	now := time.Now()
	_, err := r.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, started_at = ? WHERE id = ?`,
		models.JobStatusProcessing, now, id)
	return err
}

// UpdateStatus sets a job's status
func (r *JobRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE jobs SET status = ? WHERE id = ?`, status, id)
	return err
}

// UpdateProgress persists a job's counters, rate, ETA and error breakdown
func (r *JobRepository) UpdateProgress(ctx context.Context, job *models.Job) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE jobs SET
			processed_profiles = ?,
			successful_profiles = ?,
			failed_profiles = ?,
			retrying_profiles = ?,
			processing_rate = ?,
			estimated_completion = ?,
			error_breakdown = ?
		WHERE id = ?`,
		job.ProcessedProfiles, job.SuccessfulProfiles, job.FailedProfiles,
		job.RetryingProfiles, job.ProcessingRate, job.EstimatedCompletion,
		job.ErrorBreakdown, job.ID)
	return err
}

// Complete marks a job completed and records the result artifact path
func (r *JobRepository) Complete(ctx context.Context, id int64, resultPath string) error {
	now := time.Now()
	_, err := r.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, result_path = ?, completed_at = ?, estimated_completion = NULL WHERE id = ?`,
		models.JobStatusCompleted, resultPath, now, id)
	return err
}

// Fail marks a job failed with an error message
func (r *JobRepository) Fail(ctx context.Context, id int64, errorMsg string) error {
	now := time.Now()
	_, err := r.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, error_message = ?, completed_at = ?, estimated_completion = NULL WHERE id = ?`,
		models.JobStatusFailed, errorMsg, now, id)
	return err
}

// Delete removes a job (profiles cascade)
func (r *JobRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	return err
}
