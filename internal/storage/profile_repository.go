package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"prospector/internal/models"
)

// ProfileRepository is the data access layer for profile items
type ProfileRepository struct {
	db *DB
}

// NewProfileRepository creates a new ProfileRepository
func NewProfileRepository(db *DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Create inserts a new profile item
func (r *ProfileRepository) Create(ctx context.Context, profile *models.Profile) error {
	if profile.ID == "" {
		profile.ID = uuid.New().String()
	}
	profile.CreatedAt = time.Now()
	if profile.Status == "" {
		profile.Status = models.ProfileStatusPending
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO profiles (id, job_id, url, row_index, status, retry_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		profile.ID, profile.JobID, profile.URL, profile.RowIndex,
		profile.Status, profile.RetryCount, profile.CreatedAt)
	return err
}

// CreateBatch inserts profile items in a single transaction
func (r *ProfileRepository) CreateBatch(ctx context.Context, profiles []*models.Profile) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now()
	for _, p := range profiles {
		if p.ID == "" {
			p.ID = uuid.New().String()
		}
		p.CreatedAt = now
		if p.Status == "" {
			p.Status = models.ProfileStatusPending
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO profiles (id, job_id, url, row_index, status, retry_count, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			p.ID, p.JobID, p.URL, p.RowIndex, p.Status, p.RetryCount, p.CreatedAt)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ListByJob returns a job's profile items in spreadsheet row order
func (r *ProfileRepository) ListByJob(ctx context.Context, jobID int64) ([]models.Profile, error) {
	var profiles []models.Profile
	err := r.db.SelectContext(ctx, &profiles,
		`SELECT * FROM profiles WHERE job_id = ? ORDER BY row_index ASC`, jobID)
	return profiles, err
}

// MarkProcessing records the start of an extraction attempt
func (r *ProfileRepository) MarkProcessing(ctx context.Context, id string) error {
	now := time.Now()
	_, err := r.db.ExecContext(ctx,
		`UPDATE profiles SET status = ?, last_attempt_at = ? WHERE id = ?`,
		models.ProfileStatusProcessing, now, id)
	return err
}

// MarkSuccess records a successful extraction with its payload
func (r *ProfileRepository) MarkSuccess(ctx context.Context, id string, data string) error {
	now := time.Now()
	_, err := r.db.ExecContext(ctx, `
		UPDATE profiles SET status = ?, data = ?, error_kind = NULL, error_message = NULL, extracted_at = ?
		WHERE id = ?`,
		models.ProfileStatusSuccess, data, now, id)
	return err
}

// MarkFailure records a failed extraction. The status is retrying when the
// item stays eligible for a future pass, failed when it is terminal.
func (r *ProfileRepository) MarkFailure(ctx context.Context, id string, status string, kind models.ErrorKind, message string, retryCount int) error {
	now := time.Now()
	_, err := r.db.ExecContext(ctx, `
		UPDATE profiles SET status = ?, error_kind = ?, error_message = ?, retry_count = ?, last_attempt_at = ?
		WHERE id = ?`,
		status, kind, message, retryCount, now, id)
	return err
}
