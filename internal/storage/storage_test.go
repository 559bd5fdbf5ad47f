package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prospector/internal/models"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestUser(t *testing.T, db *DB) *models.User {
	t.Helper()
	user := &models.User{
		Email:              "alice@example.com",
		Name:               "Alice",
		ProviderCredential: "session-token",
	}
	require.NoError(t, NewUserRepository(db).Create(context.Background(), user))
	return user
}

func createTestJob(t *testing.T, db *DB, userID int64) *models.Job {
	t.Helper()
	job := &models.Job{
		UserID:        userID,
		FileName:      "prospects.xlsx",
		FilePath:      "uploads/prospects.xlsx",
		TotalProfiles: 5,
		BatchSize:     2,
	}
	require.NoError(t, NewJobRepository(db).Create(context.Background(), job))
	return job
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewUserRepository(db)

	user := createTestUser(t, db)
	assert.NotZero(t, user.ID)

	got, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "alice@example.com", got.Email)
	assert.Equal(t, "session-token", got.ProviderCredential)

	byEmail, err := repo.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, user.ID, byEmail.ID)

	missing, err := repo.GetByID(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, missing)

	missing, err = repo.GetByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestJobRepositoryLifecycle(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewJobRepository(db)

	user := createTestUser(t, db)
	job := createTestJob(t, db, user.ID)
	assert.NotZero(t, job.ID)
	assert.Equal(t, models.JobStatusPending, job.Status)

	got, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "prospects.xlsx", got.FileName)
	assert.Equal(t, 5, got.TotalProfiles)
	assert.Nil(t, got.StartedAt)

	require.NoError(t, repo.Start(ctx, job.ID))
	got, err = repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusProcessing, got.Status)
	assert.NotNil(t, got.StartedAt)

	// Progress counters, rate, ETA and breakdown survive a round trip.
	eta := time.Now().Add(10 * time.Minute)
	got.ProcessedProfiles = 3
	got.SuccessfulProfiles = 2
	got.FailedProfiles = 1
	got.ProcessingRate = "1.5 profiles/min"
	got.EstimatedCompletion = &eta
	got.ErrorBreakdown = models.ErrorBreakdown{models.ErrorKindRateLimit: 1}
	require.NoError(t, repo.UpdateProgress(ctx, got))

	got, err = repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.ProcessedProfiles)
	assert.Equal(t, 2, got.SuccessfulProfiles)
	assert.Equal(t, 1, got.FailedProfiles)
	assert.Equal(t, "1.5 profiles/min", got.ProcessingRate)
	require.NotNil(t, got.EstimatedCompletion)
	assert.Equal(t, 1, got.ErrorBreakdown[models.ErrorKindRateLimit])

	require.NoError(t, repo.Complete(ctx, job.ID, "results/job_1_all.xlsx"))
	got, err = repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, got.Status)
	require.NotNil(t, got.ResultPath)
	assert.Equal(t, "results/job_1_all.xlsx", *got.ResultPath)
	assert.NotNil(t, got.CompletedAt)
	assert.Nil(t, got.EstimatedCompletion)
}

func TestJobRepositoryFail(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewJobRepository(db)

	user := createTestUser(t, db)
	job := createTestJob(t, db, user.ID)

	require.NoError(t, repo.Fail(ctx, job.ID, "stopped by user"))

	got, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, got.Status)
	require.NotNil(t, got.ErrorMessage)
	assert.Equal(t, "stopped by user", *got.ErrorMessage)
}

func TestJobRepositoryListing(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewJobRepository(db)

	user := createTestUser(t, db)
	first := createTestJob(t, db, user.ID)
	second := createTestJob(t, db, user.ID)
	require.NoError(t, repo.UpdateStatus(ctx, second.ID, models.JobStatusCompleted))

	recent, err := repo.ListRecent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	byUser, err := repo.ListByUser(ctx, user.ID, 10)
	require.NoError(t, err)
	assert.Len(t, byUser, 2)

	pending, err := repo.ListByStatus(ctx, models.JobStatusPending, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, first.ID, pending[0].ID)

	none, err := repo.ListByUser(ctx, 999, 10)
	require.NoError(t, err)
	assert.Empty(t, none)

	missing, err := repo.GetByID(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestProfileRepositoryTransitions(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewProfileRepository(db)

	user := createTestUser(t, db)
	job := createTestJob(t, db, user.ID)

	profiles := []*models.Profile{
		{JobID: job.ID, URL: "https://example.com/in/c", RowIndex: 2},
		{JobID: job.ID, URL: "https://example.com/in/a", RowIndex: 0},
		{JobID: job.ID, URL: "https://example.com/in/b", RowIndex: 1},
	}
	require.NoError(t, repo.CreateBatch(ctx, profiles))
	for _, p := range profiles {
		assert.NotEmpty(t, p.ID)
		assert.Equal(t, models.ProfileStatusPending, p.Status)
	}

	listed, err := repo.ListByJob(ctx, job.ID)
	require.NoError(t, err)
	require.Len(t, listed, 3)
	assert.Equal(t, "https://example.com/in/a", listed[0].URL, "listing follows spreadsheet row order")
	assert.Equal(t, "https://example.com/in/c", listed[2].URL)

	target := listed[0]
	require.NoError(t, repo.MarkProcessing(ctx, target.ID))
	require.NoError(t, repo.MarkSuccess(ctx, target.ID, `{"name":"Alice"}`))

	listed, err = repo.ListByJob(ctx, job.ID)
	require.NoError(t, err)
	ok := listed[0]
	assert.Equal(t, models.ProfileStatusSuccess, ok.Status)
	require.NotNil(t, ok.Data)
	assert.Contains(t, *ok.Data, "Alice")
	assert.NotNil(t, ok.ExtractedAt)

	require.NoError(t, repo.MarkFailure(ctx, listed[1].ID,
		models.ProfileStatusRetrying, models.ErrorKindRateLimit, "rate limit exceeded (429)", 1))
	require.NoError(t, repo.MarkFailure(ctx, listed[2].ID,
		models.ProfileStatusFailed, models.ErrorKindNotFound, "profile not found (404)", 1))

	listed, err = repo.ListByJob(ctx, job.ID)
	require.NoError(t, err)

	retrying := listed[1]
	assert.Equal(t, models.ProfileStatusRetrying, retrying.Status)
	require.NotNil(t, retrying.ErrorKind)
	assert.Equal(t, models.ErrorKindRateLimit, *retrying.ErrorKind)
	assert.Equal(t, 1, retrying.RetryCount)

	failed := listed[2]
	assert.Equal(t, models.ProfileStatusFailed, failed.Status)
	require.NotNil(t, failed.ErrorMessage)
	assert.Equal(t, "profile not found (404)", *failed.ErrorMessage)
}

func TestProfileRepositoryCascadeDelete(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	jobRepo := NewJobRepository(db)
	profileRepo := NewProfileRepository(db)

	user := createTestUser(t, db)
	job := createTestJob(t, db, user.ID)
	require.NoError(t, profileRepo.CreateBatch(ctx, []*models.Profile{
		{JobID: job.ID, URL: "https://example.com/in/a"},
	}))

	require.NoError(t, jobRepo.Delete(ctx, job.ID))

	listed, err := profileRepo.ListByJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Empty(t, listed)
}
