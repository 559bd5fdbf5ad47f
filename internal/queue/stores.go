package queue

import (
	"context"

	"prospector/internal/models"
)

// JobStore is the subset of job persistence the pipeline consumes
type JobStore interface {
	GetByID(ctx context.Context, id int64) (*models.Job, error)
	Start(ctx context.Context, id int64) error
	UpdateStatus(ctx context.Context, id int64, status string) error
	UpdateProgress(ctx context.Context, job *models.Job) error
	Complete(ctx context.Context, id int64, resultPath string) error
	Fail(ctx context.Context, id int64, errorMsg string) error
}

// ProfileStore is the subset of profile-item persistence the pipeline consumes
type ProfileStore interface {
	CreateBatch(ctx context.Context, profiles []*models.Profile) error
	ListByJob(ctx context.Context, jobID int64) ([]models.Profile, error)
	MarkProcessing(ctx context.Context, id string) error
	MarkSuccess(ctx context.Context, id string, data string) error
	MarkFailure(ctx context.Context, id string, status string, kind models.ErrorKind, message string, retryCount int) error
}

// UserStore resolves job owners to their provider credential
type UserStore interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

// Fetcher retrieves structured profile data from the external provider.
// Errors carry classification tokens in their message text (see Classify).
type Fetcher interface {
	FetchProfile(ctx context.Context, credential, url string) (*models.ProfileData, error)
}

// RowExtractor parses an uploaded spreadsheet into profile rows
type RowExtractor interface {
	ParseRows(path string) ([]models.ProfileRow, error)
}

// ResultCompiler produces the downloadable artifact for a finished job and
// returns its path
type ResultCompiler interface {
	Compile(ctx context.Context, job *models.Job) (string, error)
}
