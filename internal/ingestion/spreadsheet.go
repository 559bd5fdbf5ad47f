package ingestion

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"prospector/internal/models"
	"prospector/internal/queue"
	"prospector/internal/spreadsheet"
	"prospector/internal/storage"
)

// SpreadsheetIngester handles workbook uploads: it saves the file,
// validates its rows, creates the job record and submits it to the queue
type SpreadsheetIngester struct {
	jobs             *storage.JobRepository
	users            *storage.UserRepository
	reader           *spreadsheet.Reader
	queue            *queue.Queue
	dataDir          string
	defaultBatchSize int
}

// NewSpreadsheetIngester creates a new SpreadsheetIngester
func NewSpreadsheetIngester(
	jobs *storage.JobRepository,
	users *storage.UserRepository,
	reader *spreadsheet.Reader,
	q *queue.Queue,
	dataDir string,
	defaultBatchSize int,
) *SpreadsheetIngester {
	if defaultBatchSize < 1 {
		defaultBatchSize = 5
	}
	return &SpreadsheetIngester{
		jobs:             jobs,
		users:            users,
		reader:           reader,
		queue:            q,
		dataDir:          dataDir,
		defaultBatchSize: defaultBatchSize,
	}
}

// IngestOptions contains options for a workbook upload
type IngestOptions struct {
	UserID    int64
	FileName  string
	File      io.Reader
	BatchSize int
}

// IngestResult contains the outcome of a workbook upload
type IngestResult struct {
	JobID         int64
	TotalProfiles int
}

// Ingest saves the uploaded workbook, validates that it contains profile
// URLs, creates the job and enqueues it for processing
func (i *SpreadsheetIngester) Ingest(ctx context.Context, opts IngestOptions) (*IngestResult, error) {
	user, err := i.users.GetByID(ctx, opts.UserID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user %d not found", opts.UserID)
	}

	ext := filepath.Ext(opts.FileName)
	if !strings.EqualFold(ext, ".xlsx") {
		return nil, fmt.Errorf("unsupported file format %q: expected .xlsx", ext)
	}

	uploadDir := filepath.Join(i.dataDir, "uploads")
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}

	destPath := filepath.Join(uploadDir, uuid.New().String()+ext)
	dest, err := os.Create(destPath)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}
	_, err = io.Copy(dest, opts.File)
	dest.Close()
	if err != nil {
		os.Remove(destPath)
		return nil, fmt.Errorf("save file: %w", err)
	}

	rows, err := i.reader.ParseRows(destPath)
	if err != nil {
		os.Remove(destPath)
		return nil, fmt.Errorf("parse workbook: %w", err)
	}
	if len(rows) == 0 {
		os.Remove(destPath)
		return nil, fmt.Errorf("no profile URLs found in workbook")
	}

	batchSize := opts.BatchSize
	if batchSize < 1 {
		batchSize = i.defaultBatchSize
	}

	job := &models.Job{
		UserID:        opts.UserID,
		FileName:      opts.FileName,
		FilePath:      destPath,
		TotalProfiles: len(rows),
		BatchSize:     batchSize,
	}
	if err := i.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	i.queue.Enqueue(job)

	slog.Info("job submitted", "job_id", job.ID, "user_id", opts.UserID, "profiles", len(rows))
	return &IngestResult{JobID: job.ID, TotalProfiles: len(rows)}, nil
}
