package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"prospector/internal/export"
	"prospector/internal/ingestion"
	"prospector/internal/models"
	"prospector/internal/queue"
	"prospector/internal/storage"
)

// JobHandler serves the job API
type JobHandler struct {
	jobRepo     *storage.JobRepository
	profileRepo *storage.ProfileRepository
	ingester    *ingestion.SpreadsheetIngester
	queue       *queue.Queue
	compiler    *export.Compiler
}

// NewJobHandler creates a new JobHandler
func NewJobHandler(
	jobRepo *storage.JobRepository,
	profileRepo *storage.ProfileRepository,
	ingester *ingestion.SpreadsheetIngester,
	q *queue.Queue,
	compiler *export.Compiler,
) *JobHandler {
	return &JobHandler{
		jobRepo:     jobRepo,
		profileRepo: profileRepo,
		ingester:    ingester,
		queue:       q,
		compiler:    compiler,
	}
}

// UploadRequest is the form payload accompanying a workbook upload
type UploadRequest struct {
	UserID    int64 `form:"user_id" validate:"required,gt=0"`
	BatchSize int   `form:"batch_size" validate:"omitempty,min=1,max=100"`
}

// Upload accepts a workbook of profile URLs and submits a job
// POST /api/jobs
func (h *JobHandler) Upload(c echo.Context) error {
	ctx := c.Request().Context()

	var req UploadRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid form data"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "no file uploaded"})
	}
	f, err := fh.Open()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to open file"})
	}
	defer f.Close()

	result, err := h.ingester.Ingest(ctx, ingestion.IngestOptions{
		UserID:    req.UserID,
		FileName:  fh.Filename,
		File:      f,
		BatchSize: req.BatchSize,
	})
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusAccepted, map[string]any{
		"job_id":         result.JobID,
		"total_profiles": result.TotalProfiles,
		"message":        "job submitted",
	})
}

// List returns recent jobs, optionally filtered by user or status
// GET /api/jobs?user_id=&status=&limit=
func (h *JobHandler) List(c echo.Context) error {
	ctx := c.Request().Context()

	limit := 50
	if l := c.QueryParam("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil {
			limit = parsed
		}
	}

	var jobs []models.Job
	var err error

	switch {
	case c.QueryParam("user_id") != "":
		userID, perr := strconv.ParseInt(c.QueryParam("user_id"), 10, 64)
		if perr != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid user_id"})
		}
		jobs, err = h.jobRepo.ListByUser(ctx, userID, limit)
	case c.QueryParam("status") != "":
		jobs, err = h.jobRepo.ListByStatus(ctx, c.QueryParam("status"), limit)
	default:
		jobs, err = h.jobRepo.ListRecent(ctx, limit)
	}

	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, jobs)
}

// Get returns a job's status and progress
// GET /api/jobs/:id
func (h *JobHandler) Get(c echo.Context) error {
	job, err := h.loadJob(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, job)
}

// Profiles returns a job's per-item statuses
// GET /api/jobs/:id/profiles
func (h *JobHandler) Profiles(c echo.Context) error {
	ctx := c.Request().Context()

	job, err := h.loadJob(c)
	if err != nil {
		return err
	}

	profiles, err := h.profileRepo.ListByJob(ctx, job.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, profiles)
}

// Pause suspends an actively processing job
// POST /api/jobs/:id/pause
func (h *JobHandler) Pause(c echo.Context) error {
	job, err := h.loadJob(c)
	if err != nil {
		return err
	}

	h.queue.Pause(c.Request().Context(), job.ID)
	return c.JSON(http.StatusOK, map[string]string{"message": "pause requested"})
}

// Resume returns a paused job to the queue
// POST /api/jobs/:id/resume
func (h *JobHandler) Resume(c echo.Context) error {
	job, err := h.loadJob(c)
	if err != nil {
		return err
	}

	h.queue.Resume(c.Request().Context(), job.ID)
	return c.JSON(http.StatusOK, map[string]string{"message": "resume requested"})
}

// Stop cancels a job; it terminates as failed
// POST /api/jobs/:id/stop
func (h *JobHandler) Stop(c echo.Context) error {
	job, err := h.loadJob(c)
	if err != nil {
		return err
	}

	h.queue.Stop(c.Request().Context(), job.ID)
	return c.JSON(http.StatusOK, map[string]string{"message": "stop requested"})
}

// Download serves a job's result workbook. The full artifact compiled at
// completion is served for type=all; successful/failed subsets are
// compiled on demand.
// GET /api/jobs/:id/download?type=all|successful|failed
func (h *JobHandler) Download(c echo.Context) error {
	ctx := c.Request().Context()

	job, err := h.loadJob(c)
	if err != nil {
		return err
	}
	if job.Status != models.JobStatusCompleted && job.Status != models.JobStatusFailed {
		return c.JSON(http.StatusConflict, map[string]string{"error": "job has not finished"})
	}

	typ := export.Type(c.QueryParam("type"))
	if typ == "" {
		typ = export.TypeAll
	}
	if !typ.Valid() {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid export type"})
	}

	if typ == export.TypeAll && job.ResultPath != nil {
		return c.Attachment(*job.ResultPath, fmt.Sprintf("job_%d_results.xlsx", job.ID))
	}

	path, err := h.compiler.CompileType(ctx, job, typ)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.Attachment(path, fmt.Sprintf("job_%d_%s.xlsx", job.ID, typ))
}

// loadJob resolves the :id path param to a job
func (h *JobHandler) loadJob(c echo.Context) (*models.Job, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid job id")
	}

	job, err := h.jobRepo.GetByID(c.Request().Context(), id)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if job == nil {
		return nil, echo.NewHTTPError(http.StatusNotFound, "job not found")
	}
	return job, nil
}
