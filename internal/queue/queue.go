package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"prospector/internal/models"
)

// jobRecord is the transient in-memory state the queue holds per registered
// job. It exists only while the job is pending or active and is removed as
// soon as the job reaches a terminal state.
type jobRecord struct {
	id      int64
	userID  int64
	status  string
	retries int
}

// Queue owns the set of submitted jobs and drives exactly one at a time
// through the batch scheduler. Jobs are picked in strict FIFO order by id.
type Queue struct {
	jobs      JobStore
	profiles  ProfileStore
	users     UserStore
	rows      RowExtractor
	scheduler *Scheduler
	compiler  ResultCompiler

	mu      sync.Mutex
	records map[int64]*jobRecord
	order   []int64

	interval time.Duration
	wake     chan struct{}
	stop     chan struct{}
	wg       sync.WaitGroup
}

// New creates a new Queue
func New(jobs JobStore, profiles ProfileStore, users UserStore, rows RowExtractor, scheduler *Scheduler, compiler ResultCompiler, interval time.Duration) *Queue {
	if interval <= 0 {
		interval = time.Second
	}
	return &Queue{
		jobs:      jobs,
		profiles:  profiles,
		users:     users,
		rows:      rows,
		scheduler: scheduler,
		compiler:  compiler,
		records:   make(map[int64]*jobRecord),
		interval:  interval,
		wake:      make(chan struct{}, 1),
		stop:      make(chan struct{}),
	}
}

// Start begins the processing loop
func (q *Queue) Start(ctx context.Context) {
	q.wg.Add(1)
	go q.run(ctx)
	slog.Info("job queue started")
}

// Shutdown stops the processing loop and waits for an in-flight run to return
func (q *Queue) Shutdown() {
	close(q.stop)
	q.wg.Wait()
	slog.Info("job queue stopped")
}

// Enqueue registers a persisted job for processing and wakes the loop.
// Re-enqueueing a known job is a no-op. Returns the job id.
func (q *Queue) Enqueue(job *models.Job) int64 {
	q.mu.Lock()
	if _, ok := q.records[job.ID]; !ok {
		q.records[job.ID] = &jobRecord{
			id:     job.ID,
			userID: job.UserID,
			status: models.JobStatusPending,
		}
		q.order = append(q.order, job.ID)
	}
	q.mu.Unlock()

	q.notify()
	return job.ID
}

// Pause suspends an actively processing job at the next batch boundary.
// Pausing a job that is not processing is silently ignored.
func (q *Queue) Pause(ctx context.Context, id int64) {
	q.mu.Lock()
	rec := q.records[id]
	if rec == nil || rec.status != models.JobStatusProcessing {
		q.mu.Unlock()
		return
	}
	rec.status = models.JobStatusPaused
	q.mu.Unlock()

	if err := q.jobs.UpdateStatus(ctx, id, models.JobStatusPaused); err != nil {
		slog.Error("persist pause", "job_id", id, "error", err)
	}
	slog.Info("job paused", "job_id", id)
}

// Resume returns a paused job to the pending queue
func (q *Queue) Resume(ctx context.Context, id int64) {
	q.mu.Lock()
	rec := q.records[id]
	if rec == nil || rec.status != models.JobStatusPaused {
		q.mu.Unlock()
		return
	}
	rec.status = models.JobStatusPending
	q.mu.Unlock()

	if err := q.jobs.UpdateStatus(ctx, id, models.JobStatusPending); err != nil {
		slog.Error("persist resume", "job_id", id, "error", err)
	}
	slog.Info("job resumed", "job_id", id)
	q.notify()
}

// Stop unconditionally fails a job; cancellation is not distinguished from
// failure at this layer. An active run halts at its next batch boundary.
func (q *Queue) Stop(ctx context.Context, id int64) {
	q.mu.Lock()
	rec := q.records[id]
	if rec == nil {
		q.mu.Unlock()
		return
	}
	active := rec.status == models.JobStatusProcessing
	rec.status = models.JobStatusFailed
	if !active {
		q.removeLocked(id)
	}
	q.mu.Unlock()

	if err := q.jobs.Fail(ctx, id, "stopped by user"); err != nil {
		slog.Error("persist stop", "job_id", id, "error", err)
	}
	slog.Info("job stopped", "job_id", id)
}

func (q *Queue) run(ctx context.Context) {
	defer q.wg.Done()

	ticker := time.NewTicker(q.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.stop:
			return
		case <-q.wake:
		case <-ticker.C:
		}
		q.drain(ctx)
	}
}

// drain runs pending jobs one at a time, oldest first, until none remain
func (q *Queue) drain(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-q.stop:
			return
		default:
		}

		rec := q.nextPending()
		if rec == nil {
			return
		}
		q.runJob(ctx, rec)
	}
}

// nextPending claims the oldest pending record, moving it to processing
func (q *Queue) nextPending() *jobRecord {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, id := range q.order {
		rec := q.records[id]
		if rec != nil && rec.status == models.JobStatusPending {
			rec.status = models.JobStatusProcessing
			return rec
		}
	}
	return nil
}

// runJob drives a single job to a pause point or terminal state
func (q *Queue) runJob(ctx context.Context, rec *jobRecord) {
	job, err := q.jobs.GetByID(ctx, rec.id)
	if err != nil {
		q.abort(ctx, rec, fmt.Errorf("load job: %w", err))
		return
	}
	if job == nil {
		slog.Warn("queued job no longer exists", "job_id", rec.id)
		q.remove(rec.id)
		return
	}

	if job.StartedAt == nil {
		if err := q.jobs.Start(ctx, job.ID); err != nil {
			q.abort(ctx, rec, fmt.Errorf("start job: %w", err))
			return
		}
		now := time.Now()
		job.StartedAt = &now
	} else if err := q.jobs.UpdateStatus(ctx, job.ID, models.JobStatusProcessing); err != nil {
		q.abort(ctx, rec, fmt.Errorf("resume job: %w", err))
		return
	}
	job.Status = models.JobStatusProcessing
	slog.Info("processing job", "job_id", job.ID, "total", job.TotalProfiles, "batch_size", job.BatchSize)

	user, err := q.users.GetByID(ctx, job.UserID)
	if err != nil {
		q.abort(ctx, rec, fmt.Errorf("load user: %w", err))
		return
	}
	var credential string
	if user != nil {
		credential = user.ProviderCredential
	}

	if err := q.materialize(ctx, job); err != nil {
		q.abort(ctx, rec, err)
		return
	}

	status, err := q.scheduler.Run(ctx, job, credential, func() string {
		return q.recordStatus(rec.id)
	})
	if err != nil {
		q.abort(ctx, rec, err)
		return
	}

	switch status {
	case models.JobStatusCompleted:
		path, err := q.compiler.Compile(ctx, job)
		if err != nil {
			q.abort(ctx, rec, fmt.Errorf("compile results: %w", err))
			return
		}
		if err := q.jobs.Complete(ctx, job.ID, path); err != nil {
			slog.Error("persist completion", "job_id", job.ID, "error", err)
		}
		slog.Info("job completed",
			"job_id", job.ID, "successful", job.SuccessfulProfiles,
			"failed", job.FailedProfiles, "result", path)
		q.remove(rec.id)
	case models.JobStatusPaused:
		// The record stays registered so the job can be resumed. Re-persist
		// in case the pause raced the transition to processing above.
		if err := q.jobs.UpdateStatus(ctx, job.ID, models.JobStatusPaused); err != nil {
			slog.Error("persist pause", "job_id", job.ID, "error", err)
		}
	default:
		// Stopped via Stop, which already persisted the failure.
		q.remove(rec.id)
	}
}

// materialize creates the job's profile records from its source spreadsheet
// on the first run; resumed jobs reuse the existing records
func (q *Queue) materialize(ctx context.Context, job *models.Job) error {
	existing, err := q.profiles.ListByJob(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("list profiles: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	rows, err := q.rows.ParseRows(job.FilePath)
	if err != nil {
		return fmt.Errorf("parse rows: %w", err)
	}
	if len(rows) == 0 {
		return errors.New("no profiles found")
	}

	profiles := make([]*models.Profile, 0, len(rows))
	for _, row := range rows {
		profiles = append(profiles, &models.Profile{
			JobID:    job.ID,
			URL:      row.URL,
			RowIndex: row.RowIndex,
		})
	}
	if err := q.profiles.CreateBatch(ctx, profiles); err != nil {
		return fmt.Errorf("create profiles: %w", err)
	}
	return nil
}

// abort fails the job run, persists the failure and drops the record
func (q *Queue) abort(ctx context.Context, rec *jobRecord, err error) {
	q.mu.Lock()
	rec.retries++
	q.mu.Unlock()

	slog.Error("job run aborted", "job_id", rec.id, "error", err)
	if ferr := q.jobs.Fail(ctx, rec.id, err.Error()); ferr != nil {
		slog.Error("persist failure", "job_id", rec.id, "error", ferr)
	}
	q.remove(rec.id)
}

func (q *Queue) recordStatus(id int64) string {
	q.mu.Lock()
	defer q.mu.Unlock()
	if rec := q.records[id]; rec != nil {
		return rec.status
	}
	return models.JobStatusFailed
}

func (q *Queue) remove(id int64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.removeLocked(id)
}

func (q *Queue) removeLocked(id int64) {
	delete(q.records, id)
	for i, v := range q.order {
		if v == id {
			q.order = append(q.order[:i], q.order[i+1:]...)
			break
		}
	}
}

func (q *Queue) notify() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}
