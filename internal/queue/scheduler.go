package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"prospector/internal/models"
)

// SchedulerConfig controls batch pacing and retry limits
type SchedulerConfig struct {
	ItemDelay  time.Duration
	BatchDelay time.Duration
	Retry      RetryConfig

	// MaxItemRetries is the cumulative retry-count threshold at which a
	// failing item becomes terminal instead of retrying.
	MaxItemRetries int
}

// Scheduler drives a job's item list through the retry executor in
// fixed-size batches
type Scheduler struct {
	jobs     JobStore
	profiles ProfileStore
	fetcher  Fetcher
	cfg      SchedulerConfig
}

// NewScheduler creates a new Scheduler
func NewScheduler(jobs JobStore, profiles ProfileStore, fetcher Fetcher, cfg SchedulerConfig) *Scheduler {
	if cfg.MaxItemRetries == 0 {
		cfg.MaxItemRetries = 3
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = DefaultRetryConfig()
	}
	return &Scheduler{jobs: jobs, profiles: profiles, fetcher: fetcher, cfg: cfg}
}

// Run processes every eligible item of a job in batches, consulting control
// before each batch. It returns the run's terminal status (completed, paused
// or failed), or an error when the run was aborted by a crash-class failure.
// Pause and stop leave untouched items in their current status for resumption.
func (s *Scheduler) Run(ctx context.Context, job *models.Job, credential string, control func() string) (string, error) {
	all, err := s.profiles.ListByJob(ctx, job.ID)
	if err != nil {
		return "", fmt.Errorf("list profiles: %w", err)
	}
	if len(all) == 0 {
		return "", errors.New("no profiles found in job")
	}

	var eligible []models.Profile
	for _, p := range all {
		if p.Status == models.ProfileStatusPending || p.Status == models.ProfileStatusRetrying {
			eligible = append(eligible, p)
		}
	}

	batchSize := job.BatchSize
	if batchSize < 1 {
		batchSize = 1
	}

	for start := 0; start < len(eligible); start += batchSize {
		if status := control(); status != models.JobStatusProcessing {
			slog.Info("run halted at batch boundary", "job_id", job.ID, "status", status)
			return status, nil
		}

		end := min(start+batchSize, len(eligible))
		for i := start; i < end; i++ {
			if err := s.processItem(ctx, job, &eligible[i], credential); err != nil {
				return "", err
			}

			progress := TrackProgress(job.ProcessedProfiles, job.TotalProfiles, jobStart(job), time.Now())
			job.ProcessingRate = progress.RateDisplay
			job.EstimatedCompletion = progress.ETA
			if err := s.jobs.UpdateProgress(ctx, job); err != nil {
				return "", fmt.Errorf("persist progress: %w", err)
			}

			s.sleep(ctx, s.cfg.ItemDelay)
		}

		s.sleep(ctx, s.cfg.BatchDelay)
	}

	return models.JobStatusCompleted, nil
}

// processItem runs one item through the retry executor and records the
// outcome. Classified extraction failures are absorbed into the item's
// state; any other error aborts the run.
func (s *Scheduler) processItem(ctx context.Context, job *models.Job, p *models.Profile, credential string) error {
	if err := s.profiles.MarkProcessing(ctx, p.ID); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}
	wasRetrying := p.Status == models.ProfileStatusRetrying

	data, err := ExecuteWithRetry(ctx, s.cfg.Retry, func(ctx context.Context) (*models.ProfileData, error) {
		return s.fetcher.FetchProfile(ctx, credential, p.URL)
	})
	if err == nil {
		payload, merr := json.Marshal(data)
		if merr != nil {
			return fmt.Errorf("encode payload: %w", merr)
		}
		if err := s.profiles.MarkSuccess(ctx, p.ID, string(payload)); err != nil {
			return fmt.Errorf("mark success: %w", err)
		}
		job.SuccessfulProfiles++
		job.ProcessedProfiles++
		if wasRetrying {
			job.RetryingProfiles--
		}
		return nil
	}

	var cerr *ClassifiedError
	if !errors.As(err, &cerr) {
		// Not an extraction failure; abort the whole run.
		return err
	}

	retryCount := p.RetryCount + cerr.Attempts
	status := models.ProfileStatusFailed
	if retryCount < s.cfg.MaxItemRetries && cerr.Kind.Retryable() {
		status = models.ProfileStatusRetrying
	}

	if err := s.profiles.MarkFailure(ctx, p.ID, status, cerr.Kind, cerr.Err.Error(), retryCount); err != nil {
		return fmt.Errorf("mark failure: %w", err)
	}

	if status == models.ProfileStatusRetrying {
		if !wasRetrying {
			job.RetryingProfiles++
		}
	} else {
		job.FailedProfiles++
		job.ProcessedProfiles++
		job.ErrorBreakdown.Add(cerr.Kind)
		if wasRetrying {
			job.RetryingProfiles--
		}
	}

	slog.Warn("profile extraction failed",
		"job_id", job.ID, "url", p.URL, "kind", cerr.Kind,
		"attempts", cerr.Attempts, "item_status", status)
	return nil
}

func (s *Scheduler) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

func jobStart(job *models.Job) time.Time {
	if job.StartedAt != nil {
		return *job.StartedAt
	}
	return job.CreatedAt
}
