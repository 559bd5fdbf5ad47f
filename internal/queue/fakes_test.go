package queue

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"prospector/internal/models"
)

// In-memory collaborator fakes shared by the scheduler and queue tests.

type counterSnapshot struct {
	processed  int
	successful int
	failed     int
	retrying   int
}

type fakeJobStore struct {
	mu                sync.Mutex
	jobs              map[int64]*models.Job
	snapshots         []counterSnapshot
	updateProgressErr error
}

func newFakeJobStore(jobs ...*models.Job) *fakeJobStore {
	s := &fakeJobStore{jobs: make(map[int64]*models.Job)}
	for _, j := range jobs {
		s.jobs[j.ID] = j
	}
	return s
}

func (s *fakeJobStore) GetByID(_ context.Context, id int64) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, nil
	}
	clone := *job
	return &clone, nil
}

func (s *fakeJobStore) Start(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.jobs[id].Status = models.JobStatusProcessing
	s.jobs[id].StartedAt = &now
	return nil
}

func (s *fakeJobStore) UpdateStatus(_ context.Context, id int64, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[id]; ok {
		job.Status = status
	}
	return nil
}

func (s *fakeJobStore) UpdateProgress(_ context.Context, job *models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateProgressErr != nil {
		return s.updateProgressErr
	}
	stored := s.jobs[job.ID]
	stored.ProcessedProfiles = job.ProcessedProfiles
	stored.SuccessfulProfiles = job.SuccessfulProfiles
	stored.FailedProfiles = job.FailedProfiles
	stored.RetryingProfiles = job.RetryingProfiles
	stored.ProcessingRate = job.ProcessingRate
	stored.EstimatedCompletion = job.EstimatedCompletion
	stored.ErrorBreakdown = job.ErrorBreakdown
	s.snapshots = append(s.snapshots, counterSnapshot{
		processed:  job.ProcessedProfiles,
		successful: job.SuccessfulProfiles,
		failed:     job.FailedProfiles,
		retrying:   job.RetryingProfiles,
	})
	return nil
}

func (s *fakeJobStore) Complete(_ context.Context, id int64, resultPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	job := s.jobs[id]
	job.Status = models.JobStatusCompleted
	job.ResultPath = &resultPath
	job.CompletedAt = &now
	return nil
}

func (s *fakeJobStore) Fail(_ context.Context, id int64, errorMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	job, ok := s.jobs[id]
	if !ok {
		return nil
	}
	job.Status = models.JobStatusFailed
	job.ErrorMessage = &errorMsg
	job.CompletedAt = &now
	return nil
}

func (s *fakeJobStore) get(id int64) models.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.jobs[id]
}

type fakeProfileStore struct {
	mu       sync.Mutex
	profiles map[string]*models.Profile
	nextID   int
}

func newFakeProfileStore() *fakeProfileStore {
	return &fakeProfileStore{profiles: make(map[string]*models.Profile)}
}

func (s *fakeProfileStore) CreateBatch(_ context.Context, profiles []*models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range profiles {
		s.nextID++
		p.ID = fmt.Sprintf("p%d", s.nextID)
		if p.Status == "" {
			p.Status = models.ProfileStatusPending
		}
		clone := *p
		s.profiles[p.ID] = &clone
	}
	return nil
}

func (s *fakeProfileStore) ListByJob(_ context.Context, jobID int64) ([]models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Profile
	for _, p := range s.profiles {
		if p.JobID == jobID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RowIndex < out[j].RowIndex })
	return out, nil
}

func (s *fakeProfileStore) MarkProcessing(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.profiles[id].Status = models.ProfileStatusProcessing
	s.profiles[id].LastAttemptAt = &now
	return nil
}

func (s *fakeProfileStore) MarkSuccess(_ context.Context, id string, data string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	p := s.profiles[id]
	p.Status = models.ProfileStatusSuccess
	p.Data = &data
	p.ExtractedAt = &now
	return nil
}

func (s *fakeProfileStore) MarkFailure(_ context.Context, id string, status string, kind models.ErrorKind, message string, retryCount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	p := s.profiles[id]
	p.Status = status
	p.ErrorKind = &kind
	p.ErrorMessage = &message
	p.RetryCount = retryCount
	p.LastAttemptAt = &now
	return nil
}

func (s *fakeProfileStore) byURL(url string) models.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.profiles {
		if p.URL == url {
			return *p
		}
	}
	return models.Profile{}
}

// seedProfiles registers pending profiles for a job, one per url
func seedProfiles(s *fakeProfileStore, jobID int64, urls ...string) {
	profiles := make([]*models.Profile, 0, len(urls))
	for i, url := range urls {
		profiles = append(profiles, &models.Profile{JobID: jobID, URL: url, RowIndex: i})
	}
	_ = s.CreateBatch(context.Background(), profiles)
}

type fakeUserStore struct {
	users map[int64]*models.User
}

func (s *fakeUserStore) GetByID(_ context.Context, id int64) (*models.User, error) {
	if user, ok := s.users[id]; ok {
		clone := *user
		return &clone, nil
	}
	return nil, nil
}

// stubFetcher fails configured urls with a fixed message and succeeds on
// every other url. onFetch, when set, runs before each attempt.
type stubFetcher struct {
	mu      sync.Mutex
	fail    map[string]string
	calls   map[string]int
	onFetch func(url string)
}

func newStubFetcher() *stubFetcher {
	return &stubFetcher{fail: make(map[string]string), calls: make(map[string]int)}
}

func (f *stubFetcher) FetchProfile(_ context.Context, _, url string) (*models.ProfileData, error) {
	f.mu.Lock()
	f.calls[url]++
	msg, failing := f.fail[url]
	hook := f.onFetch
	f.mu.Unlock()

	if hook != nil {
		hook(url)
	}
	if failing {
		return nil, errors.New(msg)
	}
	return &models.ProfileData{Name: "Jane Doe", Headline: "Engineer"}, nil
}

func (f *stubFetcher) callCount(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}

type fakeRowExtractor struct {
	rows []models.ProfileRow
	err  error
}

func (r *fakeRowExtractor) ParseRows(string) ([]models.ProfileRow, error) {
	return r.rows, r.err
}

type fakeCompiler struct {
	mu       sync.Mutex
	compiled []int64
	err      error
}

func (c *fakeCompiler) Compile(_ context.Context, job *models.Job) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return "", c.err
	}
	c.compiled = append(c.compiled, job.ID)
	return fmt.Sprintf("results/job_%d.xlsx", job.ID), nil
}

// fastSchedulerConfig removes pacing delays so tests run quickly
func fastSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Retry: RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond},
	}
}
