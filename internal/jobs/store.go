package jobs

import (
	"sync"
	"time"

	"pbidesc/app"
	"pbidesc/internal/errors"
	"pbidesc/models"

	"github.com/google/uuid"
)

// State is the lifecycle of one uploaded file
type State string

const (
	StateUploaded State = "uploaded"
	StateRunning  State = "running"
	StateDone     State = "done"
	StateFailed   State = "failed"
)

// Job holds one uploaded dataset and, once processed, its output workbook.
// Values returned by Store are snapshots and safe to read without locking.
type Job struct {
	ID        string          `json:"job_id"`
	Filename  string          `json:"filename"`
	State     State           `json:"state"`
	Progress  app.Progress    `json:"progress"`
	Error     string          `json:"error,omitempty"`
	Dataset   *models.Dataset `json:"-"`
	Output    []byte          `json:"-"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Store keeps jobs in memory for the lifetime of the process
type Store struct {
	mu   sync.RWMutex
	jobs map[string]*Job
	now  func() time.Time
}

// NewStore creates an empty job store
func NewStore() *Store {
	return &Store{
		jobs: make(map[string]*Job),
		now:  time.Now,
	}
}

// Create registers a freshly parsed dataset
func (s *Store) Create(ds *models.Dataset) *Job {
	now := s.now()
	job := &Job{
		ID:        uuid.New().String(),
		Filename:  ds.SourceName,
		State:     StateUploaded,
		Dataset:   ds.Clone(),
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()

	return job.snapshot()
}

// Get returns a snapshot of a job
func (s *Store) Get(id string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, errors.NotFound("job " + id)
	}
	return job.snapshot(), nil
}

// StartRun moves an uploaded or failed job to running and hands back a
// private copy of its dataset for the single worker to annotate. A failed
// job still holds the dataset as uploaded, so a retry starts from scratch.
func (s *Store) StartRun(id string) (*models.Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, errors.NotFound("job " + id)
	}
	if job.State != StateUploaded && job.State != StateFailed {
		return nil, errors.Conflict("job " + id + " is already " + string(job.State))
	}

	job.State = StateRunning
	job.Error = ""
	job.Progress = app.Progress{Total: job.Dataset.Len(), Message: "Processing: 0% complete"}
	job.UpdatedAt = s.now()
	return job.Dataset.Clone(), nil
}

// UpdateProgress records the latest progress of a running job
func (s *Store) UpdateProgress(id string, progress app.Progress) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if job, ok := s.jobs[id]; ok && job.State == StateRunning {
		job.Progress = progress
		job.UpdatedAt = s.now()
	}
}

// Complete stores the described dataset and its serialized workbook
func (s *Store) Complete(id string, ds *models.Dataset, output []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if job, ok := s.jobs[id]; ok {
		job.State = StateDone
		job.Dataset = ds
		job.Output = output
		job.Progress = app.Progress{
			Completed: ds.Len(),
			Total:     ds.Len(),
			Fraction:  1,
			Percent:   100,
			Message:   "Descriptions generated successfully!",
		}
		job.UpdatedAt = s.now()
	}
}

// Fail marks a job as failed with a user-visible message
func (s *Store) Fail(id string, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if job, ok := s.jobs[id]; ok {
		job.State = StateFailed
		job.Error = message
		job.UpdatedAt = s.now()
	}
}

// CleanupOldJobs removes finished or abandoned jobs not touched within maxAge
func (s *Store) CleanupOldJobs(maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-maxAge)
	removed := 0
	for id, job := range s.jobs {
		if job.State != StateRunning && job.UpdatedAt.Before(cutoff) {
			delete(s.jobs, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of jobs held
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

func (j *Job) snapshot() *Job {
	cp := *j
	cp.Dataset = j.Dataset.Clone()
	return &cp
}
