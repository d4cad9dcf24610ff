// Package campsync pulls campaign analytics from Instantly into the local
// store through a small worker pipeline.
package campsync

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the state of one sync job.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusFetching  JobStatus = "fetching"
	StatusStoring   JobStatus = "storing"
	StatusCompleted JobStatus = "completed"
	StatusPartial   JobStatus = "partial"
	StatusFailed    JobStatus = "failed"
)

// Progress tracks how far a sync job has gotten.
type Progress struct {
	CampaignsTotal  int      `json:"campaigns_total"`
	CampaignsSynced int      `json:"campaigns_synced"`
	Errors          []string `json:"errors"`
}

// Job tracks one credential's sync run.
type Job struct {
	mu sync.Mutex

	ID           string    `json:"job_id"`
	CredentialID string    `json:"credential_id"`
	KeyName      string    `json:"key_name"`
	Status       JobStatus `json:"status"`
	Progress     Progress  `json:"progress"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Set by the worker; row id of the sync_history record for this run.
	historyID string
}

// NewJob creates a queued job for one credential.
func NewJob(credentialID, keyName string) *Job {
	now := time.Now()
	return &Job{
		ID:           uuid.NewString(),
		CredentialID: credentialID,
		KeyName:      keyName,
		Status:       StatusQueued,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// SetStatus updates the job status atomically.
func (j *Job) SetStatus(status JobStatus) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.UpdatedAt = time.Now()
}

// SetTotal records the campaign count discovered for this credential.
func (j *Job) SetTotal(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.CampaignsTotal = n
	j.UpdatedAt = time.Now()
}

// IncrSynced bumps the synced-campaign counter.
func (j *Job) IncrSynced() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.CampaignsSynced++
	j.UpdatedAt = time.Now()
}

// AddError records a per-campaign failure without stopping the run.
func (j *Job) AddError(msg string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Errors = append(j.Progress.Errors, msg)
	j.UpdatedAt = time.Now()
}

// Snapshot is a read-only, JSON-safe copy of job state.
type Snapshot struct {
	ID           string    `json:"job_id"`
	CredentialID string    `json:"credential_id"`
	KeyName      string    `json:"key_name"`
	Status       JobStatus `json:"status"`
	Progress     Progress  `json:"progress"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Snapshot returns a copy of the job state safe to serialize.
func (j *Job) Snapshot() Snapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := j.Progress.Errors
	if errs == nil {
		errs = []string{}
	}
	return Snapshot{
		ID:           j.ID,
		CredentialID: j.CredentialID,
		KeyName:      j.KeyName,
		Status:       j.Status,
		Progress: Progress{
			CampaignsTotal:  j.Progress.CampaignsTotal,
			CampaignsSynced: j.Progress.CampaignsSynced,
			Errors:          errs,
		},
		UpdatedAt: j.UpdatedAt,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Cleanup removes jobs idle past the TTL.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		stale := now.Sub(job.UpdatedAt) > s.ttl
		job.mu.Unlock()
		if stale {
			delete(s.jobs, id)
		}
	}
}
