package main

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sells-group/regioncheck/internal/enrich"
)

// Job states reported by the serve API.
const (
	jobRunning   = "running"
	jobDone      = "done"
	jobFailed    = "failed"
	jobCancelled = "cancelled"
)

// job tracks one enrichment run for the serve API. Results stay in memory
// for the server's lifetime.
type job struct {
	mu sync.Mutex

	id      string
	state   string
	failure string
	cancel  context.CancelFunc
	started time.Time

	total     int
	processed int
	current   string
	remaining time.Duration

	summary enrich.RunSummary
	rows    []map[string]any
	columns []string
}

// jobStatus is the JSON shape of GET /api/jobs/{job_id}.
type jobStatus struct {
	ID        string      `json:"id"`
	State     string      `json:"state"`
	Processed int         `json:"processed"`
	Total     int         `json:"total"`
	Current   string      `json:"current_address,omitempty"`
	Elapsed   string      `json:"elapsed"`
	Remaining string      `json:"estimated_remaining,omitempty"`
	Error     string      `json:"error,omitempty"`
	Summary   *jobSummary `json:"summary,omitempty"`
}

type jobSummary struct {
	Total    int    `json:"total"`
	Found    int    `json:"found"`
	NotFound int    `json:"not_found"`
	Elapsed  string `json:"elapsed"`
}

// observe is the pipeline progress callback.
func (j *job) observe(p enrich.Progress) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.processed = p.Index
	j.current = p.Address
	j.remaining = p.Remaining
}

// finish records the terminal state. Rows are kept for cancelled jobs too,
// so partial results stay downloadable.
func (j *job) finish(state string, rows []map[string]any, columns []string, summary enrich.RunSummary, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.state = state
	j.rows = rows
	j.columns = columns
	j.summary = summary
	j.current = ""
	j.remaining = 0
	if err != nil {
		j.failure = err.Error()
	}
}

// requestCancel asks the running pipeline to stop between records.
func (j *job) requestCancel() {
	j.mu.Lock()
	cancel := j.cancel
	j.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// status snapshots the job for the API.
func (j *job) status() jobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()

	st := jobStatus{
		ID:        j.id,
		State:     j.state,
		Processed: j.processed,
		Total:     j.total,
		Current:   j.current,
		Error:     j.failure,
	}

	switch j.state {
	case jobRunning:
		st.Elapsed = time.Since(j.started).Round(time.Second).String()
		if j.remaining > 0 {
			st.Remaining = j.remaining.Round(time.Second).String()
		}
	default:
		st.Elapsed = j.summary.Elapsed.Round(time.Second).String()
		st.Summary = &jobSummary{
			Total:    j.summary.Total,
			Found:    j.summary.Found,
			NotFound: j.summary.NotFound,
			Elapsed:  j.summary.Elapsed.Round(time.Second).String(),
		}
	}

	return st
}

// results returns the flattened output once the job stopped. Cancelled jobs
// expose the records finished before the cancel.
func (j *job) results() ([]map[string]any, []string, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state != jobDone && j.state != jobCancelled {
		return nil, nil, false
	}
	return j.rows, j.columns, true
}

// jobStore holds jobs by ID for the server's lifetime.
type jobStore struct {
	mu   sync.Mutex
	jobs map[string]*job
}

func newJobStore() *jobStore {
	return &jobStore{jobs: make(map[string]*job)}
}

func (s *jobStore) create(total int, cancel context.CancelFunc) *job {
	j := &job{
		id:      uuid.NewString(),
		state:   jobRunning,
		cancel:  cancel,
		started: time.Now(),
		total:   total,
	}
	s.mu.Lock()
	s.jobs[j.id] = j
	s.mu.Unlock()
	return j
}

func (s *jobStore) get(id string) (*job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	return j, ok
}
