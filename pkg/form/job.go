package form

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/menta2k/detect-cropper/pkg/types"
)

// Outcome is what a finished job produced
type Outcome struct {
	Summary types.JobSummary
	Err     error
}

// Job is one running extraction. Its result arrives exactly once.
type Job struct {
	ID      string
	Request types.CropRequest
	Started time.Time

	result   chan Outcome
	finished chan struct{}

	mu      sync.RWMutex
	state   State
	outcome Outcome
	ended   time.Time
}

// Status is a point-in-time view of a job
type Status struct {
	ID       string            `json:"id"`
	State    State             `json:"state"`
	Request  types.CropRequest `json:"request"`
	Summary  *types.JobSummary `json:"summary,omitempty"`
	Error    string            `json:"error,omitempty"`
	Started  time.Time         `json:"started"`
	Finished *time.Time        `json:"finished,omitempty"`
}

func newJob(req types.CropRequest) *Job {
	return &Job{
		ID:       uuid.NewString(),
		Request:  req,
		Started:  time.Now(),
		result:   make(chan Outcome, 1),
		finished: make(chan struct{}),
		state:    Running,
	}
}

// Done delivers the outcome once the job ends. Only one receiver gets it;
// use Wait when several goroutines need the result.
func (j *Job) Done() <-chan Outcome {
	return j.result
}

// Wait blocks until the job ends or ctx is done
func (j *Job) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-j.finished:
		j.mu.RLock()
		defer j.mu.RUnlock()
		return j.outcome, nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

// State returns the job's current state
func (j *Job) State() State {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.state
}

// Status snapshots the job
func (j *Job) Status() Status {
	j.mu.RLock()
	defer j.mu.RUnlock()

	st := Status{ID: j.ID, State: j.state, Request: j.Request, Started: j.Started}
	if j.state.Terminal() {
		summary := j.outcome.Summary
		st.Summary = &summary
		ended := j.ended
		st.Finished = &ended
		if j.outcome.Err != nil {
			st.Error = j.outcome.Err.Error()
		}
	}
	return st
}

func (j *Job) finish(out Outcome) {
	j.mu.Lock()
	j.outcome = out
	j.ended = time.Now()
	if out.Err != nil {
		j.state = Failed
	} else {
		j.state = Succeeded
	}
	j.mu.Unlock()

	j.result <- out
	close(j.finished)
}
