package interfaces

import (
	"context"
	"fmt"
)

// JobStatus represents the lifecycle state of a job id as recorded in the
// history log. The integer values are part of the history dump format.
type JobStatus int

const (
	StatusNeverSeen JobStatus = iota
	StatusQueued
	StatusRunning
	StatusCompleted
)

func (s JobStatus) String() string {
	switch s {
	case StatusNeverSeen:
		return "never_seen"
	case StatusQueued:
		return "queued"
	case StatusRunning:
		return "running"
	case StatusCompleted:
		return "completed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Job represents a unit of work. It is never mutated after creation.
type Job struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Input string `json:"input"`
}

// String returns a string representation of the job
func (j *Job) String() string {
	return fmt.Sprintf("Job{ID: %s, Type: %s}", j.ID, j.Type)
}

// HistoryEntry records a single status transition for a job id.
type HistoryEntry struct {
	JobID  string    `json:"job_id"`
	Status JobStatus `json:"status"`
}

// Result is what a job produced: either output or an execution error.
type Result struct {
	Output string `json:"output,omitempty"`
	Err    string `json:"error,omitempty"`
}

// Failed reports whether the executor signalled an error for the job.
func (r Result) Failed() bool {
	return r.Err != ""
}

// Executor performs the actual work for a job type. A returned error is
// stored as the job's error result; it never causes a retry.
type Executor interface {
	Execute(ctx context.Context, jobType, input string) (string, error)
}

// TypeLister is implemented by executors that know which job types they serve.
type TypeLister interface {
	Types() []string
}

// JobSource is what a worker needs from the coordinator.
type JobSource interface {
	// Claim hands over the head of the pending queue, if any.
	Claim() (*Job, bool)
	// Complete records the result of a claimed job.
	Complete(job *Job, result Result)
	// Ready returns a channel closed on the next enqueue. Callers must fetch
	// it before calling Claim so that no wakeup is lost.
	Ready() <-chan struct{}
}
