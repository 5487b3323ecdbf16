package jobs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/mtr002/job-system/internal/history"
	"github.com/mtr002/job-system/internal/interfaces"
	"github.com/mtr002/job-system/internal/logger"
	"github.com/mtr002/job-system/internal/metrics"
	"github.com/mtr002/job-system/internal/queue"
	"github.com/mtr002/job-system/internal/results"
	"github.com/mtr002/job-system/internal/worker"
)

// ErrShutdown is returned by CreateWorker once the manager has been shut down.
var ErrShutdown = errors.New("job system is shut down")

const defaultDrainInterval = 10 * time.Millisecond

// Stats is a point-in-time view of the manager's collections.
type Stats struct {
	Pending        int `json:"pending"`
	Completed      int `json:"completed"`
	Workers        int `json:"workers"`
	BusyWorkers    int `json:"busy_workers"`
	HistoryEntries int `json:"history_entries"`
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithObserver registers a callback invoked after every status transition.
// Callbacks run on the goroutine that caused the transition and must not
// block for long.
func WithObserver(fn func(interfaces.HistoryEntry)) ManagerOption {
	return func(m *Manager) { m.observers = append(m.observers, fn) }
}

// WithDrainInterval sets how often Drain re-checks for active work.
func WithDrainInterval(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.drainInterval = d
		}
	}
}

// Manager owns the pending and completed queues, the history log, the
// result store and the worker pool. One Manager is shared by all producers
// and workers of a process; it must be fully constructed before the first
// worker is created.
type Manager struct {
	executor  interfaces.Executor
	pending   *queue.Pending
	completed *queue.Completed
	history   *history.Log
	results   *results.Store
	pool      *worker.Pool

	observers     []func(interfaces.HistoryEntry)
	drainInterval time.Duration
}

// NewManager creates a job manager that runs jobs through executor.
func NewManager(executor interfaces.Executor, opts ...ManagerOption) *Manager {
	m := &Manager{
		executor:      executor,
		pending:       queue.NewPending(),
		completed:     queue.NewCompleted(),
		history:       history.NewLog(),
		results:       results.NewStore(),
		pool:          worker.NewPool(),
		drainInterval: defaultDrainInterval,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CreateWorker adds one worker to the pool and starts it.
func (m *Manager) CreateWorker() (string, error) {
	id := uuid.NewString()
	if _, err := m.pool.Add(context.Background(), id, m, m.executor); err != nil {
		if errors.Is(err, worker.ErrPoolClosed) {
			return "", ErrShutdown
		}
		return "", fmt.Errorf("failed to create worker: %w", err)
	}
	logger.Logger.Info().Str("worker_id", id).Int("worker_count", m.pool.Len()).Msg("Worker created")
	return id, nil
}

// Enqueue creates a job and appends it to the pending queue.
func (m *Manager) Enqueue(jobType, input string) string {
	job := NewJob(jobType, input)

	m.record(job.ID, interfaces.StatusQueued)
	m.pending.Push(job)

	metrics.JobsEnqueuedTotal.Inc()
	metrics.PendingJobs.Set(float64(m.pending.Len()))
	log := logger.WithJobID(job.ID)
	log.Debug().Str("type", job.Type).Msg("Job enqueued")
	return job.ID
}

// Claim removes the oldest pending job and hands it to the caller. At most
// one caller ever receives a given job.
func (m *Manager) Claim() (*interfaces.Job, bool) {
	var entry interfaces.HistoryEntry
	job, ok := m.pending.Pop(func(j *interfaces.Job) {
		entry = m.history.Append(j.ID, interfaces.StatusRunning)
	})
	if !ok {
		return nil, false
	}
	m.notify(entry)

	metrics.JobsClaimedTotal.Inc()
	metrics.PendingJobs.Set(float64(m.pending.Len()))
	return job, true
}

// Ready returns a channel that is closed on the next Enqueue.
func (m *Manager) Ready() <-chan struct{} {
	return m.pending.Ready()
}

// Complete stores the result of a claimed job and moves it to the completed
// collection. The result and the COMPLETED entry are written before the job
// becomes visible through IsComplete.
func (m *Manager) Complete(job *interfaces.Job, result interfaces.Result) {
	if !m.results.Put(job.ID, result) {
		log := logger.WithJobID(job.ID)
		log.Warn().Msg("Result already recorded, keeping the first one")
	}
	m.record(job.ID, interfaces.StatusCompleted)
	m.completed.Push(job)

	metrics.JobsCompletedTotal.Inc()
	if result.Failed() {
		metrics.JobsFailedTotal.Inc()
	}
	log := logger.WithJobID(job.ID)
	log.Debug().Bool("failed", result.Failed()).Msg("Job completed")
}

// IsComplete reports whether the job is in the completed collection.
func (m *Manager) IsComplete(id string) bool {
	return m.completed.Contains(id)
}

// Status returns the most recent status recorded for id.
func (m *Manager) Status(id string) interfaces.JobStatus {
	return m.history.Latest(id)
}

// Result returns the stored result for a completed job.
func (m *Manager) Result(id string) (interfaces.Result, bool) {
	return m.results.Get(id)
}

// History returns the full status history in append order.
func (m *Manager) History() []interfaces.HistoryEntry {
	return m.history.Entries()
}

// HasActiveWork reports whether jobs are pending or any worker is busy.
func (m *Manager) HasActiveWork() bool {
	return m.pending.Len() > 0 || m.pool.AnyBusy()
}

// Drain waits until HasActiveWork reports false. With no workers and a
// non-empty queue it waits until ctx is done.
func (m *Manager) Drain(ctx context.Context) error {
	if !m.HasActiveWork() {
		return nil
	}

	ticker := time.NewTicker(m.drainInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if !m.HasActiveWork() {
				return nil
			}
		}
	}
}

// Wait blocks until the job has been recorded as COMPLETED. Cancel does not
// clear history or results, so a job cancelled after completing still
// satisfies the wait. It does not time out on its own.
func (m *Manager) Wait(ctx context.Context, id string) (interfaces.Result, error) {
	err := m.completed.WaitUntil(ctx, func() bool {
		return m.history.Latest(id) == interfaces.StatusCompleted
	})
	if err != nil {
		return interfaces.Result{}, fmt.Errorf("waiting for job %s: %w", id, err)
	}
	result, _ := m.results.Get(id)
	return result, nil
}

// RunSynchronously enqueues a job and waits for its result. If no worker
// ever claims the job, it blocks until ctx is done.
func (m *Manager) RunSynchronously(ctx context.Context, jobType, input string) (interfaces.Result, error) {
	return m.Wait(ctx, m.Enqueue(jobType, input))
}

// Cancel removes a job that is still pending or already completed. Jobs
// held by a worker, and unknown ids, are ignored.
func (m *Manager) Cancel(id string) {
	log := logger.WithJobID(id)
	switch {
	case m.pending.Remove(id):
		metrics.JobsCancelledTotal.Inc()
		metrics.PendingJobs.Set(float64(m.pending.Len()))
		log.Debug().Msg("Pending job cancelled")
	case m.completed.Remove(id):
		metrics.JobsCancelledTotal.Inc()
		log.Debug().Msg("Completed job removed")
	default:
		log.Debug().Msg("Cancel ignored, job not pending or completed")
	}
}

// DumpHistory writes the history log to w, one line per entry.
func (m *Manager) DumpHistory(w io.Writer) error {
	if _, err := m.history.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}
	return nil
}

// DumpHistoryToFile writes the history log to path, replacing any file there.
func (m *Manager) DumpHistoryToFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create history file: %w", err)
	}
	if err := m.DumpHistory(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close history file: %w", err)
	}
	return nil
}

// ListJobTypes returns the job types the executor knows about.
func (m *Manager) ListJobTypes() []string {
	if tl, ok := m.executor.(interfaces.TypeLister); ok {
		return tl.Types()
	}
	return []string{}
}

func (m *Manager) Stats() Stats {
	return Stats{
		Pending:        m.pending.Len(),
		Completed:      m.completed.Len(),
		Workers:        m.pool.Len(),
		BusyWorkers:    m.pool.Busy(),
		HistoryEntries: m.history.Len(),
	}
}

// Shutdown signals every worker and waits for them to finish their current
// job. Calling it again only waits.
func (m *Manager) Shutdown(ctx context.Context) error {
	if err := m.pool.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to stop workers: %w", err)
	}
	return nil
}

func (m *Manager) record(jobID string, status interfaces.JobStatus) {
	m.notify(m.history.Append(jobID, status))
}

func (m *Manager) notify(entry interfaces.HistoryEntry) {
	for _, fn := range m.observers {
		fn(entry)
	}
}
