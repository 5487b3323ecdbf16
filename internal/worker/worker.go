package worker

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mtr002/job-system/internal/interfaces"
	"github.com/mtr002/job-system/internal/logger"
	"github.com/mtr002/job-system/internal/metrics"
)

// State is the position of a worker in its claim/execute/complete cycle.
type State int32

const (
	StateIdle State = iota
	StateClaiming
	StateExecuting
	StateCompleting
	StateShuttingDown
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateClaiming:
		return "claiming"
	case StateExecuting:
		return "executing"
	case StateCompleting:
		return "completing"
	case StateShuttingDown:
		return "shutting_down"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Worker repeatedly claims a job from its source, runs it through the
// executor and reports the result. Shutdown is cooperative: it is only
// observed before claiming, so a job that is executing always completes.
type Worker struct {
	id       string
	source   interfaces.JobSource
	executor interfaces.Executor

	state   atomic.Int32
	busy    atomic.Bool
	stopped atomic.Bool

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// New creates a worker. It does nothing until Run is called.
func New(id string, source interfaces.JobSource, executor interfaces.Executor) *Worker {
	return &Worker{
		id:       id,
		source:   source,
		executor: executor,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (w *Worker) ID() string { return w.id }

func (w *Worker) State() State { return State(w.state.Load()) }

// IsBusy reports whether the worker is claiming or holding a job. It is a
// liveness hint and may be stale by the time the caller looks at it.
func (w *Worker) IsBusy() bool { return w.busy.Load() }

// IsShutDown reports whether the worker has left its loop for good.
func (w *Worker) IsShutDown() bool { return w.stopped.Load() }

// Done is closed once the worker has stopped.
func (w *Worker) Done() <-chan struct{} { return w.done }

// Shutdown asks the worker to stop at its next claim. It does not wait.
func (w *Worker) Shutdown() {
	w.stopOnce.Do(func() { close(w.stop) })
}

func (w *Worker) stopping() bool {
	select {
	case <-w.stop:
		return true
	default:
		return false
	}
}

func (w *Worker) setState(s State) { w.state.Store(int32(s)) }

// Run is the worker loop. Cancelling ctx does not stop the worker; only
// Shutdown does. ctx values are passed on to the executor.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	execCtx := context.WithoutCancel(ctx)
	log := logger.WithWorkerID(w.id)
	log.Info().Msg("Worker started")

	for {
		if w.stopping() {
			w.setState(StateShuttingDown)
			break
		}

		w.setState(StateClaiming)
		w.busy.Store(true)
		ready := w.source.Ready()
		job, ok := w.source.Claim()
		if !ok {
			w.busy.Store(false)
			w.setState(StateIdle)
			select {
			case <-ready:
			case <-w.stop:
			}
			continue
		}

		metrics.BusyWorkers.Inc()
		w.process(execCtx, job)
		metrics.BusyWorkers.Dec()
		w.busy.Store(false)
		w.setState(StateIdle)
	}

	w.stopped.Store(true)
	w.setState(StateStopped)
	log.Info().Msg("Worker stopped")
}

func (w *Worker) process(ctx context.Context, job *interfaces.Job) {
	w.setState(StateExecuting)
	logger.Logger.Debug().
		Str("worker_id", w.id).
		Str("job_id", job.ID).
		Str("type", job.Type).
		Msg("Processing job")

	startTime := time.Now()
	result := w.execute(ctx, job)
	metrics.JobProcessingDuration.Observe(time.Since(startTime).Seconds())

	if result.Failed() {
		logger.Logger.Warn().
			Str("worker_id", w.id).
			Str("job_id", job.ID).
			Str("error", result.Err).
			Msg("Job finished with error")
	}

	w.setState(StateCompleting)
	w.source.Complete(job, result)
}

func (w *Worker) execute(ctx context.Context, job *interfaces.Job) (result interfaces.Result) {
	defer func() {
		if r := recover(); r != nil {
			logger.Logger.Error().
				Str("worker_id", w.id).
				Str("job_id", job.ID).
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("Job executor panicked")
			result = interfaces.Result{Err: fmt.Sprintf("panic in job %s: %v", job.Type, r)}
		}
	}()

	output, err := w.executor.Execute(ctx, job.Type, job.Input)
	if err != nil {
		return interfaces.Result{Err: err.Error()}
	}
	return interfaces.Result{Output: output}
}
