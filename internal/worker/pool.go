package worker

import (
	"context"
	"errors"
	"sync"

	"github.com/mtr002/job-system/internal/interfaces"
	"github.com/mtr002/job-system/internal/logger"
	"github.com/mtr002/job-system/internal/metrics"
)

// ErrPoolClosed is returned by Add after Shutdown.
var ErrPoolClosed = errors.New("worker pool is shut down")

// Pool owns a growing set of workers and joins them on Shutdown.
type Pool struct {
	mu      sync.Mutex
	workers []*Worker
	closed  bool
	wg      sync.WaitGroup
}

// NewPool creates an empty pool. Workers are added one at a time with Add.
func NewPool() *Pool {
	return &Pool{}
}

// Add creates a worker and starts it in its own goroutine.
func (p *Pool) Add(ctx context.Context, id string, source interfaces.JobSource, executor interfaces.Executor) (*Worker, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrPoolClosed
	}

	w := New(id, source, executor)
	p.workers = append(p.workers, w)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		w.Run(ctx)
	}()

	metrics.Workers.Set(float64(len(p.workers)))
	return w, nil
}

// Workers returns a snapshot of the registered workers.
func (p *Pool) Workers() []*Worker {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*Worker, len(p.workers))
	copy(out, p.workers)
	return out
}

func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.workers)
}

// Busy counts workers currently claiming or holding a job.
func (p *Pool) Busy() int {
	n := 0
	for _, w := range p.Workers() {
		if w.IsBusy() {
			n++
		}
	}
	return n
}

func (p *Pool) AnyBusy() bool {
	for _, w := range p.Workers() {
		if w.IsBusy() {
			return true
		}
	}
	return false
}

// Shutdown signals every worker and waits for all of them to stop. Jobs
// already executing run to completion first. Only ctx bounds the wait.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	workers := make([]*Worker, len(p.workers))
	copy(workers, p.workers)
	p.mu.Unlock()

	logger.Logger.Info().Int("worker_count", len(workers)).Msg("Stopping worker pool")
	for _, w := range workers {
		w.Shutdown()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		metrics.Workers.Set(0)
		logger.Logger.Info().Msg("Worker pool stopped")
		return nil
	case <-ctx.Done():
		logger.Logger.Warn().Msg("Worker pool shutdown interrupted before all workers stopped")
		return ctx.Err()
	}
}
