package queue

import (
	"context"
	"sync"

	"github.com/mtr002/job-system/internal/interfaces"
)

// Completed holds finished jobs until they are cancelled or the process
// exits. Waiters are woken whenever a job is added.
type Completed struct {
	mu     sync.Mutex
	jobs   map[string]*interfaces.Job
	notify *Notifier
}

func NewCompleted() *Completed {
	return &Completed{
		jobs:   make(map[string]*interfaces.Job),
		notify: NewNotifier(),
	}
}

func (c *Completed) Push(job *interfaces.Job) {
	c.mu.Lock()
	c.jobs[job.ID] = job
	c.mu.Unlock()
	c.notify.Broadcast()
}

func (c *Completed) Contains(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.jobs[id]
	return ok
}

// Remove drops a finished job, reporting whether it was present.
func (c *Completed) Remove(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.jobs[id]; !ok {
		return false
	}
	delete(c.jobs, id)
	return true
}

func (c *Completed) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.jobs)
}

// WaitUntil blocks until done reports true or ctx is done. done is checked
// initially and after every Push. There is no timeout of its own.
func (c *Completed) WaitUntil(ctx context.Context, done func() bool) error {
	for {
		ch := c.notify.C()
		if done() {
			return nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
