package queue

import (
	"container/list"
	"sync"

	"github.com/mtr002/job-system/internal/interfaces"
)

// Pending is the FIFO of jobs waiting to be claimed. A job popped from it
// is no longer reachable through it, so a claim transfers ownership.
type Pending struct {
	mu     sync.Mutex
	order  *list.List
	byID   map[string]*list.Element
	notify *Notifier
}

func NewPending() *Pending {
	return &Pending{
		order:  list.New(),
		byID:   make(map[string]*list.Element),
		notify: NewNotifier(),
	}
}

// Push appends a job and wakes waiting workers.
func (p *Pending) Push(job *interfaces.Job) {
	p.mu.Lock()
	p.byID[job.ID] = p.order.PushBack(job)
	p.mu.Unlock()
	p.notify.Broadcast()
}

// Pop removes and returns the oldest job. onPop runs under the queue lock,
// before any other claimer can observe the queue again.
func (p *Pending) Pop(onPop func(*interfaces.Job)) (*interfaces.Job, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	front := p.order.Front()
	if front == nil {
		return nil, false
	}
	job := p.order.Remove(front).(*interfaces.Job)
	delete(p.byID, job.ID)
	if onPop != nil {
		onPop(job)
	}
	return job, true
}

// Remove drops the job with the given id, reporting whether it was queued.
func (p *Pending) Remove(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	el, ok := p.byID[id]
	if !ok {
		return false
	}
	p.order.Remove(el)
	delete(p.byID, id)
	return true
}

func (p *Pending) Contains(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.byID[id]
	return ok
}

func (p *Pending) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.order.Len()
}

// Ready returns a channel closed on the next Push.
func (p *Pending) Ready() <-chan struct{} {
	return p.notify.C()
}
