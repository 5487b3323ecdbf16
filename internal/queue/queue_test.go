package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mtr002/job-system/internal/interfaces"
)

func job(id string) *interfaces.Job {
	return &interfaces.Job{ID: id, Type: "test"}
}

func TestPendingFIFO(t *testing.T) {
	p := NewPending()
	for _, id := range []string{"a", "b", "c"} {
		p.Push(job(id))
	}

	for _, want := range []string{"a", "b", "c"} {
		got, ok := p.Pop(nil)
		if !ok || got.ID != want {
			t.Fatalf("Pop() = %v, %v, want %s", got, ok, want)
		}
	}
	if _, ok := p.Pop(nil); ok {
		t.Error("Pop() on an empty queue reported a job")
	}
}

func TestPendingPopCallback(t *testing.T) {
	p := NewPending()
	p.Push(job("a"))

	var seen string
	p.Pop(func(j *interfaces.Job) {
		seen = j.ID
		if p.order.Len() != 0 {
			t.Error("callback ran before the job left the queue")
		}
	})
	if seen != "a" {
		t.Errorf("callback saw %q, want a", seen)
	}

	called := false
	p.Pop(func(*interfaces.Job) { called = true })
	if called {
		t.Error("callback ran for an empty queue")
	}
}

func TestPendingRemove(t *testing.T) {
	p := NewPending()
	p.Push(job("a"))
	p.Push(job("b"))
	p.Push(job("c"))

	if !p.Remove("b") {
		t.Fatal("Remove(b) = false")
	}
	if p.Remove("b") {
		t.Error("second Remove(b) = true")
	}
	if p.Contains("b") {
		t.Error("Contains(b) after Remove")
	}
	if p.Len() != 2 {
		t.Errorf("Len() = %d, want 2", p.Len())
	}

	first, _ := p.Pop(nil)
	second, _ := p.Pop(nil)
	if first.ID != "a" || second.ID != "c" {
		t.Errorf("order after Remove = %s, %s", first.ID, second.ID)
	}
	if p.Remove("a") {
		t.Error("Remove() of a popped job = true")
	}
}

func TestPendingReadyClosedOnPush(t *testing.T) {
	p := NewPending()
	ready := p.Ready()

	select {
	case <-ready:
		t.Fatal("Ready() closed before any Push")
	default:
	}

	p.Push(job("a"))
	select {
	case <-ready:
	case <-time.After(time.Second):
		t.Fatal("Ready() not closed by Push")
	}

	select {
	case <-p.Ready():
		t.Error("fresh Ready() channel already closed")
	default:
	}
}

func TestNotifierWakesAllWaiters(t *testing.T) {
	n := NewNotifier()
	const waiters = 5
	woke := make(chan struct{}, waiters)
	for i := 0; i < waiters; i++ {
		ch := n.C()
		go func() {
			<-ch
			woke <- struct{}{}
		}()
	}

	n.Broadcast()
	for i := 0; i < waiters; i++ {
		select {
		case <-woke:
		case <-time.After(time.Second):
			t.Fatalf("only %d of %d waiters woke", i, waiters)
		}
	}
}

func TestCompleted(t *testing.T) {
	c := NewCompleted()
	c.Push(job("a"))

	if !c.Contains("a") || c.Len() != 1 {
		t.Fatalf("Contains(a) = %v, Len() = %d", c.Contains("a"), c.Len())
	}
	if !c.Remove("a") {
		t.Error("Remove(a) = false")
	}
	if c.Remove("a") || c.Contains("a") {
		t.Error("job still present after Remove")
	}
}

func TestCompletedWaitUntil(t *testing.T) {
	c := NewCompleted()
	errc := make(chan error, 1)
	go func() {
		errc <- c.WaitUntil(context.Background(), func() bool { return c.Contains("b") })
	}()

	c.Push(job("a"))
	select {
	case err := <-errc:
		t.Fatalf("WaitUntil() returned %v before its condition held", err)
	case <-time.After(20 * time.Millisecond):
	}

	c.Push(job("b"))
	select {
	case err := <-errc:
		if err != nil {
			t.Errorf("WaitUntil() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("WaitUntil() did not wake on Push")
	}
}

func TestCompletedWaitUntilContext(t *testing.T) {
	c := NewCompleted()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := c.WaitUntil(ctx, func() bool { return false })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("WaitUntil() error = %v, want deadline exceeded", err)
	}
}
