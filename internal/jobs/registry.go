package jobs

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// HandlerFunc runs a single job of a registered type.
type HandlerFunc func(ctx context.Context, input string) (string, error)

// Registry maps job types to handlers and is the default Executor.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]HandlerFunc)}
}

// Register adds or replaces the handler for jobType.
func (r *Registry) Register(jobType string, fn HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[jobType] = fn
}

// Types returns the registered job types in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		types = append(types, name)
	}
	sort.Strings(types)
	return types
}

// Execute dispatches to the handler registered for jobType.
func (r *Registry) Execute(ctx context.Context, jobType, input string) (string, error) {
	r.mu.RLock()
	fn, ok := r.handlers[jobType]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("unknown job type: %s", jobType)
	}
	return fn(ctx, input)
}
