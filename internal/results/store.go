package results

import (
	"sync"

	"github.com/mtr002/job-system/internal/interfaces"
)

// Store keeps the result of every completed job, keyed by job id.
type Store struct {
	mu      sync.RWMutex
	results map[string]interfaces.Result
}

func NewStore() *Store {
	return &Store{results: make(map[string]interfaces.Result)}
}

// Put stores the result for jobID. Results are write-once: a second Put for
// the same id is ignored and reports false.
func (s *Store) Put(jobID string, result interfaces.Result) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.results[jobID]; exists {
		return false
	}
	s.results[jobID] = result
	return true
}

func (s *Store) Get(jobID string) (interfaces.Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.results[jobID]
	return r, ok
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.results)
}
