package history

import (
	"bufio"
	"fmt"
	"io"
	"sync"

	"github.com/mtr002/job-system/internal/interfaces"
)

// Log is an append-only record of status transitions. Entries keep their
// append order for dumps; the latest status per id is indexed separately.
type Log struct {
	mu      sync.RWMutex
	entries []interfaces.HistoryEntry
	latest  map[string]interfaces.JobStatus
}

func NewLog() *Log {
	return &Log{latest: make(map[string]interfaces.JobStatus)}
}

// Append records a transition.
func (l *Log) Append(jobID string, status interfaces.JobStatus) interfaces.HistoryEntry {
	entry := interfaces.HistoryEntry{JobID: jobID, Status: status}
	l.mu.Lock()
	l.entries = append(l.entries, entry)
	l.latest[jobID] = status
	l.mu.Unlock()
	return entry
}

// Latest returns the most recent status recorded for jobID, or
// StatusNeverSeen if the id has no entries.
func (l *Log) Latest(jobID string) interfaces.JobStatus {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if status, ok := l.latest[jobID]; ok {
		return status
	}
	return interfaces.StatusNeverSeen
}

// Entries returns a copy of the log in append order.
func (l *Log) Entries() []interfaces.HistoryEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]interfaces.HistoryEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// WriteTo writes one "JobId: <id> JobStatus: <n>" line per entry.
func (l *Log) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var written int64
	for _, e := range l.Entries() {
		n, err := fmt.Fprintf(bw, "JobId: %s JobStatus: %d\n", e.JobID, int(e.Status))
		written += int64(n)
		if err != nil {
			return written, err
		}
	}
	return written, bw.Flush()
}
