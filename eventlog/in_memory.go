package eventlog

import (
	"sync"

	"github.com/hupe1980/stackmesh/core"
)

// InMemoryLog is a volatile RunLog implementation storing records in a
// process local slice. It is safe for concurrent access and best suited for
// tests or ephemeral runs. Returned slices are copies to prevent external
// mutation of internal state.
type InMemoryLog struct {
	mu      sync.RWMutex
	records []core.RunRecord
}

// NewInMemoryLog constructs an empty in-memory run log.
func NewInMemoryLog() *InMemoryLog {
	return &InMemoryLog{}
}

// Append stores a record in arrival order.
func (l *InMemoryLog) Append(rec core.RunRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, rec)
	return nil
}

// Records returns the records for a run (or all records for an empty runID)
// as a defensive copy in append order.
func (l *InMemoryLog) Records(runID string) ([]core.RunRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []core.RunRecord
	for _, rec := range l.records {
		if runID == "" || rec.RunID == runID {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Len returns the total number of stored records.
func (l *InMemoryLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}
