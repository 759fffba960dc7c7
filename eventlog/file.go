package eventlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/hupe1980/stackmesh/core"
)

// FileLog is an append-only RunLog backed by a JSON Lines file: one record
// per line, timestamp-ordered by append time. The file is opened with
// O_APPEND so records survive process restarts, giving later stacks (and
// analysis agents reading the session history) a durable handoff surface.
type FileLog struct {
	mu   sync.Mutex
	path string
	f    *os.File
}

// OpenFileLog opens (or creates) the log file at path for appending.
func OpenFileLog(path string) (*FileLog, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("eventlog: open %q: %w", path, err)
	}
	return &FileLog{path: path, f: f}, nil
}

// Append serializes the record as one JSON line and flushes it to disk.
func (l *FileLog) Append(rec core.RunRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("eventlog: marshal record %s: %w", rec.ID, err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.f.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("eventlog: append to %q: %w", l.path, err)
	}
	return nil
}

// Records re-reads the file and returns the records for a run (or all
// records for an empty runID) in append order. Unparseable lines are
// reported rather than silently skipped.
func (l *FileLog) Records(runID string) ([]core.RunRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("eventlog: open %q: %w", l.path, err)
	}
	defer f.Close()

	var out []core.RunRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var rec core.RunRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			return nil, fmt.Errorf("eventlog: %q line %d: %w", l.path, line, err)
		}
		if runID == "" || rec.RunID == runID {
			out = append(out, rec)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("eventlog: scan %q: %w", l.path, err)
	}
	return out, nil
}

// Close closes the underlying file.
func (l *FileLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.f.Close()
}
