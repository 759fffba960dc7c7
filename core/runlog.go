package core

import (
	"time"

	"github.com/google/uuid"
)

// RecordKind categorizes run log records.
type RecordKind string

const (
	// RecordRunStarted marks the beginning of a coordinator pass.
	RecordRunStarted RecordKind = "run_started"
	// RecordRunFinished marks the end of a coordinator pass.
	RecordRunFinished RecordKind = "run_finished"
	// RecordAgentStarted marks the start of one agent invocation attempt.
	RecordAgentStarted RecordKind = "agent_started"
	// RecordAgentSucceeded marks a successful agent invocation.
	RecordAgentSucceeded RecordKind = "agent_succeeded"
	// RecordAgentFailed marks a terminally failed agent invocation.
	RecordAgentFailed RecordKind = "agent_failed"
	// RecordAgentRetried marks a failed attempt that will be retried.
	RecordAgentRetried RecordKind = "agent_retried"
	// RecordAgentSkipped marks an agent transitioned to failed without
	// execution because an upstream producer failed.
	RecordAgentSkipped RecordKind = "agent_skipped"
)

// RunRecord is one entry in the append-only, timestamp-ordered run log. After
// emission it should be treated as immutable. Downstream analysis agents read
// records through the RunLog interface; the coordinator is the only writer.
type RunRecord struct {
	ID        string     `json:"id"`
	RunID     string     `json:"run_id"`
	Stack     string     `json:"stack"`
	Agent     string     `json:"agent,omitempty"`
	Kind      RecordKind `json:"kind"`
	Attempt   int        `json:"attempt,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
	Outputs   Values     `json:"outputs,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// NewRunRecord creates a record bound to a run with a fresh ID and a high
// precision UTC timestamp.
func NewRunRecord(runID, stack, agent string, kind RecordKind) RunRecord {
	return RunRecord{
		ID:        NewID(),
		RunID:     runID,
		Stack:     stack,
		Agent:     agent,
		Kind:      kind,
		Timestamp: time.Now().UTC(),
	}
}

// NewID generates a new unique identifier for runs and records.
func NewID() string { return uuid.NewString() }

// RunLog persists run records in append order. Implementations must be safe
// for concurrent appends from agents running within the same tier.
type RunLog interface {
	// Append stores a record. Records are never mutated or deleted.
	Append(rec RunRecord) error

	// Records returns all records for a run in append order. An empty runID
	// returns every record the store holds.
	Records(runID string) ([]RunRecord, error)
}
