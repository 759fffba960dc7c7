package core

import "time"

// Status is the lifecycle state of one agent within a planning pass.
//
// Transitions: pending -> running -> {succeeded, failed};
// succeeded -> stale (when propagation marks the agent dirty) -> running.
type Status string

const (
	// StatusPending means the agent has not been scheduled yet.
	StatusPending Status = "pending"
	// StatusRunning means the agent's implementation is currently executing.
	StatusRunning Status = "running"
	// StatusSucceeded means the last invocation completed and produced outputs.
	StatusSucceeded Status = "succeeded"
	// StatusFailed means the agent failed terminally (or was skipped because
	// an upstream producer failed).
	StatusFailed Status = "failed"
	// StatusStale means a previously succeeded agent was marked dirty by
	// change propagation and must re-run.
	StatusStale Status = "stale"
)

// Terminal reports whether the status ends an agent's participation in the
// current planning pass.
func (s Status) Terminal() bool { return s == StatusSucceeded || s == StatusFailed }

// canTransition encodes the legal state machine edges.
var canTransition = map[Status][]Status{
	StatusPending:   {StatusRunning, StatusFailed},
	StatusRunning:   {StatusSucceeded, StatusFailed},
	StatusSucceeded: {StatusStale},
	StatusStale:     {StatusRunning, StatusFailed},
}

// CanTransition reports whether moving from s to next is a legal state
// machine edge.
func (s Status) CanTransition(next Status) bool {
	for _, t := range canTransition[s] {
		if t == next {
			return true
		}
	}
	return false
}

// RunState is the per-agent execution record. It is owned exclusively by the
// run coordinator: only the coordinator mutates it, the change-propagation
// engine reads it.
type RunState struct {
	Status      Status    `json:"status"`
	LastOutputs Values    `json:"last_outputs,omitempty"`
	LastRun     time.Time `json:"last_run,omitempty"`
	Attempts    int       `json:"attempts"`
	Skipped     bool      `json:"skipped"`
	Err         error     `json:"-"`
}

// Clone returns a deep copy safe for external inspection.
func (s RunState) Clone() RunState {
	c := s
	c.LastOutputs = s.LastOutputs.Clone()
	return c
}
