package coordinator

import (
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/stackmesh/core"
)

// Outcome is the final per-agent result of one coordinator pass.
type Outcome struct {
	Agent    string      `json:"agent"`
	Status   core.Status `json:"status"`
	Attempts int         `json:"attempts"`
	Skipped  bool        `json:"skipped"`
	Err      error       `json:"-"`
}

// Report summarizes one coordinator pass. Outcomes are ordered by the plan's
// flattened execution order.
type Report struct {
	RunID    string    `json:"run_id"`
	Stack    string    `json:"stack"`
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`
	Outcomes []Outcome `json:"outcomes"`

	// Succeeded is true when every agent in the stack ended the pass in the
	// succeeded state.
	Succeeded bool `json:"succeeded"`
}

// Outcome returns the outcome for a named agent.
func (r *Report) Outcome(name string) (Outcome, bool) {
	for _, o := range r.Outcomes {
		if o.Agent == name {
			return o, true
		}
	}

	return Outcome{}, false
}

// Failed returns the agents whose implementation actually failed, excluding
// the ones skipped by cascade_stop.
func (r *Report) Failed() []string {
	var out []string

	for _, o := range r.Outcomes {
		if o.Status == core.StatusFailed && !o.Skipped {
			out = append(out, o.Agent)
		}
	}

	return out
}

// SkippedAgents returns the agents transitioned to failed without execution.
func (r *Report) SkippedAgents() []string {
	var out []string

	for _, o := range r.Outcomes {
		if o.Skipped {
			out = append(out, o.Agent)
		}
	}

	return out
}

// String renders a compact one-line-per-agent summary.
func (r *Report) String() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "run %s stack=%s succeeded=%t\n", r.RunID, r.Stack, r.Succeeded)

	for _, o := range r.Outcomes {
		status := string(o.Status)
		if o.Skipped {
			status += " (skipped)"
		}

		fmt.Fprintf(&sb, "  %-24s %s attempts=%d\n", o.Agent, status, o.Attempts)
	}

	return sb.String()
}

// buildReport snapshots the run states into a Report.
func (c *Coordinator) buildReport(runID string, started time.Time) *Report {
	c.mu.Lock()
	defer c.mu.Unlock()

	rep := &Report{
		RunID:     runID,
		Stack:     c.g.Name(),
		Started:   started,
		Finished:  time.Now().UTC(),
		Succeeded: true,
	}

	for _, name := range c.p.Flatten() {
		st := c.states[name]

		rep.Outcomes = append(rep.Outcomes, Outcome{
			Agent:    name,
			Status:   st.Status,
			Attempts: st.Attempts,
			Skipped:  st.Skipped,
			Err:      st.Err,
		})

		if st.Status != core.StatusSucceeded {
			rep.Succeeded = false
		}
	}

	return rep
}
