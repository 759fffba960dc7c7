package core

import (
	"fmt"
	"strings"
)

// ValidationError describes a single structural problem in a stack
// declaration. Agent is empty for stack-level problems. Structural errors are
// always fatal to the validation pass; a declaration is never partially
// applied.
type ValidationError struct {
	Agent  string
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Agent == "" {
		return fmt.Sprintf("validation: %s", e.Reason)
	}
	return fmt.Sprintf("validation: agent %q: %s", e.Agent, e.Reason)
}

// ValidationErrors aggregates every problem found in one validation pass so
// callers can surface all of them at once instead of fixing declarations one
// error at a time.
type ValidationErrors []*ValidationError

// Error implements the error interface by joining the individual messages.
func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, ve := range e {
		msgs[i] = ve.Error()
	}
	return strings.Join(msgs, "; ")
}

// Agents returns the deduplicated list of offending agent names in first-seen
// order. Stack-level errors contribute no name.
func (e ValidationErrors) Agents() []string {
	seen := map[string]bool{}
	var names []string
	for _, ve := range e {
		if ve.Agent == "" || seen[ve.Agent] {
			continue
		}
		seen[ve.Agent] = true
		names = append(names, ve.Agent)
	}
	return names
}

// UnknownReferenceError reports an input whose source does not resolve to a
// declared producer output or external source.
type UnknownReferenceError struct {
	Agent  string
	Input  string
	Source string
}

// Error implements the error interface.
func (e *UnknownReferenceError) Error() string {
	return fmt.Sprintf("unknown reference: agent %q input %q references %q which does not resolve", e.Agent, e.Input, e.Source)
}

// CycleError reports a dependency cycle. Path holds the ordered agent names
// forming the cycle, with the first name repeated at the end so the message
// reads as a closed loop.
type CycleError struct {
	Path []string
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle: %s", strings.Join(e.Path, " -> "))
}

// ExecutionError reports the terminal failure of a single agent invocation,
// after retries (if any) were exhausted. TimedOut marks expiry of the agent's
// time budget, which is treated identically to a reported failure.
type ExecutionError struct {
	Agent    string
	Attempts int
	TimedOut bool
	Err      error
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	cause := "failed"
	if e.TimedOut {
		cause = "timed out"
	}
	if e.Attempts > 1 {
		return fmt.Sprintf("agent %q %s after %d attempts: %v", e.Agent, cause, e.Attempts, e.Err)
	}
	return fmt.Sprintf("agent %q %s: %v", e.Agent, cause, e.Err)
}

// Unwrap exposes the underlying invocation error.
func (e *ExecutionError) Unwrap() error { return e.Err }

// PolicyConflictError reports a policy the stack requires but this runtime
// does not recognize.
type PolicyConflictError struct {
	Policy string
}

// Error implements the error interface.
func (e *PolicyConflictError) Error() string {
	return fmt.Sprintf("policy conflict: required policy %q is not recognized", e.Policy)
}
