package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationErrors_Error(t *testing.T) {
	errs := ValidationErrors{
		{Agent: "debriefer", Reason: "duplicate agent name"},
		{Reason: "stack name is empty"},
	}
	assert.Contains(t, errs.Error(), `agent "debriefer"`)
	assert.Contains(t, errs.Error(), "stack name is empty")
}

func TestValidationErrors_Agents(t *testing.T) {
	errs := ValidationErrors{
		{Agent: "b", Reason: "x"},
		{Agent: "a", Reason: "y"},
		{Agent: "b", Reason: "z"},
		{Reason: "stack-level"},
	}
	assert.Equal(t, []string{"b", "a"}, errs.Agents())
}

func TestCycleError_Error(t *testing.T) {
	err := &CycleError{Path: []string{"a", "b", "c", "a"}}
	assert.Equal(t, "dependency cycle: a -> b -> c -> a", err.Error())
}

func TestExecutionError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := &ExecutionError{Agent: "debriefer", Attempts: 3, Err: cause}
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "after 3 attempts")

	timeout := &ExecutionError{Agent: "debriefer", Attempts: 1, TimedOut: true, Err: cause}
	assert.Contains(t, timeout.Error(), "timed out")
}

func TestUnknownReferenceError_Error(t *testing.T) {
	err := &UnknownReferenceError{Agent: "debriefer", Input: "context", Source: "loader.validated"}
	assert.Contains(t, err.Error(), `"loader.validated"`)
	assert.Contains(t, err.Error(), `"debriefer"`)
}
