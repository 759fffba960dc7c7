package stackfile

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hupe1980/stackmesh/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleStack = `
stack:
  name: context-stack
  policies:
    parallel_init: true
    cascade_stop: false
    auto_restart: true
    max_attempts: 3
    initial_backoff: 250ms
  agents:
    - name: context_loader
      layer: 1
      description: Loads and validates the workspace context file.
      implementation:
        path: command:python agents/context_loader.py
      timeout: 30s
      inputs:
        - {name: raw_context, type: mapping, source: external:context_file}
      outputs:
        - {name: validated, type: mapping}
        - {name: metrics, type: mapping}
    - name: debriefer
      layer: 2
      implementation:
        path: anthropic:claude-sonnet-4-5
      inputs:
        - {name: context, type: mapping, source: context_loader.validated}
        - {name: sessions, type: list, source: external:session_log}
      outputs:
        - {name: insights, type: mapping}
  data_flow:
    - {from: context_loader.validated, to: debriefer.context, transform: identity}
`

func TestParse_Sample(t *testing.T) {
	decl, warnings, err := Parse([]byte(sampleStack))
	require.NoError(t, err)
	assert.Empty(t, warnings)

	assert.Equal(t, "context-stack", decl.Name)
	assert.True(t, decl.Policies.ParallelInit)
	assert.False(t, decl.Policies.CascadeStop)
	assert.True(t, decl.Policies.AutoRestart)
	assert.Equal(t, 3, decl.Policies.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, decl.Policies.InitialBackoff)

	require.Len(t, decl.Agents, 2)
	loader := decl.Agents[0]
	assert.Equal(t, "context_loader", loader.Name)
	assert.Equal(t, 1, loader.Layer)
	assert.Equal(t, 30*time.Second, loader.Timeout)
	assert.Equal(t, "command", loader.Implementation.Scheme())
	require.Len(t, loader.Inputs, 1)
	assert.True(t, loader.Inputs[0].IsExternal())
	assert.Equal(t, "context_file", loader.Inputs[0].ExternalID())

	debriefer := decl.Agents[1]
	agent, output, ok := debriefer.Inputs[0].ProducerRef()
	assert.True(t, ok)
	assert.Equal(t, "context_loader", agent)
	assert.Equal(t, "validated", output)

	require.Len(t, decl.DataFlow, 1)
	assert.Equal(t, "identity", decl.DataFlow[0].Transform)
}

func TestParse_UnrecognizedPolicyWarns(t *testing.T) {
	doc := `
stack:
  name: s
  policies:
    parallel_init: true
    hot_reload: true
    gpu_affinity: strict
  agents:
    - name: a
      outputs: [{name: out}]
`
	decl, warnings, err := Parse([]byte(doc))
	require.NoError(t, err)
	assert.True(t, decl.Policies.ParallelInit)
	assert.Equal(t, []string{
		`unrecognized policy "gpu_affinity" ignored`,
		`unrecognized policy "hot_reload" ignored`,
	}, warnings)
}

func TestParse_RequiredUnknownPolicy(t *testing.T) {
	doc := `
stack:
  name: s
  policies:
    require: [hot_reload]
  agents:
    - name: a
      outputs: [{name: out}]
`
	_, _, err := Parse([]byte(doc))
	var conflict *core.PolicyConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "hot_reload", conflict.Policy)
}

func TestParse_RequiredKnownPolicy(t *testing.T) {
	doc := `
stack:
  name: s
  policies:
    parallel_init: true
    require: [parallel_init, cascade_stop]
  agents:
    - name: a
      outputs: [{name: out}]
`
	_, warnings, err := Parse([]byte(doc))
	require.NoError(t, err)
	assert.Empty(t, warnings)
}

func TestParse_BadPolicyTypes(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"bool", "stack:\n  name: s\n  policies:\n    cascade_stop: maybe\n"},
		{"attempts", "stack:\n  name: s\n  policies:\n    max_attempts: 0\n"},
		{"backoff", "stack:\n  name: s\n  policies:\n    initial_backoff: soon\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Parse([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestParse_BadTimeout(t *testing.T) {
	doc := `
stack:
  name: s
  agents:
    - name: a
      timeout: forever
      outputs: [{name: out}]
`
	_, _, err := Parse([]byte(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `agent "a" has invalid timeout`)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stack.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleStack), 0o644))

	decl, _, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "context-stack", decl.Name)

	_, _, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
