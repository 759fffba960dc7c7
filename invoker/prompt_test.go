package invoker

import (
	"testing"

	"github.com/hupe1980/stackmesh/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPrompt(t *testing.T) {
	agent := core.AgentSpec{
		Name:        "debriefer",
		Description: "Summarize the working session.",
		Outputs: []core.OutputSpec{
			{Name: "summary", Type: "text"},
			{Name: "highlights"},
		},
	}

	system, user, err := BuildPrompt(agent, core.Values{"transcript": "we shipped v2"})
	require.NoError(t, err)

	assert.Contains(t, system, "Summarize the working session.")
	assert.Contains(t, system, `"summary" (text)`)
	assert.Contains(t, system, `"highlights"`)
	assert.Contains(t, user, "we shipped v2")
}

func TestParseOutputsJSON(t *testing.T) {
	agent := core.AgentSpec{
		Name:    "debriefer",
		Outputs: []core.OutputSpec{{Name: "summary"}, {Name: "highlights"}},
	}

	reply := "Here you go:\n```json\n{\"summary\": \"done\", \"highlights\": [\"v2\"]}\n```"

	outputs, err := ParseOutputs(agent, reply)
	require.NoError(t, err)
	assert.Equal(t, "done", outputs["summary"])
}

func TestParseOutputsSingleOutputFallback(t *testing.T) {
	agent := core.AgentSpec{
		Name:    "writer",
		Outputs: []core.OutputSpec{{Name: "text"}},
	}

	outputs, err := ParseOutputs(agent, "just prose, no JSON")
	require.NoError(t, err)
	assert.Equal(t, "just prose, no JSON", outputs["text"])
}

func TestParseOutputsNoJSONMultiOutput(t *testing.T) {
	agent := core.AgentSpec{
		Name:    "multi",
		Outputs: []core.OutputSpec{{Name: "a"}, {Name: "b"}},
	}

	_, err := ParseOutputs(agent, "no object here")
	require.Error(t, err)
}
