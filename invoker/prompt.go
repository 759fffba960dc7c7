package invoker

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hupe1980/stackmesh/core"
)

// BuildPrompt renders the system and user messages for a model-backed
// invoker. The system message carries the agent's description and the JSON
// contract for its declared outputs; the user message carries the resolved
// input values.
func BuildPrompt(agent core.AgentSpec, inputs core.Values) (system string, user string, err error) {
	var sb strings.Builder

	if agent.Description != "" {
		sb.WriteString(agent.Description)
		sb.WriteString("\n\n")
	}

	sb.WriteString("Respond with a single JSON object containing exactly these keys:\n")

	for _, out := range agent.Outputs {
		if out.Type != "" {
			fmt.Fprintf(&sb, "- %q (%s)\n", out.Name, out.Type)
		} else {
			fmt.Fprintf(&sb, "- %q\n", out.Name)
		}
	}

	sb.WriteString("Do not include any text outside the JSON object.")

	// json.Marshal sorts map keys, so the rendered prompt is stable.
	payload, err := json.MarshalIndent(inputs, "", "  ")
	if err != nil {
		return "", "", fmt.Errorf("invoker: marshal inputs: %w", err)
	}

	return sb.String(), string(payload), nil
}

// ParseOutputs extracts the declared output values from a model reply. The
// reply may wrap the JSON object in markdown fences or surrounding prose;
// the first balanced object is used. When the agent declares a single output
// and the reply carries no JSON object, the whole reply is bound to that
// output as plain text.
func ParseOutputs(agent core.AgentSpec, reply string) (core.Values, error) {
	text := strings.TrimSpace(reply)

	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')

	if start >= 0 && end > start {
		outputs := core.Values{}
		if err := json.Unmarshal([]byte(text[start:end+1]), &outputs); err == nil {
			return outputs, nil
		}
	}

	if len(agent.Outputs) == 1 {
		return core.Values{agent.Outputs[0].Name: text}, nil
	}

	return nil, fmt.Errorf("invoker: agent %q reply carries no JSON object", agent.Name)
}
