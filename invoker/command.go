package invoker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/hupe1980/stackmesh/core"
)

// Command runs an agent as an external process. The resolved input values
// are written to the process as a JSON object on stdin and the process is
// expected to print a JSON object keyed by its declared output names on
// stdout. A non-zero exit status is reported as an invocation error with the
// captured stderr attached.
type Command struct {
	argv []string
	env  map[string]string
}

// NewCommand builds a Command invoker from the agent's implementation path.
// The path after the "command:" scheme is split on whitespace, so arguments
// containing spaces are not supported.
func NewCommand(agent core.AgentSpec) (*Command, error) {
	argv := strings.Fields(agent.Implementation.Target())
	if len(argv) == 0 {
		return nil, fmt.Errorf("invoker: agent %q declares an empty command", agent.Name)
	}

	return &Command{argv: argv, env: agent.Env}, nil
}

// Invoke implements core.Invoker.
func (c *Command) Invoke(ctx context.Context, inputs core.Values) (core.Values, error) {
	payload, err := json.Marshal(inputs)
	if err != nil {
		return nil, fmt.Errorf("invoker: marshal inputs: %w", err)
	}

	cmd := exec.CommandContext(ctx, c.argv[0], c.argv[1:]...)
	cmd.Stdin = bytes.NewReader(payload)

	cmd.Env = os.Environ()
	for key, value := range c.env {
		cmd.Env = append(cmd.Env, key+"="+value)
	}

	var stdout, stderr bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, fmt.Errorf("invoker: %s: %w: %s", c.argv[0], err, msg)
		}

		return nil, fmt.Errorf("invoker: %s: %w", c.argv[0], err)
	}

	outputs := core.Values{}
	if err := json.Unmarshal(stdout.Bytes(), &outputs); err != nil {
		return nil, fmt.Errorf("invoker: %s produced invalid JSON: %w", c.argv[0], err)
	}

	return outputs, nil
}
