package core

import (
	"strings"
	"time"
)

// ExternalPrefix tags an input source that is resolved outside the agent
// graph (workspace files, environment variables, prior session logs). External
// sources are never subject to change propagation.
const ExternalPrefix = "external:"

// AgentSpec declares a named unit of computation within a stack.
//
// The Layer field is advisory grouping only; authoritative ordering always
// comes from the derived dependency graph. Inputs and Outputs are ordered as
// declared so that plans remain reproducible across runs on identical input.
type AgentSpec struct {
	Name           string             `yaml:"name" json:"name"`
	Layer          int                `yaml:"layer" json:"layer"`
	Description    string             `yaml:"description,omitempty" json:"description,omitempty"`
	Inputs         []InputSpec        `yaml:"inputs,omitempty" json:"inputs,omitempty"`
	Outputs        []OutputSpec       `yaml:"outputs,omitempty" json:"outputs,omitempty"`
	Implementation ImplementationSpec `yaml:"implementation,omitempty" json:"implementation,omitempty"`
	Timeout        time.Duration      `yaml:"-" json:"timeout,omitempty"`
	Env            map[string]string  `yaml:"env,omitempty" json:"env,omitempty"`
}

// Input returns the input declaration with the given name.
func (a AgentSpec) Input(name string) (InputSpec, bool) {
	for _, in := range a.Inputs {
		if in.Name == name {
			return in, true
		}
	}
	return InputSpec{}, false
}

// Output returns the output declaration with the given name.
func (a AgentSpec) Output(name string) (OutputSpec, bool) {
	for _, out := range a.Outputs {
		if out.Name == name {
			return out, true
		}
	}
	return OutputSpec{}, false
}

// InputSpec declares a single named input of an agent. Source references
// either a producer output ("agent.output") or an external data source
// ("external:<id>").
type InputSpec struct {
	Name   string `yaml:"name" json:"name"`
	Type   string `yaml:"type,omitempty" json:"type,omitempty"`
	Source string `yaml:"source" json:"source"`
}

// IsExternal reports whether the input is bound to an external data source.
func (in InputSpec) IsExternal() bool {
	return strings.HasPrefix(in.Source, ExternalPrefix)
}

// ExternalID returns the identifier following the "external:" prefix, or the
// empty string for non-external sources.
func (in InputSpec) ExternalID() string {
	if !in.IsExternal() {
		return ""
	}
	return strings.TrimPrefix(in.Source, ExternalPrefix)
}

// ProducerRef splits an internal source reference into its producer agent and
// output name. ok is false for external or malformed references.
func (in InputSpec) ProducerRef() (agent, output string, ok bool) {
	if in.IsExternal() {
		return "", "", false
	}
	idx := strings.IndexByte(in.Source, '.')
	if idx <= 0 || idx == len(in.Source)-1 {
		return "", "", false
	}
	return in.Source[:idx], in.Source[idx+1:], true
}

// OutputSpec declares a single named, typed value an agent produces once
// executed.
type OutputSpec struct {
	Name string `yaml:"name" json:"name"`
	Type string `yaml:"type,omitempty" json:"type,omitempty"`
}

// ImplementationSpec identifies the callable unit backing an agent. Path uses
// a scheme prefix resolved by the invoker registry, e.g. "function:summarize",
// "command:python agents/debriefer.py" or "anthropic:claude-sonnet-4-5".
type ImplementationSpec struct {
	Path   string            `yaml:"path" json:"path"`
	Config map[string]string `yaml:"config,omitempty" json:"config,omitempty"`
}

// Scheme returns the implementation scheme (the part before the first colon)
// or the empty string when no scheme is present.
func (im ImplementationSpec) Scheme() string {
	idx := strings.IndexByte(im.Path, ':')
	if idx <= 0 {
		return ""
	}
	return im.Path[:idx]
}

// Target returns the implementation path with its scheme prefix stripped.
func (im ImplementationSpec) Target() string {
	idx := strings.IndexByte(im.Path, ':')
	if idx < 0 {
		return im.Path
	}
	return im.Path[idx+1:]
}

// FlowHint is an optional declared data_flow annotation. Hints are purely
// documentary / transform metadata and are cross-validated against the edges
// derived from inputs and outputs.
type FlowHint struct {
	From      string `yaml:"from" json:"from"`
	To        string `yaml:"to" json:"to"`
	Transform string `yaml:"transform,omitempty" json:"transform,omitempty"`
}

// Policies holds the recognized stack-level execution policies plus retry
// tuning for auto_restart.
type Policies struct {
	// AutoRestart retries failed agents with exponential backoff up to
	// MaxAttempts before marking them terminally failed.
	AutoRestart bool `yaml:"auto_restart" json:"auto_restart"`

	// CascadeStop transitions all not-yet-started downstream dependents of a
	// failed agent directly to failed without execution.
	CascadeStop bool `yaml:"cascade_stop" json:"cascade_stop"`

	// ParallelInit allows agents within the same tier to run concurrently.
	ParallelInit bool `yaml:"parallel_init" json:"parallel_init"`

	// MaxAttempts bounds the total invocation count per agent when
	// AutoRestart is set. Zero means DefaultMaxAttempts.
	MaxAttempts int `yaml:"max_attempts,omitempty" json:"max_attempts,omitempty"`

	// InitialBackoff is the first retry delay; subsequent delays grow
	// exponentially. Zero means DefaultInitialBackoff.
	InitialBackoff time.Duration `yaml:"-" json:"initial_backoff,omitempty"`
}

// Default retry tuning applied when Policies leaves the fields zero.
const (
	DefaultMaxAttempts    = 3
	DefaultInitialBackoff = 100 * time.Millisecond
)

// Attempts returns the effective bounded attempt count for one agent.
func (p Policies) Attempts() int {
	if !p.AutoRestart {
		return 1
	}
	if p.MaxAttempts > 0 {
		return p.MaxAttempts
	}
	return DefaultMaxAttempts
}

// Backoff returns the effective initial backoff delay.
func (p Policies) Backoff() time.Duration {
	if p.InitialBackoff > 0 {
		return p.InitialBackoff
	}
	return DefaultInitialBackoff
}

// StackDecl is a raw stack declaration: the parsed but not yet validated set
// of agent specs plus policies and optional flow hints. Declaration order of
// agents is significant (it is the deterministic tie-break everywhere).
type StackDecl struct {
	Name     string
	Agents   []AgentSpec
	DataFlow []FlowHint
	Policies Policies
}
