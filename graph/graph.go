package graph

import (
	"github.com/hupe1980/stackmesh/core"
)

// Edge is a derived data-flow binding from one producer output to one
// consumer input. Edges are never declared directly; they are materialized
// from validated input sources. Transform carries the optional hint attached
// via the declaration's data_flow section.
type Edge struct {
	Producer  string `json:"producer"`
	Output    string `json:"output"`
	Consumer  string `json:"consumer"`
	Input     string `json:"input"`
	Transform string `json:"transform,omitempty"`
}

// StackGraph is a validated stack: the full set of agent specs plus derived
// edges and bidirectional adjacency. The graph is guaranteed acyclic; it is
// immutable after construction and safe for concurrent reads.
type StackGraph struct {
	name     string
	policies core.Policies
	agents   []core.AgentSpec
	index    map[string]int
	edges    []Edge
	out      map[string][]Edge
	in       map[string][]Edge
}

// Name returns the stack name.
func (g *StackGraph) Name() string { return g.name }

// Policies returns the stack-level execution policies.
func (g *StackGraph) Policies() core.Policies { return g.policies }

// Len returns the number of agents in the stack.
func (g *StackGraph) Len() int { return len(g.agents) }

// Agents returns the agent specs in declaration order.
func (g *StackGraph) Agents() []core.AgentSpec { return g.agents }

// Agent returns the spec for the named agent.
func (g *StackGraph) Agent(name string) (core.AgentSpec, bool) {
	i, ok := g.index[name]
	if !ok {
		return core.AgentSpec{}, false
	}
	return g.agents[i], true
}

// Position returns the declaration position of the named agent. Declaration
// order is the deterministic tie-break used by the planner and coordinator.
func (g *StackGraph) Position(name string) (int, bool) {
	i, ok := g.index[name]
	return i, ok
}

// Edges returns every derived edge.
func (g *StackGraph) Edges() []Edge { return g.edges }

// Consumers returns the outgoing edges of a producer (producer -> consumer
// direction, used by change propagation).
func (g *StackGraph) Consumers(name string) []Edge { return g.out[name] }

// Producers returns the incoming edges of a consumer (consumer -> producer
// direction, used by the planner's dependency counting).
func (g *StackGraph) Producers(name string) []Edge { return g.in[name] }

// Fingerprint identifies the graph shape for versioned plan recomputation:
// two graphs with identical agents and edges share a fingerprint, so a
// recomputed plan can be reconciled against run state from the prior version.
func (g *StackGraph) Fingerprint() string { return fingerprint(g) }
