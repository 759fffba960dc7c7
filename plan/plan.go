// Package plan computes deterministic execution plans from validated stack
// graphs. The planner is a Kahn's algorithm variant producing tiers rather
// than a flat order: each tier holds agents with no dependency relationship
// among themselves, so they may run concurrently, and every agent's producers
// sit in a strictly earlier tier.
//
// Plans are immutable once computed and versioned by the graph fingerprint;
// whenever the stack graph changes a fresh plan is computed and run state is
// reconciled against it.
package plan

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hupe1980/stackmesh/core"
	"github.com/hupe1980/stackmesh/graph"
)

// ExecutionPlan is an ordered sequence of tiers. Within a tier agents appear
// in declaration order, the stable tie-break that keeps plans reproducible
// across runs on identical input.
type ExecutionPlan struct {
	stack       string
	fingerprint string
	tiers       [][]string
	tierOf      map[string]int
}

// Stack returns the stack name the plan was computed for.
func (p *ExecutionPlan) Stack() string { return p.stack }

// Fingerprint returns the graph fingerprint the plan was computed from.
func (p *ExecutionPlan) Fingerprint() string { return p.fingerprint }

// Tiers returns the ordered tiers; each tier is an ordered list of agent
// names. Callers must not mutate the returned slices.
func (p *ExecutionPlan) Tiers() [][]string { return p.tiers }

// TierOf returns the tier index the named agent was planned into.
func (p *ExecutionPlan) TierOf(name string) (int, bool) {
	i, ok := p.tierOf[name]
	return i, ok
}

// Flatten returns the full execution order as a single slice (tier by tier).
func (p *ExecutionPlan) Flatten() []string {
	var names []string
	for _, tier := range p.tiers {
		names = append(names, tier...)
	}
	return names
}

// String renders the plan in the form "tier 0: [a b]; tier 1: [c]".
func (p *ExecutionPlan) String() string {
	parts := make([]string, len(p.tiers))
	for i, tier := range p.tiers {
		parts[i] = fmt.Sprintf("tier %d: [%s]", i, strings.Join(tier, " "))
	}
	return strings.Join(parts, "; ")
}

// Compute runs the tiered Kahn variant: repeatedly collect every agent whose
// unresolved-dependency count is zero into the next tier, then decrement the
// dependency counts of their consumers.
//
// The validator already rejects cyclic declarations, so the trailing
// CycleError check is defensive and should be unreachable; it exists so a
// planner invoked on a hand-built graph still fails loudly instead of
// emitting a truncated plan.
func Compute(g *graph.StackGraph) (*ExecutionPlan, error) {
	if g == nil || g.Len() == 0 {
		return nil, &core.UnknownReferenceError{Source: "empty graph: run the builder first"}
	}

	indegree := make(map[string]int, g.Len())
	for _, a := range g.Agents() {
		deps := map[string]bool{}
		for _, e := range g.Producers(a.Name) {
			deps[e.Producer] = true
		}
		indegree[a.Name] = len(deps)
	}

	p := &ExecutionPlan{
		stack:       g.Name(),
		fingerprint: g.Fingerprint(),
		tierOf:      make(map[string]int, g.Len()),
	}

	placed := 0
	for placed < g.Len() {
		var tier []string
		for _, a := range g.Agents() {
			if _, done := p.tierOf[a.Name]; done {
				continue
			}
			if indegree[a.Name] == 0 {
				tier = append(tier, a.Name)
			}
		}
		if len(tier) == 0 {
			return nil, &core.CycleError{Path: remaining(g, p.tierOf)}
		}

		// Agents() iterates declaration order, so the tier is already
		// tie-broken; the sort documents and enforces the invariant.
		sort.SliceStable(tier, func(i, j int) bool {
			pi, _ := g.Position(tier[i])
			pj, _ := g.Position(tier[j])
			return pi < pj
		})

		for _, name := range tier {
			p.tierOf[name] = len(p.tiers)
			consumers := map[string]bool{}
			for _, e := range g.Consumers(name) {
				consumers[e.Consumer] = true
			}
			for c := range consumers {
				indegree[c]--
			}
		}
		p.tiers = append(p.tiers, tier)
		placed += len(tier)
	}

	return p, nil
}

// remaining lists the agents that could not be placed, in declaration order.
func remaining(g *graph.StackGraph, tierOf map[string]int) []string {
	var names []string
	for _, a := range g.Agents() {
		if _, done := tierOf[a.Name]; !done {
			names = append(names, a.Name)
		}
	}
	return names
}
