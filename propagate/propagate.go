// Package propagate implements the change-propagation engine: given agents
// whose outputs just changed (the dirty frontier), it computes the minimal
// ordered set of downstream agents that must re-run.
//
// The policy mirrors reactive-cell semantics at agent granularity: an agent
// is dirty if and only if at least one of its declared inputs is sourced from
// a dirty agent. Agents with no dirty inputs are never re-queued, even when
// sibling agents in their tier changed — there is no false-positive
// re-execution. External sources are outside the graph and never dirty.
package propagate

import (
	"sort"

	"github.com/hupe1980/stackmesh/core"
	"github.com/hupe1980/stackmesh/graph"
	"github.com/hupe1980/stackmesh/plan"
)

// Engine answers dirty-set queries against one validated graph and its plan.
// It is read-only and safe for concurrent use.
type Engine struct {
	g *graph.StackGraph
	p *plan.ExecutionPlan
}

// New creates a propagation engine for the given graph and plan.
func New(g *graph.StackGraph, p *plan.ExecutionPlan) *Engine {
	return &Engine{g: g, p: p}
}

// Dirty computes the full downstream dirty set of the frontier by
// breadth-first traversal over producer -> consumer edges. The frontier
// itself is not part of the result (its agents already ran; only their
// consumers must react). The result is deduplicated and ordered by plan tier
// then declaration order, so the coordinator can re-run it directly in
// dependency order.
//
// Dirty is idempotent: the same frontier against an unchanged graph always
// yields the same set.
func (e *Engine) Dirty(frontier ...string) ([]string, error) {
	for _, name := range frontier {
		if _, ok := e.g.Agent(name); !ok {
			return nil, &core.UnknownReferenceError{Agent: name, Source: name}
		}
	}

	dirty := map[string]bool{}
	queue := append([]string{}, frontier...)
	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]
		for _, edge := range e.g.Consumers(curr) {
			if dirty[edge.Consumer] {
				continue
			}
			dirty[edge.Consumer] = true
			queue = append(queue, edge.Consumer)
		}
	}

	names := make([]string, 0, len(dirty))
	for name := range dirty {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		ti, _ := e.p.TierOf(names[i])
		tj, _ := e.p.TierOf(names[j])
		if ti != tj {
			return ti < tj
		}
		pi, _ := e.g.Position(names[i])
		pj, _ := e.g.Position(names[j])
		return pi < pj
	})
	return names, nil
}

// MarkStale transitions previously succeeded agents in the dirty set to
// stale. States not in a markable status (pending, running, failed) are left
// untouched. It returns the names whose status actually changed.
//
// The run coordinator owns the states map; MarkStale is provided here so the
// transition rule lives next to the dirtiness policy it implements.
func MarkStale(states map[string]*core.RunState, dirty []string) []string {
	var changed []string
	for _, name := range dirty {
		st, ok := states[name]
		if !ok {
			continue
		}
		if st.Status.CanTransition(core.StatusStale) {
			st.Status = core.StatusStale
			changed = append(changed, name)
		}
	}
	return changed
}
