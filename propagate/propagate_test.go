package propagate

import (
	"testing"

	"github.com/hupe1980/stackmesh/core"
	"github.com/hupe1980/stackmesh/graph"
	"github.com/hupe1980/stackmesh/plan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func leaf(name string) core.AgentSpec {
	return core.AgentSpec{
		Name:    name,
		Inputs:  []core.InputSpec{{Name: "seed", Source: "external:seed"}},
		Outputs: []core.OutputSpec{{Name: "out"}},
	}
}

func consumer(name string, sources ...string) core.AgentSpec {
	a := core.AgentSpec{Name: name, Outputs: []core.OutputSpec{{Name: "out"}}}
	for i, s := range sources {
		a.Inputs = append(a.Inputs, core.InputSpec{Name: "in" + string(rune('0'+i)), Source: s})
	}
	return a
}

// fanOutEngine builds:
//
//	a -> b -> d
//	a -> c
//	e (independent branch, same tier as b/c)
func fanOutEngine(t *testing.T) *Engine {
	t.Helper()
	g, err := graph.Build(core.StackDecl{
		Name: "fan-out",
		Agents: []core.AgentSpec{
			leaf("a"),
			consumer("b", "a.out"),
			consumer("c", "a.out"),
			consumer("d", "b.out"),
			leaf("e"),
		},
	})
	require.NoError(t, err)
	p, err := plan.Compute(g)
	require.NoError(t, err)
	return New(g, p)
}

func TestDirty_FanOut(t *testing.T) {
	e := fanOutEngine(t)

	dirty, err := e.Dirty("a")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c", "d"}, dirty)
}

func TestDirty_NoFalsePropagation(t *testing.T) {
	e := fanOutEngine(t)

	dirty, err := e.Dirty("a")
	require.NoError(t, err)
	assert.NotContains(t, dirty, "e", "agent with no dirty inputs must not be re-queued")

	dirty, err = e.Dirty("b")
	require.NoError(t, err)
	assert.Equal(t, []string{"d"}, dirty)
}

func TestDirty_Idempotent(t *testing.T) {
	e := fanOutEngine(t)

	first, err := e.Dirty("a", "e")
	require.NoError(t, err)
	second, err := e.Dirty("a", "e")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestDirty_FrontierOverlap(t *testing.T) {
	e := fanOutEngine(t)

	// b is both in the frontier and downstream of a; it must appear exactly
	// once, and its own consumers stay included.
	dirty, err := e.Dirty("a", "b")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c", "d"}, dirty)
}

func TestDirty_UnknownAgent(t *testing.T) {
	e := fanOutEngine(t)

	_, err := e.Dirty("ghost")
	var unknown *core.UnknownReferenceError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "ghost", unknown.Agent)
}

func TestDirty_TierOrdered(t *testing.T) {
	e := fanOutEngine(t)

	dirty, err := e.Dirty("a")
	require.NoError(t, err)
	// b and c share a tier (declaration order), d comes strictly later.
	assert.Equal(t, []string{"b", "c", "d"}, dirty)
}

func TestMarkStale(t *testing.T) {
	states := map[string]*core.RunState{
		"b": {Status: core.StatusSucceeded},
		"c": {Status: core.StatusFailed},
		"d": {Status: core.StatusPending},
	}

	changed := MarkStale(states, []string{"b", "c", "d"})
	assert.Equal(t, []string{"b"}, changed)
	assert.Equal(t, core.StatusStale, states["b"].Status)
	assert.Equal(t, core.StatusFailed, states["c"].Status)
	assert.Equal(t, core.StatusPending, states["d"].Status)
}
