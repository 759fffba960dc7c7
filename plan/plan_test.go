package plan

import (
	"testing"

	"github.com/hupe1980/stackmesh/core"
	"github.com/hupe1980/stackmesh/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildGraph(t *testing.T, decl core.StackDecl) *graph.StackGraph {
	t.Helper()
	g, err := graph.Build(decl)
	require.NoError(t, err)
	return g
}

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

func TestCompute_DiamondTiers(t *testing.T) {
	g := buildGraph(t, core.StackDecl{
		Name: "diamond",
		Agents: []core.AgentSpec{
			leaf("a"),
			consumer("b", "a.out"),
			consumer("c", "a.out"),
			consumer("d", "b.out", "c.out"),
		},
	})

	p, err := Compute(g)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a"}, {"b", "c"}, {"d"}}, p.Tiers())
	assert.Equal(t, []string{"a", "b", "c", "d"}, p.Flatten())

	tier, ok := p.TierOf("c")
	assert.True(t, ok)
	assert.Equal(t, 1, tier)
}

func TestCompute_EveryAgentInExactlyOneTier(t *testing.T) {
	g := buildGraph(t, core.StackDecl{
		Name: "wide",
		Agents: []core.AgentSpec{
			leaf("l1"), leaf("l2"), leaf("l3"),
			consumer("m1", "l1.out", "l2.out"),
			consumer("m2", "l2.out"),
			consumer("top", "m1.out", "m2.out", "l3.out"),
		},
	})

	p, err := Compute(g)
	require.NoError(t, err)

	seen := map[string]int{}
	for _, tier := range p.Tiers() {
		for _, name := range tier {
			seen[name]++
		}
	}
	assert.Len(t, seen, g.Len())
	for name, count := range seen {
		assert.Equal(t, 1, count, "agent %s placed more than once", name)
	}

	// Every producer sits in a strictly earlier tier than its consumer.
	for _, e := range g.Edges() {
		pt, _ := p.TierOf(e.Producer)
		ct, _ := p.TierOf(e.Consumer)
		assert.Less(t, pt, ct, "edge %s -> %s", e.Producer, e.Consumer)
	}
}

func TestCompute_DeclarationOrderIsOnlyATieBreak(t *testing.T) {
	// C is declared first but depends on both A and B; the plan must still be
	// [[a b] [c]] with declaration order used only within the first tier.
	g := buildGraph(t, core.StackDecl{
		Name: "tie-break",
		Agents: []core.AgentSpec{
			consumer("c", "a.out", "b.out"),
			leaf("b"),
			leaf("a"),
		},
	})

	p, err := Compute(g)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"b", "a"}, {"c"}}, p.Tiers())
}

func TestCompute_Deterministic(t *testing.T) {
	decl := core.StackDecl{
		Name: "det",
		Agents: []core.AgentSpec{
			leaf("z"), leaf("y"), leaf("x"),
			consumer("m", "z.out", "x.out"),
		},
	}

	first, err := Compute(buildGraph(t, decl))
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		p, err := Compute(buildGraph(t, decl))
		require.NoError(t, err)
		assert.Equal(t, first.Tiers(), p.Tiers())
		assert.Equal(t, first.Fingerprint(), p.Fingerprint())
	}
}

func TestCompute_EmptyGraph(t *testing.T) {
	_, err := Compute(nil)
	var unknown *core.UnknownReferenceError
	assert.ErrorAs(t, err, &unknown)
}

func TestCompute_FanOutSharesTier(t *testing.T) {
	g := buildGraph(t, core.StackDecl{
		Name: "fan-out",
		Agents: []core.AgentSpec{
			leaf("src"),
			consumer("s1", "src.out"),
			consumer("s2", "src.out"),
			consumer("s3", "src.out"),
		},
	})

	p, err := Compute(g)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"src"}, {"s1", "s2", "s3"}}, p.Tiers())
}
