package graph

import (
	"testing"

	"github.com/hupe1980/stackmesh/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chainDecl builds the canonical three-layer stack used across the tests:
// context_loader -> debriefer -> concierge.
func chainDecl() core.StackDecl {
	return core.StackDecl{
		Name: "context-stack",
		Agents: []core.AgentSpec{
			{
				Name:    "context_loader",
				Layer:   1,
				Inputs:  []core.InputSpec{{Name: "raw_context", Type: "mapping", Source: "external:context_file"}},
				Outputs: []core.OutputSpec{{Name: "validated", Type: "mapping"}},
			},
			{
				Name:    "debriefer",
				Layer:   2,
				Inputs:  []core.InputSpec{{Name: "context", Type: "mapping", Source: "context_loader.validated"}},
				Outputs: []core.OutputSpec{{Name: "insights", Type: "mapping"}},
			},
			{
				Name:    "concierge",
				Layer:   3,
				Inputs:  []core.InputSpec{{Name: "insights", Type: "mapping", Source: "debriefer.insights"}},
				Outputs: []core.OutputSpec{{Name: "plan", Type: "mapping"}},
			},
		},
	}
}

func TestBuild_Chain(t *testing.T) {
	g, err := Build(chainDecl())
	require.NoError(t, err)

	assert.Equal(t, "context-stack", g.Name())
	assert.Equal(t, 3, g.Len())
	assert.Len(t, g.Edges(), 2)

	edges := g.Consumers("context_loader")
	require.Len(t, edges, 1)
	assert.Equal(t, "debriefer", edges[0].Consumer)
	assert.Equal(t, "validated", edges[0].Output)

	back := g.Producers("concierge")
	require.Len(t, back, 1)
	assert.Equal(t, "debriefer", back[0].Producer)

	pos, ok := g.Position("debriefer")
	assert.True(t, ok)
	assert.Equal(t, 1, pos)
}

func TestBuild_DuplicateName(t *testing.T) {
	decl := chainDecl()
	decl.Agents = append(decl.Agents, core.AgentSpec{Name: "debriefer"})

	_, err := Build(decl)
	var errs core.ValidationErrors
	require.ErrorAs(t, err, &errs)
	assert.Contains(t, errs.Error(), "duplicate agent name")
	assert.Contains(t, errs.Agents(), "debriefer")
}

func TestBuild_DanglingReference(t *testing.T) {
	decl := chainDecl()
	decl.Agents[2].Inputs[0].Source = "debriefer.wisdom"

	_, err := Build(decl)
	var errs core.ValidationErrors
	require.ErrorAs(t, err, &errs)
	assert.Contains(t, errs.Error(), `undeclared output "wisdom"`)

	decl = chainDecl()
	decl.Agents[2].Inputs[0].Source = "oracle.insights"
	_, err = Build(decl)
	require.ErrorAs(t, err, &errs)
	assert.Contains(t, errs.Error(), `undeclared agent "oracle"`)
}

func TestBuild_FanInAmbiguity(t *testing.T) {
	decl := chainDecl()
	decl.Agents[2].Inputs = append(decl.Agents[2].Inputs,
		core.InputSpec{Name: "insights", Source: "context_loader.validated"})

	_, err := Build(decl)
	var errs core.ValidationErrors
	require.ErrorAs(t, err, &errs)
	assert.Contains(t, errs.Error(), "ambiguous fan-in")
}

func TestBuild_TypeMismatch(t *testing.T) {
	decl := chainDecl()
	decl.Agents[1].Inputs[0].Type = "text"

	_, err := Build(decl)
	var errs core.ValidationErrors
	require.ErrorAs(t, err, &errs)
	assert.Contains(t, errs.Error(), `has type "text"`)
}

func TestBuild_CycleReportsFullPath(t *testing.T) {
	decl := core.StackDecl{
		Name: "cyclic",
		Agents: []core.AgentSpec{
			{
				Name:    "a",
				Inputs:  []core.InputSpec{{Name: "in", Source: "c.out"}},
				Outputs: []core.OutputSpec{{Name: "out"}},
			},
			{
				Name:    "b",
				Inputs:  []core.InputSpec{{Name: "in", Source: "a.out"}},
				Outputs: []core.OutputSpec{{Name: "out"}},
			},
			{
				Name:    "c",
				Inputs:  []core.InputSpec{{Name: "in", Source: "b.out"}},
				Outputs: []core.OutputSpec{{Name: "out"}},
			},
		},
	}

	_, err := Build(decl)
	var errs core.ValidationErrors
	require.ErrorAs(t, err, &errs)

	// Every agent in the cycle is named in the reported path.
	msg := errs.Error()
	assert.Contains(t, msg, "dependency cycle")
	for _, name := range []string{"a", "b", "c"} {
		assert.Contains(t, msg, name)
	}
}

func TestBuild_SelfReference(t *testing.T) {
	decl := chainDecl()
	decl.Agents[1].Inputs[0].Source = "debriefer.insights"

	_, err := Build(decl)
	var errs core.ValidationErrors
	require.ErrorAs(t, err, &errs)
	assert.Contains(t, errs.Error(), "own output")
}

func TestBuild_FlowHints(t *testing.T) {
	decl := chainDecl()
	decl.DataFlow = []core.FlowHint{
		{From: "context_loader.validated", To: "debriefer.context", Transform: "identity"},
	}

	g, err := Build(decl)
	require.NoError(t, err)
	assert.Equal(t, "identity", g.Consumers("context_loader")[0].Transform)

	decl.DataFlow = append(decl.DataFlow, core.FlowHint{From: "debriefer.insights", To: "context_loader.raw_context"})
	_, err = Build(decl)
	var errs core.ValidationErrors
	require.ErrorAs(t, err, &errs)
	assert.Contains(t, errs.Error(), "does not match any derived edge")
}

func TestBuild_Fingerprint(t *testing.T) {
	g1, err := Build(chainDecl())
	require.NoError(t, err)
	g2, err := Build(chainDecl())
	require.NoError(t, err)
	assert.Equal(t, g1.Fingerprint(), g2.Fingerprint())

	decl := chainDecl()
	decl.Agents = decl.Agents[:2]
	g3, err := Build(decl)
	require.NoError(t, err)
	assert.NotEqual(t, g1.Fingerprint(), g3.Fingerprint())
}

func TestBuild_NeverPartial(t *testing.T) {
	decl := chainDecl()
	decl.Agents[1].Inputs[0].Source = "nope.validated"

	g, err := Build(decl)
	assert.Error(t, err)
	assert.Nil(t, g, "a failing validation pass must not yield a partial graph")
}
