package graph

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/hupe1980/stackmesh/core"
)

// Build validates a stack declaration and materializes the dependency graph.
// Checks run in order, short-circuiting once a structural phase fails:
//
//	(a) stack + agent naming (non-empty, unique, no reserved characters)
//	(b) every input source resolves to a declared output or external source
//	(c) no fan-in ambiguity (duplicate input bindings) and types match
//	(d) the resulting graph is acyclic
//
// On failure the returned error is a core.ValidationErrors listing every
// problem found in the failing phase; a partial graph is never returned.
// Build is pure: identical declarations always produce identical graphs.
func Build(decl core.StackDecl) (*StackGraph, error) {
	if errs := checkNames(decl); len(errs) > 0 {
		return nil, errs
	}

	g := &StackGraph{
		name:     decl.Name,
		policies: decl.Policies,
		agents:   decl.Agents,
		index:    make(map[string]int, len(decl.Agents)),
		out:      make(map[string][]Edge),
		in:       make(map[string][]Edge),
	}
	for i, a := range decl.Agents {
		g.index[a.Name] = i
	}

	edges, errs := deriveEdges(g, decl)
	if len(errs) > 0 {
		return nil, errs
	}
	g.edges = edges
	for _, e := range edges {
		g.out[e.Producer] = append(g.out[e.Producer], e)
		g.in[e.Consumer] = append(g.in[e.Consumer], e)
	}

	if errs := checkAcyclic(g); len(errs) > 0 {
		return nil, errs
	}
	return g, nil
}

// reservedNameChars may not appear in agent, input or output names because
// they delimit source references and implementation schemes.
const reservedNameChars = ".:"

func checkNames(decl core.StackDecl) core.ValidationErrors {
	var errs core.ValidationErrors
	if decl.Name == "" {
		errs = append(errs, &core.ValidationError{Reason: "stack name is empty"})
	}
	if len(decl.Agents) == 0 {
		errs = append(errs, &core.ValidationError{Reason: "stack declares no agents"})
	}

	seen := make(map[string]bool, len(decl.Agents))
	for _, a := range decl.Agents {
		switch {
		case a.Name == "":
			errs = append(errs, &core.ValidationError{Reason: "agent name is empty"})
			continue
		case strings.ContainsAny(a.Name, reservedNameChars) || strings.ContainsAny(a.Name, " \t"):
			errs = append(errs, &core.ValidationError{Agent: a.Name, Reason: "agent name contains reserved characters"})
		case seen[a.Name]:
			errs = append(errs, &core.ValidationError{Agent: a.Name, Reason: "duplicate agent name"})
		}
		seen[a.Name] = true

		if a.Layer < 0 {
			errs = append(errs, &core.ValidationError{Agent: a.Name, Reason: "layer must be non-negative"})
		}

		outputs := make(map[string]bool, len(a.Outputs))
		for _, out := range a.Outputs {
			if out.Name == "" {
				errs = append(errs, &core.ValidationError{Agent: a.Name, Reason: "output name is empty"})
				continue
			}
			if outputs[out.Name] {
				errs = append(errs, &core.ValidationError{Agent: a.Name, Reason: fmt.Sprintf("duplicate output %q", out.Name)})
			}
			outputs[out.Name] = true
		}
	}
	return errs
}

// deriveEdges resolves every input source and materializes edges. Fan-out
// (multiple consumers of one output) is allowed; fan-in (an input bound more
// than once) is a validation error pending a defined merge policy.
func deriveEdges(g *StackGraph, decl core.StackDecl) ([]Edge, core.ValidationErrors) {
	var errs core.ValidationErrors
	var edges []Edge

	for _, a := range decl.Agents {
		inputs := make(map[string]bool, len(a.Inputs))
		for _, in := range a.Inputs {
			if in.Name == "" {
				errs = append(errs, &core.ValidationError{Agent: a.Name, Reason: "input name is empty"})
				continue
			}
			if inputs[in.Name] {
				errs = append(errs, &core.ValidationError{Agent: a.Name, Reason: fmt.Sprintf("ambiguous fan-in: input %q bound more than once", in.Name)})
				continue
			}
			inputs[in.Name] = true

			if in.IsExternal() {
				if in.ExternalID() == "" {
					errs = append(errs, &core.ValidationError{Agent: a.Name, Reason: fmt.Sprintf("input %q has empty external source id", in.Name)})
				}
				continue
			}

			producer, output, ok := in.ProducerRef()
			if !ok {
				errs = append(errs, &core.ValidationError{Agent: a.Name, Reason: fmt.Sprintf("input %q has malformed source %q (want \"agent.output\" or \"external:<id>\")", in.Name, in.Source)})
				continue
			}
			prodSpec, ok := g.Agent(producer)
			if !ok {
				errs = append(errs, &core.ValidationError{Agent: a.Name, Reason: fmt.Sprintf("input %q references undeclared agent %q", in.Name, producer)})
				continue
			}
			if producer == a.Name {
				errs = append(errs, &core.ValidationError{Agent: a.Name, Reason: fmt.Sprintf("input %q references the agent's own output", in.Name)})
				continue
			}
			outSpec, ok := prodSpec.Output(output)
			if !ok {
				errs = append(errs, &core.ValidationError{Agent: a.Name, Reason: fmt.Sprintf("input %q references undeclared output %q of agent %q", in.Name, output, producer)})
				continue
			}
			if in.Type != "" && outSpec.Type != "" && in.Type != outSpec.Type {
				errs = append(errs, &core.ValidationError{Agent: a.Name, Reason: fmt.Sprintf("input %q has type %q but source %q produces %q", in.Name, in.Type, in.Source, outSpec.Type)})
				continue
			}

			edges = append(edges, Edge{Producer: producer, Output: output, Consumer: a.Name, Input: in.Name})
		}
	}

	errs = append(errs, applyFlowHints(edges, decl.DataFlow)...)
	if len(errs) > 0 {
		return nil, errs
	}
	return edges, nil
}

// applyFlowHints cross-validates declared data_flow annotations against the
// derived edges and attaches transform hints to matching edges.
func applyFlowHints(edges []Edge, hints []core.FlowHint) core.ValidationErrors {
	var errs core.ValidationErrors
	for _, h := range hints {
		fromAgent, fromOutput, okFrom := splitRef(h.From)
		toAgent, toInput, okTo := splitRef(h.To)
		if !okFrom || !okTo {
			errs = append(errs, &core.ValidationError{Reason: fmt.Sprintf("data_flow hint %q -> %q is malformed (want \"agent.output\" -> \"agent.input\")", h.From, h.To)})
			continue
		}

		matched := false
		for i := range edges {
			e := &edges[i]
			if e.Producer == fromAgent && e.Output == fromOutput && e.Consumer == toAgent && e.Input == toInput {
				e.Transform = h.Transform
				matched = true
				break
			}
		}
		if !matched {
			errs = append(errs, &core.ValidationError{Agent: toAgent, Reason: fmt.Sprintf("data_flow hint %q -> %q does not match any derived edge", h.From, h.To)})
		}
	}
	return errs
}

func splitRef(ref string) (agent, field string, ok bool) {
	idx := strings.IndexByte(ref, '.')
	if idx <= 0 || idx == len(ref)-1 {
		return "", "", false
	}
	return ref[:idx], ref[idx+1:], true
}

// checkAcyclic runs a depth-first traversal over producer -> consumer edges
// with an explicit recursion stack. Each detected cycle is reported with its
// full ordered path so every participating agent is named.
func checkAcyclic(g *StackGraph) core.ValidationErrors {
	const (
		white = iota // unvisited
		gray         // on the recursion stack
		black        // fully explored
	)

	color := make(map[string]int, g.Len())
	var stack []string
	var errs core.ValidationErrors

	var visit func(name string)
	visit = func(name string) {
		color[name] = gray
		stack = append(stack, name)

		for _, e := range g.Consumers(name) {
			switch color[e.Consumer] {
			case white:
				visit(e.Consumer)
			case gray:
				// Cut the recursion stack at the first occurrence of the
				// consumer to report the closed loop.
				start := 0
				for i, n := range stack {
					if n == e.Consumer {
						start = i
						break
					}
				}
				path := append(append([]string{}, stack[start:]...), e.Consumer)
				errs = append(errs, &core.ValidationError{
					Agent:  e.Consumer,
					Reason: (&core.CycleError{Path: path}).Error(),
				})
			}
		}

		stack = stack[:len(stack)-1]
		color[name] = black
	}

	for _, a := range g.Agents() {
		if color[a.Name] == white {
			visit(a.Name)
		}
	}
	return errs
}

// fingerprint hashes the graph shape: agent names in declaration order plus
// every derived edge.
func fingerprint(g *StackGraph) string {
	h := sha256.New()
	for _, a := range g.Agents() {
		fmt.Fprintf(h, "a:%s\n", a.Name)
	}
	for _, e := range g.Edges() {
		fmt.Fprintf(h, "e:%s.%s->%s.%s\n", e.Producer, e.Output, e.Consumer, e.Input)
	}
	return hex.EncodeToString(h.Sum(nil))
}
