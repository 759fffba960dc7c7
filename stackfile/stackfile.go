// Package stackfile parses declarative stack files. A stack file is a YAML
// document with a single top-level "stack" mapping:
//
//	stack:
//	  name: context-stack
//	  policies:
//	    parallel_init: true
//	    cascade_stop: false
//	    auto_restart: true
//	    max_attempts: 3
//	  agents:
//	    - name: context_loader
//	      layer: 1
//	      implementation:
//	        path: command:python agents/context_loader.py
//	      inputs:
//	        - {name: raw_context, type: mapping, source: external:context_file}
//	      outputs:
//	        - {name: validated, type: mapping}
//	  data_flow:
//	    - {from: context_loader.validated, to: debriefer.context}
//
// Parsing is deliberately shallow: it produces a raw core.StackDecl and
// leaves semantic validation (references, fan-in, cycles) to graph.Build.
// Unrecognized policy keys yield warnings rather than hard errors; a policy
// listed under "require" that this runtime does not recognize is a
// core.PolicyConflictError.
package stackfile

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/hupe1980/stackmesh/core"
	"gopkg.in/yaml.v3"
)

// recognizedPolicies are the policy keys this runtime understands.
var recognizedPolicies = map[string]bool{
	"auto_restart":    true,
	"cascade_stop":    true,
	"parallel_init":   true,
	"max_attempts":    true,
	"initial_backoff": true,
	"require":         true,
}

type document struct {
	Stack stackNode `yaml:"stack"`
}

type stackNode struct {
	Name     string          `yaml:"name"`
	Policies map[string]any  `yaml:"policies"`
	Agents   []agentNode     `yaml:"agents"`
	DataFlow []core.FlowHint `yaml:"data_flow"`
}

type agentNode struct {
	Name           string                  `yaml:"name"`
	Layer          int                     `yaml:"layer"`
	Description    string                  `yaml:"description"`
	Implementation core.ImplementationSpec `yaml:"implementation"`
	Timeout        string                  `yaml:"timeout"`
	Env            map[string]string       `yaml:"env"`
	Inputs         []core.InputSpec        `yaml:"inputs"`
	Outputs        []core.OutputSpec       `yaml:"outputs"`
}

// Load reads and parses a stack file from disk. The returned warnings list
// unrecognized policy keys; they never fail the parse.
func Load(path string) (core.StackDecl, []string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return core.StackDecl{}, nil, fmt.Errorf("stackfile: read %q: %w", path, err)
	}
	decl, warnings, err := Parse(b)
	if err != nil {
		return core.StackDecl{}, nil, fmt.Errorf("stackfile: %q: %w", path, err)
	}
	return decl, warnings, nil
}

// Parse parses stack file bytes into a raw declaration plus policy warnings.
func Parse(data []byte) (core.StackDecl, []string, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return core.StackDecl{}, nil, fmt.Errorf("unmarshal: %w", err)
	}

	policies, warnings, err := parsePolicies(doc.Stack.Policies)
	if err != nil {
		return core.StackDecl{}, nil, err
	}

	decl := core.StackDecl{
		Name:     doc.Stack.Name,
		DataFlow: doc.Stack.DataFlow,
		Policies: policies,
	}
	for _, a := range doc.Stack.Agents {
		spec := core.AgentSpec{
			Name:           a.Name,
			Layer:          a.Layer,
			Description:    a.Description,
			Implementation: a.Implementation,
			Env:            a.Env,
			Inputs:         a.Inputs,
			Outputs:        a.Outputs,
		}
		if a.Timeout != "" {
			d, err := time.ParseDuration(a.Timeout)
			if err != nil {
				return core.StackDecl{}, nil, fmt.Errorf("agent %q has invalid timeout %q: %w", a.Name, a.Timeout, err)
			}
			spec.Timeout = d
		}
		decl.Agents = append(decl.Agents, spec)
	}
	return decl, warnings, nil
}

// parsePolicies decodes the loosely typed policies mapping. Recognized keys
// are applied, unknown keys become warnings, and an unrecognized entry in the
// "require" list is a hard PolicyConflictError.
func parsePolicies(raw map[string]any) (core.Policies, []string, error) {
	var p core.Policies
	var warnings []string

	for key := range raw {
		if !recognizedPolicies[key] {
			warnings = append(warnings, fmt.Sprintf("unrecognized policy %q ignored", key))
		}
	}

	var err error
	if p.AutoRestart, err = boolPolicy(raw, "auto_restart"); err != nil {
		return core.Policies{}, nil, err
	}
	if p.CascadeStop, err = boolPolicy(raw, "cascade_stop"); err != nil {
		return core.Policies{}, nil, err
	}
	if p.ParallelInit, err = boolPolicy(raw, "parallel_init"); err != nil {
		return core.Policies{}, nil, err
	}

	if v, ok := raw["max_attempts"]; ok {
		n, ok := v.(int)
		if !ok || n < 1 {
			return core.Policies{}, nil, fmt.Errorf("policy max_attempts must be a positive integer, got %v", v)
		}
		p.MaxAttempts = n
	}
	if v, ok := raw["initial_backoff"]; ok {
		s, ok := v.(string)
		if !ok {
			return core.Policies{}, nil, fmt.Errorf("policy initial_backoff must be a duration string, got %v", v)
		}
		d, err := time.ParseDuration(s)
		if err != nil {
			return core.Policies{}, nil, fmt.Errorf("policy initial_backoff: %w", err)
		}
		p.InitialBackoff = d
	}

	if v, ok := raw["require"]; ok {
		list, ok := v.([]any)
		if !ok {
			return core.Policies{}, nil, fmt.Errorf("policy require must be a list of policy names, got %v", v)
		}
		for _, item := range list {
			name, ok := item.(string)
			if !ok || !recognizedPolicies[name] || name == "require" {
				return core.Policies{}, nil, &core.PolicyConflictError{Policy: fmt.Sprintf("%v", item)}
			}
		}
	}

	// Map iteration order is unstable; sort so warnings are deterministic.
	sort.Strings(warnings)
	return p, warnings, nil
}

func boolPolicy(raw map[string]any, key string) (bool, error) {
	v, ok := raw[key]
	if !ok {
		return false, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("policy %s must be a boolean, got %v", key, v)
	}
	return b, nil
}

