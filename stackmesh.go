// Package stackmesh provides a high-level façade over declarative agent
// stacks: validation, dependency graph construction, tiered execution
// planning, change propagation and coordinated runs. Most applications
// interact with this package by:
//  1. Creating a StackMesh via New() (optionally overriding the default
//     in-memory run log, the logger, the source resolver or the invoker
//     registry)
//  2. Loading a stack declaration from YAML (LoadStack) or supplying a
//     core.StackDecl directly (UseStack)
//  3. Calling Validate, Plan, Run or Propagate
//
// The façade delegates graph validation to the graph package, planning to
// the plan package and execution to the coordinator while keeping setup and
// usage ergonomics concise. All defaults are safe for local development and
// testing; production deployments typically supply a durable run log and a
// structured logger.
package stackmesh

import (
	"context"

	"github.com/hupe1980/stackmesh/coordinator"
	"github.com/hupe1980/stackmesh/core"
	"github.com/hupe1980/stackmesh/eventlog"
	"github.com/hupe1980/stackmesh/graph"
	"github.com/hupe1980/stackmesh/invoker"
	"github.com/hupe1980/stackmesh/logging"
	"github.com/hupe1980/stackmesh/plan"
	"github.com/hupe1980/stackmesh/propagate"
	"github.com/hupe1980/stackmesh/stackfile"
)

// Options configures the StackMesh instance.
type Options struct {
	// Logger receives structured progress events. Defaults to an info-level
	// text logger on stderr.
	Logger *logging.StackMeshLogger

	// RunLog persists the append-only record stream. Defaults to an
	// in-memory log.
	RunLog core.RunLog

	// Resolver supplies values for "external:<id>" input sources.
	Resolver core.SourceResolver

	// Registry resolves agent implementations. Defaults to a registry with
	// the built-in "function" and "command" schemes.
	Registry *invoker.Registry
}

// StackMesh is the high-level façade aggregating stack validation, planning
// and coordinated execution.
type StackMesh struct {
	opts Options

	decl     core.StackDecl
	warnings []string
	g        *graph.StackGraph
	p        *plan.ExecutionPlan
	coord    *coordinator.Coordinator
}

// New creates a new StackMesh instance with optional overrides.
func New(optFns ...func(o *Options)) *StackMesh {
	opts := Options{
		Logger:   logging.NewLogger(logging.DefaultLoggerConfig()),
		RunLog:   eventlog.NewInMemoryLog(),
		Registry: invoker.NewRegistry(),
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &StackMesh{opts: opts}
}

// Registry exposes the invoker registry so that callers can bind in-process
// functions or additional schemes before running.
func (m *StackMesh) Registry() *invoker.Registry { return m.opts.Registry }

// LoadStack reads and parses a YAML stack declaration. Parsing alone does
// not validate references; call Validate or Plan for that.
func (m *StackMesh) LoadStack(path string) error {
	decl, warnings, err := stackfile.Load(path)
	if err != nil {
		return err
	}

	return m.useStack(decl, warnings)
}

// ParseStack parses a YAML stack declaration from memory.
func (m *StackMesh) ParseStack(data []byte) error {
	decl, warnings, err := stackfile.Parse(data)
	if err != nil {
		return err
	}

	return m.useStack(decl, warnings)
}

// UseStack installs an already constructed declaration.
func (m *StackMesh) UseStack(decl core.StackDecl) error {
	return m.useStack(decl, nil)
}

func (m *StackMesh) useStack(decl core.StackDecl, warnings []string) error {
	m.decl = decl
	m.warnings = warnings
	m.g = nil
	m.p = nil
	m.coord = nil

	for _, w := range warnings {
		m.opts.Logger.Warn("stack declaration warning: %s", w)
	}

	return nil
}

// Warnings returns the non-fatal warnings collected while parsing the
// current stack declaration.
func (m *StackMesh) Warnings() []string { return m.warnings }

// Validate checks the current declaration's names, references, types and
// acyclicity. The returned error is a core.ValidationErrors carrying every
// finding, or nil when the stack is valid.
func (m *StackMesh) Validate() error {
	g, err := graph.Build(m.decl)
	if err != nil {
		return err
	}

	m.g = g

	return nil
}

// Graph returns the validated dependency graph, building it on first use.
func (m *StackMesh) Graph() (*graph.StackGraph, error) {
	if m.g == nil {
		if err := m.Validate(); err != nil {
			return nil, err
		}
	}

	return m.g, nil
}

// Plan computes the tiered execution plan for the current stack, validating
// it first when needed. The plan is cached against the graph fingerprint and
// recomputed when the declaration changes.
func (m *StackMesh) Plan() (*plan.ExecutionPlan, error) {
	g, err := m.Graph()
	if err != nil {
		return nil, err
	}

	if m.p != nil && m.p.Fingerprint() == g.Fingerprint() {
		return m.p, nil
	}

	p, err := plan.Compute(g)
	if err != nil {
		return nil, err
	}

	m.p = p
	m.coord = nil

	return p, nil
}

// Propagate returns the downstream dirty set of the given changed agents in
// execution order, without mutating any run state. Use Invalidate to also
// mark the closure stale for the next Run.
func (m *StackMesh) Propagate(changed ...string) ([]string, error) {
	g, err := m.Graph()
	if err != nil {
		return nil, err
	}

	p, err := m.Plan()
	if err != nil {
		return nil, err
	}

	return propagate.New(g, p).Dirty(changed...)
}

// Invalidate marks the downstream closure of the given agents stale on the
// live coordinator so that the next Run re-executes it.
func (m *StackMesh) Invalidate(changed ...string) ([]string, error) {
	coord, err := m.coordinator()
	if err != nil {
		return nil, err
	}

	return coord.Invalidate(changed...)
}

// Run validates, plans and executes the current stack, returning the
// coordinator's report. Repeated calls reuse the coordinator's run states,
// so only pending and stale agents execute.
func (m *StackMesh) Run(ctx context.Context) (*coordinator.Report, error) {
	coord, err := m.coordinator()
	if err != nil {
		return nil, err
	}

	return coord.Run(ctx)
}

// States returns a snapshot of the per-agent run states of the live
// coordinator.
func (m *StackMesh) States() (map[string]core.RunState, error) {
	coord, err := m.coordinator()
	if err != nil {
		return nil, err
	}

	return coord.States(), nil
}

func (m *StackMesh) coordinator() (*coordinator.Coordinator, error) {
	p, err := m.Plan()
	if err != nil {
		return nil, err
	}

	if m.coord != nil {
		return m.coord, nil
	}

	coord, err := coordinator.New(m.g, p, func(o *coordinator.Options) {
		o.Logger = m.opts.Logger
		o.RunLog = m.opts.RunLog
		o.Resolver = m.opts.Resolver
		o.Registry = m.opts.Registry
	})
	if err != nil {
		return nil, err
	}

	m.coord = coord

	return coord, nil
}
