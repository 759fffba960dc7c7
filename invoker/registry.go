package invoker

import (
	"fmt"
	"sync"

	"github.com/hupe1980/stackmesh/core"
)

// Factory builds an Invoker for a single agent. The agent carries the
// implementation path and any static configuration the invoker needs.
type Factory func(agent core.AgentSpec) (core.Invoker, error)

// Registry maps implementation schemes to factories and named in-process
// functions to their implementations. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	schemes   map[string]Factory
	functions map[string]core.InvokerFunc
}

// NewRegistry returns a Registry with the built-in "function" and "command"
// schemes registered. Model-backed schemes are added by their subpackages.
func NewRegistry() *Registry {
	r := &Registry{
		schemes:   make(map[string]Factory),
		functions: make(map[string]core.InvokerFunc),
	}

	r.RegisterScheme("command", func(agent core.AgentSpec) (core.Invoker, error) {
		return NewCommand(agent)
	})
	r.RegisterScheme("function", func(agent core.AgentSpec) (core.Invoker, error) {
		name := agent.Implementation.Target()

		r.mu.RLock()
		fn, ok := r.functions[name]
		r.mu.RUnlock()

		if !ok {
			return nil, fmt.Errorf("invoker: no function registered under %q", name)
		}

		return fn, nil
	})

	return r
}

// RegisterScheme binds a factory to an implementation scheme, replacing any
// previous binding for the same scheme.
func (r *Registry) RegisterScheme(scheme string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.schemes[scheme] = factory
}

// RegisterFunction binds an in-process function to a name reachable through
// the "function:<name>" implementation path.
func (r *Registry) RegisterFunction(name string, fn core.InvokerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.functions[name] = fn
}

// Resolve builds the invoker for the given agent from its implementation
// declaration.
func (r *Registry) Resolve(agent core.AgentSpec) (core.Invoker, error) {
	scheme := agent.Implementation.Scheme()
	if scheme == "" {
		return nil, fmt.Errorf("invoker: agent %q declares no implementation", agent.Name)
	}

	r.mu.RLock()
	factory, ok := r.schemes[scheme]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("invoker: unknown implementation scheme %q for agent %q", scheme, agent.Name)
	}

	return factory(agent)
}
