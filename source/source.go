// Package source resolves "external:<id>" input bindings. External sources
// sit outside the dependency graph — workspace context files, environment
// variables, values fed in by the caller — and are never subject to change
// propagation.
//
// Resolvers compose: a Mux dispatches ids to bound resolvers with an
// optional fallback, so a CLI can wire a context directory plus environment
// lookup while tests inject Static values.
package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hupe1980/stackmesh/core"
	"gopkg.in/yaml.v3"
)

// Func adapts a plain function to core.SourceResolver.
type Func func(ctx context.Context, id string) (any, error)

// Resolve implements core.SourceResolver.
func (f Func) Resolve(ctx context.Context, id string) (any, error) { return f(ctx, id) }

// Static resolves ids from a fixed in-process map. Useful for tests and
// programmatic runs.
type Static map[string]any

// Resolve implements core.SourceResolver.
func (s Static) Resolve(_ context.Context, id string) (any, error) {
	v, ok := s[id]
	if !ok {
		return nil, fmt.Errorf("source: unknown external source %q", id)
	}
	return v, nil
}

// Env resolves ids as environment variable names. Unset variables are an
// error so a missing binding fails loudly instead of producing an empty
// input.
type Env struct{}

// Resolve implements core.SourceResolver.
func (Env) Resolve(_ context.Context, id string) (any, error) {
	v, ok := os.LookupEnv(id)
	if !ok {
		return nil, fmt.Errorf("source: environment variable %q is not set", id)
	}
	return v, nil
}

// Dir resolves ids as YAML documents under a root directory: id "ctx"
// resolves to <Root>/ctx.yaml parsed into a generic mapping. This mirrors
// workspace context directories where each file is one named context.
type Dir struct {
	Root string
	// Ext overrides the default ".yaml" file extension.
	Ext string
}

// Resolve implements core.SourceResolver.
func (d Dir) Resolve(_ context.Context, id string) (any, error) {
	ext := d.Ext
	if ext == "" {
		ext = ".yaml"
	}
	path := filepath.Join(d.Root, filepath.Base(id)+ext)
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("source: read %q: %w", path, err)
	}
	var doc map[string]any
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("source: parse %q: %w", path, err)
	}
	return doc, nil
}

// Mux dispatches ids to bound resolvers, falling back to an optional default
// resolver for unbound ids. Bindings are fixed after construction; Mux is
// safe for concurrent reads.
type Mux struct {
	bindings map[string]core.SourceResolver
	fallback core.SourceResolver
}

// NewMux builds a Mux with exact-id bindings and an optional fallback
// (nil means unbound ids are an error).
func NewMux(fallback core.SourceResolver) *Mux {
	return &Mux{bindings: map[string]core.SourceResolver{}, fallback: fallback}
}

// Bind routes an id to a resolver, returning the Mux for chaining.
func (m *Mux) Bind(id string, r core.SourceResolver) *Mux {
	m.bindings[id] = r
	return m
}

// Resolve implements core.SourceResolver.
func (m *Mux) Resolve(ctx context.Context, id string) (any, error) {
	if r, ok := m.bindings[id]; ok {
		return r.Resolve(ctx, id)
	}
	if m.fallback != nil {
		return m.fallback.Resolve(ctx, id)
	}
	return nil, fmt.Errorf("source: no resolver bound for external source %q", id)
}

// Chain tries each resolver in order and returns the first success. All
// failures are aggregated into the returned error.
type Chain []core.SourceResolver

// Resolve implements core.SourceResolver.
func (c Chain) Resolve(ctx context.Context, id string) (any, error) {
	var errs []error
	for _, r := range c {
		v, err := r.Resolve(ctx, id)
		if err == nil {
			return v, nil
		}
		errs = append(errs, err)
	}
	return nil, fmt.Errorf("source: external source %q did not resolve: %v", id, errs)
}
