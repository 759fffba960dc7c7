package core

import "context"

// Values is the mapping passed between the coordinator and agent
// implementations: declared input names to current values on the way in,
// declared output names to produced values on the way out.
type Values map[string]any

// Clone returns a shallow copy so callers can mutate the map (not the values)
// without affecting the original.
func (v Values) Clone() Values {
	if v == nil {
		return nil
	}
	c := make(Values, len(v))
	for k, val := range v {
		c[k] = val
	}
	return c
}

// Invoker is the agent implementation contract. An invoker receives the
// current input mapping and either returns the produced output mapping or a
// distinguishable error result; failure is never signaled through an ordinary
// return value.
//
// Implementations must respect context cancellation: the coordinator bounds
// every invocation with the agent's time budget and treats expiry identically
// to a reported failure.
type Invoker interface {
	Invoke(ctx context.Context, inputs Values) (Values, error)
}

// InvokerFunc adapts a plain function to the Invoker interface.
type InvokerFunc func(ctx context.Context, inputs Values) (Values, error)

// Invoke implements Invoker.
func (f InvokerFunc) Invoke(ctx context.Context, inputs Values) (Values, error) {
	return f(ctx, inputs)
}

// SourceResolver resolves "external:<id>" input bindings outside the graph —
// workspace context files, environment variables, prior session logs.
// Externally sourced inputs are always considered non-dirty unless explicitly
// re-fed.
type SourceResolver interface {
	Resolve(ctx context.Context, id string) (any, error)
}
