package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/stackmesh/core"
	"github.com/hupe1980/stackmesh/eventlog"
	"github.com/hupe1980/stackmesh/graph"
	"github.com/hupe1980/stackmesh/invoker"
	"github.com/hupe1980/stackmesh/logging"
	"github.com/hupe1980/stackmesh/plan"
	"github.com/hupe1980/stackmesh/propagate"
)

// Options configures a Coordinator.
type Options struct {
	// Logger receives structured progress events.
	Logger *logging.StackMeshLogger

	// RunLog receives the append-only record stream. Defaults to an
	// in-memory log.
	RunLog core.RunLog

	// Resolver supplies values for "external:<id>" input sources. Runs of
	// stacks without external inputs work without one.
	Resolver core.SourceResolver

	// Registry resolves agent implementations. Defaults to a registry with
	// the built-in schemes.
	Registry *invoker.Registry
}

// Coordinator drives a stack through its execution plan. It owns the
// per-agent run states; callers observe them through States and the Report
// returned by Run.
type Coordinator struct {
	g        *graph.StackGraph
	p        *plan.ExecutionPlan
	prop     *propagate.Engine
	invokers map[string]core.Invoker
	opts     Options

	mu     sync.Mutex
	states map[string]*core.RunState
}

// New builds a Coordinator for the given graph and plan. Every agent's
// implementation is resolved up front so that misconfigured stacks fail
// before any agent runs.
func New(g *graph.StackGraph, p *plan.ExecutionPlan, optFns ...func(o *Options)) (*Coordinator, error) {
	opts := Options{
		Logger: logging.NewLogger(logging.DefaultLoggerConfig()),
		RunLog: eventlog.NewInMemoryLog(),
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Registry == nil {
		opts.Registry = invoker.NewRegistry()
	}

	invokers := make(map[string]core.Invoker, g.Len())
	states := make(map[string]*core.RunState, g.Len())

	for _, agent := range g.Agents() {
		inv, err := opts.Registry.Resolve(agent)
		if err != nil {
			return nil, err
		}

		invokers[agent.Name] = inv
		states[agent.Name] = &core.RunState{Status: core.StatusPending}
	}

	return &Coordinator{
		g:        g,
		p:        p,
		prop:     propagate.New(g, p),
		invokers: invokers,
		opts:     opts,
		states:   states,
	}, nil
}

// States returns a snapshot of every agent's run state.
func (c *Coordinator) States() map[string]core.RunState {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := make(map[string]core.RunState, len(c.states))
	for name, st := range c.states {
		snap[name] = st.Clone()
	}

	return snap
}

// Invalidate marks the downstream closure of the given agents stale so that
// the next Run re-executes it. The frontier agents themselves are marked
// stale too when they already succeeded. It returns the downstream dirty
// set in execution order.
func (c *Coordinator) Invalidate(frontier ...string) ([]string, error) {
	dirty, err := c.prop.Dirty(frontier...)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	propagate.MarkStale(c.states, frontier)
	propagate.MarkStale(c.states, dirty)

	return dirty, nil
}

// Run executes every pending or stale agent tier by tier and returns a
// report of the pass. A failed agent makes the report unsuccessful but is
// not returned as an error; errors are reserved for coordinator-level
// faults such as a broken run log.
func (c *Coordinator) Run(ctx context.Context) (*Report, error) {
	runID := core.NewID()
	pol := c.g.Policies()
	logger := c.opts.Logger.WithComponent("coordinator").WithRun(c.g.Name(), runID)

	started := time.Now().UTC()

	if err := c.opts.RunLog.Append(core.NewRunRecord(runID, c.g.Name(), "", core.RecordRunStarted)); err != nil {
		return nil, fmt.Errorf("coordinator: append run record: %w", err)
	}

	logger.Info("run started tiers=%d agents=%d", len(c.p.Tiers()), c.g.Len())

	for _, tier := range c.p.Tiers() {
		runnable := c.runnable(tier)
		if len(runnable) == 0 {
			continue
		}

		if pol.ParallelInit && len(runnable) > 1 {
			grp, grpCtx := errgroup.WithContext(ctx)

			for _, name := range runnable {
				name := name
				grp.Go(func() error {
					c.runAgent(grpCtx, runID, logger, name)
					return nil
				})
			}

			// Agent failures are captured in run states, never as
			// group errors, so Wait only observes context faults.
			_ = grp.Wait()
		} else {
			for _, name := range runnable {
				c.runAgent(ctx, runID, logger, name)
			}
		}

		if pol.CascadeStop {
			if err := c.cascade(runID, logger, tier); err != nil {
				return nil, err
			}
		}

		if ctx.Err() != nil {
			break
		}
	}

	rep := c.buildReport(runID, started)

	if err := c.opts.RunLog.Append(core.NewRunRecord(runID, c.g.Name(), "", core.RecordRunFinished)); err != nil {
		return nil, fmt.Errorf("coordinator: append run record: %w", err)
	}

	logger.LogPlanRun(len(c.p.Tiers()), c.g.Len(), time.Since(started), rep.Succeeded, nil)

	return rep, nil
}

// runnable filters a tier down to the agents that still need to execute.
func (c *Coordinator) runnable(tier []string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]string, 0, len(tier))

	for _, name := range tier {
		switch c.states[name].Status {
		case core.StatusPending, core.StatusStale:
			out = append(out, name)
		}
	}

	return out
}

// runAgent executes one agent including input resolution and retries. All
// outcomes land in the agent's run state.
func (c *Coordinator) runAgent(ctx context.Context, runID string, logger *logging.StackMeshLogger, name string) {
	agent, _ := c.g.Agent(name)
	pol := c.g.Policies()

	c.transition(name, core.StatusRunning)

	inputs, err := c.resolveInputs(ctx, agent)
	if err != nil {
		c.fail(runID, logger, name, 0, &core.ExecutionError{Agent: name, Attempts: 0, Err: err})
		return
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = pol.Backoff()

	attempts := pol.Attempts()

	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		rec := core.NewRunRecord(runID, c.g.Name(), name, core.RecordAgentStarted)
		rec.Attempt = attempt
		_ = c.opts.RunLog.Append(rec)

		attemptStart := time.Now()
		outputs, err := c.invoke(ctx, agent, inputs)
		logger.LogAgentRun(name, attempt, time.Since(attemptStart), err == nil, err)

		if err == nil {
			c.succeed(runID, name, attempt, outputs)
			return
		}

		lastErr = err

		if attempt == attempts || ctx.Err() != nil {
			break
		}

		retry := core.NewRunRecord(runID, c.g.Name(), name, core.RecordAgentRetried)
		retry.Attempt = attempt
		retry.Error = err.Error()
		_ = c.opts.RunLog.Append(retry)

		select {
		case <-ctx.Done():
			lastErr = ctx.Err()
		case <-time.After(bo.NextBackOff()):
		}
	}

	c.fail(runID, logger, name, attempts, &core.ExecutionError{
		Agent:    name,
		Attempts: attempts,
		TimedOut: errors.Is(lastErr, context.DeadlineExceeded),
		Err:      lastErr,
	})
}

// invoke runs the agent's implementation under its declared timeout and
// checks that every declared output is present.
func (c *Coordinator) invoke(ctx context.Context, agent core.AgentSpec, inputs core.Values) (core.Values, error) {
	if agent.Timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, agent.Timeout)
		defer cancel()
	}

	raw, err := c.invokers[agent.Name].Invoke(ctx, inputs)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		return nil, err
	}

	outputs := make(core.Values, len(agent.Outputs))

	for _, out := range agent.Outputs {
		value, ok := raw[out.Name]
		if !ok {
			return nil, fmt.Errorf("declared output %q missing from result", out.Name)
		}

		outputs[out.Name] = value
	}

	return outputs, nil
}

// resolveInputs gathers input values from upstream outputs and external
// sources.
func (c *Coordinator) resolveInputs(ctx context.Context, agent core.AgentSpec) (core.Values, error) {
	inputs := make(core.Values, len(agent.Inputs))

	for _, in := range agent.Inputs {
		if in.IsExternal() {
			if c.opts.Resolver == nil {
				return nil, fmt.Errorf("input %q needs external source %q but no resolver is configured", in.Name, in.ExternalID())
			}

			value, err := c.opts.Resolver.Resolve(ctx, in.ExternalID())
			if err != nil {
				return nil, fmt.Errorf("resolve external source %q: %w", in.ExternalID(), err)
			}

			inputs[in.Name] = value

			continue
		}

		producer, output, _ := in.ProducerRef()

		c.mu.Lock()
		st := c.states[producer]

		if st.Status != core.StatusSucceeded {
			c.mu.Unlock()
			return nil, fmt.Errorf("producer %q has not succeeded (status %s)", producer, st.Status)
		}

		value, ok := st.LastOutputs[output]
		c.mu.Unlock()

		if !ok {
			return nil, fmt.Errorf("producer %q holds no output %q", producer, output)
		}

		inputs[in.Name] = value
	}

	return inputs, nil
}

// cascade transitions every downstream dependent of the tier's failed agents
// to failed without executing it.
func (c *Coordinator) cascade(runID string, logger *logging.StackMeshLogger, tier []string) error {
	var failed []string

	c.mu.Lock()
	for _, name := range tier {
		st := c.states[name]
		if st.Status == core.StatusFailed && !st.Skipped {
			failed = append(failed, name)
		}
	}
	c.mu.Unlock()

	if len(failed) == 0 {
		return nil
	}

	downstream, err := c.prop.Dirty(failed...)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, name := range downstream {
		st := c.states[name]
		if st.Status.Terminal() {
			continue
		}

		st.Status = core.StatusFailed
		st.Skipped = true
		st.Err = fmt.Errorf("skipped: upstream producer failed")

		rec := core.NewRunRecord(runID, c.g.Name(), name, core.RecordAgentSkipped)
		_ = c.opts.RunLog.Append(rec)

		logger.Warn("agent skipped: upstream producer of %s failed", name)
	}

	return nil
}

func (c *Coordinator) transition(name string, next core.Status) {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := c.states[name]
	if st.Status.CanTransition(next) {
		st.Status = next
	}
}

func (c *Coordinator) succeed(runID, name string, attempt int, outputs core.Values) {
	c.mu.Lock()
	st := c.states[name]
	st.Status = core.StatusSucceeded
	st.LastOutputs = outputs
	st.LastRun = time.Now().UTC()
	st.Attempts = attempt
	st.Skipped = false
	st.Err = nil
	c.mu.Unlock()

	rec := core.NewRunRecord(runID, c.g.Name(), name, core.RecordAgentSucceeded)
	rec.Attempt = attempt
	rec.Outputs = outputs.Clone()
	_ = c.opts.RunLog.Append(rec)
}

func (c *Coordinator) fail(runID string, logger *logging.StackMeshLogger, name string, attempts int, execErr *core.ExecutionError) {
	c.mu.Lock()
	st := c.states[name]
	st.Status = core.StatusFailed
	st.LastRun = time.Now().UTC()
	st.Attempts = attempts
	st.Err = execErr
	c.mu.Unlock()

	rec := core.NewRunRecord(runID, c.g.Name(), name, core.RecordAgentFailed)
	rec.Attempt = attempts
	rec.Error = execErr.Error()
	_ = c.opts.RunLog.Append(rec)

	logger.Error("agent %s failed after %d attempt(s): %v", name, attempts, execErr)
}
