// Package coordinator executes a computed plan tier by tier and owns the
// per-agent run state machine.
//
// Responsibilities:
//   - Walk the plan's tiers in order, completing each tier before the next
//     one starts.
//   - Run agents within a tier concurrently when the stack's parallel_init
//     policy is set, otherwise in declaration order.
//   - Apply the auto_restart policy: retry failed invocations with
//     exponential backoff up to the configured attempt limit.
//   - Apply the cascade_stop policy: transition every not-yet-started
//     downstream dependent of a failed agent to failed without executing it.
//   - Emit an append-only record stream to the configured run log.
//
// The coordinator is the sole writer of agent run states. Change
// propagation feeds back into it through Invalidate, which marks the
// downstream closure of a changed agent stale so that a subsequent Run
// re-executes exactly that closure.
package coordinator
