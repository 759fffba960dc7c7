// Package core provides the foundational domain types, interfaces and error
// taxonomy used by StackMesh. It defines the core abstractions for:
//
//   - Agent declarations (named units of computation with typed inputs/outputs)
//   - Stack policies (auto_restart, cascade_stop, parallel_init)
//   - Run state (the per-agent execution state machine)
//   - Invokers (the pluggable agent implementation contract)
//   - Source resolvers (external data fed into leaf agents)
//   - The append-only run log consumed by downstream analysis
//
// The package intentionally keeps implementation concerns (declaration
// parsing, graph construction, planning, coordination) out of scope, exposing
// small interfaces to enable custom backends and extensions.
package core
