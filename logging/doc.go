// Package logging provides structured logging for stack validation,
// planning and coordinated runs.
//
// The package offers two layers:
//   - Logger: a minimal leveled interface (Debug/Info/Warn/Error) with a
//     slog-backed adapter and a NoOpLogger for tests.
//   - StackMeshLogger: a contextual logger carrying the component, stack and
//     run id, plus helpers for recording agent invocations and whole plan
//     passes with durations.
//
// Defaults favor local development: text output on stderr at info level.
package logging
