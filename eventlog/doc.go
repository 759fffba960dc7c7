// Package eventlog provides core.RunLog implementations: a volatile
// in-memory store for tests and ephemeral runs, and an append-only JSONL
// file store that makes the session history available to downstream analysis
// agents via a documented schema.
package eventlog
