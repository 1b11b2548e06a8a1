// Package store provides SQLite-backed compile-run history.
//
// Every pipeline invocation the CLI makes can be recorded as a run: the
// content hashes of its inputs, the plan fingerprint, the merged resource
// report and per-pass statistics. The history answers "did this network
// map the same way last time" without re-running the pipeline.
//
// # Ordering
//
// Runs carry a store-assigned seq (logical clock). All queries order by
// seq, never by wall time, so listings are identical across machines and
// clock skew.
//
// # Idempotency
//
// Recording a run whose id already exists is a no-op that returns the
// stored run.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Reports are stored as canonical JSON (see ir.MarshalCanonical).
package store
