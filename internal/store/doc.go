// Package store provides SQLite-backed durable storage for run journals.
//
// The store implements an append-only log with:
//   - Runs: one row per journaled execution (config path or scenario)
//   - Steps: transitions, dropped events, hook failures, diagnostics,
//     output changes and lifecycle notes, in logical order
//
// # Critical Patterns
//
// Idempotent Writes:
//   - Step ids are content-addressed (ir.StepID)
//   - INSERT ... ON CONFLICT(id) DO NOTHING makes rewrites harmless
//
// Logical Time:
//   - All ordering uses seq INTEGER (logical clock), NEVER timestamps
//   - Two runs of the same scenario produce identical step rows
//
// Deterministic Query Results:
//   - All queries include ORDER BY seq ASC, id ASC COLLATE BINARY
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Steps must reference an existing run
package store
