// Package queue persists guided-assembly runs in SQLite and exposes the
// conditional status transitions that drive their lifecycle.
//
// The Store manages database connections, schema initialization, the
// append-only event log, device presence heartbeats, and the single-statement
// guarded updates (claim, finish, abort) that keep concurrent kiosks from
// corrupting a run's status. A run only ever moves pending -> active ->
// finished|aborted; the guard is part of the UPDATE itself, never a separate
// read.
//
// Treat this package as the single source of truth for run semantics; when you
// add statuses or columns, update schema.sql and bump schemaVersion.
package queue
