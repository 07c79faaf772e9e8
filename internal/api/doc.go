// Package api defines wire-format types and converters for the IPC and HTTP
// API layer. It translates history runs, worker status, and dependency checks
// into transport-friendly DTOs that the CLI and other consumers can render
// without coupling to internal types.
//
// # Key Types
//
// Run/Attempt: a recorded compression run and its encode attempts.
//
// WorkerStatus: the active or most recent run as seen by the worker host.
//
// DaemonStatus: aggregated runtime information including dependencies.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Internal enums (history.Status, ladder.Stage,
// ladder.Decision) are exposed as lowercase strings. Timestamps use RFC3339
// with milliseconds.
package api
