// Package daemon coordinates the long-running clipfit process.
//
// It wires configuration, the run history store, the worker host, metrics,
// and notifications into a single lifecycle with flock-based locking to
// prevent multiple instances. Submitted runs stream their worker messages into
// a bounded per-run event log that IPC and HTTP clients poll by sequence
// number. A janitor goroutine removes abandoned staging directories and old
// run logs while the daemon is up.
//
// Keep orchestration logic here: the compression itself lives in the worker,
// ladder, and encoding packages while the daemon focuses on startup, shutdown,
// and high level coordination.
package daemon
