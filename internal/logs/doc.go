// Package logs reads clipfit's daemon and per-run log files for the CLI.
//
// Tail returns the last N lines of a file or everything after a byte offset,
// optionally waiting for new lines in follow mode. Filter narrows lines by
// minimum level and run ID and understands both the console and JSON log
// formats. RunLogPath resolves a per-run log from a run ID prefix.
package logs
