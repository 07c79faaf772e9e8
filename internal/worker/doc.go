// Package worker runs compression jobs behind a message protocol.
//
// Callers send Commands (StartCommand, CancelCommand) to a Host and read
// Messages back from a per-run channel. Each run produces, in order, a
// MetadataMessage once the input is probed, zero or more ProgressMessages,
// and exactly one terminal message: CompleteMessage, ErrorMessage, or a
// ProgressMessage whose stage is cancelled. The channel is closed after the
// terminal message.
//
// The Host runs at most one job at a time. Starting a new job cancels the
// active one and waits for it to finish before the new one begins.
//
// Envelope provides the JSON form of messages for the daemon and CLI.
package worker
