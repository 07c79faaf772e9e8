// Package notifications pushes run outcomes to ntfy.
//
// NewService returns a no-op implementation when no topic is configured, so
// callers never need to check whether notifications are enabled. Recorder
// adapts a Service to worker.Recorder and applies the on_success/on_failure
// toggles from config.
package notifications
