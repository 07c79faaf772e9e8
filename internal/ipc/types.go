package ipc

import (
	"clipfit/internal/api"
	"clipfit/internal/bitrate"
	"clipfit/internal/worker"
)

// SubmitRequest asks the daemon to compress a file. A nil Settings uses the
// daemon's configured defaults.
type SubmitRequest struct {
	Path       string            `json:"path"`
	Filename   string            `json:"filename,omitempty"`
	OutputPath string            `json:"output_path,omitempty"`
	Settings   *bitrate.Settings `json:"settings,omitempty"`
}

// SubmitResponse names the started run.
type SubmitResponse struct {
	RunID string `json:"run_id"`
}

// EventsRequest polls a run's event log. WaitMillis bounds how long the
// daemon holds the call open when no new events are available.
type EventsRequest struct {
	RunID      string `json:"run_id"`
	After      int64  `json:"after"`
	WaitMillis int64  `json:"wait_millis,omitempty"`
}

// EventsResponse carries envelopes after the requested sequence.
type EventsResponse struct {
	Events []worker.Envelope `json:"events"`
	Next   int64             `json:"next"`
	Done   bool              `json:"done"`
	Missed int64             `json:"missed,omitempty"`
}

// CancelRequest stops the active run.
type CancelRequest struct{}

// CancelResponse reports whether a run was active.
type CancelResponse struct {
	Cancelled bool `json:"cancelled"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse represents combined daemon and worker status information.
type StatusResponse = api.DaemonStatus

// RunsRequest lists recent runs.
type RunsRequest struct {
	Limit int `json:"limit"`
}

// RunsResponse contains recent runs, newest first.
type RunsResponse = api.RunListResponse

// RunRequest fetches a run by ID or unique ID prefix.
type RunRequest struct {
	ID string `json:"id"`
}

// RunResponse contains a run and its attempts.
type RunResponse = api.RunResponse

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports whether a test notification was sent.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
