package history

import (
	"time"

	"clipfit/internal/bitrate"
	"clipfit/internal/media"
)

// Status is the persisted state of a run.
type Status string

const (
	StatusRunning     Status = "running"
	StatusComplete    Status = "complete"
	StatusFailed      Status = "failed"
	StatusCancelled   Status = "cancelled"
	StatusInterrupted Status = "interrupted"
)

// Run is one recorded compression run.
type Run struct {
	ID           string               `json:"id"`
	Filename     string               `json:"filename"`
	InputSize    int64                `json:"input_size"`
	TargetSize   int64                `json:"target_size"`
	Settings     bitrate.Settings     `json:"settings"`
	Metadata     *media.VideoMetadata `json:"metadata,omitempty"`
	Status       Status               `json:"status"`
	OutputPath   string               `json:"output_path,omitempty"`
	OutputSize   int64                `json:"output_size,omitempty"`
	Attempts     int                  `json:"attempts"`
	FinalBitrate int64                `json:"final_bitrate,omitempty"`
	ErrorKind    string               `json:"error_kind,omitempty"`
	ErrorMessage string               `json:"error_message,omitempty"`
	Suggestion   string               `json:"suggestion,omitempty"`
	StartedAt    time.Time            `json:"started_at"`
	FinishedAt   *time.Time           `json:"finished_at,omitempty"`
}

// Duration returns how long the run took, or zero while it is running.
func (r Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Reduction is the percentage saved by a completed run.
func (r Run) Reduction() float64 {
	if r.Status != StatusComplete {
		return 0
	}
	return bitrate.Reduction(r.InputSize, r.OutputSize)
}

// AttemptRecord is one persisted encode attempt.
type AttemptRecord struct {
	RunID      string         `json:"run_id"`
	Attempt    int            `json:"attempt"`
	Params     bitrate.Params `json:"params"`
	OutputSize int64          `json:"output_size"`
	Elapsed    time.Duration  `json:"elapsed"`
	Profile    string         `json:"profile,omitempty"`
	Decision   string         `json:"decision"`
}

// Finish is the terminal data written by FinishRun.
type Finish struct {
	Status       Status
	Metadata     *media.VideoMetadata
	OutputPath   string
	OutputSize   int64
	Attempts     int
	FinalBitrate int64
	ErrorKind    string
	ErrorMessage string
	Suggestion   string
	FinishedAt   time.Time
}
