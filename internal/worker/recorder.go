package worker

import (
	"context"
	"time"

	"clipfit/internal/bitrate"
	"clipfit/internal/ladder"
	"clipfit/internal/media"
)

// RunInfo describes a run as it starts.
type RunInfo struct {
	ID        string
	Filename  string
	InputSize int64
	Settings  bitrate.Settings
	Started   time.Time
}

// Outcome is the terminal state of a run. Status is one of
// ladder.StageComplete, ladder.StageError, or ladder.StageCancelled.
type Outcome struct {
	Status   ladder.Stage
	Metadata *media.VideoMetadata
	Result   *ladder.Result
	Error    *ErrorMessage
	Finished time.Time
}

// Recorder observes run lifecycles. Implementations must not block for long;
// they run on the worker goroutine.
type Recorder interface {
	RunStarted(ctx context.Context, run RunInfo)
	AttemptFinished(ctx context.Context, runID string, attempt ladder.Attempt)
	RunFinished(ctx context.Context, runID string, outcome Outcome)
}
