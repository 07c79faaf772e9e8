package notifications

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"clipfit/internal/ladder"
	"clipfit/internal/logging"
	"clipfit/internal/worker"
)

// Recorder sends a notification when a run finishes. Sends happen on their
// own goroutine so a slow ntfy server never delays the worker.
type Recorder struct {
	svc       Service
	logger    *slog.Logger
	onSuccess bool
	onFailure bool
	timeout   time.Duration

	mu   sync.Mutex
	runs map[string]worker.RunInfo
	wg   sync.WaitGroup
}

// NewRecorder wraps svc. Cancelled runs are never notified.
func NewRecorder(svc Service, logger *slog.Logger, onSuccess, onFailure bool, timeout time.Duration) *Recorder {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Recorder{
		svc:       svc,
		logger:    logging.NewComponentLogger(logger, "notifications"),
		onSuccess: onSuccess,
		onFailure: onFailure,
		timeout:   timeout,
		runs:      make(map[string]worker.RunInfo),
	}
}

// RunStarted implements worker.Recorder.
func (r *Recorder) RunStarted(_ context.Context, run worker.RunInfo) {
	r.mu.Lock()
	r.runs[run.ID] = run
	r.mu.Unlock()
}

// AttemptFinished implements worker.Recorder.
func (r *Recorder) AttemptFinished(context.Context, string, ladder.Attempt) {}

// RunFinished implements worker.Recorder.
func (r *Recorder) RunFinished(_ context.Context, runID string, outcome worker.Outcome) {
	r.mu.Lock()
	info := r.runs[runID]
	delete(r.runs, runID)
	r.mu.Unlock()

	var send func(context.Context) error
	switch {
	case outcome.Status == ladder.StageComplete && outcome.Result != nil && r.onSuccess:
		res := outcome.Result
		finished := outcome.Finished
		if finished.IsZero() {
			finished = time.Now()
		}
		completed := Completed{
			Filename:     info.Filename,
			OriginalSize: res.OriginalSize,
			OutputSize:   res.OutputSize,
			OutputPath:   res.OutputPath,
			Attempts:     res.Attempts,
			Elapsed:      finished.Sub(info.Started),
		}
		send = func(ctx context.Context) error { return r.svc.NotifyRunCompleted(ctx, completed) }
	case outcome.Status == ladder.StageError && outcome.Error != nil && r.onFailure:
		failed := Failed{
			Filename:   info.Filename,
			Kind:       string(outcome.Error.FailureKind),
			Message:    outcome.Error.Message,
			Suggestion: outcome.Error.Suggestion,
		}
		send = func(ctx context.Context) error { return r.svc.NotifyRunFailed(ctx, failed) }
	default:
		return
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		if err := send(ctx); err != nil {
			logging.WarnWithContext(r.logger, "notification failed", "notification_failed",
				logging.String(logging.FieldRunID, runID),
				logging.Error(err),
				logging.String(logging.FieldImpact, "run outcome was not pushed"),
			)
		}
	}()
}

// Wait blocks until in-flight notifications finish.
func (r *Recorder) Wait() {
	r.wg.Wait()
}
