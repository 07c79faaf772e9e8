package history

import (
	"context"
	"log/slog"

	"clipfit/internal/ladder"
	"clipfit/internal/logging"
	"clipfit/internal/worker"
)

// Recorder persists worker run lifecycles into a Store.
type Recorder struct {
	store    *Store
	logger   *slog.Logger
	keepRuns int
}

// NewRecorder wraps store. keepRuns bounds how many runs are retained after
// each finished run; zero keeps everything.
func NewRecorder(store *Store, logger *slog.Logger, keepRuns int) *Recorder {
	return &Recorder{
		store:    store,
		logger:   logging.NewComponentLogger(logger, "history"),
		keepRuns: keepRuns,
	}
}

// RunStarted inserts the running row.
func (r *Recorder) RunStarted(ctx context.Context, run worker.RunInfo) {
	if err := r.store.CreateRun(ctx, run.ID, run.Filename, run.InputSize, run.Settings, run.Started); err != nil {
		logging.WarnWithContext(r.logger, "record run start failed", "history_write_failed",
			logging.String(logging.FieldRunID, run.ID),
			logging.Error(err),
			logging.String(logging.FieldImpact, "run will be missing from history"),
		)
	}
}

// AttemptFinished stores one attempt.
func (r *Recorder) AttemptFinished(ctx context.Context, runID string, attempt ladder.Attempt) {
	rec := AttemptRecord{
		RunID:      runID,
		Attempt:    attempt.Index,
		Params:     attempt.Params,
		OutputSize: attempt.OutputSize,
		Elapsed:    attempt.Elapsed,
		Profile:    attempt.Profile,
		Decision:   string(attempt.Decision),
	}
	if err := r.store.RecordAttempt(ctx, rec); err != nil {
		logging.WarnWithContext(r.logger, "record attempt failed", "history_write_failed",
			logging.String(logging.FieldRunID, runID),
			logging.Int("attempt", attempt.Index),
			logging.Error(err),
		)
	}
}

// RunFinished writes the terminal row and prunes old runs.
func (r *Recorder) RunFinished(ctx context.Context, runID string, outcome worker.Outcome) {
	if err := r.store.FinishRun(ctx, runID, FinishFromOutcome(outcome)); err != nil {
		logging.WarnWithContext(r.logger, "record run finish failed", "history_write_failed",
			logging.String(logging.FieldRunID, runID),
			logging.Error(err),
		)
		return
	}
	if r.keepRuns <= 0 {
		return
	}
	removed, err := r.store.Prune(ctx, r.keepRuns)
	if err != nil {
		logging.WarnWithContext(r.logger, "prune history failed", "history_prune_failed", logging.Error(err))
		return
	}
	if removed > 0 {
		r.logger.Debug("pruned run history", logging.Int64("removed", removed), logging.Int("keep", r.keepRuns))
	}
}

// FinishFromOutcome maps a worker outcome onto the persisted terminal fields.
func FinishFromOutcome(outcome worker.Outcome) Finish {
	f := Finish{
		Metadata:   outcome.Metadata,
		FinishedAt: outcome.Finished,
	}
	switch outcome.Status {
	case ladder.StageComplete:
		f.Status = StatusComplete
	case ladder.StageCancelled:
		f.Status = StatusCancelled
	default:
		f.Status = StatusFailed
	}
	if res := outcome.Result; res != nil {
		f.OutputPath = res.OutputPath
		f.OutputSize = res.OutputSize
		f.Attempts = res.Attempts
		f.FinalBitrate = res.FinalBitrate
	}
	if e := outcome.Error; e != nil {
		f.ErrorKind = string(e.FailureKind)
		f.ErrorMessage = e.Message
		f.Suggestion = e.Suggestion
		if f.OutputSize == 0 {
			f.OutputSize = e.BestSize
		}
	}
	return f
}
