package api

import (
	"time"

	"clipfit/internal/deps"
	"clipfit/internal/history"
	"clipfit/internal/ladder"
	"clipfit/internal/worker"
)

// FromRun converts a history record to its API representation.
func FromRun(run history.Run) Run {
	dto := Run{
		ID:           run.ID,
		Filename:     run.Filename,
		Status:       string(run.Status),
		InputSize:    run.InputSize,
		TargetSize:   run.TargetSize,
		OutputSize:   run.OutputSize,
		OutputPath:   run.OutputPath,
		Attempts:     run.Attempts,
		FinalBitrate: run.FinalBitrate,
		ReductionPct: run.Reduction(),
		ErrorKind:    run.ErrorKind,
		ErrorMessage: run.ErrorMessage,
		Suggestion:   run.Suggestion,
		StartedAt:    formatTime(run.StartedAt),
		Metadata:     run.Metadata,
	}
	if run.FinishedAt != nil {
		dto.FinishedAt = formatTime(*run.FinishedAt)
		dto.DurationSeconds = run.Duration().Seconds()
	}
	return dto
}

// FromRuns converts a slice of history records into API DTOs.
func FromRuns(runs []history.Run) []Run {
	out := make([]Run, 0, len(runs))
	for _, run := range runs {
		out = append(out, FromRun(run))
	}
	return out
}

// FromAttempts converts persisted attempts into API DTOs.
func FromAttempts(records []history.AttemptRecord) []Attempt {
	out := make([]Attempt, 0, len(records))
	for _, rec := range records {
		out = append(out, Attempt{
			Attempt:        rec.Attempt,
			VideoBitrate:   rec.Params.VideoBitrate,
			AudioBitrate:   rec.Params.AudioBitrate,
			Width:          rec.Params.Width,
			Height:         rec.Params.Height,
			FPS:            rec.Params.FPS,
			OutputSize:     rec.OutputSize,
			ElapsedSeconds: rec.Elapsed.Seconds(),
			Profile:        rec.Profile,
			Decision:       rec.Decision,
		})
	}
	return out
}

// FromWorkerStatus converts a worker host snapshot.
func FromWorkerStatus(status worker.Status) WorkerStatus {
	stage := status.Stage
	if stage == "" {
		stage = ladder.StageIdle
	}
	return WorkerStatus{
		RunID:      status.RunID,
		Filename:   status.Filename,
		Active:     status.Active,
		Stage:      string(stage),
		StageLabel: stage.Label(),
		Percent:    status.Percent,
		Attempt:    status.Attempt,
		Message:    status.Message,
		StartedAt:  formatTime(status.Started),
	}
}

// FromDependencies converts dependency check results.
func FromDependencies(statuses []deps.Status) []DependencyStatus {
	out := make([]DependencyStatus, len(statuses))
	for i, dep := range statuses {
		out[i] = DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
		}
	}
	return out
}

// RunStats converts history status counts into string-keyed counts.
func RunStats(stats map[history.Status]int) map[string]int {
	out := make(map[string]int, len(stats))
	for status, count := range stats {
		out[string(status)] = count
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
