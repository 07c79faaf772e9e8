package api

import (
	"testing"
	"time"

	"clipfit/internal/bitrate"
	"clipfit/internal/deps"
	"clipfit/internal/history"
	"clipfit/internal/ladder"
	"clipfit/internal/worker"
)

func TestFromRunCompleted(t *testing.T) {
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	finished := started.Add(90 * time.Second)
	dto := FromRun(history.Run{
		ID:         "abc",
		Filename:   "clip.mp4",
		Status:     history.StatusComplete,
		InputSize:  100,
		OutputSize: 25,
		Attempts:   2,
		StartedAt:  started,
		FinishedAt: &finished,
	})
	if dto.Status != "complete" {
		t.Fatalf("unexpected status %q", dto.Status)
	}
	if dto.ReductionPct != 75 {
		t.Fatalf("expected 75%% reduction, got %v", dto.ReductionPct)
	}
	if dto.StartedAt != "2026-03-01T12:00:00.000Z" {
		t.Fatalf("unexpected startedAt %q", dto.StartedAt)
	}
	if dto.DurationSeconds != 90 {
		t.Fatalf("unexpected duration %v", dto.DurationSeconds)
	}
}

func TestFromRunRunning(t *testing.T) {
	dto := FromRun(history.Run{ID: "abc", Status: history.StatusRunning, InputSize: 100})
	if dto.FinishedAt != "" || dto.DurationSeconds != 0 || dto.ReductionPct != 0 {
		t.Fatalf("running run should have no finish data: %+v", dto)
	}
	if dto.StartedAt != "" {
		t.Fatalf("zero start time should be omitted, got %q", dto.StartedAt)
	}
}

func TestFromAttempts(t *testing.T) {
	got := FromAttempts([]history.AttemptRecord{{
		Attempt:    1,
		Params:     bitrate.Params{VideoBitrate: 800_000, AudioBitrate: 96_000, Width: 1280, Height: 720, FPS: 30},
		OutputSize: 1234,
		Elapsed:    1500 * time.Millisecond,
		Decision:   string(ladder.DecisionAccepted),
	}})
	if len(got) != 1 {
		t.Fatalf("expected 1 attempt, got %d", len(got))
	}
	if got[0].ElapsedSeconds != 1.5 || got[0].Height != 720 || got[0].Decision != string(ladder.DecisionAccepted) {
		t.Fatalf("unexpected attempt %+v", got[0])
	}
}

func TestFromWorkerStatusDefaultsToIdle(t *testing.T) {
	got := FromWorkerStatus(worker.Status{})
	if got.Stage != "idle" || got.StageLabel != "Ready" {
		t.Fatalf("unexpected idle status %+v", got)
	}
	got = FromWorkerStatus(worker.Status{Active: true, Stage: ladder.StageEncoding, Percent: 40})
	if got.StageLabel != "Encoding video..." || got.Percent != 40 {
		t.Fatalf("unexpected encoding status %+v", got)
	}
}

func TestFromDependenciesAndStats(t *testing.T) {
	dependencies := FromDependencies([]deps.Status{{Name: "FFmpeg", Command: "ffmpeg", Available: true}})
	if len(dependencies) != 1 || !dependencies[0].Available {
		t.Fatalf("unexpected dependencies %+v", dependencies)
	}
	stats := RunStats(map[history.Status]int{history.StatusComplete: 3, history.StatusFailed: 1})
	if stats["complete"] != 3 || stats["failed"] != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}
