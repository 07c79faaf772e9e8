package testsupport

import (
	"context"
	"testing"
	"time"

	"clipfit/internal/bitrate"
	"clipfit/internal/config"
	"clipfit/internal/history"
)

// MustOpenHistory opens the configured history store and registers cleanup.
func MustOpenHistory(t testing.TB, cfg *config.Config) *history.Store {
	t.Helper()

	store, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// NewRun inserts a completed run with a single accepted attempt.
func NewRun(t testing.TB, store *history.Store, id, filename string, started time.Time) *history.Run {
	t.Helper()

	ctx := context.Background()
	settings := bitrate.DefaultSettings(10 << 20)
	if err := store.CreateRun(ctx, id, filename, 40<<20, settings, started); err != nil {
		t.Fatalf("store.CreateRun: %v", err)
	}
	params := bitrate.Params{VideoBitrate: 1_200_000, AudioBitrate: settings.AudioBitrate, Width: 1280, Height: 720, FPS: 30}
	if err := store.RecordAttempt(ctx, history.AttemptRecord{
		RunID:      id,
		Attempt:    1,
		Params:     params,
		OutputSize: 9 << 20,
		Elapsed:    time.Second,
		Decision:   "accepted",
	}); err != nil {
		t.Fatalf("store.RecordAttempt: %v", err)
	}
	if err := store.FinishRun(ctx, id, history.Finish{
		Status:       history.StatusComplete,
		OutputPath:   "/tmp/" + filename,
		OutputSize:   9 << 20,
		Attempts:     1,
		FinalBitrate: params.VideoBitrate,
		FinishedAt:   started.Add(time.Minute),
	}); err != nil {
		t.Fatalf("store.FinishRun: %v", err)
	}
	run, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("store.Get: %v", err)
	}
	return run
}
