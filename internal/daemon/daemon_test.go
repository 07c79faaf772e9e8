package daemon_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"clipfit/internal/api"
	"clipfit/internal/bitrate"
	"clipfit/internal/config"
	"clipfit/internal/daemon"
	"clipfit/internal/deps"
	"clipfit/internal/encoding"
	"clipfit/internal/history"
	"clipfit/internal/logging"
	"clipfit/internal/media/ffprobe"
	"clipfit/internal/testsupport"
	"clipfit/internal/worker"
)

type encodeFunc func(ctx context.Context, job encoding.Job, params bitrate.Params, progress func(float64)) (encoding.Output, error)

func (f encodeFunc) Encode(ctx context.Context, job encoding.Job, params bitrate.Params, progress func(float64)) (encoding.Output, error) {
	return f(ctx, job, params, progress)
}

func sizedEncoder(size int64) encodeFunc {
	return func(_ context.Context, job encoding.Job, _ bitrate.Params, progress func(float64)) (encoding.Output, error) {
		if err := os.WriteFile(job.OutputPath, []byte("encoded"), 0o644); err != nil {
			return encoding.Output{}, err
		}
		progress(50)
		progress(100)
		return encoding.Output{Path: job.OutputPath, Size: size, Profile: encoding.Profiles[0]}, nil
	}
}

func fakeProbe(_ context.Context, _ string, path string) (ffprobe.Result, error) {
	if _, err := os.Stat(path); err != nil {
		return ffprobe.Result{}, err
	}
	return ffprobe.Result{
		Streams: []ffprobe.Stream{
			{Index: 0, CodecType: "video", CodecName: "h264", Width: 1280, Height: 720, AvgFrameRate: "30/1"},
		},
		Format: ffprobe.Format{Duration: "30"},
	}, nil
}

func noDeps(context.Context, *config.Config) []deps.Status {
	return []deps.Status{{Name: "FFmpeg", Command: "ffmpeg", Available: true}}
}

func newDaemon(t *testing.T, cfg *config.Config, store *history.Store) *daemon.Daemon {
	t.Helper()
	d, err := daemon.New(cfg, store, logging.NewNop(), sizedEncoder(6<<20),
		daemon.WithDependencyCheck(noDeps),
		daemon.WithHostOptions(worker.WithProbe(fakeProbe)),
	)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func waitDone(t *testing.T, d *daemon.Daemon, runID string) []worker.Envelope {
	t.Helper()
	var (
		all   []worker.Envelope
		after int64
	)
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		batch, err := d.Events(context.Background(), runID, after, time.Second)
		if err != nil {
			t.Fatalf("Events: %v", err)
		}
		all = append(all, batch.Envelopes...)
		after = batch.Next
		if batch.Done {
			return all
		}
	}
	t.Fatalf("run %s did not finish; got %d envelopes", runID, len(all))
	return nil
}

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithHistoryDisabled())
	d := newDaemon(t, cfg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	status := d.Status(ctx)
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}
	if len(status.Dependencies) != 1 {
		t.Fatalf("expected stubbed dependency snapshot, got %+v", status.Dependencies)
	}

	// Second start should fail
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	other := newDaemon(t, cfg, nil)
	if err := other.Start(ctx); err == nil || !strings.Contains(err.Error(), "already running") {
		t.Fatalf("expected lock contention error, got %v", err)
	}

	d.Stop()
	if d.Status(ctx).Running {
		t.Fatal("expected daemon to be stopped")
	}
	if _, err := d.Submit(daemon.SubmitRequest{Path: "/tmp/x.mp4"}); err == nil {
		t.Fatal("expected submit to fail when stopped")
	}
}

func TestDaemonSubmitRecordsRun(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithAPIToken("secret"))
	store := testsupport.MustOpenHistory(t, cfg)
	d := newDaemon(t, cfg, store)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	input := filepath.Join(testsupport.BaseDir(cfg), "input", "clip.mp4")
	testsupport.WriteFile(t, input, 12<<20)
	runID, err := d.Submit(daemon.SubmitRequest{Path: input})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	envelopes := waitDone(t, d, runID)
	if d.Cancel() {
		t.Fatal("expected no active run to cancel after completion")
	}
	last := envelopes[len(envelopes)-1]
	if last.Kind != worker.KindComplete || last.Result == nil {
		t.Fatalf("expected complete envelope last, got %+v", last)
	}
	if envelopes[0].Seq != 1 {
		t.Fatalf("expected sequence to start at 1, got %d", envelopes[0].Seq)
	}
	wantOutput := filepath.Join(cfg.Paths.OutputDir, "clip_compressed.mp4")
	if last.Result.OutputPath != wantOutput {
		t.Fatalf("output path = %q, want %q", last.Result.OutputPath, wantOutput)
	}

	run, attempts, err := d.Run(ctx, runID[:8])
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if run.Status != history.StatusComplete || len(attempts) != 1 {
		t.Fatalf("unexpected history: status %s attempts %d", run.Status, len(attempts))
	}
	if stats := d.Status(ctx).RunStats; stats[history.StatusComplete] != 1 {
		t.Fatalf("expected 1 completed run in stats, got %+v", stats)
	}

	base := "http://" + d.APIAddress()
	resp := get(t, base+"/api/runs", "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = get(t, base+"/api/runs/"+runID, "secret")
	var payload api.RunResponse
	decode(t, resp, &payload)
	if payload.Run.ID != runID || len(payload.Attempts) != 1 {
		t.Fatalf("unexpected run payload %+v", payload)
	}

	resp = get(t, base+"/api/runs/"+runID+"/events?after=0", "secret")
	var events api.EventsResponse
	decode(t, resp, &events)
	if !events.Done || len(events.Events) != len(envelopes) {
		t.Fatalf("expected %d events and done, got %d done=%v", len(envelopes), len(events.Events), events.Done)
	}

	resp = get(t, base+"/metrics", "secret")
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "clipfit_runs_finished_total") {
		t.Fatal("expected clipfit metrics in exposition")
	}
}

func TestDaemonSubmitRejectsMissingFile(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithHistoryDisabled())
	d := newDaemon(t, cfg, nil)
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if _, err := d.Submit(daemon.SubmitRequest{Path: filepath.Join(t.TempDir(), "missing.mp4")}); err == nil {
		t.Fatal("expected error for missing input")
	}
	if _, err := d.Runs(context.Background(), 10); err == nil {
		t.Fatal("expected runs to fail with history disabled")
	}
}

func get(t *testing.T, url, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode: %v", err)
	}
}
