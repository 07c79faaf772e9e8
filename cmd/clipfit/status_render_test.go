package main

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"testing"

	"clipfit/internal/api"
	"clipfit/internal/deps"
	"clipfit/internal/ipc"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Daemon", statusError, "Not running", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Daemon:", "[ERROR] Not running")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("Daemon", statusOK, "Running", true)
	if !strings.HasPrefix(got, ansiGreen) {
		t.Fatalf("expected green prefix, got %q", got)
	}
	if !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected reset suffix, got %q", got)
	}
}

func TestDependencyLines(t *testing.T) {
	statuses := []deps.Status{
		{Name: "FFmpeg", Available: true, Command: "ffmpeg"},
		{Name: "FFprobe", Available: false},
		{Name: "ntfy", Available: false, Optional: true, Detail: "not configured"},
	}
	lines := dependencyLines(statuses, false)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if !strings.Contains(lines[0], "[OK] Ready (command: ffmpeg)") {
		t.Fatalf("unexpected ready line %q", lines[0])
	}
	if !strings.Contains(lines[1], "[ERROR] not available") {
		t.Fatalf("unexpected missing line %q", lines[1])
	}
	if !strings.Contains(lines[2], "[WARN] not configured") {
		t.Fatalf("unexpected optional line %q", lines[2])
	}
}

func TestIsTerminalNonFile(t *testing.T) {
	if isTerminal(io.Discard) {
		t.Fatal("expected non-file writer to be non-interactive")
	}
}

func TestRenderDaemonStatus(t *testing.T) {
	status := &ipc.StatusResponse{
		Running:      true,
		PID:          4242,
		StagingBytes: 3 << 20,
		RunStats:     map[string]int{"failed": 1, "complete": 4},
		Worker: api.WorkerStatus{
			RunID:      "0123456789ab",
			Filename:   "clip.mov",
			Active:     true,
			StageLabel: "Encoding",
			Percent:    37,
			Attempt:    2,
		},
		Dependencies: []api.DependencyStatus{{Name: "FFmpeg", Command: "ffmpeg", Available: true}},
	}
	var buf bytes.Buffer
	renderDaemonStatus(&buf, status, false)
	out := buf.String()
	for _, want := range []string{"running (pid 4242)", "3.0 MiB", "Encoding 37% - clip.mov (attempt 2)", "Ready (command: ffmpeg)", "complete"} {
		requireContains(t, out, want)
	}
	if strings.Index(out, "complete") > strings.Index(out, "failed") {
		t.Fatalf("expected run stats sorted by status:\n%s", out)
	}
}

func TestWorkerLineIdle(t *testing.T) {
	if got := workerLine(api.WorkerStatus{StageLabel: "Idle"}); got != "Idle" {
		t.Fatalf("workerLine() = %q", got)
	}
	got := workerLine(api.WorkerStatus{RunID: "0123456789ab", StageLabel: "Complete"})
	if got != "Idle (last run 01234567: Complete)" {
		t.Fatalf("workerLine() = %q", got)
	}
}
