package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"clipfit/internal/daemonrun"
)

func writeLines(t *testing.T, path string, lines ...string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
}

func TestLogsTailsDaemonLog(t *testing.T) {
	cfg, configPath := newTestConfig(t)
	writeLines(t, daemonrun.CurrentLogPath(cfg),
		"2026-03-01 10:00:00 INFO [daemon] clipfit daemon ready",
		"2026-03-01 10:00:01 DEBUG [worker] clip.mov - attempt started",
		"2026-03-01 10:00:02 WARN [worker] clip.mov - attempt over target",
		"2026-03-01 10:00:03 INFO [worker] clip.mov - run complete",
	)

	out, _, err := runCLI(t, []string{"logs", "-n", "2"}, "", configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if got := strings.Count(out, "\n"); got != 2 {
		t.Fatalf("expected 2 lines, got %d:\n%s", got, out)
	}
	requireContains(t, out, "run complete")

	out, _, err = runCLI(t, []string{"logs", "--level", "warn"}, "", configPath)
	if err != nil {
		t.Fatalf("logs --level: %v", err)
	}
	if strings.TrimSpace(out) != "2026-03-01 10:00:02 WARN [worker] clip.mov - attempt over target" {
		t.Fatalf("unexpected filtered output:\n%s", out)
	}

	if _, _, err := runCLI(t, []string{"logs", "--level", "loud"}, "", configPath); err == nil {
		t.Fatal("expected error for invalid level")
	}
}

func TestLogsShowsRunLogByPrefix(t *testing.T) {
	cfg, configPath := newTestConfig(t)
	writeLines(t, filepath.Join(cfg.RunLogDir(), "0a1b2c3d4e5f.log"),
		`{"ts":"2026-03-01T10:00:00Z","level":"debug","msg":"encoder configured","run_id":"0a1b2c3d4e5f"}`,
	)

	out, _, err := runCLI(t, []string{"logs", "0a1b"}, "", configPath)
	if err != nil {
		t.Fatalf("logs RUN_ID: %v", err)
	}
	requireContains(t, out, "encoder configured")

	if _, _, err := runCLI(t, []string{"logs", "ffff"}, "", configPath); err == nil {
		t.Fatal("expected error for unknown run log")
	}
}
