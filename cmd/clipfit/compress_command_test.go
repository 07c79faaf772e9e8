package main

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"clipfit/internal/config"
	"clipfit/internal/encoding"
	"clipfit/internal/ladder"
	"clipfit/internal/testsupport"
	"clipfit/internal/worker"
)

func stubCompress(t *testing.T, enc ladder.Encoder) {
	t.Helper()
	prevEncoder, prevOpts := newCompressEncoder, extraHostOptions
	newCompressEncoder = func(*config.Config, *slog.Logger) ladder.Encoder { return enc }
	extraHostOptions = []worker.Option{worker.WithProbe(fakeProbe)}
	t.Cleanup(func() {
		newCompressEncoder, extraHostOptions = prevEncoder, prevOpts
	})
}

func TestCompressWritesOutputAndHistory(t *testing.T) {
	stubCompress(t, sizedEncoder(2*mib))
	cfg, configPath := newTestConfig(t)
	input := filepath.Join(testsupport.BaseDir(cfg), "clip.mov")
	testsupport.WriteFile(t, input, 8*mib)

	out, _, err := runCLI(t, []string{"compress", input, "--target", "3MiB"}, "", configPath)
	if err != nil {
		t.Fatalf("compress: %v", err)
	}
	want := encoding.DeriveOutputPath(input, cfg.Paths.OutputDir, cfg.Compression.OutputSuffix)
	requireContains(t, out, want)
	requireContains(t, out, "2.0 MiB")
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("expected output at %s: %v", want, err)
	}

	out, _, err = runCLI(t, []string{"history"}, "", configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "clip.mov")
	requireContains(t, out, "complete")
}

func TestCompressJSONWithExplicitOutput(t *testing.T) {
	stubCompress(t, sizedEncoder(2*mib))
	cfg, configPath := newTestConfig(t, testsupport.WithHistoryDisabled())
	input := filepath.Join(testsupport.BaseDir(cfg), "clip.mov")
	testsupport.WriteFile(t, input, 8*mib)
	outDir := t.TempDir()

	out, _, err := runCLI(t, []string{"compress", input, "-t", "3MiB", "-o", outDir + "/", "--json"}, "", configPath)
	if err != nil {
		t.Fatalf("compress --json: %v", err)
	}
	var report runReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode report: %v\n%s", err, out)
	}
	if report.Result == nil || !report.Result.Success {
		t.Fatalf("expected success, got %+v", report)
	}
	if filepath.Dir(report.Result.OutputPath) != outDir {
		t.Fatalf("output %s not in %s", report.Result.OutputPath, outDir)
	}
	if report.Metadata == nil || report.Metadata.Height != 720 {
		t.Fatalf("expected metadata in report, got %+v", report.Metadata)
	}
}

func TestCompressReportsConvergenceFailure(t *testing.T) {
	stubCompress(t, sizedEncoder(5*mib))
	cfg, configPath := newTestConfig(t, testsupport.WithHistoryDisabled())
	input := filepath.Join(testsupport.BaseDir(cfg), "clip.mov")
	testsupport.WriteFile(t, input, 8*mib)

	out, _, err := runCLI(t, []string{"compress", input, "--target", "3MiB"}, "", configPath)
	if err == nil || !strings.Contains(err.Error(), "compression failed") {
		t.Fatalf("expected compression failure, got %v", err)
	}
	if code := exitCode(err); code != 2 {
		t.Fatalf("expected exit code 2 for a convergence failure, got %d", code)
	}
	requireContains(t, out, "Failed")
	if entries, _ := os.ReadDir(cfg.Paths.OutputDir); len(entries) != 0 {
		t.Fatalf("expected no output files, found %d", len(entries))
	}
}

func TestCompressRejectsBadInput(t *testing.T) {
	stubCompress(t, sizedEncoder(2*mib))
	cfg, configPath := newTestConfig(t, testsupport.WithHistoryDisabled())

	if _, _, err := runCLI(t, []string{"compress", filepath.Join(testsupport.BaseDir(cfg), "missing.mov")}, "", configPath); err == nil {
		t.Fatal("expected error for missing input")
	}
	if _, _, err := runCLI(t, []string{"compress", t.TempDir()}, "", configPath); err == nil {
		t.Fatal("expected error for directory input")
	}

	input := filepath.Join(testsupport.BaseDir(cfg), "clip.mov")
	testsupport.WriteFile(t, input, 8*mib)
	if _, _, err := runCLI(t, []string{"compress", input, "--target", "nonsense"}, "", configPath); err == nil {
		t.Fatal("expected error for invalid --target")
	}
	if _, _, err := runCLI(t, []string{"compress", input, "-o", input}, "", configPath); err == nil {
		t.Fatal("expected refusal to overwrite the input")
	}
}
