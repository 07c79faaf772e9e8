package main

import (
	"path/filepath"
	"strings"
	"testing"

	"clipfit/internal/testsupport"
)

func TestDoctorReportsEncoderAndDirectories(t *testing.T) {
	_, configPath := newTestConfig(t, testsupport.WithStubbedBinaries())

	out, _, err := runCLI(t, []string{"doctor"}, "", configPath)
	// The stub ffmpeg lists no encoders.
	if err == nil || !strings.Contains(err.Error(), "H.264 encoder") {
		t.Fatalf("expected encoder failure, got %v", err)
	}
	requireContains(t, out, "Ready (command: ")
	requireContains(t, out, "Staging directory")
	requireContains(t, out, "Log directory")
}

func TestDoctorReportsMissingBinary(t *testing.T) {
	cfg, configPath := newTestConfig(t)
	cfg.FFmpeg.FFmpegBinary = filepath.Join(t.TempDir(), "no-such-ffmpeg")
	writeTestConfig(t, configPath, cfg)

	out, _, err := runCLI(t, []string{"doctor"}, "", configPath)
	if err == nil || !strings.Contains(err.Error(), "FFmpeg") {
		t.Fatalf("expected missing ffmpeg failure, got %v", err)
	}
	requireContains(t, out, "[ERROR]")
}
