package encoding

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"clipfit/internal/bitrate"
	"clipfit/internal/media"
	"clipfit/internal/media/ffprobe"
	"clipfit/internal/services"
)

func TestEstimateETA(t *testing.T) {
	if got := EstimateETA(10*time.Second, 25); got != 30*time.Second {
		t.Fatalf("expected 30s remaining, got %v", got)
	}
	if got := EstimateETA(10*time.Second, 0); got != 0 {
		t.Fatalf("expected zero ETA at 0%%, got %v", got)
	}
}

func TestFormatETA(t *testing.T) {
	tests := map[time.Duration]string{
		0:                            "",
		4 * time.Second:              "4s",
		2 * time.Minute:              "2m",
		time.Hour + 2*time.Second:    "1h0m2s",
		90*time.Minute + time.Second: "1h30m1s",
	}
	for in, want := range tests {
		if got := FormatETA(in); got != want {
			t.Errorf("FormatETA(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestDeriveOutputPath(t *testing.T) {
	if got := DeriveOutputPath("/videos/holiday.mov", "", "_compressed"); got != "/videos/holiday_compressed.mp4" {
		t.Fatalf("unexpected path %q", got)
	}
	if got := DeriveOutputPath("/videos/holiday.mov", "/out", "_small"); got != "/out/holiday_small.mp4" {
		t.Fatalf("unexpected path %q", got)
	}
	if got := AttemptPath("/work", 3); got != "/work/attempt-3.mp4" {
		t.Fatalf("unexpected attempt path %q", got)
	}
}

func TestFinalizeOutput(t *testing.T) {
	dir := t.TempDir()
	attempt := filepath.Join(dir, "attempt-2.mp4")
	if err := os.WriteFile(attempt, []byte("mp4"), 0o644); err != nil {
		t.Fatal(err)
	}
	dest := filepath.Join(dir, "out", "clip_compressed.mp4")
	got, err := FinalizeOutput(attempt, dest)
	if err != nil {
		t.Fatalf("FinalizeOutput: %v", err)
	}
	if got != dest {
		t.Fatalf("unexpected destination %q", got)
	}
	if _, err := os.Stat(dest); err != nil {
		t.Fatalf("expected output at destination: %v", err)
	}
}

func TestProbeValidator(t *testing.T) {
	v := ProbeValidator{Probe: func(context.Context, string, string) (ffprobe.Result, error) {
		return ffprobe.Result{
			Streams: []ffprobe.Stream{{CodecType: "video", CodecName: "h264", Width: 1280, Height: 720}},
			Format:  ffprobe.Format{Duration: "60"},
		}, nil
	}}
	job := Job{Meta: media.VideoMetadata{Duration: 60}}
	if err := v.Validate(context.Background(), "out.mp4", job, bitrate.Params{Width: 1280, Height: 720}); err != nil {
		t.Fatalf("expected valid output, got %v", err)
	}
	err := v.Validate(context.Background(), "out.mp4", job, bitrate.Params{Width: 854, Height: 480})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for size mismatch, got %v", err)
	}
}
