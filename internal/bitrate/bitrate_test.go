package bitrate

import (
	"math"
	"testing"

	"clipfit/internal/media"
)

func fullHD() media.VideoMetadata {
	return media.VideoMetadata{Filename: "clip.mp4", Duration: 60, Width: 1920, Height: 1080, FPS: 30, HasAudio: true, AudioCodec: "aac"}
}

func TestInitialParamsScenarioA(t *testing.T) {
	settings := Settings{TargetSizeBytes: 10 * 1024 * 1024, AudioBitrate: 96_000}

	params := InitialParams(fullHD(), settings)

	want := int64(math.Floor((float64(10*1024*1024*8)/60 - 96_000) * 0.92))
	if want != 1_197_933 {
		t.Fatalf("sanity check: expected 1197933, formula gave %d", want)
	}
	if params.VideoBitrate != want {
		t.Fatalf("video bitrate = %d, want %d", params.VideoBitrate, want)
	}
	if params.AudioBitrate != 96_000 {
		t.Fatalf("audio bitrate = %d, want 96000", params.AudioBitrate)
	}
	if params.Width != 1920 || params.Height != 1080 {
		t.Fatalf("dimensions changed: %dx%d", params.Width, params.Height)
	}
	if params.FPS != 30 || params.MuteAudio {
		t.Fatalf("unexpected fps/mute: %+v", params)
	}
}

func TestInitialParamsMutedAndScaled(t *testing.T) {
	settings := Settings{TargetSizeBytes: 10 * 1024 * 1024, AudioBitrate: 96_000, MuteAudio: true, TargetResolution: 720}
	params := InitialParams(fullHD(), settings)

	if params.AudioBitrate != 0 || !params.MuteAudio {
		t.Fatalf("expected muted audio, got %+v", params)
	}
	want := int64(math.Floor(float64(10*1024*1024*8) / 60 * 0.92))
	if params.VideoBitrate != want {
		t.Fatalf("video bitrate = %d, want %d", params.VideoBitrate, want)
	}
	if params.Width != 1280 || params.Height != 720 {
		t.Fatalf("expected 1280x720, got %dx%d", params.Width, params.Height)
	}
}

func TestInitialParamsIgnoresUpscaleTarget(t *testing.T) {
	meta := fullHD().WithDimensions(854, 480)
	params := InitialParams(meta, Settings{TargetSizeBytes: 10 << 20, AudioBitrate: 96_000, TargetResolution: 720})
	if params.Width != 854 || params.Height != 480 {
		t.Fatalf("expected original 854x480, got %dx%d", params.Width, params.Height)
	}
}

func TestInitialParamsNeverBelowFloor(t *testing.T) {
	durations := []float64{0.5, 1, 60, 600, 3600, 86400}
	targets := []int64{1, 1024, 1 << 20, 10 << 20, 500 << 20}
	audio := []int64{0, 64_000, 96_000, 128_000, 10_000_000}
	for _, d := range durations {
		for _, target := range targets {
			for _, a := range audio {
				meta := fullHD()
				meta.Duration = d
				params := InitialParams(meta, Settings{TargetSizeBytes: target, AudioBitrate: a})
				if params.VideoBitrate < MinVideoBitrate {
					t.Fatalf("duration=%v target=%d audio=%d: video bitrate %d below floor", d, target, a, params.VideoBitrate)
				}
			}
		}
	}
}

func TestRetryBitrateScenarioB(t *testing.T) {
	target := int64(10 * 1024 * 1024)
	actual := int64(12 * 1024 * 1024)
	got := RetryBitrate(1_000_000, actual, target)
	want := int64(math.Floor(1_000_000 * (10.0 / 12.0) * 0.95))
	if got != want {
		t.Fatalf("RetryBitrate = %d, want %d", got, want)
	}
	if got != 791_666 {
		t.Fatalf("expected 791666, got %d", got)
	}
}

func TestRetryBitrateProperties(t *testing.T) {
	currents := []int64{100_000, 250_000, 1_000_000, 8_000_000}
	for _, current := range currents {
		for _, actual := range []int64{1_000_001, 1_500_000, 5_000_000, 1 << 40} {
			got := RetryBitrate(current, actual, 1_000_000)
			if got > current {
				t.Fatalf("RetryBitrate(%d, %d) = %d exceeds current", current, actual, got)
			}
			if got < MinVideoBitrate {
				t.Fatalf("RetryBitrate(%d, %d) = %d below floor", current, actual, got)
			}
		}
	}
	if got := RetryBitrate(500_000, 0, 1_000_000); got != 500_000 {
		t.Fatalf("expected unchanged bitrate for zero actual size, got %d", got)
	}
}

func TestIsBitrateTooLowForResolution(t *testing.T) {
	tests := []struct {
		bps    int64
		height int
		want   bool
	}{
		{500_000, 1080, true},
		{2_000_000, 1080, false},
		{500_000, 480, false},
		{999_999, 1080, true},
		{1_000_000, 1080, false},
		{499_999, 720, true},
		{500_000, 720, false},
		{124_999, 360, true},
		{125_000, 360, false},
		{99_999, 240, true},
		{100_000, 240, false},
		{1_000_000, 2160, false},
	}
	for _, tt := range tests {
		if got := IsBitrateTooLowForResolution(tt.bps, tt.height); got != tt.want {
			t.Errorf("IsBitrateTooLowForResolution(%d, %d) = %v, want %v", tt.bps, tt.height, got, tt.want)
		}
	}
}

func TestNextResolutionStep(t *testing.T) {
	tests := []struct {
		height int
		want   int
		ok     bool
	}{
		{2160, 720, true},
		{1080, 720, true},
		{900, 480, true},
		{720, 480, true},
		{480, 360, true},
		{360, 0, false},
		{240, 0, false},
	}
	for _, tt := range tests {
		got, ok := NextResolutionStep(tt.height)
		if got != tt.want || ok != tt.ok {
			t.Errorf("NextResolutionStep(%d) = (%d, %v), want (%d, %v)", tt.height, got, ok, tt.want, tt.ok)
		}
	}
}

func TestNextFPSStep(t *testing.T) {
	tests := []struct {
		fps  float64
		want float64
		ok   bool
	}{
		{60, 30, true},
		{30, 24, true},
		{29.97, 24, true},
		{25, 24, true},
		{24, 20, true},
		{20, 15, true},
		{16, 15, true},
		{15, 0, false},
		{12, 0, false},
	}
	for _, tt := range tests {
		got, ok := NextFPSStep(tt.fps)
		if got != tt.want || ok != tt.ok {
			t.Errorf("NextFPSStep(%v) = (%v, %v), want (%v, %v)", tt.fps, got, ok, tt.want, tt.ok)
		}
	}
}

func TestScaledDimensions(t *testing.T) {
	tests := []struct {
		w, h, target int
		wantW, wantH int
	}{
		{1920, 1080, 720, 1280, 720},
		{1920, 1080, 480, 852, 480},
		{1920, 1080, 360, 640, 360},
		{1920, 1080, 2160, 1920, 1080},
		{1080, 1920, 720, 404, 720},
		{1001, 721, 721, 1000, 720},
	}
	for _, tt := range tests {
		w, h := ScaledDimensions(tt.w, tt.h, tt.target)
		if w != tt.wantW || h != tt.wantH {
			t.Errorf("ScaledDimensions(%d, %d, %d) = %dx%d, want %dx%d", tt.w, tt.h, tt.target, w, h, tt.wantW, tt.wantH)
		}
	}
}

func TestScaledDimensionsProperties(t *testing.T) {
	for w := 2; w <= 4000; w += 137 {
		for h := 2; h <= 2200; h += 91 {
			for _, target := range []int{360, 480, 720, 1080, 1440} {
				gotW, gotH := ScaledDimensions(w, h, target)
				if gotH > h {
					t.Fatalf("ScaledDimensions(%d, %d, %d) upscaled height to %d", w, h, target, gotH)
				}
				if gotW%2 != 0 || gotH%2 != 0 {
					t.Fatalf("ScaledDimensions(%d, %d, %d) = %dx%d not even", w, h, target, gotW, gotH)
				}
			}
		}
	}
}

func TestEstimateOutputSize(t *testing.T) {
	if got := EstimateOutputSize(1_000_000, 96_000, 60); got != 8_220_000 {
		t.Fatalf("EstimateOutputSize = %d, want 8220000", got)
	}
	if got := EstimateOutputSize(1, 0, 1); got != 1 {
		t.Fatalf("expected ceil to 1 byte, got %d", got)
	}
}

func TestParamsKeyframeInterval(t *testing.T) {
	tests := map[float64]int{30: 60, 29.97: 60, 24: 48, 15: 30, 0: 1}
	for fps, want := range tests {
		if got := (Params{FPS: fps}).KeyframeInterval(); got != want {
			t.Errorf("KeyframeInterval(fps=%v) = %d, want %d", fps, got, want)
		}
	}
}

func TestParamsAreValues(t *testing.T) {
	base := Params{VideoBitrate: 1_000_000, Width: 1920, Height: 1080, FPS: 30}
	next := base.WithVideoBitrate(500_000).WithDimensions(1280, 720).WithFPS(24)
	if base.VideoBitrate != 1_000_000 || base.Height != 1080 || base.FPS != 30 {
		t.Fatalf("base params mutated: %+v", base)
	}
	if next.VideoBitrate != 500_000 || next.Width != 1280 || next.FPS != 24 {
		t.Fatalf("unexpected derived params: %+v", next)
	}
}
