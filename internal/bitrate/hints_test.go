package bitrate

import "testing"

func TestIsTargetAchievableAtResolution(t *testing.T) {
	tests := []struct {
		name    string
		target  int64
		seconds float64
		height  int
		audio   int64
		want    bool
	}{
		{"10MiB minute at 1080p", 10 << 20, 60, 1080, 96_000, true},
		{"1MiB minute at 1080p", 1 << 20, 60, 1080, 96_000, false},
		{"1MiB minute at 360p", 1 << 20, 60, 360, 0, true},
		{"tiny below tiers", 100 << 10, 60, 240, 0, false},
		{"zero duration", 10 << 20, 0, 1080, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTargetAchievableAtResolution(tt.target, tt.seconds, tt.height, tt.audio); got != tt.want {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSuggestedTargetSize(t *testing.T) {
	tests := []struct {
		seconds float64
		height  int
		want    int64
	}{
		{60, 1080, 20 << 20},
		{60, 720, 15 << 20},
		{60, 480, 10 << 20},
		{30, 2160, 10 << 20},
		{1, 480, 174763},
	}
	for _, tt := range tests {
		if got := SuggestedTargetSize(tt.seconds, tt.height); got != tt.want {
			t.Errorf("SuggestedTargetSize(%v, %d) = %d, want %d", tt.seconds, tt.height, got, tt.want)
		}
	}
}

func TestFormatBitrate(t *testing.T) {
	tests := map[int64]string{
		1_500_000: "1.5 Mbps",
		96_000:    "96 kbps",
		999:       "999 bps",
	}
	for in, want := range tests {
		if got := FormatBitrate(in); got != want {
			t.Errorf("FormatBitrate(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatBytesAndReduction(t *testing.T) {
	if got := FormatBytes(10 << 20); got != "10 MiB" {
		t.Fatalf("FormatBytes = %q", got)
	}
	if got := Reduction(100, 25); got != 75 {
		t.Fatalf("Reduction = %v, want 75", got)
	}
	if got := Reduction(0, 25); got != 0 {
		t.Fatalf("Reduction with zero original = %v", got)
	}
}
