package bitrate

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
)

// IsTargetAchievableAtResolution reports whether target leaves at least 30% of
// the quality floor for height once audio is subtracted.
func IsTargetAchievableAtResolution(target int64, seconds float64, height int, audioBps int64) bool {
	if seconds <= 0 {
		return false
	}
	videoBps := float64(target)*8/seconds - float64(audioBps)
	if minimum, ok := tierMinimum(height); ok {
		return videoBps >= float64(minimum)*0.3
	}
	return videoBps >= float64(MinVideoBitrate)
}

// SuggestedTargetSize recommends a target of 10 MiB per minute, doubled for
// 1080p and above and scaled by 1.5 for 720p and above.
func SuggestedTargetSize(seconds float64, height int) int64 {
	multiplier := 1.0
	switch {
	case height >= 1080:
		multiplier = 2
	case height >= 720:
		multiplier = 1.5
	}
	minutes := seconds / 60
	return int64(math.Ceil(minutes * 10 * multiplier * 1024 * 1024))
}

// FormatBytes renders a byte count with binary units.
func FormatBytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}

// FormatBitrate renders bits per second as Mbps, kbps, or bps.
func FormatBitrate(bps int64) string {
	switch {
	case bps >= 1_000_000:
		return fmt.Sprintf("%.1f Mbps", float64(bps)/1_000_000)
	case bps >= 1_000:
		return fmt.Sprintf("%.0f kbps", float64(bps)/1_000)
	default:
		return fmt.Sprintf("%d bps", bps)
	}
}

// Reduction returns the percentage saved going from original to final bytes.
func Reduction(original, final int64) float64 {
	if original == 0 {
		return 0
	}
	return float64(original-final) / float64(original) * 100
}
