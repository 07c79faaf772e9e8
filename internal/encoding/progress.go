package encoding

import (
	"fmt"
	"strings"
	"time"
)

// progressTracker converts consumed/total frame counts into a monotonic
// percentage and forwards only increases.
type progressTracker struct {
	total int64
	last  float64
	emit  func(float64)
}

func newProgressTracker(total int64, emit func(float64)) *progressTracker {
	return &progressTracker{total: total, last: -1, emit: emit}
}

func (p *progressTracker) update(consumed int64) {
	if p.emit == nil || p.total <= 0 {
		return
	}
	percent := float64(consumed) / float64(p.total) * 100
	if percent > 100 {
		percent = 100
	}
	if percent <= p.last {
		return
	}
	p.last = percent
	p.emit(percent)
}

func (p *progressTracker) finish() {
	if p.emit == nil || p.last >= 100 {
		return
	}
	p.last = 100
	p.emit(100)
}

// EstimateETA extrapolates the remaining time of an attempt from elapsed time.
func EstimateETA(elapsed time.Duration, percent float64) time.Duration {
	if percent <= 0 || percent >= 100 || elapsed <= 0 {
		return 0
	}
	total := time.Duration(float64(elapsed) * 100 / percent)
	return total - elapsed
}

// FormatETA renders d as a compact h/m/s string.
func FormatETA(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	d = d.Round(time.Second)
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	d -= minutes * time.Minute
	seconds := d / time.Second
	parts := make([]string, 0, 3)
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 || hours > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	if seconds > 0 || (hours == 0 && minutes == 0) {
		parts = append(parts, fmt.Sprintf("%ds", seconds))
	}
	return strings.Join(parts, "")
}
