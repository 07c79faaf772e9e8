package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"clipfit/internal/bitrate"
	"clipfit/internal/encoding"
	"clipfit/internal/ladder"
	"clipfit/internal/logging"
	"clipfit/internal/textutil"
	"clipfit/internal/worker"
)

const progressBarWidth = 24

// progressRenderer draws worker progress. On a terminal the line is redrawn in
// place; otherwise updates are sampled into separate lines.
type progressRenderer struct {
	out         io.Writer
	interactive bool
	sampler     *logging.ProgressSampler
	lastWidth   int

	now          func() time.Time
	attempt      int
	attemptStart time.Time
}

func newProgressRenderer(out io.Writer, interactive bool) *progressRenderer {
	return &progressRenderer{
		out:         out,
		interactive: interactive,
		sampler:     logging.NewProgressSampler(10),
		now:         time.Now,
	}
}

func (r *progressRenderer) update(p worker.ProgressMessage) {
	if r == nil || r.out == nil {
		return
	}
	line := formatProgress(p, r.interactive)
	if eta := r.eta(p); eta != "" {
		line += " ETA " + eta
	}
	if r.interactive {
		pad := max(r.lastWidth-len(line), 0)
		fmt.Fprintf(r.out, "\r%s%s", line, strings.Repeat(" ", pad))
		r.lastWidth = len(line)
		return
	}
	if r.sampler.ShouldLog(p.Percent, string(p.Stage), p.Attempt) {
		fmt.Fprintln(r.out, line)
	}
}

// eta extrapolates the remaining time of the current attempt. Each attempt
// restarts the clock.
func (r *progressRenderer) eta(p worker.ProgressMessage) string {
	if p.Stage != ladder.StageEncoding && p.Stage != ladder.StageRetrying {
		return ""
	}
	now := r.now()
	if p.Attempt != r.attempt || r.attemptStart.IsZero() {
		r.attempt = p.Attempt
		r.attemptStart = now
		return ""
	}
	local := (p.Percent - ladder.AttemptStartPercent) / ladder.AttemptSpanPercent * 100
	return encoding.FormatETA(encoding.EstimateETA(now.Sub(r.attemptStart), local))
}

// finish ends an in-place line so following output starts on a fresh line.
func (r *progressRenderer) finish() {
	if r == nil || !r.interactive || r.lastWidth == 0 {
		return
	}
	fmt.Fprintln(r.out)
	r.lastWidth = 0
}

func formatProgress(p worker.ProgressMessage, bar bool) string {
	var b strings.Builder
	if p.MaxAttempts > 0 && p.Attempt > 0 {
		fmt.Fprintf(&b, "[%d/%d] ", p.Attempt, p.MaxAttempts)
	}
	b.WriteString(p.Stage.Label())
	if bar {
		b.WriteString(" ")
		b.WriteString(progressBar(p.Percent, progressBarWidth))
	}
	fmt.Fprintf(&b, " %3.0f%%", clampPercent(p.Percent))
	if p.CurrentBitrate > 0 {
		b.WriteString(" @ ")
		b.WriteString(bitrate.FormatBitrate(p.CurrentBitrate))
	}
	if msg := strings.TrimSpace(p.Message); msg != "" {
		b.WriteString(textutil.Ternary(bar, " ", " - "))
		b.WriteString(msg)
	}
	return b.String()
}

func progressBar(percent float64, width int) string {
	filled := int(clampPercent(percent) / 100 * float64(width))
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", width-filled) + "]"
}

func clampPercent(p float64) float64 {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}
