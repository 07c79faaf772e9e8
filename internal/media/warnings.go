package media

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// Warnings lists advisory notices for inputs that are likely to be slow or to
// compress poorly. A zero limit disables the corresponding check.
func (m VideoMetadata) Warnings(maxSize int64, maxDurationSeconds int) []string {
	var warnings []string
	if maxSize > 0 && m.FileSize > maxSize {
		warnings = append(warnings, fmt.Sprintf("input is %s; files over %s may take a long time to process",
			humanize.IBytes(uint64(m.FileSize)), humanize.IBytes(uint64(maxSize))))
	}
	if maxDurationSeconds > 0 && m.Duration > float64(maxDurationSeconds) {
		warnings = append(warnings, fmt.Sprintf("input runs %s; videos longer than %s need a large target to look good",
			FormatDuration(m.Duration), FormatDuration(float64(maxDurationSeconds))))
	}
	if m.HasAudio && !m.HasAACAudio() {
		warnings = append(warnings, fmt.Sprintf("audio codec %s cannot be passed through; output will be silent", m.AudioCodec))
	}
	return warnings
}

// FormatDuration renders seconds as m:ss or h:mm:ss.
func FormatDuration(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int64(seconds)
	hrs := total / 3600
	mins := (total % 3600) / 60
	secs := total % 60
	if hrs > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hrs, mins, secs)
	}
	return fmt.Sprintf("%d:%02d", mins, secs)
}
