package main

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"clipfit/internal/bitrate"
	"clipfit/internal/ladder"
	"clipfit/internal/media"
	"clipfit/internal/services"
	"clipfit/internal/worker"
)

// runReport accumulates the messages of one run for final rendering.
type runReport struct {
	RunID     string               `json:"run_id"`
	Metadata  *media.VideoMetadata `json:"metadata,omitempty"`
	Warnings  []string             `json:"warnings,omitempty"`
	Result    *ladder.Result       `json:"result,omitempty"`
	Error     *worker.ErrorMessage `json:"error,omitempty"`
	Cancelled bool                 `json:"cancelled,omitempty"`
	Missed    int64                `json:"missed_events,omitempty"`
}

func (r *runReport) apply(msg worker.Message, progress *progressRenderer) {
	switch m := msg.(type) {
	case worker.MetadataMessage:
		meta := m.Metadata
		r.Metadata = &meta
		r.Warnings = m.Warnings
	case worker.ProgressMessage:
		if m.Stage == ladder.StageCancelled {
			r.Cancelled = true
		}
		progress.update(m)
	case worker.CompleteMessage:
		result := m.Result
		r.Result = &result
	case worker.ErrorMessage:
		failure := m
		r.Error = &failure
	}
}

// runError is a run that ended without output. main maps Kind to an exit code.
type runError struct {
	Kind    services.FailureKind
	Message string
}

func (e *runError) Error() string {
	if e.Kind == kindCancelled {
		return "compression cancelled"
	}
	return "compression failed: " + e.Message
}

const kindCancelled services.FailureKind = "cancelled"

// err converts a failed or cancelled run into the command's error.
func (r *runReport) err() error {
	switch {
	case r.Error != nil:
		return &runError{Kind: r.Error.FailureKind, Message: r.Error.Message}
	case r.Cancelled:
		return &runError{Kind: kindCancelled}
	case r.Result == nil:
		return fmt.Errorf("run ended without a result")
	default:
		return nil
	}
}

func (r *runReport) render(out io.Writer, colorize bool) {
	for _, warning := range r.Warnings {
		fmt.Fprintln(out, renderStatusLine("Warning", statusWarn, warning, colorize))
	}
	if r.Missed > 0 {
		fmt.Fprintln(out, renderStatusLine("Events", statusWarn, fmt.Sprintf("%d progress events were dropped", r.Missed), colorize))
	}
	switch {
	case r.Result != nil:
		fmt.Fprint(out, renderKeyValues(resultPairs(r.Metadata, *r.Result)))
		if len(r.Result.History) > 1 {
			fmt.Fprint(out, renderAttempts(r.Result.History))
		}
	case r.Error != nil:
		fmt.Fprintln(out, renderStatusLine("Failed", statusError, r.Error.Message, colorize))
		if r.Error.BestSize > 0 {
			fmt.Fprintln(out, renderStatusLine("Best size", statusInfo, bitrate.FormatBytes(r.Error.BestSize), colorize))
		}
		if r.Error.Suggestion != "" {
			fmt.Fprintln(out, renderStatusLine("Suggestion", statusInfo, r.Error.Suggestion, colorize))
		}
	case r.Cancelled:
		fmt.Fprintln(out, renderStatusLine("Cancelled", statusWarn, "no output was written", colorize))
	}
}

func resultPairs(meta *media.VideoMetadata, result ladder.Result) [][2]string {
	pairs := [][2]string{}
	if meta != nil {
		pairs = append(pairs, [2]string{"Input", meta.Filename})
	}
	pairs = append(pairs,
		[2]string{"Output", result.OutputPath},
		[2]string{"Original size", bitrate.FormatBytes(result.OriginalSize)},
		[2]string{"Compressed size", bitrate.FormatBytes(result.OutputSize)},
		[2]string{"Reduction", fmt.Sprintf("%.1f%%", result.Reduction())},
		[2]string{"Attempts", strconv.Itoa(result.Attempts)},
		[2]string{"Video bitrate", bitrate.FormatBitrate(result.FinalBitrate)},
		[2]string{"Resolution", fmt.Sprintf("%dx%d", result.Final.Width, result.Final.Height)},
		[2]string{"Frame rate", formatFPS(result.Final.FPS)},
		[2]string{"Encoding time", result.EncodingTime.Round(100 * time.Millisecond).String()},
	)
	return pairs
}

func renderAttempts(history []ladder.Attempt) string {
	rows := make([][]string, 0, len(history))
	for _, attempt := range history {
		rows = append(rows, []string{
			strconv.Itoa(attempt.Index),
			bitrate.FormatBitrate(attempt.Params.VideoBitrate),
			fmt.Sprintf("%dx%d", attempt.Params.Width, attempt.Params.Height),
			formatFPS(attempt.Params.FPS),
			bitrate.FormatBytes(attempt.OutputSize),
			strings.ReplaceAll(string(attempt.Decision), "_", " "),
		})
	}
	return renderTable(
		[]string{"#", "Bitrate", "Resolution", "FPS", "Size", "Decision"},
		rows,
		[]columnAlignment{alignRight, alignRight, alignLeft, alignRight, alignRight, alignLeft},
	)
}

func formatFPS(fps float64) string {
	if fps <= 0 {
		return "-"
	}
	return strconv.FormatFloat(math.Round(fps*100)/100, 'f', -1, 64)
}
