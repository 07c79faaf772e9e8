package ladder

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"clipfit/internal/bitrate"
	"clipfit/internal/services"
)

// ErrCancelled is returned by Run when the context is cancelled. It is a
// terminal outcome rather than a failure.
var ErrCancelled = errors.New("compression cancelled")

// Decision records what the machine did after an attempt.
type Decision string

const (
	DecisionAccepted      Decision = "accepted"
	DecisionTolerated     Decision = "accepted_within_tolerance"
	DecisionReduceBitrate Decision = "reduce_bitrate"
	DecisionDownscale     Decision = "downscale"
	DecisionReduceFPS     Decision = "reduce_fps"
	DecisionUnachievable  Decision = "unachievable"
	DecisionExhausted     Decision = "exhausted"
)

// Attempt is one finished encode pass.
type Attempt struct {
	Index      int            `json:"index"`
	Params     bitrate.Params `json:"params"`
	OutputSize int64          `json:"output_size"`
	Elapsed    time.Duration  `json:"elapsed"`
	Profile    string         `json:"profile,omitempty"`
	Decision   Decision       `json:"decision"`
}

// Result is the outcome of a successful run. OutputPath names the accepted
// attempt file; the caller owns it from then on.
type Result struct {
	Success      bool           `json:"success"`
	OutputPath   string         `json:"output_path"`
	OutputSize   int64          `json:"output_size"`
	OriginalSize int64          `json:"original_size"`
	Duration     float64        `json:"duration"`
	EncodingTime time.Duration  `json:"encoding_time"`
	Attempts     int            `json:"attempts"`
	FinalBitrate int64          `json:"final_bitrate"`
	Final        bitrate.Params `json:"final_params"`
	History      []Attempt      `json:"history"`
}

// Reduction is the percentage saved relative to the original size.
func (r Result) Reduction() float64 {
	return bitrate.Reduction(r.OriginalSize, r.OutputSize)
}

// FailureKind distinguishes the two ways a run can give up.
type FailureKind string

const (
	// KindUnachievable means the escalation ladders ran out before the cap.
	KindUnachievable FailureKind = "unachievable"
	// KindConvergence means the attempt cap was hit outside the tolerance.
	KindConvergence FailureKind = "convergence"
)

// Failure is a run that ended without an acceptable output.
type Failure struct {
	Kind       FailureKind
	Message    string
	Suggestion string
	BestSize   int64
	History    []Attempt
}

func (f *Failure) Error() string {
	return f.Message
}

// Unwrap ties every failure to services.ErrConvergence for classification.
func (f *Failure) Unwrap() error {
	return services.ErrConvergence
}

func unachievable(height int, size, best int64, settings bitrate.Settings, hasAudio bool, history []Attempt) *Failure {
	return &Failure{
		Kind: KindUnachievable,
		Message: fmt.Sprintf("Target size is too small for this video. The minimum achievable size at %dp is approximately %s.",
			height, bitrate.FormatBytes(size)),
		Suggestion: composeSuggestion(settings, hasAudio) + ", or shorten the video",
		BestSize:   best,
		History:    history,
	}
}

func notConverged(best int64, settings bitrate.Settings, hasAudio bool, history []Attempt) *Failure {
	return &Failure{
		Kind: KindConvergence,
		Message: fmt.Sprintf("Could not compress to target size after %d attempts. Best achieved: %s",
			bitrate.MaxAttempts, bitrate.FormatBytes(best)),
		Suggestion: composeSuggestion(settings, hasAudio),
		BestSize:   best,
		History:    history,
	}
}

// composeSuggestion lists only the knobs the caller has not already used.
func composeSuggestion(settings bitrate.Settings, hasAudio bool) string {
	var b strings.Builder
	b.WriteString("Try increasing your target size")
	if !settings.AllowDownscale {
		b.WriteString(`, or enable "Allow downscale" to reduce resolution`)
	}
	if !settings.AllowFPSReduction {
		b.WriteString(`, or enable "Allow FPS reduction"`)
	}
	if !settings.MuteAudio && hasAudio {
		b.WriteString(", or mute audio to save space")
	}
	return b.String()
}
