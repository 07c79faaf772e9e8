package worker

import (
	"fmt"

	"clipfit/internal/bitrate"
	"clipfit/internal/ladder"
	"clipfit/internal/media"
	"clipfit/internal/services"
)

// Command is an inbound request to the Host. The set is closed.
type Command interface {
	command()
}

// StartCommand begins a new run. Exactly one of RawBytes or Path is used;
// RawBytes wins when both are set. Ownership of RawBytes moves to the Host.
// OutputPath, when set, is where the accepted output is moved; otherwise
// the Host's output directory (or the run's staging directory) is used.
type StartCommand struct {
	RawBytes   []byte
	Path       string
	Filename   string
	OutputPath string
	Settings   bitrate.Settings
}

// CancelCommand stops the active run, if any.
type CancelCommand struct{}

func (StartCommand) command()  {}
func (CancelCommand) command() {}

// Message is an outbound event for one run. The set is closed.
type Message interface {
	message()
	Kind() string
}

// Message kinds as they appear in Envelope.Kind.
const (
	KindMetadata = "metadata"
	KindProgress = "progress"
	KindComplete = "complete"
	KindError    = "error"
)

// MetadataMessage carries the probed input metadata and advisory warnings.
type MetadataMessage struct {
	Metadata media.VideoMetadata `json:"metadata"`
	Warnings []string            `json:"warnings,omitempty"`
}

// ProgressMessage reports the current stage and percent of a run.
type ProgressMessage struct {
	Stage          ladder.Stage `json:"stage"`
	Percent        float64      `json:"percent"`
	Attempt        int          `json:"attempt"`
	MaxAttempts    int          `json:"max_attempts"`
	CurrentBitrate int64        `json:"current_bitrate,omitempty"`
	Message        string       `json:"message,omitempty"`
}

// CompleteMessage carries a successful result.
type CompleteMessage struct {
	Result ladder.Result `json:"result"`
}

// ErrorMessage is a terminal failure.
type ErrorMessage struct {
	Message     string               `json:"message"`
	Suggestion  string               `json:"suggestion,omitempty"`
	FailureKind services.FailureKind `json:"failure_kind"`
	BestSize    int64                `json:"best_size,omitempty"`
}

func (MetadataMessage) message() {}
func (ProgressMessage) message() {}
func (CompleteMessage) message() {}
func (ErrorMessage) message()    {}

func (MetadataMessage) Kind() string { return KindMetadata }
func (ProgressMessage) Kind() string { return KindProgress }
func (CompleteMessage) Kind() string { return KindComplete }
func (ErrorMessage) Kind() string    { return KindError }

// Terminal reports whether msg ends a run.
func Terminal(msg Message) bool {
	switch m := msg.(type) {
	case CompleteMessage, ErrorMessage:
		return true
	case ProgressMessage:
		return m.Stage == ladder.StageCancelled
	case MetadataMessage:
		return false
	default:
		return false
	}
}

func progressFrom(p ladder.Progress) ProgressMessage {
	return ProgressMessage{
		Stage:          p.Stage,
		Percent:        p.Percent,
		Attempt:        p.Attempt,
		MaxAttempts:    p.MaxAttempts,
		CurrentBitrate: p.CurrentBitrate,
		Message:        p.Message,
	}
}

// Envelope is the JSON form of a Message, tagged by Kind.
type Envelope struct {
	Kind     string               `json:"kind"`
	RunID    string               `json:"run_id,omitempty"`
	Seq      int64                `json:"seq,omitempty"`
	Metadata *media.VideoMetadata `json:"metadata,omitempty"`
	Warnings []string             `json:"warnings,omitempty"`
	Progress *ProgressMessage     `json:"progress,omitempty"`
	Result   *ladder.Result       `json:"result,omitempty"`
	Error    *ErrorMessage        `json:"error,omitempty"`
}

// Wrap converts msg into an Envelope for run runID.
func Wrap(runID string, seq int64, msg Message) Envelope {
	env := Envelope{Kind: msg.Kind(), RunID: runID, Seq: seq}
	switch m := msg.(type) {
	case MetadataMessage:
		env.Metadata = &m.Metadata
		env.Warnings = m.Warnings
	case ProgressMessage:
		env.Progress = &m
	case CompleteMessage:
		env.Result = &m.Result
	case ErrorMessage:
		env.Error = &m
	}
	return env
}

// Message converts the envelope back into its typed Message.
func (e Envelope) Message() (Message, error) {
	switch e.Kind {
	case KindMetadata:
		if e.Metadata == nil {
			return nil, fmt.Errorf("envelope %q missing metadata", e.Kind)
		}
		return MetadataMessage{Metadata: *e.Metadata, Warnings: e.Warnings}, nil
	case KindProgress:
		if e.Progress == nil {
			return nil, fmt.Errorf("envelope %q missing progress", e.Kind)
		}
		return *e.Progress, nil
	case KindComplete:
		if e.Result == nil {
			return nil, fmt.Errorf("envelope %q missing result", e.Kind)
		}
		return CompleteMessage{Result: *e.Result}, nil
	case KindError:
		if e.Error == nil {
			return nil, fmt.Errorf("envelope %q missing error", e.Kind)
		}
		return *e.Error, nil
	default:
		return nil, fmt.Errorf("unknown envelope kind %q", e.Kind)
	}
}
