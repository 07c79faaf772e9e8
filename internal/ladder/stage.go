package ladder

// Stage is the reported phase of a compression run.
type Stage string

const (
	StageIdle       Stage = "idle"
	StageReading    Stage = "reading"
	StageAnalyzing  Stage = "analyzing"
	StageEncoding   Stage = "encoding"
	StageRetrying   Stage = "retrying"
	StageFinalizing Stage = "finalizing"
	StageComplete   Stage = "complete"
	StageError      Stage = "error"
	StageCancelled  Stage = "cancelled"
)

var stageLabels = map[Stage]string{
	StageIdle:       "Ready",
	StageReading:    "Reading file...",
	StageAnalyzing:  "Analyzing video...",
	StageEncoding:   "Encoding video...",
	StageRetrying:   "Adjusting quality...",
	StageFinalizing: "Finalizing MP4...",
	StageComplete:   "Complete!",
	StageError:      "Error occurred",
	StageCancelled:  "Cancelled",
}

// Label returns the human-facing description of s.
func (s Stage) Label() string {
	if label, ok := stageLabels[s]; ok {
		return label
	}
	return string(s)
}

// Terminal reports whether no further progress follows s.
func (s Stage) Terminal() bool {
	switch s {
	case StageComplete, StageError, StageCancelled:
		return true
	default:
		return false
	}
}

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	_, ok := stageLabels[s]
	return ok
}

// StageForAttempt returns encoding for the first attempt and retrying after.
func StageForAttempt(attempt int) Stage {
	if attempt <= 1 {
		return StageEncoding
	}
	return StageRetrying
}

// Fixed progress checkpoints. Attempt progress maps 0-100 onto
// AttemptStartPercent..AttemptStartPercent+AttemptSpanPercent.
const (
	ReadingPercent      = 5.0
	AnalyzingPercent    = 10.0
	AttemptStartPercent = 15.0
	AttemptSpanPercent  = 75.0
	FinalizingPercent   = 95.0
)

// Progress is one progress observation of a run.
type Progress struct {
	Stage          Stage   `json:"stage"`
	Percent        float64 `json:"percent"`
	Attempt        int     `json:"attempt"`
	MaxAttempts    int     `json:"max_attempts"`
	CurrentBitrate int64   `json:"current_bitrate,omitempty"`
	Message        string  `json:"message,omitempty"`
}
