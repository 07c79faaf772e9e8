package logs

import (
	"encoding/json"
	"log/slog"
	"strings"

	"clipfit/internal/logging"
)

// Filter selects log lines. The zero value matches everything.
type Filter struct {
	// MinLevel drops lines below this level when set. Lines whose level
	// cannot be determined are kept.
	MinLevel slog.Leveler
	// RunID keeps only lines mentioning this run ID or ID prefix.
	RunID string
}

// ParseLevel converts a level name such as "warn" to a slog level.
func ParseLevel(value string) (slog.Level, bool) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(value))); err != nil {
		return slog.LevelInfo, false
	}
	return level, true
}

// Match reports whether line passes the filter.
func (f Filter) Match(line string) bool {
	if f.MinLevel == nil && f.RunID == "" {
		return true
	}
	if strings.HasPrefix(strings.TrimSpace(line), "{") {
		return f.matchJSON(line)
	}
	if f.RunID != "" && !strings.Contains(line, f.RunID) {
		return false
	}
	if level, ok := consoleLevel(line); ok && f.below(level) {
		return false
	}
	return true
}

func (f Filter) below(level slog.Level) bool {
	return f.MinLevel != nil && level < f.MinLevel.Level()
}

func (f Filter) matchJSON(line string) bool {
	var record map[string]any
	if err := json.Unmarshal([]byte(line), &record); err != nil {
		return f.RunID == "" || strings.Contains(line, f.RunID)
	}
	if f.RunID != "" {
		runID, _ := record[logging.FieldRunID].(string)
		if !strings.HasPrefix(runID, f.RunID) {
			return false
		}
	}
	if name, ok := record["level"].(string); ok {
		if level, ok := ParseLevel(name); ok && f.below(level) {
			return false
		}
	}
	return true
}

// consoleLevel reads the level label that follows the date and time in
// console output.
func consoleLevel(line string) (slog.Level, bool) {
	fields := strings.Fields(line)
	for i := 1; i < len(fields) && i <= 2; i++ {
		switch fields[i] {
		case "DEBUG", "INFO", "WARN", "ERROR":
			return ParseLevel(fields[i])
		}
	}
	return 0, false
}
