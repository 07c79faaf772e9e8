package worker

import (
	"strings"

	"clipfit/internal/services"
)

const transcodeFirst = "Try converting your video to H.264/MP4 format first using another tool."

// SuggestionFor maps an error message to a next step for the user.
func SuggestionFor(message string) string {
	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "codec not supported"):
		return transcodeFirst
	case strings.Contains(lower, "too small"):
		return "Increase target size, enable downscaling, or reduce video duration."
	case strings.Contains(lower, "memory"):
		return "Try a smaller video file or free up system memory."
	default:
		return "Try again with different settings"
	}
}

// suggestionForKind prefers the failure classification over message text.
func suggestionForKind(kind services.FailureKind, message string) string {
	if kind == services.KindCapability {
		return transcodeFirst
	}
	return SuggestionFor(message)
}
