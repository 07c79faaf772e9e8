package audio

import (
	"fmt"
	"sort"
	"strings"

	"clipfit/internal/media"
	"clipfit/internal/media/ffprobe"
)

// Plan describes the audio layout of an encode attempt.
type Plan struct {
	Passthrough bool
	StreamIndex int
	Codec       string
	Channels    int
	Reason      string
}

// None is the plan for silent output.
func None(reason string) Plan {
	return Plan{StreamIndex: -1, Reason: reason}
}

// Label returns a short human-readable summary of the plan.
func (p Plan) Label() string {
	if !p.Passthrough {
		if p.Reason == "" {
			return "none"
		}
		return "none (" + p.Reason + ")"
	}
	if p.Channels > 0 {
		return fmt.Sprintf("copy %s %dch (stream %d)", p.Codec, p.Channels, p.StreamIndex)
	}
	return fmt.Sprintf("copy %s (stream %d)", p.Codec, p.StreamIndex)
}

// Select picks the audio stream to copy into the output, or explains why the
// output will be silent.
func Select(streams []ffprobe.Stream, mute bool) Plan {
	if mute {
		return None("muted")
	}
	var all, aac []ffprobe.Stream
	for _, stream := range streams {
		if !strings.EqualFold(stream.CodecType, "audio") {
			continue
		}
		all = append(all, stream)
		if media.IsAAC(stream.CodecName) || media.IsAAC(stream.CodecTag) {
			aac = append(aac, stream)
		}
	}
	if len(all) == 0 {
		return None("no audio track")
	}
	if len(aac) == 0 {
		return None(fmt.Sprintf("codec %s is not AAC", strings.ToLower(all[0].CodecName)))
	}

	sort.SliceStable(aac, func(i, j int) bool {
		return rank(aac[i]) > rank(aac[j])
	})
	primary := aac[0]
	return Plan{
		Passthrough: true,
		StreamIndex: primary.Index,
		Codec:       "aac",
		Channels:    primary.Channels,
	}
}

func rank(stream ffprobe.Stream) int {
	score := 0
	if stream.Disposition["default"] == 1 {
		score += 100
	}
	if isEnglish(stream.Tags["language"]) {
		score += 10
	}
	if stream.Channels > 0 {
		score += min(stream.Channels, 8)
	}
	return score
}

func isEnglish(lang string) bool {
	switch strings.ToLower(strings.TrimSpace(lang)) {
	case "en", "eng", "en-us", "en-gb":
		return true
	}
	return false
}
