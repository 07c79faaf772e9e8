package audio

import (
	"strings"
	"testing"

	"clipfit/internal/media/ffprobe"
)

func TestSelectCopiesAAC(t *testing.T) {
	streams := []ffprobe.Stream{
		{Index: 0, CodecType: "video", CodecName: "h264"},
		{Index: 1, CodecType: "audio", CodecName: "aac", Channels: 2},
	}
	plan := Select(streams, false)
	if !plan.Passthrough || plan.StreamIndex != 1 {
		t.Fatalf("expected passthrough of stream 1, got %+v", plan)
	}
	if plan.Label() != "copy aac 2ch (stream 1)" {
		t.Fatalf("unexpected label %q", plan.Label())
	}
}

func TestSelectPrefersDefaultThenEnglishThenChannels(t *testing.T) {
	streams := []ffprobe.Stream{
		{Index: 1, CodecType: "audio", CodecName: "aac", Channels: 6, Tags: map[string]string{"language": "jpn"}},
		{Index: 2, CodecType: "audio", CodecName: "aac", Channels: 2, Tags: map[string]string{"language": "eng"}},
		{Index: 3, CodecType: "audio", CodecName: "aac", Channels: 2, Disposition: map[string]int{"default": 1}},
	}
	if plan := Select(streams, false); plan.StreamIndex != 3 {
		t.Fatalf("expected default stream 3, got %d", plan.StreamIndex)
	}
	if plan := Select(streams[:2], false); plan.StreamIndex != 2 {
		t.Fatalf("expected english stream 2, got %d", plan.StreamIndex)
	}
	streams[1].Tags = nil
	if plan := Select(streams[:2], false); plan.StreamIndex != 1 {
		t.Fatalf("expected 6ch stream 1, got %d", plan.StreamIndex)
	}
}

func TestSelectDropsNonAAC(t *testing.T) {
	tests := []struct {
		name    string
		streams []ffprobe.Stream
		mute    bool
		reason  string
	}{
		{"muted", []ffprobe.Stream{{CodecType: "audio", CodecName: "aac"}}, true, "muted"},
		{"silent source", []ffprobe.Stream{{CodecType: "video"}}, false, "no audio track"},
		{"opus", []ffprobe.Stream{{CodecType: "audio", CodecName: "opus"}}, false, "codec opus is not AAC"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := Select(tt.streams, tt.mute)
			if plan.Passthrough {
				t.Fatalf("expected audio dropped, got %+v", plan)
			}
			if plan.StreamIndex != -1 {
				t.Fatalf("expected stream index -1, got %d", plan.StreamIndex)
			}
			if plan.Reason != tt.reason {
				t.Fatalf("unexpected reason %q", plan.Reason)
			}
			if !strings.HasPrefix(plan.Label(), "none") {
				t.Fatalf("unexpected label %q", plan.Label())
			}
		})
	}
}

func TestSelectMatchesMP4ATag(t *testing.T) {
	streams := []ffprobe.Stream{{Index: 4, CodecType: "audio", CodecTag: "mp4a"}}
	if plan := Select(streams, false); !plan.Passthrough || plan.StreamIndex != 4 {
		t.Fatalf("expected mp4a tag to pass through, got %+v", plan)
	}
}
