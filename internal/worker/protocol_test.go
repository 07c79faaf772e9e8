package worker

import (
	"encoding/json"
	"testing"

	"clipfit/internal/ladder"
	"clipfit/internal/media"
	"clipfit/internal/services"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	msgs := []Message{
		MetadataMessage{Metadata: media.VideoMetadata{Filename: "a.mp4", Width: 640, Height: 360}, Warnings: []string{"long"}},
		ProgressMessage{Stage: ladder.StageRetrying, Percent: 52.5, Attempt: 2, MaxAttempts: 4, CurrentBitrate: 900_000, Message: "Encoding: 50%"},
		CompleteMessage{Result: ladder.Result{Success: true, OutputSize: 42, Attempts: 1}},
		ErrorMessage{Message: "boom", Suggestion: "retry", FailureKind: services.KindInput},
	}
	for i, msg := range msgs {
		data, err := json.Marshal(Wrap("run-1", int64(i+1), msg))
		if err != nil {
			t.Fatalf("marshal %T: %v", msg, err)
		}
		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			t.Fatalf("unmarshal %T: %v", msg, err)
		}
		if env.Kind != msg.Kind() || env.RunID != "run-1" || env.Seq != int64(i+1) {
			t.Fatalf("unexpected envelope header %+v", env)
		}
		back, err := env.Message()
		if err != nil {
			t.Fatalf("decode %T: %v", msg, err)
		}
		if back.Kind() != msg.Kind() || Terminal(back) != Terminal(msg) {
			t.Fatalf("round trip changed %T into %T", msg, back)
		}
	}
}

func TestEnvelopeRejectsMissingPayload(t *testing.T) {
	if _, err := (Envelope{Kind: KindComplete}).Message(); err == nil {
		t.Fatal("expected error for complete without result")
	}
	if _, err := (Envelope{Kind: "bogus"}).Message(); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestTerminal(t *testing.T) {
	if Terminal(ProgressMessage{Stage: ladder.StageEncoding}) || Terminal(MetadataMessage{}) {
		t.Fatal("non-terminal messages reported terminal")
	}
	if !Terminal(ProgressMessage{Stage: ladder.StageCancelled}) || !Terminal(ErrorMessage{}) || !Terminal(CompleteMessage{}) {
		t.Fatal("terminal messages not recognised")
	}
}

func TestSuggestionFor(t *testing.T) {
	tests := []struct {
		message string
		want    string
	}{
		{"encoding: decoder: Input video codec not supported: vp9", "Try converting your video to H.264/MP4 format first using another tool."},
		{"Target size is too small for this video.", "Increase target size, enable downscaling, or reduce video duration."},
		{"cannot allocate memory", "Try a smaller video file or free up system memory."},
		{"something else", "Try again with different settings"},
	}
	for _, tt := range tests {
		if got := SuggestionFor(tt.message); got != tt.want {
			t.Errorf("SuggestionFor(%q) = %q, want %q", tt.message, got, tt.want)
		}
	}
}
