package encoding

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"clipfit/internal/bitrate"
	"clipfit/internal/logging"
	"clipfit/internal/media/ffprobe"
	"clipfit/internal/services"
)

// OutputValidator inspects a finished output before the ladder accepts it.
type OutputValidator interface {
	Validate(ctx context.Context, path string, job Job, params bitrate.Params) error
}

// ProbeValidator checks outputs with ffprobe: one H.264 video stream at the
// requested size, and a duration that is not wildly off the source.
type ProbeValidator struct {
	Binary string
	Logger *slog.Logger
	// Probe defaults to ffprobe.Inspect.
	Probe func(ctx context.Context, binary, path string) (ffprobe.Result, error)
}

// Validate implements OutputValidator.
func (v ProbeValidator) Validate(ctx context.Context, path string, job Job, params bitrate.Params) error {
	probe := v.Probe
	if probe == nil {
		probe = ffprobe.Inspect
	}
	result, err := probe(ctx, v.Binary, path)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "encoding", "validate output", "ffprobe failed on encoded output", err)
	}
	video, ok := result.VideoStream()
	if !ok {
		return services.Wrap(services.ErrValidation, "encoding", "validate output", "encoded output has no video stream", nil)
	}
	if !strings.EqualFold(video.CodecName, "h264") {
		return services.Wrap(services.ErrValidation, "encoding", "validate output",
			fmt.Sprintf("encoded output codec is %s, expected h264", video.CodecName), nil)
	}
	if video.Width != params.Width || video.Height != params.Height {
		return services.Wrap(services.ErrValidation, "encoding", "validate output",
			fmt.Sprintf("encoded output is %dx%d, expected %dx%d", video.Width, video.Height, params.Width, params.Height), nil)
	}

	source := job.Meta.Duration
	duration := result.DurationSeconds()
	if source > 0 && !math.IsNaN(duration) && duration > 0 {
		drift := math.Abs(duration-source) / source
		if drift > 0.1 && v.Logger != nil {
			logging.WarnWithContext(v.Logger, "encoded duration differs from source", "output_duration_drift",
				logging.Float64("source_seconds", source),
				logging.Float64("output_seconds", duration),
				logging.String(logging.FieldErrorHint, "source may have variable frame rate or broken timestamps"),
				logging.String(logging.FieldImpact, "output playback length may differ from the original"),
			)
		}
	}
	return nil
}
