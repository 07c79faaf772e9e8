package bitrate

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"

	"clipfit/internal/services"
)

// DefaultAudioBitrate is used when settings leave the audio bitrate unset.
const DefaultAudioBitrate int64 = 96_000

// Settings are the caller-supplied compression options for one run.
type Settings struct {
	TargetSizeBytes   int64 `json:"target_size_bytes"`
	AudioBitrate      int64 `json:"audio_bitrate"`
	TargetResolution  int   `json:"target_resolution,omitempty"`
	MuteAudio         bool  `json:"mute_audio,omitempty"`
	AllowDownscale    bool  `json:"allow_downscale,omitempty"`
	AllowFPSReduction bool  `json:"allow_fps_reduction,omitempty"`
}

// DefaultSettings returns settings for target with every other option at its default.
func DefaultSettings(target int64) Settings {
	return Settings{TargetSizeBytes: target, AudioBitrate: DefaultAudioBitrate}
}

// WithDefaults fills unset optional fields.
func (s Settings) WithDefaults() Settings {
	if s.AudioBitrate <= 0 {
		s.AudioBitrate = DefaultAudioBitrate
	}
	return s
}

// Limits bounds the accepted target size.
type Limits struct {
	MinTargetBytes int64
	MaxTargetBytes int64
}

// DefaultLimits accepts targets between 1 MiB and 500 MiB.
var DefaultLimits = Limits{
	MinTargetBytes: 1 << 20,
	MaxTargetBytes: 500 << 20,
}

// Validate checks settings against limits. Zero-valued limits are not enforced.
func (s Settings) Validate(limits Limits) error {
	if s.TargetSizeBytes <= 0 {
		return services.Wrap(services.ErrValidation, "settings", "target", "target size is required", nil)
	}
	if limits.MinTargetBytes > 0 && s.TargetSizeBytes < limits.MinTargetBytes {
		return services.Wrap(services.ErrValidation, "settings", "target",
			fmt.Sprintf("target size %s is below the minimum of %s", FormatBytes(s.TargetSizeBytes), FormatBytes(limits.MinTargetBytes)), nil)
	}
	if limits.MaxTargetBytes > 0 && s.TargetSizeBytes > limits.MaxTargetBytes {
		return services.Wrap(services.ErrValidation, "settings", "target",
			fmt.Sprintf("target size %s exceeds the maximum of %s", FormatBytes(s.TargetSizeBytes), FormatBytes(limits.MaxTargetBytes)), nil)
	}
	if !s.MuteAudio && s.AudioBitrate <= 0 {
		return services.Wrap(services.ErrValidation, "settings", "audio", "audio bitrate must be positive", nil)
	}
	if s.TargetResolution < 0 {
		return services.Wrap(services.ErrValidation, "settings", "resolution", "target resolution must be >= 0", nil)
	}
	return nil
}

// Preset is a named target size.
type Preset struct {
	Label       string `json:"label"`
	Bytes       int64  `json:"bytes"`
	Description string `json:"description"`
}

// Presets lists the common upload targets.
var Presets = []Preset{
	{Label: "10 MB", Bytes: 10 << 20, Description: "Discord, email"},
	{Label: "25 MB", Bytes: 25 << 20, Description: "Larger uploads"},
	{Label: "50 MB", Bytes: 50 << 20, Description: "Cloud storage"},
	{Label: "100 MB", Bytes: 100 << 20, Description: "High quality"},
}

// Option is a labelled choice for a numeric setting.
type Option struct {
	Value       int64  `json:"value"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

// AudioBitrateOptions are the supported audio bitrates.
var AudioBitrateOptions = []Option{
	{Value: 64_000, Label: "64 kbps", Description: "Low quality, smaller size"},
	{Value: 96_000, Label: "96 kbps", Description: "Good balance (default)"},
	{Value: 128_000, Label: "128 kbps", Description: "Better quality"},
}

// ResolutionOptions are the selectable resolution caps. Zero keeps the original.
var ResolutionOptions = []Option{
	{Value: 0, Label: "Original"},
	{Value: 1080, Label: "1080p"},
	{Value: 720, Label: "720p"},
	{Value: 480, Label: "480p"},
	{Value: 360, Label: "360p"},
}

// ParseBitrate parses values such as "96k", "96000", or "1.5M" into bits per second.
func ParseBitrate(value string) (int64, error) {
	parsed, err := humanize.ParseBytes(value)
	if err != nil {
		return 0, fmt.Errorf("invalid bitrate %q: %w", value, err)
	}
	if parsed == 0 || parsed > math.MaxInt64 {
		return 0, fmt.Errorf("invalid bitrate %q", value)
	}
	return int64(parsed), nil
}
