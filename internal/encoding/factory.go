package encoding

import (
	"log/slog"

	"clipfit/internal/config"
	"clipfit/internal/services/ffmpeg"
)

// NewCodecFromConfig builds the ffmpeg codec described by cfg.
func NewCodecFromConfig(cfg *config.Config, logger *slog.Logger) *FFmpegCodec {
	client := ffmpeg.New(cfg.FFmpegBinary(),
		ffmpeg.WithEncoder(cfg.FFmpeg.Encoder),
		ffmpeg.WithPreset(cfg.FFmpeg.Preset),
		ffmpeg.WithThreads(cfg.FFmpeg.Threads),
		ffmpeg.WithLogger(logger),
	)
	return NewFFmpegCodec(client)
}

// NewFromConfig builds the ffmpeg-backed Driver described by cfg.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) *Driver {
	validator := ProbeValidator{Binary: cfg.FFprobeBinary(), Logger: logger}
	return NewDriver(NewCodecFromConfig(cfg, logger), logger, WithValidator(validator))
}
