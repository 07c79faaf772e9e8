package config

import (
	"time"

	"clipfit/internal/bitrate"
)

// Settings returns the configured default compression settings.
func (c *Config) Settings() (bitrate.Settings, error) {
	target, err := c.TargetSizeBytes()
	if err != nil {
		return bitrate.Settings{}, err
	}
	return bitrate.Settings{
		TargetSizeBytes:   target,
		AudioBitrate:      c.Compression.AudioBitrate,
		TargetResolution:  c.Compression.MaxHeight,
		MuteAudio:         c.Compression.MuteAudio,
		AllowDownscale:    c.Compression.AllowDownscale,
		AllowFPSReduction: c.Compression.AllowFPSReduction,
	}.WithDefaults(), nil
}

// TargetLimits returns the accepted target range.
func (c *Config) TargetLimits() bitrate.Limits {
	return bitrate.Limits{
		MinTargetBytes: c.MinTargetBytes(),
		MaxTargetBytes: c.MaxTargetBytes(),
	}
}

// WarnDuration returns the input duration above which a warning is emitted.
func (c *Config) WarnDuration() time.Duration {
	return time.Duration(c.Limits.WarnDurationSeconds) * time.Second
}

// StagingMaxAge returns how long abandoned staging directories are kept.
func (c *Config) StagingMaxAge() time.Duration {
	return time.Duration(c.Daemon.StagingMaxAgeHours) * time.Hour
}

// NotifyTimeout returns the ntfy request timeout.
func (c *Config) NotifyTimeout() time.Duration {
	return time.Duration(c.Notifications.RequestTimeout) * time.Second
}
