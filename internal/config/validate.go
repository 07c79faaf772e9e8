package config

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateLimits(); err != nil {
		return err
	}
	if err := c.validateCompression(); err != nil {
		return err
	}
	if err := c.validateFFmpeg(); err != nil {
		return err
	}
	if err := c.validateDaemon(); err != nil {
		return err
	}
	if err := c.validateHistory(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateLimits() error {
	minimum, err := parseSize("limits.min_target_size", c.Limits.MinTargetSize)
	if err != nil {
		return err
	}
	maximum, err := parseSize("limits.max_target_size", c.Limits.MaxTargetSize)
	if err != nil {
		return err
	}
	if minimum >= maximum {
		return errors.New("limits.min_target_size must be smaller than limits.max_target_size")
	}
	if _, err := parseSize("limits.warn_input_size", c.Limits.WarnInputSize); err != nil {
		return err
	}
	if c.Limits.WarnDurationSeconds < 0 {
		return errors.New("limits.warn_duration_seconds must be >= 0")
	}
	return nil
}

func (c *Config) validateCompression() error {
	target, err := c.TargetSizeBytes()
	if err != nil {
		return err
	}
	if target < c.MinTargetBytes() || target > c.MaxTargetBytes() {
		return fmt.Errorf("compression.target_size must be between %s and %s",
			humanize.IBytes(uint64(c.MinTargetBytes())), humanize.IBytes(uint64(c.MaxTargetBytes())))
	}
	if c.Compression.AudioBitrate <= 0 {
		return errors.New("compression.audio_bitrate must be positive (bits per second)")
	}
	if c.Compression.MaxHeight < 0 {
		return errors.New("compression.max_height must be >= 0 (0 keeps the original height)")
	}
	if c.Compression.MaxHeight%2 != 0 {
		return errors.New("compression.max_height must be even")
	}
	return nil
}

func (c *Config) validateFFmpeg() error {
	if c.FFmpeg.Threads < 0 {
		return errors.New("ffmpeg.threads must be >= 0")
	}
	switch c.FFmpeg.Preset {
	case "ultrafast", "superfast", "veryfast", "faster", "fast", "medium", "slow", "slower", "veryslow":
	default:
		return fmt.Errorf("ffmpeg.preset: unsupported value %q", c.FFmpeg.Preset)
	}
	return nil
}

func (c *Config) validateDaemon() error {
	if c.Daemon.EventBuffer <= 0 {
		return errors.New("daemon.event_buffer must be positive")
	}
	if c.Daemon.StagingMaxAgeHours < 0 {
		return errors.New("daemon.staging_max_age_hours must be >= 0")
	}
	return nil
}

func (c *Config) validateHistory() error {
	if c.History.Enabled && c.History.KeepRuns < 0 {
		return errors.New("history.keep_runs must be >= 0")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive (seconds)")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be >= 0")
	}
	return nil
}
