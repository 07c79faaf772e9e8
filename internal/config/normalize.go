package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeCompression()
	c.normalizeFFmpeg()
	c.normalizeDaemon()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(strings.TrimSpace(c.Paths.OutputDir)); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.History.Path) == "" {
		c.History.Path = defaultHistoryPath
	}
	if c.History.Path, err = expandPath(c.History.Path); err != nil {
		return fmt.Errorf("history.path: %w", err)
	}
	if strings.TrimSpace(c.Daemon.SocketPath) == "" {
		c.Daemon.SocketPath = defaultSocketPath
	}
	if c.Daemon.SocketPath, err = expandPath(c.Daemon.SocketPath); err != nil {
		return fmt.Errorf("daemon.socket_path: %w", err)
	}
	if strings.TrimSpace(c.Daemon.LockPath) == "" {
		c.Daemon.LockPath = defaultLockPath
	}
	if c.Daemon.LockPath, err = expandPath(c.Daemon.LockPath); err != nil {
		return fmt.Errorf("daemon.lock_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeCompression() {
	c.Compression.TargetSize = strings.TrimSpace(c.Compression.TargetSize)
	if c.Compression.TargetSize == "" {
		c.Compression.TargetSize = defaultTargetSize
	}
	if c.Compression.AudioBitrate == 0 {
		c.Compression.AudioBitrate = defaultAudioBitrate
	}
	c.Compression.OutputSuffix = strings.TrimSpace(c.Compression.OutputSuffix)
	if c.Compression.OutputSuffix == "" {
		c.Compression.OutputSuffix = defaultOutputSuffix
	}
}

func (c *Config) normalizeFFmpeg() {
	if value, ok := os.LookupEnv("CLIPFIT_FFMPEG"); ok && strings.TrimSpace(value) != "" {
		c.FFmpeg.FFmpegBinary = strings.TrimSpace(value)
	}
	if value, ok := os.LookupEnv("CLIPFIT_FFPROBE"); ok && strings.TrimSpace(value) != "" {
		c.FFmpeg.FFprobeBinary = strings.TrimSpace(value)
	}
	c.FFmpeg.FFmpegBinary = strings.TrimSpace(c.FFmpeg.FFmpegBinary)
	if c.FFmpeg.FFmpegBinary == "" {
		c.FFmpeg.FFmpegBinary = "ffmpeg"
	}
	c.FFmpeg.FFprobeBinary = strings.TrimSpace(c.FFmpeg.FFprobeBinary)
	if c.FFmpeg.FFprobeBinary == "" {
		c.FFmpeg.FFprobeBinary = "ffprobe"
	}
	c.FFmpeg.Encoder = strings.TrimSpace(c.FFmpeg.Encoder)
	if c.FFmpeg.Encoder == "" {
		c.FFmpeg.Encoder = defaultEncoder
	}
	c.FFmpeg.Preset = strings.ToLower(strings.TrimSpace(c.FFmpeg.Preset))
	if c.FFmpeg.Preset == "" {
		c.FFmpeg.Preset = defaultPreset
	}
}

func (c *Config) normalizeDaemon() {
	c.Daemon.APIBind = strings.TrimSpace(c.Daemon.APIBind)
	c.Daemon.APIToken = strings.TrimSpace(c.Daemon.APIToken)
	if c.Daemon.APIToken == "" {
		if value, ok := os.LookupEnv("CLIPFIT_API_TOKEN"); ok {
			c.Daemon.APIToken = strings.TrimSpace(value)
		}
	}
	if c.Daemon.EventBuffer == 0 {
		c.Daemon.EventBuffer = defaultEventBuffer
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout == 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeLogging() {
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if format == "" {
		format = defaultLogFormat
	}
	c.Logging.Format = format

	level := strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if level == "" {
		level = defaultLogLevel
	}
	c.Logging.Level = level
}
