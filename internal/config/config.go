package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	StagingDir string `toml:"staging_dir"`
	OutputDir  string `toml:"output_dir"`
	LogDir     string `toml:"log_dir"`
}

// Compression holds the default compression settings applied when the CLI or
// a daemon submission does not override them.
type Compression struct {
	TargetSize        string `toml:"target_size"`
	AudioBitrate      int64  `toml:"audio_bitrate"`
	MaxHeight         int    `toml:"max_height"`
	MuteAudio         bool   `toml:"mute_audio"`
	AllowDownscale    bool   `toml:"allow_downscale"`
	AllowFPSReduction bool   `toml:"allow_fps_reduction"`
	OutputSuffix      string `toml:"output_suffix"`
}

// Limits bounds accepted targets and flags oversized inputs.
type Limits struct {
	MinTargetSize       string `toml:"min_target_size"`
	MaxTargetSize       string `toml:"max_target_size"`
	WarnInputSize       string `toml:"warn_input_size"`
	WarnDurationSeconds int    `toml:"warn_duration_seconds"`
}

// FFmpeg configures the external codec binaries.
type FFmpeg struct {
	FFmpegBinary  string `toml:"ffmpeg_binary"`
	FFprobeBinary string `toml:"ffprobe_binary"`
	Encoder       string `toml:"encoder"`
	Preset        string `toml:"preset"`
	Threads       int    `toml:"threads"`
}

// Daemon configures the background service.
type Daemon struct {
	SocketPath         string `toml:"socket_path"`
	LockPath           string `toml:"lock_path"`
	APIBind            string `toml:"api_bind"`
	APIToken           string `toml:"api_token"`
	EventBuffer        int    `toml:"event_buffer"`
	StagingMaxAgeHours int    `toml:"staging_max_age_hours"`
}

// History configures the sqlite run history store.
type History struct {
	Enabled  bool   `toml:"enabled"`
	Path     string `toml:"path"`
	KeepRuns int    `toml:"keep_runs"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	OnSuccess      bool   `toml:"on_success"`
	OnFailure      bool   `toml:"on_failure"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	File          bool   `toml:"file"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for clipfit.
//
// Configuration sections by subsystem:
//   - Paths: staging, output, and log directories
//   - Compression: default compression settings
//   - Limits: accepted target range and input warnings
//   - FFmpeg: codec binaries and encoder tuning
//   - Daemon: socket, lock, and HTTP API settings
//   - History: sqlite run history
//   - Notifications: ntfy push notification settings
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Compression   Compression   `toml:"compression"`
	Limits        Limits        `toml:"limits"`
	FFmpeg        FFmpeg        `toml:"ffmpeg"`
	Daemon        Daemon        `toml:"daemon"`
	History       History       `toml:"history"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("clipfit.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the staging and log directories plus the parent
// directories of the history database and daemon socket.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.StagingDir, c.Paths.LogDir}
	if c.History.Enabled && c.History.Path != "" {
		dirs = append(dirs, filepath.Dir(c.History.Path))
	}
	if c.Daemon.SocketPath != "" {
		dirs = append(dirs, filepath.Dir(c.Daemon.SocketPath))
	}
	if c.Paths.OutputDir != "" {
		dirs = append(dirs, c.Paths.OutputDir)
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// TargetSizeBytes returns the parsed default target size.
func (c *Config) TargetSizeBytes() (int64, error) {
	return parseSize("compression.target_size", c.Compression.TargetSize)
}

// MinTargetBytes returns the smallest accepted target size.
func (c *Config) MinTargetBytes() int64 {
	value, _ := parseSize("limits.min_target_size", c.Limits.MinTargetSize)
	return value
}

// MaxTargetBytes returns the largest accepted target size.
func (c *Config) MaxTargetBytes() int64 {
	value, _ := parseSize("limits.max_target_size", c.Limits.MaxTargetSize)
	return value
}

// WarnInputBytes returns the input size above which a warning is emitted.
func (c *Config) WarnInputBytes() int64 {
	value, _ := parseSize("limits.warn_input_size", c.Limits.WarnInputSize)
	return value
}

// FFmpegBinary returns the ffmpeg executable used for decode and encode.
func (c *Config) FFmpegBinary() string {
	if binary := strings.TrimSpace(c.FFmpeg.FFmpegBinary); binary != "" {
		return binary
	}
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable used for metadata extraction.
func (c *Config) FFprobeBinary() string {
	if binary := strings.TrimSpace(c.FFmpeg.FFprobeBinary); binary != "" {
		return binary
	}
	return "ffprobe"
}

// RunLogDir returns the directory holding per-run daemon logs.
func (c *Config) RunLogDir() string {
	if c.Paths.LogDir == "" {
		return ""
	}
	return filepath.Join(c.Paths.LogDir, "runs")
}

// ParseSize parses a human size such as "10MiB", "25 MB", or "1048576".
// Decimal units (MB) are powers of 1000; binary units (MiB) powers of 1024.
func ParseSize(value string) (int64, error) {
	return parseSize("size", value)
}

func parseSize(key, value string) (int64, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, fmt.Errorf("%s must be set", key)
	}
	parsed, err := humanize.ParseBytes(trimmed)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid size %q: %w", key, value, err)
	}
	if parsed == 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return int64(parsed), nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes the sample configuration to path. A non-empty
// targetSize replaces the sample's compression.target_size.
func CreateSample(path, targetSize string) error {
	content := sampleConfig
	if targetSize = strings.TrimSpace(targetSize); targetSize != "" {
		if _, err := parseSize("compression.target_size", targetSize); err != nil {
			return err
		}
		content = strings.Replace(content,
			fmt.Sprintf("target_size = %q", defaultTargetSize),
			fmt.Sprintf("target_size = %q", targetSize), 1)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}
