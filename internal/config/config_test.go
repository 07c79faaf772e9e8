package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"clipfit/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("CLIPFIT_FFMPEG", "")
	t.Setenv("CLIPFIT_FFPROBE", "")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantStaging := filepath.Join(tempHome, ".local", "share", "clipfit", "staging")
	if cfg.Paths.StagingDir != wantStaging {
		t.Fatalf("unexpected staging dir: got %q want %q", cfg.Paths.StagingDir, wantStaging)
	}
	if cfg.History.Path != filepath.Join(tempHome, ".local", "share", "clipfit", "history.db") {
		t.Fatalf("unexpected history path: %q", cfg.History.Path)
	}
	if cfg.Daemon.APIBind != "127.0.0.1:7488" {
		t.Fatalf("unexpected api bind: %q", cfg.Daemon.APIBind)
	}
	if cfg.FFmpegBinary() != "ffmpeg" || cfg.FFprobeBinary() != "ffprobe" {
		t.Fatalf("unexpected binaries: %q %q", cfg.FFmpegBinary(), cfg.FFprobeBinary())
	}
	target, err := cfg.TargetSizeBytes()
	if err != nil {
		t.Fatalf("TargetSizeBytes: %v", err)
	}
	if target != 10*1024*1024 {
		t.Fatalf("unexpected default target: %d", target)
	}
	if cfg.Compression.AudioBitrate != 96_000 {
		t.Fatalf("unexpected audio bitrate: %d", cfg.Compression.AudioBitrate)
	}
	if cfg.Compression.MuteAudio || cfg.Compression.AllowDownscale || cfg.Compression.AllowFPSReduction {
		t.Fatal("expected compression knobs disabled by default")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}

	for _, dir := range []string{cfg.Paths.StagingDir, cfg.Paths.LogDir, filepath.Dir(cfg.History.Path)} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "clipfit.toml")

	type payload struct {
		Compression struct {
			TargetSize     string `toml:"target_size"`
			AllowDownscale bool   `toml:"allow_downscale"`
			MaxHeight      int    `toml:"max_height"`
		} `toml:"compression"`
		Daemon struct {
			APIBind string `toml:"api_bind"`
		} `toml:"daemon"`
	}
	custom := payload{}
	custom.Compression.TargetSize = "25MB"
	custom.Compression.AllowDownscale = true
	custom.Compression.MaxHeight = 720
	custom.Daemon.APIBind = ""
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	target, err := cfg.TargetSizeBytes()
	if err != nil {
		t.Fatalf("TargetSizeBytes: %v", err)
	}
	if target != 25_000_000 {
		t.Fatalf("expected decimal megabytes, got %d", target)
	}
	if !cfg.Compression.AllowDownscale || cfg.Compression.MaxHeight != 720 {
		t.Fatalf("unexpected compression overrides: %+v", cfg.Compression)
	}
	if cfg.Daemon.APIBind != "" {
		t.Fatalf("expected API bind override to disable API, got %q", cfg.Daemon.APIBind)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "clipfit.toml")
	if err := os.WriteFile(configPath, []byte("[compression]\ntarget = \"10MiB\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil {
		t.Fatal("expected unknown key to be rejected")
	}
}

func TestEnvOverridesBinaries(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("CLIPFIT_FFMPEG", "/opt/ffmpeg/bin/ffmpeg")
	t.Setenv("CLIPFIT_FFPROBE", "/opt/ffmpeg/bin/ffprobe")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.FFmpegBinary() != "/opt/ffmpeg/bin/ffmpeg" {
		t.Fatalf("unexpected ffmpeg binary %q", cfg.FFmpegBinary())
	}
	if cfg.FFprobeBinary() != "/opt/ffmpeg/bin/ffprobe" {
		t.Fatalf("unexpected ffprobe binary %q", cfg.FFprobeBinary())
	}
}

func TestCreateSample(t *testing.T) {
	tempDir := t.TempDir()
	target := filepath.Join(tempDir, "config.toml")
	if err := config.CreateSample(target, ""); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("failed to read sample config: %v", err)
	}
	content := string(data)
	for _, section := range []string{"[paths]", "[compression]", "[limits]", "[ffmpeg]", "[daemon]", "[history]", "[notifications]", "[logging]"} {
		if !strings.Contains(content, section) {
			t.Fatalf("sample config missing %s", section)
		}
	}

	t.Setenv("HOME", tempDir)
	if _, _, _, err := config.Load(target); err != nil {
		t.Fatalf("sample config failed to load: %v", err)
	}
}

func TestCreateSampleWithTarget(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	target := filepath.Join(tempDir, "config.toml")
	if err := config.CreateSample(target, "25MB"); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, _, err := config.Load(target)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if size, err := cfg.TargetSizeBytes(); err != nil || size != 25_000_000 {
		t.Fatalf("TargetSizeBytes = %d, %v; want 25000000", size, err)
	}

	if err := config.CreateSample(filepath.Join(tempDir, "bad.toml"), "lots"); err == nil {
		t.Fatal("expected error for invalid target size")
	}
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		input   string
		want    int64
		wantErr bool
	}{
		{"10MiB", 10 * 1024 * 1024, false},
		{"10MB", 10_000_000, false},
		{"1048576", 1048576, false},
		{"", 0, true},
		{"lots", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := config.ParseSize(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseSize(%q): %v", tt.input, err)
			}
			if got != tt.want {
				t.Fatalf("ParseSize(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"target below minimum", func(c *config.Config) { c.Compression.TargetSize = "100KiB" }, "compression.target_size"},
		{"target above maximum", func(c *config.Config) { c.Compression.TargetSize = "2GiB" }, "compression.target_size"},
		{"audio bitrate", func(c *config.Config) { c.Compression.AudioBitrate = -1 }, "compression.audio_bitrate"},
		{"odd max height", func(c *config.Config) { c.Compression.MaxHeight = 719 }, "compression.max_height"},
		{"limits inverted", func(c *config.Config) { c.Limits.MinTargetSize = "600MiB" }, "limits.min_target_size"},
		{"preset", func(c *config.Config) { c.FFmpeg.Preset = "ludicrous" }, "ffmpeg.preset"},
		{"event buffer", func(c *config.Config) { c.Daemon.EventBuffer = 0 }, "daemon.event_buffer"},
		{"log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"log level", func(c *config.Config) { c.Logging.Level = "loud" }, "logging.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestDefaultValidates(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}
