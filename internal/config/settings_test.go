package config_test

import (
	"testing"
	"time"

	"clipfit/internal/bitrate"
	"clipfit/internal/config"
)

func TestSettingsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Compression.TargetSize = "25MiB"
	cfg.Compression.AudioBitrate = 0
	cfg.Compression.MaxHeight = 720
	cfg.Compression.AllowDownscale = true

	settings, err := cfg.Settings()
	if err != nil {
		t.Fatalf("Settings: %v", err)
	}
	want := bitrate.Settings{
		TargetSizeBytes:  25 << 20,
		AudioBitrate:     bitrate.DefaultAudioBitrate,
		TargetResolution: 720,
		AllowDownscale:   true,
	}
	if settings != want {
		t.Fatalf("Settings() = %+v, want %+v", settings, want)
	}

	cfg.Compression.TargetSize = "lots"
	if _, err := cfg.Settings(); err == nil {
		t.Fatal("expected error for unparsable target size")
	}
}

func TestDerivedDurationsAndLimits(t *testing.T) {
	cfg := config.Default()
	limits := cfg.TargetLimits()
	if limits != bitrate.DefaultLimits {
		t.Fatalf("TargetLimits() = %+v, want %+v", limits, bitrate.DefaultLimits)
	}
	if cfg.WarnDuration() != 5*time.Minute {
		t.Fatalf("WarnDuration() = %v", cfg.WarnDuration())
	}
	if cfg.StagingMaxAge() != 24*time.Hour {
		t.Fatalf("StagingMaxAge() = %v", cfg.StagingMaxAge())
	}
	if cfg.NotifyTimeout() != 10*time.Second {
		t.Fatalf("NotifyTimeout() = %v", cfg.NotifyTimeout())
	}
}
