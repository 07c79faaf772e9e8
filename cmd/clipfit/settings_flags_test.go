package main

import (
	"testing"

	"github.com/spf13/cobra"

	"clipfit/internal/testsupport"
)

func parseCompressionFlags(t *testing.T, args ...string) (*cobra.Command, *compressionFlags) {
	t.Helper()
	var flags compressionFlags
	cmd := &cobra.Command{Use: "test"}
	flags.register(cmd)
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	return cmd, &flags
}

func TestCompressionFlagsFallBackToConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithTargetSize("8MiB"))
	cfg.Compression.AllowDownscale = true
	cfg.Compression.MuteAudio = true

	cmd, flags := parseCompressionFlags(t)
	settings, err := flags.settings(cmd, cfg)
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	if settings.TargetSizeBytes != 8<<20 {
		t.Fatalf("target = %d, want config value", settings.TargetSizeBytes)
	}
	if !settings.AllowDownscale || !settings.MuteAudio {
		t.Fatalf("expected config booleans to carry over, got %+v", settings)
	}
}

func TestCompressionFlagsOverrideConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithTargetSize("8MiB"))
	cfg.Compression.MuteAudio = true

	cmd, flags := parseCompressionFlags(t,
		"--target", "25MB",
		"--audio-bitrate", "96k",
		"--max-height", "720",
		"--mute=false",
		"--allow-fps-reduction",
	)
	settings, err := flags.settings(cmd, cfg)
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	if settings.TargetSizeBytes != 25_000_000 {
		t.Fatalf("target = %d, want 25MB", settings.TargetSizeBytes)
	}
	if settings.AudioBitrate != 96_000 {
		t.Fatalf("audio bitrate = %d", settings.AudioBitrate)
	}
	if settings.TargetResolution != 720 || settings.MuteAudio || !settings.AllowFPSReduction {
		t.Fatalf("unexpected settings %+v", settings)
	}
}

func TestCompressionFlagsValidate(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	tests := [][]string{
		{"--target", "huge"},
		{"--target", "10KB"},
		{"--audio-bitrate", "loud"},
	}
	for _, args := range tests {
		cmd, flags := parseCompressionFlags(t, args...)
		if _, err := flags.settings(cmd, cfg); err == nil {
			t.Fatalf("expected error for %v", args)
		}
	}
}
