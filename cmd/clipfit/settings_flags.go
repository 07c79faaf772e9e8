package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"clipfit/internal/bitrate"
	"clipfit/internal/config"
)

// compressionFlags are the per-run overrides shared by compress and submit.
// Flags the user did not set fall back to the [compression] config section.
type compressionFlags struct {
	target            string
	audioBitrate      string
	maxHeight         int
	mute              bool
	allowDownscale    bool
	allowFPSReduction bool
}

func (f *compressionFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&f.target, "target", "t", "", "Target output size (e.g. 10MiB, 25MB)")
	flags.StringVar(&f.audioBitrate, "audio-bitrate", "", "Audio bitrate when re-encoding audio (e.g. 96k)")
	flags.IntVar(&f.maxHeight, "max-height", 0, "Scale down to this height before the first attempt (0 keeps the original)")
	flags.BoolVar(&f.mute, "mute", false, "Drop the audio track")
	flags.BoolVar(&f.allowDownscale, "allow-downscale", false, "Allow lowering the resolution when the bitrate gets too low")
	flags.BoolVar(&f.allowFPSReduction, "allow-fps-reduction", false, "Allow lowering the frame rate when the bitrate gets too low")
}

func (f *compressionFlags) settings(cmd *cobra.Command, cfg *config.Config) (bitrate.Settings, error) {
	settings, err := cfg.Settings()
	if err != nil {
		return bitrate.Settings{}, err
	}
	flags := cmd.Flags()
	if flags.Changed("target") {
		size, err := config.ParseSize(f.target)
		if err != nil {
			return bitrate.Settings{}, fmt.Errorf("--target: %w", err)
		}
		settings.TargetSizeBytes = size
	}
	if flags.Changed("audio-bitrate") {
		bps, err := bitrate.ParseBitrate(f.audioBitrate)
		if err != nil {
			return bitrate.Settings{}, fmt.Errorf("--audio-bitrate: %w", err)
		}
		settings.AudioBitrate = bps
	}
	if flags.Changed("max-height") {
		settings.TargetResolution = f.maxHeight
	}
	if flags.Changed("mute") {
		settings.MuteAudio = f.mute
	}
	if flags.Changed("allow-downscale") {
		settings.AllowDownscale = f.allowDownscale
	}
	if flags.Changed("allow-fps-reduction") {
		settings.AllowFPSReduction = f.allowFPSReduction
	}
	settings = settings.WithDefaults()
	if err := settings.Validate(cfg.TargetLimits()); err != nil {
		return bitrate.Settings{}, err
	}
	return settings, nil
}
