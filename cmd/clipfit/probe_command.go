package main

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"clipfit/internal/bitrate"
	"clipfit/internal/config"
	"clipfit/internal/encoding"
	"clipfit/internal/media"
	"clipfit/internal/textutil"
)

// Test hooks.
var (
	probeMedia      = media.Probe
	thumbnailSource = func(cfg *config.Config, logger *slog.Logger) encoding.FrameSource {
		return encoding.NewCodecFromConfig(cfg, logger)
	}
)

type presetHint struct {
	Label          string `json:"label"`
	Bytes          int64  `json:"bytes"`
	Description    string `json:"description"`
	Achievable     bool   `json:"achievable"`
	InitialBitrate int64  `json:"initial_video_bitrate"`
	EstimatedBytes int64  `json:"estimated_bytes"`
}

type probeReport struct {
	Metadata        media.VideoMetadata `json:"metadata"`
	Warnings        []string            `json:"warnings,omitempty"`
	SuggestedTarget int64               `json:"suggested_target_bytes"`
	Presets         []presetHint        `json:"presets"`
	Thumbnail       string              `json:"thumbnail,omitempty"`
}

func newProbeCommand(ctx *commandContext) *cobra.Command {
	var thumbnailPath string
	var thumbnailSize int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "probe INPUT",
		Short: "Inspect a video and suggest target sizes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			input, err := resolveInput(args[0])
			if err != nil {
				return err
			}
			meta, err := probeMedia(cmd.Context(), cfg.FFprobeBinary(), input)
			if err != nil {
				return err
			}
			settings, err := cfg.Settings()
			if err != nil {
				return err
			}
			report := buildProbeReport(meta, settings, cfg)

			if thumbnailPath != "" {
				out, err := config.ExpandPath(thumbnailPath)
				if err != nil {
					return err
				}
				logger, err := ctx.logger(cfg)
				if err != nil {
					return err
				}
				if err := writeThumbnail(cmd.Context(), thumbnailSource(cfg, logger), input, meta, out, thumbnailSize); err != nil {
					return err
				}
				report.Thumbnail = out
			}

			if jsonOutput {
				return writeJSON(cmd, report)
			}
			renderProbeReport(cmd, report, settings)
			return nil
		},
	}

	cmd.Flags().StringVar(&thumbnailPath, "thumbnail", "", "Write a poster thumbnail of the first frame (.jpg or .png)")
	cmd.Flags().IntVar(&thumbnailSize, "thumbnail-size", encoding.DefaultThumbnailSize, "Longest side of the thumbnail in pixels")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the report as JSON")
	return cmd
}

func buildProbeReport(meta media.VideoMetadata, settings bitrate.Settings, cfg *config.Config) probeReport {
	audioBps := textutil.Ternary(settings.MuteAudio || !meta.HasAudio, int64(0), settings.AudioBitrate)
	report := probeReport{
		Metadata:        meta,
		Warnings:        meta.Warnings(cfg.WarnInputBytes(), cfg.Limits.WarnDurationSeconds),
		SuggestedTarget: bitrate.SuggestedTargetSize(meta.Duration, meta.Height),
	}
	for _, preset := range bitrate.Presets {
		presetSettings := settings
		presetSettings.TargetSizeBytes = preset.Bytes
		params := bitrate.InitialParams(meta, presetSettings)
		report.Presets = append(report.Presets, presetHint{
			Label:          preset.Label,
			Bytes:          preset.Bytes,
			Description:    preset.Description,
			Achievable:     bitrate.IsTargetAchievableAtResolution(preset.Bytes, meta.Duration, meta.Height, audioBps),
			InitialBitrate: params.VideoBitrate,
			EstimatedBytes: bitrate.EstimateOutputSize(params.VideoBitrate, audioBps, meta.Duration),
		})
	}
	return report
}

func renderProbeReport(cmd *cobra.Command, report probeReport, settings bitrate.Settings) {
	out := cmd.OutOrStdout()
	colorize := isTerminal(out)
	meta := report.Metadata

	audio := "none"
	if meta.HasAudio {
		audio = meta.AudioCodec
		if !media.IsAAC(meta.AudioCodec) {
			audio += " (re-encoded to AAC)"
		}
	}
	fmt.Fprint(out, renderKeyValues([][2]string{
		{"File", meta.Filename},
		{"Size", bitrate.FormatBytes(meta.FileSize)},
		{"Duration", media.FormatDuration(meta.Duration)},
		{"Resolution", meta.Resolution()},
		{"Frame rate", formatFPS(meta.FPS)},
		{"Video codec", meta.VideoCodec},
		{"Audio", audio},
		{"Suggested target", bitrate.FormatBytes(report.SuggestedTarget)},
	}))
	for _, warning := range report.Warnings {
		fmt.Fprintln(out, renderStatusLine("Warning", statusWarn, warning, colorize))
	}

	rows := make([][]string, 0, len(report.Presets))
	for _, preset := range report.Presets {
		rows = append(rows, []string{
			preset.Label,
			preset.Description,
			bitrate.FormatBitrate(preset.InitialBitrate),
			bitrate.FormatBytes(preset.EstimatedBytes),
			textutil.Ternary(preset.Achievable, "yes", "needs downscale"),
		})
	}
	fmt.Fprint(out, renderTable(
		[]string{"Preset", "Use", "Initial video bitrate", "Estimated size", "Fits at " + strconv.Itoa(meta.Height) + "p"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft},
	))
	if settings.MuteAudio {
		fmt.Fprintln(out, renderStatusLine("Audio", statusInfo, "muted by configuration; estimates exclude audio", colorize))
	}
	if report.Thumbnail != "" {
		fmt.Fprintln(out, renderStatusLine("Thumbnail", statusOK, report.Thumbnail, colorize))
	}
}

func writeThumbnail(ctx context.Context, source encoding.FrameSource, input string, meta media.VideoMetadata, out string, size int) error {
	job := encoding.Job{InputPath: input, Meta: meta}
	if _, _, err := encoding.Thumbnail(ctx, source, job, out, size); err != nil {
		return fmt.Errorf("thumbnail: %w", err)
	}
	return nil
}
