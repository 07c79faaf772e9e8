package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"clipfit/internal/bitrate"
	"clipfit/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the configuration file",
	}
	configCmd.AddCommand(
		newConfigInitCommand(),
		newConfigValidateCommand(ctx),
		newConfigShowCommand(ctx),
		newConfigPathCommand(ctx),
	)
	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var (
		targetPath string
		targetSize string
		overwrite  bool
	)
	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := initTargetPath(targetPath)
			if err != nil {
				return err
			}
			if _, err := os.Stat(target); err == nil && !overwrite {
				return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("check config path: %w", err)
			}
			if err := config.CreateSample(target, targetSize); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			if strings.TrimSpace(targetSize) == "" {
				fmt.Fprintln(out, "Set compression.target_size to your usual upload limit, then run `clipfit doctor`.")
			} else {
				fmt.Fprintln(out, "Run `clipfit doctor` to check ffmpeg and the staging directory.")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().StringVar(&targetSize, "target", "", "Default target size written into the file (e.g. 25MB)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing configuration file")
	return cmd
}

func initTargetPath(flagValue string) (string, error) {
	if strings.TrimSpace(flagValue) == "" {
		path, err := config.DefaultConfigPath()
		if err != nil {
			return "", fmt.Errorf("determine default config path: %w", err)
		}
		return path, nil
	}
	path, err := config.ExpandPath(strings.TrimSpace(flagValue))
	if err != nil {
		return "", fmt.Errorf("resolve config path: %w", err)
	}
	return path, nil
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Load the configuration and report problems",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load(ctx.configPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}
			settings, err := cfg.Settings()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", path)
			if !exists {
				fmt.Fprintln(out, "Config file did not exist; defaults were used")
			}
			printCompressionDefaults(out, cfg, settings)
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

func printCompressionDefaults(out io.Writer, cfg *config.Config, settings bitrate.Settings) {
	limits := cfg.TargetLimits()
	fmt.Fprintf(out, "Default target: %s (accepted %s to %s)\n",
		bitrate.FormatBytes(settings.TargetSizeBytes),
		bitrate.FormatBytes(limits.MinTargetBytes),
		bitrate.FormatBytes(limits.MaxTargetBytes))
	audio := "muted"
	if !settings.MuteAudio {
		audio = bitrate.FormatBitrate(settings.AudioBitrate)
	}
	fmt.Fprintf(out, "Audio: %s\n", audio)
	var escalation []string
	if settings.AllowDownscale {
		escalation = append(escalation, "downscale")
	}
	if settings.AllowFPSReduction {
		escalation = append(escalation, "fps reduction")
	}
	if len(escalation) == 0 {
		escalation = append(escalation, "bitrate only")
	}
	fmt.Fprintf(out, "Escalation: %s\n", strings.Join(escalation, ", "))
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as TOML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			data, err := cfg.Encode()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func newConfigPathCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "path",
		Short:       "Print the configuration file clipfit would load",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			_, path, exists, err := config.Load(ctx.configPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			suffix := ""
			if !exists {
				suffix = " (not created yet)"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s%s\n", path, suffix)
			return nil
		},
	}
}
