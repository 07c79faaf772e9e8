package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"clipfit/internal/config"
	"clipfit/internal/encoding"
	"clipfit/internal/history"
	"clipfit/internal/ladder"
	"clipfit/internal/worker"
)

// Test hooks.
var (
	newCompressEncoder = func(cfg *config.Config, logger *slog.Logger) ladder.Encoder {
		return encoding.NewFromConfig(cfg, logger)
	}
	extraHostOptions []worker.Option
)

func newCompressCommand(ctx *commandContext) *cobra.Command {
	var flags compressionFlags
	var outputFlag string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "compress INPUT",
		Short: "Compress a video to fit the target size",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			settings, err := flags.settings(cmd, cfg)
			if err != nil {
				return err
			}
			input, err := resolveInput(args[0])
			if err != nil {
				return err
			}
			output, err := resolveOutput(outputFlag, input, cfg.Compression.OutputSuffix)
			if err != nil {
				return err
			}
			if output == "" && strings.TrimSpace(cfg.Paths.OutputDir) == "" {
				output = encoding.DeriveOutputPath(input, filepath.Dir(input), cfg.Compression.OutputSuffix)
			}
			if output == input {
				return fmt.Errorf("output path %s would overwrite the input", output)
			}

			logger, err := ctx.logger(cfg)
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			opts := append(worker.ConfigOptions(cfg), worker.WithLogger(logger))
			if cfg.History.Enabled {
				store, err := history.Open(cfg)
				if err != nil {
					return fmt.Errorf("open history: %w", err)
				}
				defer store.Close()
				opts = append(opts, worker.WithRecorder(history.NewRecorder(store, logger, cfg.History.KeepRuns)))
			}
			opts = append(opts, extraHostOptions...)

			host := worker.NewHost(newCompressEncoder(cfg, logger), cfg.Paths.StagingDir, opts...)
			defer host.Close()

			reply, err := host.Dispatch(runCtx, worker.StartCommand{
				Path:       input,
				Filename:   filepath.Base(input),
				OutputPath: output,
				Settings:   settings,
			})
			if err != nil {
				return err
			}
			runID, messages := reply.RunID, reply.Messages

			stderr := cmd.ErrOrStderr()
			progress := newProgressRenderer(stderr, !jsonOutput && isTerminal(stderr))
			if jsonOutput {
				progress = nil
			}
			report := &runReport{RunID: runID}
			for msg := range messages {
				report.apply(msg, progress)
			}
			progress.finish()

			if jsonOutput {
				if err := writeJSON(cmd, report); err != nil {
					return err
				}
			} else {
				report.render(cmd.OutOrStdout(), isTerminal(cmd.OutOrStdout()))
			}
			if report.Cancelled && runCtx.Err() != nil {
				return context.Canceled
			}
			return report.err()
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Output file or directory (default: next to the input)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the result as JSON")
	return cmd
}
