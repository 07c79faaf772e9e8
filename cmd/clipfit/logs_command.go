package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"clipfit/internal/daemonrun"
	"clipfit/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var follow bool
	var lines int
	var level string

	cmd := &cobra.Command{
		Use:   "logs [RUN_ID]",
		Short: "Show daemon logs or the debug log of a single run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			path := daemonrun.CurrentLogPath(cfg)
			if len(args) == 1 {
				path, err = logs.RunLogPath(cfg.RunLogDir(), args[0])
				if err != nil {
					return err
				}
			}

			var filter logs.Filter
			if level != "" {
				parsed, ok := logs.ParseLevel(level)
				if !ok {
					return fmt.Errorf("invalid log level %q", level)
				}
				filter.MinLevel = parsed
			}
			if lines < 0 {
				lines = 0
			}

			out := cmd.OutOrStdout()
			result, err := logs.Tail(cmd.Context(), path, logs.TailOptions{
				Offset: -1,
				Limit:  lines,
				Filter: filter,
			})
			if err != nil {
				return err
			}
			for _, line := range result.Lines {
				fmt.Fprintln(out, line)
			}
			if !follow {
				return nil
			}

			followCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			offset := result.Offset
			for {
				result, err = logs.Tail(followCtx, path, logs.TailOptions{
					Offset: offset,
					Follow: true,
					Wait:   time.Second,
					Filter: filter,
				})
				if err != nil {
					if followCtx.Err() != nil {
						return nil
					}
					return err
				}
				for _, line := range result.Lines {
					fmt.Fprintln(out, line)
				}
				offset = result.Offset
				if len(result.Lines) == 0 {
					// A missing file returns immediately; avoid spinning until it appears.
					select {
					case <-followCtx.Done():
						return nil
					case <-time.After(250 * time.Millisecond):
					}
				}
			}
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines as they are written")
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().StringVar(&level, "level", "", "Minimum level to show (debug, info, warn, error)")
	return cmd
}
