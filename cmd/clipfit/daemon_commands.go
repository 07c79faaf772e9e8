package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"clipfit/internal/api"
	"clipfit/internal/bitrate"
	"clipfit/internal/daemonctl"
	"clipfit/internal/daemonrun"
	"clipfit/internal/ipc"
	"clipfit/internal/notifications"
	"clipfit/internal/worker"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	daemonCmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run and control the background compression daemon",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the daemon in the foreground",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{LogLevel: ctx.logLevel()})
		},
	}

	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the daemon in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			exe, err := os.Executable()
			if err != nil {
				return fmt.Errorf("resolve executable: %w", err)
			}
			result, err := daemonctl.EnsureStarted(
				ctx.socketPath(),
				exe,
				daemonctl.LaunchOptions{ConfigPath: ctx.configPath(), LogLevel: ctx.logLevel()},
				10*time.Second,
			)
			if err != nil {
				return err
			}
			stdout := cmd.OutOrStdout()
			switch result.State {
			case daemonctl.StartStateStarted:
				fmt.Fprintf(stdout, "Daemon started (pid %d)\n", result.PID)
			case daemonctl.StartStateAlreadyRunning:
				fmt.Fprintf(stdout, "Daemon already running (pid %d)\n", result.PID)
			}
			return nil
		},
	}

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the daemon, cancelling any active run",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			stdout := cmd.OutOrStdout()
			result, err := daemonctl.Stop(ctx.socketPath(), daemonrun.PIDPath(cfg), 5*time.Second)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if result.ForcedKill {
				fmt.Fprintf(stdout, "Daemon did not exit in time; killed pid %d\n", result.PID)
				return nil
			}
			fmt.Fprintln(stdout, "Daemon stopped")
			return nil
		},
	}

	daemonCmd.AddCommand(runCmd, startCmd, stopCmd, newStatusCommand(ctx))
	return daemonCmd
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, worker, and dependency status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			status, err := daemonctl.BuildStatusSnapshot(cmd.Context(), ctx.socketPath(), cfg)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, status)
			}
			renderDaemonStatus(cmd.OutOrStdout(), status, isTerminal(cmd.OutOrStdout()))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print status as JSON")
	return cmd
}

func renderDaemonStatus(out io.Writer, status *ipc.StatusResponse, colorize bool) {
	printSection(out, "Daemon", colorize)
	if status.Running {
		fmt.Fprintln(out, renderStatusLine("Daemon", statusOK, fmt.Sprintf("running (pid %d)", status.PID), colorize))
	} else {
		fmt.Fprintln(out, renderStatusLine("Daemon", statusInfo, "not running", colorize))
	}
	if status.HistoryDBPath != "" {
		fmt.Fprintln(out, renderStatusLine("History", statusInfo, status.HistoryDBPath, colorize))
	}
	fmt.Fprintln(out, renderStatusLine("Staging", statusInfo, bitrate.FormatBytes(status.StagingBytes), colorize))
	fmt.Fprintln(out)

	printSection(out, "Worker", colorize)
	fmt.Fprintln(out, renderStatusLine("Stage", statusInfo, workerLine(status.Worker), colorize))
	fmt.Fprintln(out)

	printSection(out, "Dependencies", colorize)
	for _, dep := range status.Dependencies {
		detail := dep.Detail
		if dep.Available {
			detail = "Ready"
			if dep.Command != "" {
				detail = fmt.Sprintf("Ready (command: %s)", dep.Command)
			}
		}
		fmt.Fprintln(out, renderStatusLine(dep.Name, okOrError(dep.Available, dep.Optional), detail, colorize))
	}

	if len(status.RunStats) == 0 {
		return
	}
	fmt.Fprintln(out)
	printSection(out, "Runs", colorize)
	fmt.Fprint(out, renderTable([]string{"Status", "Count"}, runStatRows(status.RunStats), []columnAlignment{alignLeft, alignRight}))
}

func workerLine(w api.WorkerStatus) string {
	if !w.Active {
		if w.RunID == "" {
			return "Idle"
		}
		return fmt.Sprintf("Idle (last run %s: %s)", shortID(w.RunID), w.StageLabel)
	}
	line := fmt.Sprintf("%s %.0f%% - %s", w.StageLabel, w.Percent, w.Filename)
	if w.Attempt > 0 {
		line += fmt.Sprintf(" (attempt %d)", w.Attempt)
	}
	return line
}

func runStatRows(stats map[string]int) [][]string {
	keys := make([]string, 0, len(stats))
	for key := range stats {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	rows := make([][]string, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, []string{key, strconv.Itoa(stats[key])})
	}
	return rows
}

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var flags compressionFlags
	var outputFlag string
	var detach bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "submit INPUT",
		Short: "Send a video to the daemon and follow its progress",
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

			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Submit(input, output, &settings)
				if err != nil {
					return err
				}
				if detach {
					if jsonOutput {
						return writeJSON(cmd, resp)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Submitted run %s\n", resp.RunID)
					return nil
				}

				stderr := cmd.ErrOrStderr()
				var progress *progressRenderer
				if !jsonOutput {
					progress = newProgressRenderer(stderr, isTerminal(stderr))
				}
				followCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer stop()
				report := &runReport{RunID: resp.RunID}
				_, missed, err := daemonctl.Follow(followCtx, client, resp.RunID, func(env worker.Envelope) {
					msg, convErr := env.Message()
					if convErr != nil {
						return
					}
					report.apply(msg, progress)
				})
				progress.finish()
				report.Missed = missed
				if err != nil {
					if followCtx.Err() != nil && cmd.Context().Err() == nil {
						fmt.Fprintf(stderr, "Stopped following run %s; it continues in the daemon (use `clipfit cancel` to stop it)\n", resp.RunID)
						return nil
					}
					return err
				}
				if jsonOutput {
					if err := writeJSON(cmd, report); err != nil {
						return err
					}
				} else {
					report.render(cmd.OutOrStdout(), isTerminal(cmd.OutOrStdout()))
				}
				return report.err()
			})
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Output file or directory (default: the daemon's output directory)")
	cmd.Flags().BoolVarP(&detach, "detach", "d", false, "Return after submitting instead of following progress")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the result as JSON")
	return cmd
}

func newCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel",
		Short: "Cancel the daemon's active run",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Cancel()
				if err != nil {
					return err
				}
				if resp.Cancelled {
					fmt.Fprintln(cmd.OutOrStdout(), "Active run cancelled")
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "No active run")
				}
				return nil
			})
		},
	}
}

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			client, dialErr := ipc.Dial(ctx.socketPath())
			if dialErr != nil {
				cfg, err := ctx.ensureConfig()
				if err != nil {
					return err
				}
				if cfg.Notifications.NtfyTopic == "" {
					fmt.Fprintln(out, "ntfy topic not configured")
					return nil
				}
				if err := notifications.NewService(cfg).TestNotification(cmd.Context()); err != nil {
					return fmt.Errorf("send test notification: %w", err)
				}
				fmt.Fprintln(out, "Test notification sent")
				return nil
			}
			defer client.Close()

			resp, err := client.TestNotification()
			if err != nil {
				return err
			}
			switch {
			case resp.Message != "":
				fmt.Fprintln(out, resp.Message)
			case resp.Sent:
				fmt.Fprintln(out, "Test notification sent")
			default:
				fmt.Fprintln(out, "Notification not sent")
			}
			return nil
		},
	}
}
