package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"clipfit/internal/api"
	"clipfit/internal/bitrate"
	"clipfit/internal/config"
	"clipfit/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded compression runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := openHistory(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, api.RunListResponse{Runs: api.FromRuns(runs)})
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			fmt.Fprint(out, renderTable(
				[]string{"ID", "File", "Status", "Input", "Output", "Saved", "Attempts", "Started"},
				historyRows(runs),
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum runs to show (0 for all)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print runs as JSON")
	cmd.AddCommand(newHistoryShowCommand(ctx))
	return cmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "show RUN_ID",
		Short: "Show a run and its attempts (ID prefixes accepted)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := openHistory(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := store.FindByPrefix(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			attempts, err := store.Attempts(cmd.Context(), run.ID)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, api.RunResponse{Run: api.FromRun(*run), Attempts: api.FromAttempts(attempts)})
			}
			out := cmd.OutOrStdout()
			fmt.Fprint(out, renderKeyValues(runPairs(*run)))
			if len(attempts) > 0 {
				fmt.Fprint(out, renderAttemptRecords(attempts))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the run as JSON")
	return cmd
}

func openHistory(cfg *config.Config) (*history.Store, error) {
	store, err := history.Open(cfg)
	if errors.Is(err, history.ErrDisabled) {
		return nil, errors.New("run history is disabled (set history.enabled = true)")
	}
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	return store, nil
}

func historyRows(runs []history.Run) [][]string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		output, saved := "-", "-"
		if run.Status == history.StatusComplete {
			output = bitrate.FormatBytes(run.OutputSize)
			saved = fmt.Sprintf("%.0f%%", run.Reduction())
		}
		rows = append(rows, []string{
			shortID(run.ID),
			truncate(run.Filename, 32),
			string(run.Status),
			bitrate.FormatBytes(run.InputSize),
			output,
			saved,
			strconv.Itoa(run.Attempts),
			run.StartedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	return rows
}

func runPairs(run history.Run) [][2]string {
	pairs := [][2]string{
		{"ID", run.ID},
		{"File", run.Filename},
		{"Status", string(run.Status)},
		{"Input size", bitrate.FormatBytes(run.InputSize)},
		{"Target size", bitrate.FormatBytes(run.TargetSize)},
		{"Started", run.StartedAt.Local().Format(time.DateTime)},
	}
	if run.Metadata != nil {
		pairs = append(pairs, [2]string{"Source", fmt.Sprintf("%s @ %s fps, %s", run.Metadata.Resolution(), formatFPS(run.Metadata.FPS), run.Metadata.VideoCodec)})
	}
	if run.FinishedAt != nil {
		pairs = append(pairs, [2]string{"Elapsed", run.Duration().Round(time.Second).String()})
	}
	if run.Status == history.StatusComplete {
		pairs = append(pairs,
			[2]string{"Output", run.OutputPath},
			[2]string{"Output size", bitrate.FormatBytes(run.OutputSize)},
			[2]string{"Reduction", fmt.Sprintf("%.1f%%", run.Reduction())},
			[2]string{"Video bitrate", bitrate.FormatBitrate(run.FinalBitrate)},
		)
	}
	if run.ErrorMessage != "" {
		pairs = append(pairs, [2]string{"Error", run.ErrorMessage})
	}
	if run.Suggestion != "" {
		pairs = append(pairs, [2]string{"Suggestion", run.Suggestion})
	}
	return pairs
}

func renderAttemptRecords(records []history.AttemptRecord) string {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []string{
			strconv.Itoa(rec.Attempt),
			bitrate.FormatBitrate(rec.Params.VideoBitrate),
			fmt.Sprintf("%dx%d", rec.Params.Width, rec.Params.Height),
			formatFPS(rec.Params.FPS),
			bitrate.FormatBytes(rec.OutputSize),
			rec.Elapsed.Round(100 * time.Millisecond).String(),
			strings.ReplaceAll(rec.Decision, "_", " "),
		})
	}
	return renderTable(
		[]string{"#", "Bitrate", "Resolution", "FPS", "Size", "Time", "Decision"},
		rows,
		[]columnAlignment{alignRight, alignRight, alignLeft, alignRight, alignRight, alignRight, alignLeft},
	)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if limit <= 1 || len(runes) <= limit {
		return value
	}
	return string(runes[:limit-1]) + "…"
}
