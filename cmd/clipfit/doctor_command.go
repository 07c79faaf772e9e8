package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"clipfit/internal/deps"
	"clipfit/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check external tools and working directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := isTerminal(out)

			printSection(out, "Dependencies", colorize)
			statuses := preflight.CheckSystemDeps(cmd.Context(), cfg)
			for _, line := range dependencyLines(statuses, colorize) {
				fmt.Fprintln(out, line)
			}
			fmt.Fprintln(out)

			printSection(out, "Directories", colorize)
			results := preflight.RunAll(cmd.Context(), cfg)
			for _, result := range results {
				fmt.Fprintln(out, renderStatusLine(result.Name, okOrError(result.Passed, false), result.Detail, colorize))
			}

			missing := deps.Missing(statuses)
			failed := preflight.Failed(results)
			if len(missing) == 0 && len(failed) == 0 {
				return nil
			}
			problems := make([]string, 0, len(missing)+len(failed))
			for _, status := range missing {
				problems = append(problems, status.Name)
			}
			for _, result := range failed {
				problems = append(problems, result.Name)
			}
			return fmt.Errorf("%d check(s) failed: %s", len(problems), strings.Join(problems, ", "))
		},
	}
}

func dependencyLines(statuses []deps.Status, colorize bool) []string {
	lines := make([]string, 0, len(statuses))
	for _, dep := range statuses {
		if dep.Available {
			message := "Ready"
			if dep.Command != "" {
				message = fmt.Sprintf("Ready (command: %s)", dep.Command)
			}
			lines = append(lines, renderStatusLine(dep.Name, statusOK, message, colorize))
			continue
		}
		detail := strings.TrimSpace(dep.Detail)
		if detail == "" {
			detail = "not available"
		}
		lines = append(lines, renderStatusLine(dep.Name, okOrError(false, dep.Optional), detail, colorize))
	}
	return lines
}
