package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"deckforge/internal/config"
	"deckforge/internal/preflight"
	"deckforge/internal/services"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check external tools, directories and slide sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			for _, line := range renderSectionHeader("Configuration", colorize) {
				fmt.Fprintln(out, line)
			}
			configState := "defaults (no file)"
			kind := statusInfo
			if ctx.configExists {
				configState = ctx.configPath
				kind = statusOK
			}
			fmt.Fprintln(out, renderStatusLine("Config", kind, configState, colorize))
			fmt.Fprintln(out, renderStatusLine("Units", statusInfo, fmt.Sprintf("%d slides", len(cfg.Units)), colorize))
			fmt.Fprintln(out)

			for _, line := range renderSectionHeader("Environment", colorize) {
				fmt.Fprintln(out, line)
			}
			results := preflight.RunAll(ctx.runContext(cmd), cfg, preflight.StageAll)
			printPreflight(out, results, colorize)

			if failed := preflight.Failures(results); len(failed) > 0 {
				return fmt.Errorf("%d preflight check(s) failed", len(failed))
			}
			return nil
		},
	}
}

func printPreflight(out io.Writer, results []preflight.Result, colorize bool) {
	for _, r := range results {
		kind := statusOK
		switch {
		case !r.Passed && r.Optional:
			kind = statusWarn
		case !r.Passed:
			kind = statusError
		}
		fmt.Fprintln(out, renderStatusLine(r.Name, kind, r.Detail, colorize))
	}
}

// requirePreflight runs the checks for stage and refuses to continue when a
// required one fails, so a missing tool is reported before any work starts.
func requirePreflight(cmd *cobra.Command, cfg *config.Config, stage preflight.Stage) error {
	failed := preflight.Failures(preflight.RunAll(cmd.Context(), cfg, stage))
	if len(failed) == 0 {
		return nil
	}
	details := make([]string, 0, len(failed))
	for _, r := range failed {
		details = append(details, fmt.Sprintf("%s: %s", r.Name, r.Detail))
	}
	return services.Wrap(services.ErrExternalTool, "preflight", "check environment",
		strings.Join(details, "; ")+" (run deckforge doctor for details)", nil)
}
