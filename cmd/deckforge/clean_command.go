package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"deckforge/internal/pipeline"
)

func newCleanCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove rendered PNGs and other build intermediates",
		Long: `Remove rendered PNGs and sub-directories from the output directory,
the render cache, and the bundler cache directory. PDF and PPTX deliverables
are kept, as are the build lock and the export history.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, cleanup, err := ctx.newPipeline(false)
			if err != nil {
				return err
			}
			defer cleanup()

			var report pipeline.CleanReport
			err = withLock(p, func() error {
				var runErr error
				report, runErr = p.Clean(dryRun)
				return runErr
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(report.Removed) == 0 {
				fmt.Fprintln(out, "Nothing to clean")
				return nil
			}
			verb, total := "Removed", "Freed"
			if report.DryRun {
				verb, total = "Would remove", "Would free"
			}
			for _, path := range report.Removed {
				fmt.Fprintf(out, "%s %s\n", verb, path)
			}
			fmt.Fprintf(out, "%s %s across %d item(s)\n", total, formatBytes(report.FreedBytes), len(report.Removed))
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "List what would be removed without deleting")
	return cmd
}
