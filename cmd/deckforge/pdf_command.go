package main

import (
	"github.com/spf13/cobra"

	"deckforge/internal/pipeline"
	"deckforge/internal/preflight"
)

func newPDFCommand(ctx *commandContext) *cobra.Command {
	var flags pdfFlags

	cmd := &cobra.Command{
		Use:   "pdf",
		Short: "Assemble rendered slides into a size-targeted PDF",
		Long: `Convert the rendered slides to JPEG and assemble them into one PDF,
adjusting JPEG quality until the file lands inside the target size window.

Missing the window is not an error: the closest candidate is kept and a
warning is printed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := flags.apply(cmd, cfg); err != nil {
				return err
			}
			if err := cfg.Refresh(); err != nil {
				return err
			}
			if err := requirePreflight(cmd, cfg, preflight.StagePDF); err != nil {
				return err
			}

			p, cleanup, err := ctx.newPipeline(true)
			if err != nil {
				return err
			}
			defer cleanup()

			var report pipeline.ExportReport
			err = withLock(p, func() error {
				var runErr error
				report, runErr = p.ExportPDF(ctx.runContext(cmd))
				return runErr
			})
			if err != nil {
				return err
			}
			printExportReport(cmd.OutOrStdout(), report)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}
