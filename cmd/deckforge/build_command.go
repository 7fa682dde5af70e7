package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"deckforge/internal/pipeline"
	"deckforge/internal/preflight"
)

func newBuildCommand(ctx *commandContext) *cobra.Command {
	var render renderFlags
	var pdf pdfFlags
	var skipRender bool
	var skipPDF bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Render slides and export the delivery PDF",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := render.apply(cmd, cfg); err != nil {
				return err
			}
			if err := pdf.apply(cmd, cfg); err != nil {
				return err
			}
			if err := cfg.Refresh(); err != nil {
				return err
			}

			var stage preflight.Stage
			if !skipRender {
				stage |= preflight.StageRender
			}
			if !skipPDF {
				stage |= preflight.StagePDF
			}
			if stage == 0 {
				return fmt.Errorf("nothing to do: both --skip-render and --skip-pdf are set")
			}
			if err := requirePreflight(cmd, cfg, stage); err != nil {
				return err
			}

			p, cleanup, err := ctx.newPipeline(!skipPDF)
			if err != nil {
				return err
			}
			defer cleanup()

			var report pipeline.BuildReport
			err = withLock(p, func() error {
				var runErr error
				report, runErr = p.Build(ctx.runContext(cmd), pipeline.BuildOptions{
					Render:     render.options(),
					SkipRender: skipRender,
					SkipPDF:    skipPDF,
				})
				return runErr
			})
			if err != nil {
				return err
			}

			if jsonOutput {
				return writeJSON(cmd, buildJSON(report))
			}
			out := cmd.OutOrStdout()
			if report.Render != nil {
				printRenderSummary(out, *report.Render, cfg.Render.Scale)
			}
			if report.Export != nil {
				printExportReport(out, *report.Export)
			}
			fmt.Fprintf(out, "Build finished in %s\n", formatDuration(report.Duration))
			return nil
		},
	}
	render.register(cmd)
	pdf.register(cmd)
	cmd.Flags().BoolVar(&skipRender, "skip-render", false, "Reuse existing PNGs instead of rendering")
	cmd.Flags().BoolVar(&skipPDF, "skip-pdf", false, "Stop after rendering")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the build report as JSON")
	return cmd
}
