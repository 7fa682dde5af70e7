package main

import (
	"github.com/spf13/cobra"

	"deckforge/internal/pipeline"
	"deckforge/internal/preflight"
)

func newRenderCommand(ctx *commandContext) *cobra.Command {
	var flags renderFlags

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render slides to PNG",
		Long: `Render every configured slide (or those named with --unit) to PNG.

Full runs clear the renderer bundle cache and the render cache first.
With --incremental, slides whose source, extra deps, and shared files are
unchanged since their last successful render are skipped.`,
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
			if err := requirePreflight(cmd, cfg, preflight.StageRender); err != nil {
				return err
			}

			p, cleanup, err := ctx.newPipeline(false)
			if err != nil {
				return err
			}
			defer cleanup()

			var summary pipeline.RenderSummary
			err = withLock(p, func() error {
				var runErr error
				summary, runErr = p.RenderUnits(ctx.runContext(cmd), flags.options())
				return runErr
			})
			if err != nil {
				return err
			}
			printRenderSummary(cmd.OutOrStdout(), summary, cfg.Render.Scale)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}
