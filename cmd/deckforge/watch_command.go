package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"deckforge/internal/logging"
	"deckforge/internal/pipeline"
	"deckforge/internal/preflight"
	"deckforge/internal/watch"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var withPDF bool
	var render renderFlags

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-render changed slides whenever sources change",
		Long: `Watch slide sources and shared files, and run an incremental render
after each burst of changes. With --pdf the delivery PDF is re-exported after
every successful render. Stop with Ctrl-C.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := render.apply(cmd, cfg); err != nil {
				return err
			}
			if err := cfg.Refresh(); err != nil {
				return err
			}
			stage := preflight.StageRender
			if withPDF {
				stage |= preflight.StagePDF
			}
			if err := requirePreflight(cmd, cfg, stage); err != nil {
				return err
			}

			p, cleanup, err := ctx.newPipeline(withPDF)
			if err != nil {
				return err
			}
			defer cleanup()
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			opts := render.options()
			opts.Incremental = true
			rebuild := func(runCtx context.Context, changed []string) error {
				return withLock(p, func() error {
					summary, err := p.RenderUnits(runCtx, opts)
					if err != nil {
						return err
					}
					printRenderSummary(out, summary, cfg.Render.Scale)
					if !withPDF || len(summary.Rendered) == 0 {
						return nil
					}
					report, err := p.ExportPDF(runCtx)
					if err != nil {
						return err
					}
					printExportReport(out, report)
					return nil
				})
			}

			runCtx := ctx.runContext(cmd)
			if err := rebuild(runCtx, nil); err != nil {
				if errors.Is(err, pipeline.ErrLocked) {
					return err
				}
				logging.WarnWithContext(logger, "initial render failed; waiting for changes", "watch_initial_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "slides may be stale until the next change"))
			}

			w := &watch.Watcher{
				Roots:    p.WatchRoots(),
				Exclude:  p.WatchExcludes(),
				Debounce: time.Duration(cfg.Watch.DebounceMillis) * time.Millisecond,
				Trigger:  rebuild,
				Logger:   logger,
			}
			fmt.Fprintf(out, "Watching %d slide(s); press Ctrl-C to stop\n", len(cfg.Units))
			if err := w.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	render.register(cmd)
	cmd.Flags().BoolVar(&withPDF, "pdf", false, "Re-export the PDF after each render")
	return cmd
}
