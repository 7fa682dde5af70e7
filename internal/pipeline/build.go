package pipeline

import (
	"context"
	"time"

	"deckforge/internal/logging"
)

// BuildOptions controls a full export.
type BuildOptions struct {
	Render     RenderOptions
	SkipRender bool
	SkipPDF    bool
}

// BuildReport summarizes a full export.
type BuildReport struct {
	Render   *RenderSummary
	Export   *ExportReport
	Duration time.Duration
}

// Build runs the render stage and then the PDF stage, skipping either on
// request. The caller holds the build lock.
func (p *Pipeline) Build(ctx context.Context, opts BuildOptions) (BuildReport, error) {
	start := p.now()
	var report BuildReport
	logger := logging.WithContext(ctx, p.logger)

	if opts.SkipRender {
		logger.Info("render stage skipped")
	} else {
		summary, err := p.RenderUnits(ctx, opts.Render)
		if err != nil {
			return report, err
		}
		report.Render = &summary
	}

	if opts.SkipPDF {
		logger.Info("pdf stage skipped")
	} else {
		export, err := p.ExportPDF(ctx)
		if err != nil {
			return report, err
		}
		report.Export = &export
	}

	report.Duration = p.now().Sub(start)
	return report, nil
}
