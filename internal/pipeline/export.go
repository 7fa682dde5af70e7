package pipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"deckforge/internal/encoder"
	"deckforge/internal/history"
	"deckforge/internal/logging"
	"deckforge/internal/services"
	"deckforge/internal/sizesearch"
)

// ExportReport summarizes a PDF export.
type ExportReport struct {
	Output    string
	Slides    int
	Search    sizesearch.Result
	TargetMin int64
	TargetMax int64
	// TempDir is set when the working JPEGs were kept.
	TempDir  string
	Duration time.Duration
	RunID    string
}

// Advisory returns sizesearch.ErrTargetNotMet when the PDF missed the window.
func (r ExportReport) Advisory() error {
	return r.Search.Advisory()
}

// SearchConfig derives the size search bounds from the pdf config.
func (p *Pipeline) SearchConfig() sizesearch.Config {
	pdf := p.cfg.PDF
	return sizesearch.Config{
		TargetMin:    sizesearch.TargetFromMB(pdf.TargetMBMin),
		TargetMax:    sizesearch.TargetFromMB(pdf.TargetMBMax),
		QualityStart: pdf.JPEGQualityStart,
		QualityMin:   pdf.JPEGQualityMin,
		QualityMax:   pdf.JPEGQualityMax,
		QualityStep:  pdf.QualityStep,
		MaxAttempts:  pdf.MaxAttempts,
	}
}

// ExportPDF assembles the rendered slides into the delivery PDF, searching
// for the JPEG quality that lands the file inside the target window. Missing
// the window is reported through the report, not as an error.
func (p *Pipeline) ExportPDF(ctx context.Context) (ExportReport, error) {
	ctx = services.WithStage(ctx, "pdf")
	logger := logging.WithContext(ctx, p.logger)
	start := p.now()
	pdf := p.cfg.PDF

	search, err := sizesearch.New(p.SearchConfig(), p.logger)
	if err != nil {
		return ExportReport{}, err
	}
	for _, tool := range []string{pdf.Converter, pdf.Assembler} {
		if _, err := p.lookPath(tool); err != nil {
			return ExportReport{}, services.Wrap(services.ErrExternalTool, "pdf", "preflight",
				fmt.Sprintf("required tool %q not found on PATH", tool), err)
		}
	}

	slides, err := p.CollectSlides()
	if err != nil {
		return ExportReport{}, err
	}

	workDir, err := os.MkdirTemp("", "deckforge-pdf-")
	if err != nil {
		return ExportReport{}, fmt.Errorf("create work dir: %w", err)
	}
	report := ExportReport{
		Output:    pdf.Output,
		Slides:    len(slides),
		TargetMin: search.Config().TargetMin,
		TargetMax: search.Config().TargetMax,
	}
	if runID, ok := services.RunIDFromContext(ctx); ok {
		report.RunID = runID
	}
	if !pdf.KeepTemp {
		defer func() {
			if err := os.RemoveAll(workDir); err != nil {
				logger.Debug("remove work dir failed", logging.String("path", workDir), logging.Error(err))
			}
		}()
	}

	logger.Info("pdf export started",
		logging.Int("slides", len(slides)),
		logging.String("output", pdf.Output),
		logging.Float64("target_mb_min", pdf.TargetMBMin),
		logging.Float64("target_mb_max", pdf.TargetMBMax),
		logging.Int("max_dimension", pdf.MaxDimension))

	oracle := &encoder.PDFOracle{
		Slides:  slides,
		WorkDir: workDir,
		Output:  pdf.Output,
		Converter: encoder.Converter{
			Binary:       pdf.Converter,
			MaxDimension: pdf.MaxDimension,
			Exec:         p.exec,
			Logger:       p.logger,
		},
		Assembler: encoder.Assembler{Binary: pdf.Assembler, Exec: p.exec, Logger: p.logger},
		Logger:    p.logger,
	}
	result, err := search.Run(ctx, oracle)
	if err != nil {
		return ExportReport{}, err
	}
	report.Search = result
	report.Duration = p.now().Sub(start)
	if pdf.KeepTemp {
		report.TempDir = workDir
		logger.Info("kept working files", logging.String("path", workDir))
	}

	if !result.InRange {
		logging.WarnWithContext(logger, "size target not fully met; closest quality candidate was used", "pdf_target_missed",
			logging.Int("quality", result.Best.Quality),
			logging.Int64("size_bytes", result.Best.Bytes),
			logging.String("stop_reason", string(result.Stop)),
			logging.String(logging.FieldErrorHint, "widen the target window or the quality bounds"),
			logging.String(logging.FieldImpact, "pdf size is outside the requested window"))
	}
	logger.Info("pdf export finished",
		logging.Int("quality", result.Best.Quality),
		logging.Int64("size_bytes", result.Best.Bytes),
		logging.Bool("in_range", result.InRange),
		logging.Duration("elapsed", report.Duration.Round(time.Millisecond)))

	p.recordHistory(ctx, start, report)
	return report, nil
}

func (p *Pipeline) recordHistory(ctx context.Context, start time.Time, report ExportReport) {
	if p.history == nil {
		return
	}
	_, err := p.history.Record(ctx, history.Run{
		ID:         report.RunID,
		StartedAt:  start,
		Duration:   report.Duration,
		Output:     report.Output,
		SlideCount: report.Slides,
		Quality:    report.Search.Best.Quality,
		SizeBytes:  report.Search.Best.Bytes,
		TargetMin:  report.TargetMin,
		TargetMax:  report.TargetMax,
		InRange:    report.Search.InRange,
		Attempts:   len(report.Search.Attempts),
		StopReason: string(report.Search.Stop),
		Reencoded:  report.Search.Reencoded,
	})
	if err != nil {
		logging.WarnWithContext(p.logger, "failed to record export history", "history_record_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "this run will not appear in deckforge history"))
	}
}
