package pipeline

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"deckforge/internal/logging"
	"deckforge/internal/rendercache"
	"deckforge/internal/services"
)

// RenderOptions selects how the render stage treats cached state.
type RenderOptions struct {
	// Incremental skips units the render cache reports as up to date.
	Incremental bool
	// NoCacheClear keeps the renderer's bundle cache and the render cache on
	// full runs.
	NoCacheClear bool
	// Only limits the run to these unit ids.
	Only []string
}

// RenderSummary reports what the render stage did.
type RenderSummary struct {
	Rendered     []string
	Skipped      []string
	CacheCleared bool
	Duration     time.Duration
}

// RenderUnits renders the selected units in deck order. A unit's hash is
// recorded only after its render succeeds; the first failure aborts the run.
func (p *Pipeline) RenderUnits(ctx context.Context, opts RenderOptions) (RenderSummary, error) {
	ctx = services.WithStage(ctx, "render")
	logger := logging.WithContext(ctx, p.logger)
	start := p.now()
	var summary RenderSummary

	units, err := p.Units(opts.Only)
	if err != nil {
		return summary, err
	}

	if !opts.Incremental && !opts.NoCacheClear {
		if err := p.clearBundleCache(); err != nil {
			return summary, err
		}
		if err := p.cache.InvalidateAll(); err != nil {
			return summary, err
		}
		summary.CacheCleared = true
		logger.Info("cleared renderer caches",
			logging.String("bundle_cache", p.cfg.Render.BundleCacheDir),
			logging.String("render_cache", p.cache.Path()))
	}

	mode := "full"
	if opts.Incremental {
		mode = "incremental"
	}
	logger.Info("render stage started",
		logging.String("mode", mode),
		logging.Int("units", len(units)),
		logging.Int("scale", p.cfg.Render.Scale))

	for idx, unit := range units {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		unitCtx := services.WithUnitID(ctx, unit.ID)
		unitLogger := logging.WithContext(unitCtx, p.logger)

		if opts.Incremental {
			needed, reason, err := p.cache.NeedsRender(unit)
			if err != nil {
				return summary, fmt.Errorf("check %s: %w", unit.ID, err)
			}
			if !needed {
				unitLogger.Info("unit up to date", logging.String("reason", string(reason)))
				summary.Skipped = append(summary.Skipped, unit.ID)
				continue
			}
			unitLogger.Debug("unit stale", logging.String("reason", string(reason)))
		}

		unitStart := p.now()
		if err := p.renderer.Render(unitCtx, unit.ID, unit.Output); err != nil {
			logging.ErrorWithContext(unitLogger, "unit render failed", "render_failed",
				logging.Error(err),
				logging.String("error_kind", services.Classify(err)),
				logging.String(logging.FieldErrorHint, "run the renderer command manually to see its full output"))
			return summary, err
		}
		if err := p.cache.RecordRendered(unit); err != nil {
			return summary, err
		}
		summary.Rendered = append(summary.Rendered, unit.ID)
		unitLogger.Info("unit rendered",
			logging.Int("index", idx+1),
			logging.Int("total", len(units)),
			logging.Duration("elapsed", p.now().Sub(unitStart).Round(time.Millisecond)),
			logging.String("output", unit.Output))
	}

	summary.Duration = p.now().Sub(start)
	logger.Info("render stage finished",
		logging.Int("rendered", len(summary.Rendered)),
		logging.Int("skipped", len(summary.Skipped)),
		logging.Duration("elapsed", summary.Duration.Round(time.Millisecond)))
	return summary, nil
}

func (p *Pipeline) clearBundleCache() error {
	dir := strings.TrimSpace(p.cfg.Render.BundleCacheDir)
	if dir == "" {
		return nil
	}
	if err := os.RemoveAll(dir); err != nil {
		return services.Wrap(services.ErrExternalTool, "render", "clear bundle cache", dir, err)
	}
	return nil
}

// UnitStatus describes the cache state of one unit.
type UnitStatus struct {
	ID          string
	Output      string
	OutputBytes int64
	Cached      bool
	NeedsRender bool
	Reason      rendercache.Reason
}

// Status reports the cache state of every configured unit without rendering.
func (p *Pipeline) Status() ([]UnitStatus, error) {
	units, err := p.Units(nil)
	if err != nil {
		return nil, err
	}
	statuses := make([]UnitStatus, 0, len(units))
	for _, unit := range units {
		needed, reason, err := p.cache.NeedsRender(unit)
		if err != nil {
			return nil, fmt.Errorf("check %s: %w", unit.ID, err)
		}
		_, cached := p.cache.Lookup(unit.ID)
		status := UnitStatus{
			ID:          unit.ID,
			Output:      unit.Output,
			Cached:      cached,
			NeedsRender: needed,
			Reason:      reason,
		}
		if info, err := os.Stat(unit.Output); err == nil {
			status.OutputBytes = info.Size()
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}
