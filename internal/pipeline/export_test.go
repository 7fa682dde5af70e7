package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"deckforge/internal/config"
	"deckforge/internal/services"
	"deckforge/internal/sizesearch"
	"deckforge/internal/testsupport"
)

// With three slides and imageTools, the PDF is 150 bytes per quality point.
func smallTarget(minMB, maxMB float64) testsupport.ConfigOption {
	return testsupport.WithConfig(func(cfg *config.Config) {
		cfg.PDF.TargetMBMin = minMB
		cfg.PDF.TargetMBMax = maxMB
	})
}

func renderAll(t *testing.T, p *Pipeline) {
	t.Helper()
	if _, err := p.RenderUnits(context.Background(), RenderOptions{NoCacheClear: true}); err != nil {
		t.Fatalf("RenderUnits: %v", err)
	}
}

func TestExportPDFLandsInWindow(t *testing.T) {
	cfg := testsupport.NewConfig(t, smallTarget(0.009, 0.0095))
	store := testsupport.MustOpenHistory(t, cfg)
	p, _ := newTestPipeline(t, cfg, WithHistory(store))
	renderAll(t, p)

	ctx := services.WithRunID(context.Background(), "run-1")
	report, err := p.ExportPDF(ctx)
	if err != nil {
		t.Fatalf("ExportPDF: %v", err)
	}
	if !report.Search.InRange || report.Search.Best.Quality != 66 {
		t.Fatalf("search = %+v", report.Search)
	}
	if report.Advisory() != nil {
		t.Fatalf("unexpected advisory: %v", report.Advisory())
	}
	info, err := os.Stat(cfg.PDF.Output)
	if err != nil {
		t.Fatalf("stat pdf: %v", err)
	}
	if info.Size() != 66*150 {
		t.Fatalf("pdf size = %d, want %d", info.Size(), 66*150)
	}
	if report.Slides != 3 || report.TempDir != "" || report.RunID != "run-1" {
		t.Fatalf("report = %+v", report)
	}

	runs, err := store.Recent(ctx, 5)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != "run-1" || runs[0].Quality != 66 || !runs[0].InRange {
		t.Fatalf("history = %+v", runs)
	}
}

func TestExportPDFMissedWindowIsAdvisory(t *testing.T) {
	cfg := testsupport.NewConfig(t, smallTarget(1, 2))
	p, _ := newTestPipeline(t, cfg)
	renderAll(t, p)

	report, err := p.ExportPDF(context.Background())
	if err != nil {
		t.Fatalf("ExportPDF: %v", err)
	}
	if report.Search.InRange || report.Search.Best.Quality != 92 {
		t.Fatalf("search = %+v", report.Search)
	}
	if report.Search.Stop != sizesearch.StopBoundary {
		t.Fatalf("stop = %s", report.Search.Stop)
	}
	if !errors.Is(report.Advisory(), sizesearch.ErrTargetNotMet) {
		t.Fatalf("expected ErrTargetNotMet advisory, got %v", report.Advisory())
	}
}

func TestExportPDFKeepTemp(t *testing.T) {
	cfg := testsupport.NewConfig(t, smallTarget(0.009, 0.0095), testsupport.WithConfig(func(cfg *config.Config) {
		cfg.PDF.KeepTemp = true
	}))
	p, _ := newTestPipeline(t, cfg)
	renderAll(t, p)

	report, err := p.ExportPDF(context.Background())
	if err != nil {
		t.Fatalf("ExportPDF: %v", err)
	}
	if report.TempDir == "" {
		t.Fatal("expected temp dir in report")
	}
	t.Cleanup(func() { _ = os.RemoveAll(report.TempDir) })
	if _, err := os.Stat(filepath.Join(report.TempDir, "01.jpg")); err != nil {
		t.Fatalf("expected kept jpeg: %v", err)
	}
}

func TestExportPDFMissingTool(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	lookPath := func(name string) (string, error) {
		if name == cfg.PDF.Assembler {
			return "", errors.New("executable file not found in $PATH")
		}
		return "/usr/bin/" + name, nil
	}
	tools := &imageTools{}
	p, _ := newTestPipeline(t, cfg, WithLookPath(lookPath), WithExecutor(tools))
	renderAll(t, p)

	_, err := p.ExportPDF(context.Background())
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool, got %v", err)
	}
	if tools.calls != 0 {
		t.Fatalf("no tool should run before preflight passes, got %d calls", tools.calls)
	}
}

func TestExportPDFWithoutSlides(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	p, _ := newTestPipeline(t, cfg)
	if _, err := p.ExportPDF(context.Background()); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBuildSkipsStages(t *testing.T) {
	cfg := testsupport.NewConfig(t, smallTarget(0.009, 0.0095))
	p, renderer := newTestPipeline(t, cfg)
	ctx := context.Background()

	report, err := p.Build(ctx, BuildOptions{SkipPDF: true})
	if err != nil {
		t.Fatalf("Build render only: %v", err)
	}
	if report.Render == nil || report.Export != nil || len(renderer.calls) != 3 {
		t.Fatalf("render-only report = %+v calls=%v", report, renderer.calls)
	}

	renderer.calls = nil
	report, err = p.Build(ctx, BuildOptions{SkipRender: true})
	if err != nil {
		t.Fatalf("Build pdf only: %v", err)
	}
	if report.Render != nil || report.Export == nil || len(renderer.calls) != 0 {
		t.Fatalf("pdf-only report = %+v calls=%v", report, renderer.calls)
	}
	if !report.Export.Search.InRange {
		t.Fatalf("export = %+v", report.Export)
	}
}

func TestBuildStopsOnRenderFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	tools := &imageTools{}
	p, renderer := newTestPipeline(t, cfg, WithExecutor(tools))
	renderer.failOn = "Slide02"

	report, err := p.Build(context.Background(), BuildOptions{})
	if err == nil {
		t.Fatal("expected build to fail")
	}
	if report.Export != nil || tools.calls != 0 {
		t.Fatalf("pdf stage should not run after a render failure, calls=%d", tools.calls)
	}
}
