package preflight

import (
	"context"
	"sort"

	"deckforge/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
	// Optional checks are reported but never block a run.
	Optional bool
}

// Stage selects which checks RunAll performs.
type Stage int

const (
	StageRender Stage = 1 << iota
	StagePDF
	StageAll = StageRender | StagePDF
)

// RunAll executes the checks needed for stage.
func RunAll(_ context.Context, cfg *config.Config, stage Stage) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Project directory", cfg.Paths.ProjectDir),
		CheckWritableParent("Output directory", cfg.Paths.OutputDir),
	}
	if stage&StageRender != 0 {
		sources := make(map[string]string, len(cfg.Units))
		for _, unit := range cfg.Units {
			sources[unit.ID] = unit.Source
		}
		results = append(results,
			CheckBinary("Renderer", cfg.Render.Binary, false),
			CheckSources("Slide sources", sources),
		)
	}
	if stage&StagePDF != 0 {
		results = append(results,
			CheckBinary("JPEG converter", cfg.PDF.Converter, false),
			CheckBinary("PDF assembler", cfg.PDF.Assembler, false),
		)
	}
	return results
}

// Failures returns the required checks that did not pass.
func Failures(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed && !r.Optional {
			failed = append(failed, r)
		}
	}
	return failed
}

func sortedCopy(values []string) []string {
	out := append([]string(nil), values...)
	sort.Strings(out)
	return out
}
