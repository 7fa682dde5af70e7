package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"deckforge/internal/config"
	"deckforge/internal/pipeline"
	"deckforge/internal/services"
)

type renderFlags struct {
	incremental  bool
	noCacheClear bool
	fast         bool
	scale        int
	units        []string
}

func (f *renderFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.BoolVar(&f.incremental, "incremental", false, "Only re-render slides whose sources changed")
	flags.BoolVar(&f.noCacheClear, "no-cache-clear", false, "Keep the bundle cache and render cache on full runs")
	flags.BoolVar(&f.fast, "fast", false, "Render at scale 1 (1920x1080) for quick iteration")
	flags.IntVar(&f.scale, "scale", 0, "Render scale factor (overrides render.scale)")
	flags.StringSliceVar(&f.units, "unit", nil, "Render only these unit ids (repeatable)")
}

func (f *renderFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	switch {
	case f.fast:
		cfg.Render.Scale = 1
	case cmd.Flags().Changed("scale"):
		if f.scale < 1 {
			return services.Wrap(services.ErrValidation, "render", "flags", fmt.Sprintf("--scale must be >= 1, got %d", f.scale), nil)
		}
		cfg.Render.Scale = f.scale
	}
	return nil
}

func (f *renderFlags) options() pipeline.RenderOptions {
	return pipeline.RenderOptions{
		Incremental:  f.incremental,
		NoCacheClear: f.noCacheClear,
		Only:         f.units,
	}
}

type pdfFlags struct {
	output       string
	targetMin    float64
	targetMax    float64
	qualityStart int
	qualityMin   int
	qualityMax   int
	qualityStep  int
	maxAttempts  int
	maxDimension int
	keepTemp     bool
}

func (f *pdfFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&f.output, "output", "o", "", "Destination PDF path")
	flags.Float64Var(&f.targetMin, "target-mb-min", 0, "Lower bound of the size window in MB")
	flags.Float64Var(&f.targetMax, "target-mb-max", 0, "Upper bound of the size window in MB")
	flags.IntVar(&f.qualityStart, "jpeg-quality-start", 0, "Initial JPEG quality")
	flags.IntVar(&f.qualityMin, "jpeg-quality-min", 0, "Lowest JPEG quality the search may use")
	flags.IntVar(&f.qualityMax, "jpeg-quality-max", 0, "Highest JPEG quality the search may use")
	flags.IntVar(&f.qualityStep, "quality-step", 0, "JPEG quality step between attempts")
	flags.IntVar(&f.maxAttempts, "max-attempts", 0, "Maximum number of encode attempts")
	flags.IntVar(&f.maxDimension, "max-dimension", 0, "Cap the long side of each slide in pixels (>= 640)")
	flags.BoolVar(&f.keepTemp, "keep-temp", false, "Keep the intermediate JPEG directory")
}

// apply copies explicitly set flags onto cfg. Relative --output paths are
// taken from the working directory, not the project directory.
func (f *pdfFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("output") {
		output, err := config.ExpandPath(f.output)
		if err != nil {
			return fmt.Errorf("resolve --output: %w", err)
		}
		cfg.PDF.Output = output
	}
	if flags.Changed("target-mb-min") {
		cfg.PDF.TargetMBMin = f.targetMin
	}
	if flags.Changed("target-mb-max") {
		cfg.PDF.TargetMBMax = f.targetMax
	}
	if flags.Changed("jpeg-quality-start") {
		cfg.PDF.JPEGQualityStart = f.qualityStart
	}
	if flags.Changed("jpeg-quality-min") {
		cfg.PDF.JPEGQualityMin = f.qualityMin
	}
	if flags.Changed("jpeg-quality-max") {
		cfg.PDF.JPEGQualityMax = f.qualityMax
	}
	if flags.Changed("quality-step") {
		cfg.PDF.QualityStep = f.qualityStep
	}
	if flags.Changed("max-attempts") {
		cfg.PDF.MaxAttempts = f.maxAttempts
	}
	if flags.Changed("max-dimension") {
		cfg.PDF.MaxDimension = f.maxDimension
	}
	if flags.Changed("keep-temp") {
		cfg.PDF.KeepTemp = f.keepTemp
	}
	return nil
}
