package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeRender(); err != nil {
		return err
	}
	if err := c.normalizeUnits(); err != nil {
		return err
	}
	if err := c.normalizePDF(); err != nil {
		return err
	}
	if c.Watch.DebounceMillis <= 0 {
		c.Watch.DebounceMillis = defaultDebounceMillis
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.ProjectDir) == "" {
		c.Paths.ProjectDir = defaultProjectDir
	}
	if c.Paths.ProjectDir, err = expandPath(strings.TrimSpace(c.Paths.ProjectDir)); err != nil {
		return fmt.Errorf("paths.project_dir: %w", err)
	}
	project := c.Paths.ProjectDir

	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = resolveIn(project, c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.CacheFile) == "" {
		c.Paths.CacheFile = defaultCacheFile
	}
	if c.Paths.CacheFile, err = resolveIn(project, c.Paths.CacheFile); err != nil {
		return fmt.Errorf("paths.cache_file: %w", err)
	}
	if c.Paths.LogDir, err = resolveIn(project, c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.HistoryDB, err = resolveIn(project, c.Paths.HistoryDB); err != nil {
		return fmt.Errorf("paths.history_db: %w", err)
	}
	return nil
}

func (c *Config) normalizeRender() error {
	project := c.Paths.ProjectDir
	c.Render.Binary = strings.TrimSpace(c.Render.Binary)
	if c.Render.Binary == "" {
		c.Render.Binary = defaultRenderBinary
	}
	c.Render.Entry = strings.TrimSpace(c.Render.Entry)
	if c.Render.Entry == "" {
		c.Render.Entry = defaultRenderEntry
	}
	c.Render.OutputPattern = strings.TrimSpace(c.Render.OutputPattern)
	if c.Render.OutputPattern == "" {
		c.Render.OutputPattern = defaultOutputPattern
	}
	if c.Render.Scale == 0 {
		c.Render.Scale = defaultRenderScale
	}

	dirs := make([]string, 0, len(c.Render.SharedDirs))
	for _, dir := range c.Render.SharedDirs {
		resolved, err := resolveIn(project, dir)
		if err != nil {
			return fmt.Errorf("render.shared_dirs: %w", err)
		}
		if resolved != "" {
			dirs = append(dirs, resolved)
		}
	}
	c.Render.SharedDirs = dirs

	files := make([]string, 0, len(c.Render.SharedFiles))
	for _, file := range c.Render.SharedFiles {
		resolved, err := resolveIn(project, file)
		if err != nil {
			return fmt.Errorf("render.shared_files: %w", err)
		}
		if resolved != "" {
			files = append(files, resolved)
		}
	}
	c.Render.SharedFiles = files

	var err error
	if c.Render.BundleCacheDir, err = resolveIn(project, c.Render.BundleCacheDir); err != nil {
		return fmt.Errorf("render.bundle_cache_dir: %w", err)
	}
	if c.Render.TimeoutSeconds < 0 {
		c.Render.TimeoutSeconds = 0
	}
	return nil
}

func (c *Config) normalizeUnits() error {
	for i := range c.Units {
		c.Units[i].ID = strings.TrimSpace(c.Units[i].ID)
		source := strings.TrimSpace(c.Units[i].Source)
		if source == "" {
			continue
		}
		resolved, err := resolveIn(c.Paths.ProjectDir, source)
		if err != nil {
			return fmt.Errorf("units[%d].source: %w", i, err)
		}
		c.Units[i].Source = resolved

		deps := make([]string, 0, len(c.Units[i].Deps))
		for _, dep := range c.Units[i].Deps {
			resolved, err := resolveIn(c.Paths.ProjectDir, dep)
			if err != nil {
				return fmt.Errorf("units[%d].deps: %w", i, err)
			}
			if resolved != "" {
				deps = append(deps, resolved)
			}
		}
		c.Units[i].Deps = deps
	}
	return nil
}

func (c *Config) normalizePDF() error {
	var err error
	if strings.TrimSpace(c.PDF.Output) == "" {
		c.PDF.Output = defaultPDFOutput
	}
	if c.PDF.Output, err = resolveIn(c.Paths.ProjectDir, c.PDF.Output); err != nil {
		return fmt.Errorf("pdf.output: %w", err)
	}
	c.PDF.JPEGQualityStart = ClampQuality(c.PDF.JPEGQualityStart)
	c.PDF.JPEGQualityMin = ClampQuality(c.PDF.JPEGQualityMin)
	c.PDF.JPEGQualityMax = ClampQuality(c.PDF.JPEGQualityMax)
	if c.PDF.MaxAttempts == 0 {
		c.PDF.MaxAttempts = defaultMaxAttempts
	}
	c.PDF.Converter = strings.TrimSpace(c.PDF.Converter)
	if c.PDF.Converter == "" {
		c.PDF.Converter = defaultConverter
	}
	c.PDF.Assembler = strings.TrimSpace(c.PDF.Assembler)
	if c.PDF.Assembler == "" {
		c.PDF.Assembler = defaultAssembler
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

// ClampQuality bounds a JPEG quality value to [QualityFloor, QualityCeiling].
func ClampQuality(value int) int {
	if value < QualityFloor {
		return QualityFloor
	}
	if value > QualityCeiling {
		return QualityCeiling
	}
	return value
}
