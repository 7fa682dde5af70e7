package pipeline

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"deckforge/internal/logging"
)

// CleanReport lists what Clean removed, or would remove on a dry run.
type CleanReport struct {
	Removed    []string
	FreedBytes int64
	DryRun     bool
}

// keptExtensions survive cleanup; they are deliverables.
var keptExtensions = map[string]bool{".pdf": true, ".pptx": true}

// Clean removes intermediate files: rendered PNGs and sub-directories of the
// output directory, the render cache file, and the bundler cache directory.
// Deliverables, the build lock and the history database are kept.
func (p *Pipeline) Clean(dryRun bool) (CleanReport, error) {
	report := CleanReport{DryRun: dryRun}
	outDir := p.cfg.Paths.OutputDir

	protected := map[string]bool{
		p.cfg.LockPath():               true,
		p.cfg.Paths.HistoryDB:          true,
		p.cfg.Paths.HistoryDB + "-wal": true,
		p.cfg.Paths.HistoryDB + "-shm": true,
	}

	var targets []string
	entries, err := os.ReadDir(outDir)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return report, fmt.Errorf("read output dir: %w", err)
	}
	for _, entry := range entries {
		path := filepath.Join(outDir, entry.Name())
		if protected[path] {
			continue
		}
		switch {
		case entry.IsDir():
			targets = append(targets, path)
		case strings.EqualFold(filepath.Ext(entry.Name()), ".png"):
			targets = append(targets, path)
		}
	}
	if _, err := os.Stat(p.cfg.Paths.CacheFile); err == nil {
		targets = append(targets, p.cfg.Paths.CacheFile)
	}
	if bundleDir := strings.TrimSpace(p.cfg.Render.BundleCacheDir); bundleDir != "" {
		if _, err := os.Stat(bundleDir); err == nil {
			targets = append(targets, bundleDir)
		}
	}
	sort.Strings(targets)

	for _, path := range targets {
		if keptExtensions[strings.ToLower(filepath.Ext(path))] {
			continue
		}
		size := pathSize(path)
		if !dryRun {
			if err := os.RemoveAll(path); err != nil {
				return report, fmt.Errorf("remove %s: %w", path, err)
			}
		}
		report.Removed = append(report.Removed, path)
		report.FreedBytes += size
	}

	p.logger.Info("clean finished",
		logging.Bool("dry_run", dryRun),
		logging.Int("removed", len(report.Removed)),
		logging.Int64("freed_bytes", report.FreedBytes))
	return report, nil
}

func pathSize(path string) int64 {
	var total int64
	_ = filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.Type().IsRegular() {
			if info, err := d.Info(); err == nil {
				total += info.Size()
			}
		}
		return nil
	})
	return total
}
