package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"deckforge/internal/command"
	"deckforge/internal/config"
	"deckforge/internal/history"
	"deckforge/internal/logging"
	"deckforge/internal/render"
	"deckforge/internal/rendercache"
	"deckforge/internal/services"
)

// ErrLocked is returned when another deckforge process holds the build lock.
var ErrLocked = errors.New("another deckforge build is running")

// Pipeline runs render and export stages for one configured project.
type Pipeline struct {
	cfg      *config.Config
	logger   *slog.Logger
	renderer render.Renderer
	cache    *rendercache.Cache
	exec     command.Executor
	history  *history.Store
	lookPath func(string) (string, error)
	now      func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRenderer replaces the Remotion renderer.
func WithRenderer(r render.Renderer) Option {
	return func(p *Pipeline) {
		if r != nil {
			p.renderer = r
		}
	}
}

// WithExecutor replaces the executor used for the image tools.
func WithExecutor(exec command.Executor) Option {
	return func(p *Pipeline) {
		if exec != nil {
			p.exec = exec
		}
	}
}

// WithHistory records each export in store.
func WithHistory(store *history.Store) Option {
	return func(p *Pipeline) {
		p.history = store
	}
}

// WithLookPath replaces exec.LookPath for tool availability checks.
func WithLookPath(fn func(string) (string, error)) Option {
	return func(p *Pipeline) {
		if fn != nil {
			p.lookPath = fn
		}
	}
}

// New builds a pipeline for cfg. The config must already be normalized.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Pipeline {
	logger = logging.NewComponentLogger(logger, "pipeline")
	p := &Pipeline{
		cfg:      cfg,
		logger:   logger,
		exec:     command.OSExecutor{},
		lookPath: exec.LookPath,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.renderer == nil {
		p.renderer = &render.RemotionRenderer{
			Binary:     cfg.Render.Binary,
			Entry:      cfg.Render.Entry,
			ProjectDir: cfg.Paths.ProjectDir,
			Scale:      cfg.Render.Scale,
			Timeout:    time.Duration(cfg.Render.TimeoutSeconds) * time.Second,
			Logger:     logger,
		}
	}
	p.cache = rendercache.New(cfg.Paths.CacheFile, rendercache.Hasher{
		SharedDirs:  cfg.Render.SharedDirs,
		SharedFiles: cfg.Render.SharedFiles,
	}, logger)
	return p
}

// Cache exposes the render cache.
func (p *Pipeline) Cache() *rendercache.Cache {
	return p.cache
}

// Config returns the pipeline configuration.
func (p *Pipeline) Config() *config.Config {
	return p.cfg
}

// Lock takes the exclusive build lock in the output directory. The returned
// function releases it.
func (p *Pipeline) Lock() (func(), error) {
	if err := os.MkdirAll(p.cfg.Paths.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	lock := flock.New(p.cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (lock %s)", ErrLocked, p.cfg.LockPath())
	}
	return func() {
		if err := lock.Unlock(); err != nil {
			p.logger.Debug("release build lock failed", logging.Error(err))
		}
	}, nil
}

// Units resolves the configured deck, or the subset named by only, into cache
// units. Unknown ids are validation errors.
func (p *Pipeline) Units(only []string) ([]rendercache.Unit, error) {
	all := make([]rendercache.Unit, 0, len(p.cfg.Units))
	byID := make(map[string]rendercache.Unit, len(p.cfg.Units))
	for _, u := range p.cfg.Units {
		unit := rendercache.Unit{
			ID:     u.ID,
			Source: u.Source,
			Output: p.cfg.UnitOutputPath(u.ID),
			Deps:   u.Deps,
		}
		all = append(all, unit)
		byID[u.ID] = unit
	}
	if len(only) == 0 {
		return all, nil
	}

	wanted := make(map[string]struct{}, len(only))
	for _, id := range only {
		if _, ok := byID[id]; !ok {
			return nil, services.Wrap(services.ErrValidation, "render", "select units", fmt.Sprintf("unknown unit %q", id), nil)
		}
		wanted[id] = struct{}{}
	}
	selected := make([]rendercache.Unit, 0, len(wanted))
	for _, unit := range all {
		if _, ok := wanted[unit.ID]; ok {
			selected = append(selected, unit)
		}
	}
	return selected, nil
}

// WatchRoots lists the directories whose changes can stale a unit.
func (p *Pipeline) WatchRoots() []string {
	roots := append([]string(nil), p.cfg.Render.SharedDirs...)
	for _, file := range p.cfg.Render.SharedFiles {
		roots = append(roots, filepath.Dir(file))
	}
	for _, u := range p.cfg.Units {
		roots = append(roots, filepath.Dir(u.Source))
		for _, dep := range u.Deps {
			roots = append(roots, filepath.Dir(dep))
		}
	}
	return roots
}

// WatchExcludes lists paths the build itself writes. Changes there never stale
// a unit, so a watcher must skip them even when they sit below a watch root.
func (p *Pipeline) WatchExcludes() []string {
	var excludes []string
	for _, path := range []string{
		p.cfg.Paths.OutputDir,
		p.cfg.Paths.CacheFile,
		p.cfg.Paths.LogDir,
		p.cfg.Paths.HistoryDB,
		p.cfg.Render.BundleCacheDir,
		p.cfg.PDF.Output,
	} {
		if path != "" {
			excludes = append(excludes, path)
		}
	}
	return excludes
}
