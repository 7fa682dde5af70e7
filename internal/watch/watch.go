// Package watch re-runs an action when slide sources change on disk.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"deckforge/internal/logging"
)

// Trigger is invoked once per quiet period with the changed paths.
type Trigger func(ctx context.Context, changed []string) error

// Watcher collects filesystem events under Roots and calls Trigger after
// Debounce has passed without further events.
type Watcher struct {
	// Roots are watched recursively; missing roots are skipped.
	Roots    []string
	// Exclude lists directories never watched, nor reported, even below a root.
	Exclude  []string
	Debounce time.Duration
	Trigger  Trigger
	Logger   *slog.Logger
}

// Run blocks until ctx is cancelled. Trigger errors are logged and watching
// continues.
func (w *Watcher) Run(ctx context.Context) error {
	if w.Trigger == nil {
		return errors.New("watch trigger required")
	}
	logger := logging.NewComponentLogger(w.Logger, "watch")
	debounce := w.Debounce
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	exclude := newExcludeSet(w.Exclude)
	watched := 0
	for _, root := range dedupe(w.Roots) {
		n, err := addTree(fsw, root, exclude)
		if err != nil {
			return err
		}
		watched += n
	}
	if watched == 0 {
		return errors.New("no watchable directories")
	}
	logger.Info("watching for changes",
		logging.Int("directories", watched),
		logging.Duration("debounce", debounce))

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	pending := make(map[string]struct{})

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !relevant(event) || exclude.has(event.Name) {
				continue
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if _, err := addTree(fsw, event.Name, exclude); err != nil {
						logging.WarnWithContext(logger, "failed to watch new directory", "watch_add_failed",
							logging.String("path", event.Name),
							logging.Error(err),
							logging.String(logging.FieldImpact, "changes in this directory will be missed"))
					}
				}
			}
			logger.Debug("change detected", logging.String("path", event.Name), logging.String("op", event.Op.String()))
			pending[event.Name] = struct{}{}
			timer.Reset(debounce)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logging.WarnWithContext(logger, "watcher error", "watch_error", logging.Error(err))

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			changed := make([]string, 0, len(pending))
			for path := range pending {
				changed = append(changed, path)
			}
			sort.Strings(changed)
			clear(pending)

			logger.Info("changes settled", logging.Int("paths", len(changed)))
			if err := w.Trigger(ctx, changed); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				logging.ErrorWithContext(logger, "triggered run failed", "watch_trigger_failed",
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "fix the error and save again"))
			}
		}
	}
}

func relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	base := filepath.Base(event.Name)
	if base == "" || base[0] == '.' {
		return false
	}
	// Editor swap and backup files.
	if ext := filepath.Ext(base); ext == ".swp" || ext == ".tmp" || base[len(base)-1] == '~' {
		return false
	}
	return true
}

// addTree watches root and every directory below it that is not excluded. It
// returns how many directories were added; a missing root adds none.
func addTree(fsw *fsnotify.Watcher, root string, exclude excludeSet) (int, error) {
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("stat %s: %w", root, err)
	}
	if !info.IsDir() {
		root = filepath.Dir(root)
	}
	added := 0
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if exclude.has(path) {
			return filepath.SkipDir
		}
		if path != root && (d.Name() == "node_modules" || d.Name()[0] == '.') {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		added++
		return nil
	})
	return added, err
}

type excludeSet []string

func newExcludeSet(dirs []string) excludeSet {
	var set excludeSet
	for _, dir := range dedupe(dirs) {
		if abs, err := filepath.Abs(dir); err == nil {
			dir = abs
		}
		set = append(set, filepath.Clean(dir))
	}
	return set
}

// has reports whether path is an excluded directory or lies below one.
func (s excludeSet) has(path string) bool {
	if len(s) == 0 {
		return false
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	path = filepath.Clean(path)
	for _, dir := range s {
		if path == dir || strings.HasPrefix(path, dir+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
