package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"deckforge/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// DefaultUnitIDs names the slides of the generated project.
var DefaultUnitIDs = []string{"Slide01", "Slide02", "Slide03"}

// NewConfig lays out a small slide project under a temp directory and returns
// a normalized config pointing at it. Each unit gets a source file under src/,
// plus src/shared/theme.ts and src/Root.tsx as the shared dependency set.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.ProjectDir = filepath.Join(base, "project")
	cfgVal.Paths.OutputDir = "out"
	cfgVal.Paths.CacheFile = "out/.render-cache.json"
	cfgVal.Paths.HistoryDB = "out/.deckforge-history.db"
	cfgVal.PDF.Output = "out/deck.pdf"
	cfgVal.Units = nil
	for _, id := range DefaultUnitIDs {
		cfgVal.Units = append(cfgVal.Units, config.Unit{ID: id, Source: "src/" + id + ".tsx"})
	}

	builder := &configBuilder{t: t, baseDir: base, cfg: &cfgVal}
	for _, opt := range opts {
		opt(builder)
	}

	project := cfgVal.Paths.ProjectDir
	for _, unit := range cfgVal.Units {
		WriteText(t, filepath.Join(project, unit.Source), "export const "+unit.ID+" = () => null;\n")
	}
	WriteText(t, filepath.Join(project, "src", "shared", "theme.ts"), "export const theme = {};\n")
	WriteText(t, filepath.Join(project, "src", "Root.tsx"), "export const Root = () => null;\n")

	if err := builder.cfg.Refresh(); err != nil {
		t.Fatalf("refresh test config: %v", err)
	}
	return builder.cfg
}

// WithUnits replaces the generated deck.
func WithUnits(ids ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Units = nil
		for _, id := range ids {
			b.cfg.Units = append(b.cfg.Units, config.Unit{ID: id, Source: "src/" + id + ".tsx"})
		}
	}
}

// WithConfig applies an arbitrary mutation before normalization.
func WithConfig(mutate func(*config.Config)) ConfigOption {
	return func(b *configBuilder) {
		mutate(b.cfg)
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the default external tools are
// stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"npx", "sips", "img2pdf"}
		}
		StubBinaries(b.t, filepath.Join(b.baseDir, "bin"), "exit 0", names...)
	}
}

// StubBinaries writes shell scripts with body into dir and prepends dir to PATH.
func StubBinaries(t testing.TB, dir, body string, names ...string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir bin dir: %v", err)
	}
	script := []byte("#!/bin/sh\n" + body + "\n")
	for _, name := range names {
		target := filepath.Join(dir, name)
		if err := os.WriteFile(target, script, 0o755); err != nil {
			t.Fatalf("write stub %s: %v", name, err)
		}
	}

	oldPath := os.Getenv("PATH")
	if err := os.Setenv("PATH", dir+string(os.PathListSeparator)+oldPath); err != nil {
		t.Fatalf("set PATH: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Setenv("PATH", oldPath)
	})
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.ProjectDir)
}
