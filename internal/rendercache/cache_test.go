package rendercache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"deckforge/internal/hashing"
	"deckforge/internal/logging"
)

type fixture struct {
	dir       string
	cachePath string
	hasher    Hasher
	a, b      Unit
}

// newFixture lays out a small project: two slides, a shared dir, a root file,
// and a file S that only slide A depends on.
func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	write(t, filepath.Join(dir, "src", "A.tsx"), "slide a")
	write(t, filepath.Join(dir, "src", "B.tsx"), "slide b")
	write(t, filepath.Join(dir, "src", "shared", "theme.ts"), "theme")
	write(t, filepath.Join(dir, "src", "shared", "ui", "card.tsx"), "card")
	write(t, filepath.Join(dir, "src", "Root.tsx"), "root")
	write(t, filepath.Join(dir, "src", "data", "S.json"), "{}")
	write(t, filepath.Join(dir, "out", "v3-A.png"), "png a")
	write(t, filepath.Join(dir, "out", "v3-B.png"), "png b")

	return fixture{
		dir:       dir,
		cachePath: filepath.Join(dir, "out", ".render-cache.json"),
		hasher: Hasher{
			SharedDirs:  []string{filepath.Join(dir, "src", "shared")},
			SharedFiles: []string{filepath.Join(dir, "src", "Root.tsx")},
		},
		a: Unit{
			ID:     "A",
			Source: filepath.Join(dir, "src", "A.tsx"),
			Output: filepath.Join(dir, "out", "v3-A.png"),
			Deps:   []string{filepath.Join(dir, "src", "data", "S.json")},
		},
		b: Unit{
			ID:     "B",
			Source: filepath.Join(dir, "src", "B.tsx"),
			Output: filepath.Join(dir, "out", "v3-B.png"),
		},
	}
}

func write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func needs(t *testing.T, c *Cache, u Unit) (bool, Reason) {
	t.Helper()
	ok, reason, err := c.NeedsRender(u)
	if err != nil {
		t.Fatalf("NeedsRender(%s): %v", u.ID, err)
	}
	return ok, reason
}

func TestUnitHashMatchesDocumentedComposition(t *testing.T) {
	f := newFixture(t)
	got, err := f.hasher.UnitHash(f.b.Source)
	if err != nil {
		t.Fatalf("UnitHash: %v", err)
	}
	want := hashing.Combine([]string{
		hashing.File(f.b.Source),
		hashing.File(filepath.Join(f.dir, "src", "shared", "theme.ts")),
		hashing.File(filepath.Join(f.dir, "src", "shared", "ui", "card.tsx")),
		hashing.File(filepath.Join(f.dir, "src", "Root.tsx")),
	})
	if got != want {
		t.Fatalf("UnitHash = %s, want %s", got, want)
	}
}

func TestUnitHashDeterministic(t *testing.T) {
	f := newFixture(t)
	first, err := f.hasher.UnitHash(f.a.Source, f.a.Deps...)
	if err != nil {
		t.Fatalf("UnitHash: %v", err)
	}
	second, err := f.hasher.UnitHash(f.a.Source, f.a.Deps...)
	if err != nil {
		t.Fatalf("UnitHash: %v", err)
	}
	if first != second {
		t.Fatalf("hash not deterministic: %s vs %s", first, second)
	}
}

func TestUnitHashMissingFileChangesHash(t *testing.T) {
	f := newFixture(t)
	before, err := f.hasher.UnitHash(f.b.Source)
	if err != nil {
		t.Fatalf("UnitHash: %v", err)
	}
	if err := os.Remove(filepath.Join(f.dir, "src", "Root.tsx")); err != nil {
		t.Fatalf("remove: %v", err)
	}
	after, err := f.hasher.UnitHash(f.b.Source)
	if err != nil {
		t.Fatalf("UnitHash after delete: %v", err)
	}
	if before == after {
		t.Fatal("expected hash to change after deleting a dependency")
	}
	want := hashing.Combine([]string{
		hashing.File(f.b.Source),
		hashing.File(filepath.Join(f.dir, "src", "shared", "theme.ts")),
		hashing.File(filepath.Join(f.dir, "src", "shared", "ui", "card.tsx")),
		hashing.Missing,
	})
	if after != want {
		t.Fatalf("expected sentinel-derived hash %s, got %s", want, after)
	}
}

func TestMissingCacheFileNeedsEverything(t *testing.T) {
	f := newFixture(t)
	c := New(f.cachePath, f.hasher, logging.NewNop())
	for _, u := range []Unit{f.a, f.b} {
		ok, reason := needs(t, c, u)
		if !ok || reason != ReasonNotCached {
			t.Fatalf("%s: needs=%v reason=%s, want true/not_cached", u.ID, ok, reason)
		}
	}
}

func TestEmptyCacheFileNeedsEverything(t *testing.T) {
	f := newFixture(t)
	write(t, f.cachePath, "")
	c := New(f.cachePath, f.hasher, logging.NewNop())
	if ok, _ := needs(t, c, f.a); !ok {
		t.Fatal("expected render needed with empty cache file")
	}
}

func TestMalformedCacheFileIsEmpty(t *testing.T) {
	for name, content := range map[string]string{
		"garbage": "{not json",
		"array":   `["A"]`,
	} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			write(t, f.cachePath, content)
			c := New(f.cachePath, f.hasher, logging.NewNop())
			if c.Count() != 0 {
				t.Fatalf("expected empty cache, got %d entries", c.Count())
			}
			if ok, _ := needs(t, c, f.b); !ok {
				t.Fatal("expected render needed")
			}
			if err := c.RecordRendered(f.b); err != nil {
				t.Fatalf("RecordRendered: %v", err)
			}
			if ok, _ := needs(t, c, f.b); ok {
				t.Fatal("expected cache to recover after record")
			}
		})
	}
}

func TestRecordThenUpToDate(t *testing.T) {
	f := newFixture(t)
	c := New(f.cachePath, f.hasher, logging.NewNop())
	if err := c.RecordRendered(f.a); err != nil {
		t.Fatalf("RecordRendered: %v", err)
	}
	ok, reason := needs(t, c, f.a)
	if ok || reason != ReasonUpToDate {
		t.Fatalf("needs=%v reason=%s, want false/up_to_date", ok, reason)
	}
	again, reasonAgain := needs(t, c, f.a)
	if again != ok || reasonAgain != reason {
		t.Fatal("NeedsRender not idempotent")
	}
}

func TestOutputMissingOverridesHashMatch(t *testing.T) {
	f := newFixture(t)
	c := New(f.cachePath, f.hasher, logging.NewNop())
	if err := c.RecordRendered(f.b); err != nil {
		t.Fatalf("RecordRendered: %v", err)
	}
	if err := os.Remove(f.b.Output); err != nil {
		t.Fatalf("remove output: %v", err)
	}
	ok, reason := needs(t, c, f.b)
	if !ok || reason != ReasonOutputMissing {
		t.Fatalf("needs=%v reason=%s, want true/output_missing", ok, reason)
	}
}

func TestSharedChangeInvalidatesEveryUnit(t *testing.T) {
	f := newFixture(t)
	c := New(f.cachePath, f.hasher, logging.NewNop())
	for _, u := range []Unit{f.a, f.b} {
		if err := c.RecordRendered(u); err != nil {
			t.Fatalf("RecordRendered(%s): %v", u.ID, err)
		}
	}
	write(t, filepath.Join(f.dir, "src", "shared", "ui", "card.tsx"), "card v2")
	for _, u := range []Unit{f.a, f.b} {
		ok, reason := needs(t, c, u)
		if !ok || reason != ReasonHashChanged {
			t.Fatalf("%s: needs=%v reason=%s, want true/hash_changed", u.ID, ok, reason)
		}
	}
}

func TestStaleDependencyOnlyAffectsDependents(t *testing.T) {
	f := newFixture(t)
	c := New(f.cachePath, f.hasher, logging.NewNop())
	for _, u := range []Unit{f.a, f.b} {
		if err := c.RecordRendered(u); err != nil {
			t.Fatalf("RecordRendered(%s): %v", u.ID, err)
		}
	}
	write(t, filepath.Join(f.dir, "src", "data", "S.json"), `{"touched":true}`)

	if ok, _ := needs(t, c, f.a); !ok {
		t.Fatal("expected A to need render after S changed")
	}
	if ok, _ := needs(t, c, f.b); ok {
		t.Fatal("expected B to stay up to date")
	}
}

func TestPersistedFormatIsFlatObject(t *testing.T) {
	f := newFixture(t)
	c := New(f.cachePath, f.hasher, logging.NewNop())
	if err := c.RecordRendered(f.b); err != nil {
		t.Fatalf("RecordRendered: %v", err)
	}
	data, err := os.ReadFile(f.cachePath)
	if err != nil {
		t.Fatalf("read cache: %v", err)
	}
	var decoded map[string]string
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("cache is not a flat object: %v (%s)", err, data)
	}
	want, _ := f.hasher.UnitHash(f.b.Source)
	if len(decoded) != 1 || decoded["B"] != want {
		t.Fatalf("unexpected cache contents: %v", decoded)
	}
	if data[len(data)-1] != '\n' {
		t.Fatal("expected trailing newline")
	}

	reloaded := New(f.cachePath, f.hasher, logging.NewNop())
	if ok, _ := needs(t, reloaded, f.b); ok {
		t.Fatal("expected reloaded cache to report B up to date")
	}
}

func TestInvalidateAll(t *testing.T) {
	f := newFixture(t)
	c := New(f.cachePath, f.hasher, logging.NewNop())
	for _, u := range []Unit{f.a, f.b} {
		if err := c.RecordRendered(u); err != nil {
			t.Fatalf("RecordRendered(%s): %v", u.ID, err)
		}
	}
	if err := c.InvalidateAll(); err != nil {
		t.Fatalf("InvalidateAll: %v", err)
	}
	data, err := os.ReadFile(f.cachePath)
	if err != nil {
		t.Fatalf("read cache: %v", err)
	}
	if string(data) != "{}\n" {
		t.Fatalf("expected empty object, got %q", data)
	}
	if ok, reason := needs(t, c, f.a); !ok || reason != ReasonNotCached {
		t.Fatalf("needs=%v reason=%s after invalidate", ok, reason)
	}
}

func TestEntriesSortedByUnit(t *testing.T) {
	f := newFixture(t)
	c := New(f.cachePath, f.hasher, logging.NewNop())
	for _, u := range []Unit{f.b, f.a} {
		if err := c.RecordRendered(u); err != nil {
			t.Fatalf("RecordRendered(%s): %v", u.ID, err)
		}
	}
	entries := c.Entries()
	if len(entries) != 2 || entries[0].UnitID != "A" || entries[1].UnitID != "B" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
	if c.Count() != 2 {
		t.Fatalf("Count = %d", c.Count())
	}
	if _, ok := c.Lookup("A"); !ok {
		t.Fatal("expected Lookup to find A")
	}
}

func TestRecordRenderedRejectsEmptyID(t *testing.T) {
	f := newFixture(t)
	c := New(f.cachePath, f.hasher, logging.NewNop())
	if err := c.RecordRendered(Unit{Source: f.a.Source}); err == nil {
		t.Fatal("expected error for empty unit id")
	}
}

func TestSymlinkedSharedFileInvalidatesUnits(t *testing.T) {
	f := newFixture(t)
	target := filepath.Join(f.dir, "vendor", "tokens.ts")
	write(t, target, "tokens v1")
	link := filepath.Join(f.dir, "src", "shared", "tokens.ts")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	vendorDir := filepath.Join(f.dir, "vendor")
	if err := os.Symlink(vendorDir, filepath.Join(f.dir, "src", "shared", "vendor")); err != nil {
		t.Fatalf("symlink dir: %v", err)
	}

	files, err := f.hasher.Files()
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	var sawLink bool
	for _, file := range files {
		if file == link {
			sawLink = true
		}
		if file == filepath.Join(f.dir, "src", "shared", "vendor") {
			t.Fatalf("directory symlink listed as a file: %v", files)
		}
	}
	if !sawLink {
		t.Fatalf("symlinked file missing from shared files: %v", files)
	}

	c := New(f.cachePath, f.hasher, logging.NewNop())
	if err := c.RecordRendered(f.b); err != nil {
		t.Fatalf("RecordRendered: %v", err)
	}
	if ok, reason := needs(t, c, f.b); ok {
		t.Fatalf("expected up to date after record, got %s", reason)
	}
	write(t, target, "tokens v2")
	ok, reason := needs(t, c, f.b)
	if !ok || reason != ReasonHashChanged {
		t.Fatalf("needs=%v reason=%s, want true/hash_changed", ok, reason)
	}
}

func TestUnitIDWhitespaceIgnoredConsistently(t *testing.T) {
	f := newFixture(t)
	c := New(f.cachePath, f.hasher, logging.NewNop())
	padded := f.a
	padded.ID = "  A "
	if err := c.RecordRendered(padded); err != nil {
		t.Fatalf("RecordRendered: %v", err)
	}
	if ok, reason := needs(t, c, padded); ok || reason != ReasonUpToDate {
		t.Fatalf("padded id: needs=%v reason=%s, want false/up_to_date", ok, reason)
	}
	if ok, reason := needs(t, c, f.a); ok || reason != ReasonUpToDate {
		t.Fatalf("trimmed id: needs=%v reason=%s, want false/up_to_date", ok, reason)
	}
	if _, ok := c.Lookup("A"); !ok {
		t.Fatal("expected Lookup(\"A\") to find the trimmed entry")
	}
	if _, ok := c.Lookup(" A "); !ok {
		t.Fatal("expected Lookup(\" A \") to find the trimmed entry")
	}
}
