package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"deckforge/internal/config"
	"deckforge/internal/testsupport"
)

// Stub tools: npx writes the PNG named by its fifth argument, sips writes
// quality*50 bytes, and img2pdf concatenates its inputs. Three slides at
// quality 66 therefore produce a 9900 byte PDF.
const (
	npxStub  = `printf png > "$5"`
	sipsStub = `head -c $(( $6 * 50 )) /dev/zero > "$9"`
	img2pdf  = `out=""
files=""
while [ $# -gt 0 ]; do
  if [ "$1" = "-o" ]; then out="$2"; shift 2; else files="$files $1"; shift; fi
done
cat $files > "$out"`
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	t.Setenv("HOME", t.TempDir())
	opts = append([]testsupport.ConfigOption{testsupport.WithConfig(func(cfg *config.Config) {
		cfg.PDF.TargetMBMin = 0.009
		cfg.PDF.TargetMBMax = 0.0095
	})}, opts...)
	cfg := testsupport.NewConfig(t, opts...)

	base := testsupport.BaseDir(cfg)
	bin := filepath.Join(base, "bin")
	testsupport.StubBinaries(t, bin, npxStub, "npx")
	testsupport.StubBinaries(t, bin, sipsStub, "sips")
	testsupport.StubBinaries(t, bin, img2pdf, "img2pdf")

	configPath := filepath.Join(base, "deckforge.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, configPath: configPath}
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	var b strings.Builder
	fmt.Fprintf(&b, "[paths]\nproject_dir = %q\noutput_dir = %q\ncache_file = %q\nhistory_db = %q\n\n",
		cfg.Paths.ProjectDir, cfg.Paths.OutputDir, cfg.Paths.CacheFile, cfg.Paths.HistoryDB)
	fmt.Fprintf(&b, "[pdf]\noutput = %q\ntarget_mb_min = %v\ntarget_mb_max = %v\nconverter = %q\nassembler = %q\n\n",
		cfg.PDF.Output, cfg.PDF.TargetMBMin, cfg.PDF.TargetMBMax, cfg.PDF.Converter, cfg.PDF.Assembler)
	b.WriteString("[logging]\nlevel = \"error\"\n\n")
	for _, unit := range cfg.Units {
		fmt.Fprintf(&b, "[[units]]\nid = %q\nsource = %q\n\n", unit.ID, unit.Source)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
