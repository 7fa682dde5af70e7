package preflight

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"deckforge/internal/config"
	"deckforge/internal/testsupport"
)

func TestCheckDirectoryAccess(t *testing.T) {
	dir := t.TempDir()
	if result := CheckDirectoryAccess("test", dir); !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
	if result := CheckDirectoryAccess("test", filepath.Join(dir, "nope")); result.Passed || result.Detail == "" {
		t.Fatalf("expected failure for missing dir, got %+v", result)
	}
	file := filepath.Join(dir, "file.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if result := CheckDirectoryAccess("test", file); result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckWritableParent(t *testing.T) {
	dir := t.TempDir()
	result := CheckWritableParent("out", filepath.Join(dir, "a", "b"))
	if !result.Passed || !strings.Contains(result.Detail, "will be created") {
		t.Fatalf("expected creatable result, got %+v", result)
	}
	if result := CheckWritableParent("out", dir); !result.Passed {
		t.Fatalf("expected existing dir to pass, got %+v", result)
	}
}

func TestCheckBinary(t *testing.T) {
	bin := t.TempDir()
	testsupport.StubBinaries(t, bin, "exit 0", "img2pdf")
	if result := CheckBinary("assembler", "img2pdf", false); !result.Passed {
		t.Fatalf("expected stub to resolve, got %+v", result)
	}
	result := CheckBinary("converter", "definitely-not-a-real-tool", false)
	if result.Passed || !strings.Contains(result.Detail, "not found") {
		t.Fatalf("expected missing binary, got %+v", result)
	}
}

func TestCheckSources(t *testing.T) {
	dir := t.TempDir()
	present := filepath.Join(dir, "A.tsx")
	testsupport.WriteText(t, present, "a")
	result := CheckSources("sources", map[string]string{"A": present, "B": filepath.Join(dir, "B.tsx")})
	if result.Passed || !strings.Contains(result.Detail, "[B]") {
		t.Fatalf("expected B missing, got %+v", result)
	}
}

func TestRunAllByStage(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries("npx", "sips", "img2pdf"))

	all := RunAll(context.Background(), cfg, StageAll)
	if failed := Failures(all); len(failed) != 0 {
		t.Fatalf("expected all checks to pass, got %+v", failed)
	}
	if len(all) != 6 {
		t.Fatalf("expected 6 checks, got %d", len(all))
	}

	pdfOnly := RunAll(context.Background(), cfg, StagePDF)
	for _, r := range pdfOnly {
		if r.Name == "Renderer" {
			t.Fatal("renderer should not be checked for the pdf stage")
		}
	}
}

func TestRunAllReportsMissingConverter(t *testing.T) {
	cfg := testsupport.NewConfig(t,
		testsupport.WithStubbedBinaries("img2pdf"),
		testsupport.WithConfig(func(c *config.Config) {
			c.PDF.Converter = "no-such-converter"
		}))
	failed := Failures(RunAll(context.Background(), cfg, StagePDF))
	if len(failed) != 1 || failed[0].Name != "JPEG converter" {
		t.Fatalf("expected converter failure, got %+v", failed)
	}
}

func TestFailuresSkipsOptional(t *testing.T) {
	results := []Result{{Name: "a", Passed: false, Optional: true}, {Name: "b", Passed: true}}
	if len(Failures(results)) != 0 {
		t.Fatal("optional failures should not count")
	}
}
