package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"deckforge/internal/pipeline"
	"deckforge/internal/sizesearch"
)

var (
	numberPrinter = message.NewPrinter(language.English)
	titleCaser    = cases.Title(language.English)
)

// formatBytes renders n in binary units, matching the MB = 1024*1024 used for
// the target window.
func formatBytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}

// formatByteCount renders n with thousands separators.
func formatByteCount(n int64) string {
	return numberPrinter.Sprintf("%d bytes", n)
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(100 * time.Millisecond).String()
}

// displayLabel turns identifiers like "hash_changed" into "Hash Changed".
func displayLabel(value string) string {
	value = strings.TrimSpace(strings.ReplaceAll(value, "_", " "))
	if value == "" {
		return "-"
	}
	return titleCaser.String(value)
}

func printRenderSummary(out io.Writer, summary pipeline.RenderSummary, scale int) {
	fmt.Fprintf(out, "Rendered %d, skipped %d (scale %d) in %s\n",
		len(summary.Rendered), len(summary.Skipped), scale, formatDuration(summary.Duration))
	if summary.CacheCleared {
		fmt.Fprintln(out, "Renderer caches were cleared before rendering")
	}
}

func printExportReport(out io.Writer, report pipeline.ExportReport) {
	best := report.Search.Best
	fmt.Fprintf(out, "PDF written: %s\n", report.Output)
	fmt.Fprintf(out, "  Slides:   %d\n", report.Slides)
	fmt.Fprintf(out, "  Size:     %s (%s)\n", formatBytes(best.Bytes), formatByteCount(best.Bytes))
	fmt.Fprintf(out, "  Target:   %s to %s\n", formatBytes(report.TargetMin), formatBytes(report.TargetMax))
	fmt.Fprintf(out, "  Quality:  %d after %d attempt(s) (%s)\n", best.Quality, len(report.Search.Attempts), displayLabel(string(report.Search.Stop)))
	fmt.Fprintf(out, "  Elapsed:  %s\n", formatDuration(report.Duration))
	if report.TempDir != "" {
		fmt.Fprintf(out, "  Kept JPEGs: %s\n", report.TempDir)
	}
	if err := report.Advisory(); err != nil {
		fmt.Fprintf(out, "Warning: size target not fully met; closest quality candidate was used (%s)\n",
			formatBytes(best.Bytes))
	}
}

type renderJSON struct {
	Rendered     []string `json:"rendered"`
	Skipped      []string `json:"skipped"`
	CacheCleared bool     `json:"cache_cleared"`
	DurationMS   int64    `json:"duration_ms"`
}

type attemptJSON struct {
	Quality int   `json:"quality"`
	Bytes   int64 `json:"bytes"`
}

type exportJSON struct {
	Output     string        `json:"output"`
	Slides     int           `json:"slides"`
	Quality    int           `json:"quality"`
	SizeBytes  int64         `json:"size_bytes"`
	TargetMin  int64         `json:"target_min_bytes"`
	TargetMax  int64         `json:"target_max_bytes"`
	InRange    bool          `json:"in_range"`
	StopReason string        `json:"stop_reason"`
	Reencoded  bool          `json:"reencoded"`
	Attempts   []attemptJSON `json:"attempts"`
	TempDir    string        `json:"temp_dir,omitempty"`
	RunID      string        `json:"run_id,omitempty"`
	DurationMS int64         `json:"duration_ms"`
}

type buildJSONReport struct {
	Render     *renderJSON `json:"render,omitempty"`
	Export     *exportJSON `json:"export,omitempty"`
	DurationMS int64       `json:"duration_ms"`
}

func buildJSON(report pipeline.BuildReport) buildJSONReport {
	out := buildJSONReport{DurationMS: report.Duration.Milliseconds()}
	if r := report.Render; r != nil {
		out.Render = &renderJSON{
			Rendered:     nonNil(r.Rendered),
			Skipped:      nonNil(r.Skipped),
			CacheCleared: r.CacheCleared,
			DurationMS:   r.Duration.Milliseconds(),
		}
	}
	if e := report.Export; e != nil {
		out.Export = &exportJSON{
			Output:     e.Output,
			Slides:     e.Slides,
			Quality:    e.Search.Best.Quality,
			SizeBytes:  e.Search.Best.Bytes,
			TargetMin:  e.TargetMin,
			TargetMax:  e.TargetMax,
			InRange:    e.Search.InRange,
			StopReason: string(e.Search.Stop),
			Reencoded:  e.Search.Reencoded,
			Attempts:   attemptsJSON(e.Search.Attempts),
			TempDir:    e.TempDir,
			RunID:      e.RunID,
			DurationMS: e.Duration.Milliseconds(),
		}
	}
	return out
}

func attemptsJSON(attempts []sizesearch.Candidate) []attemptJSON {
	out := make([]attemptJSON, 0, len(attempts))
	for _, a := range attempts {
		out = append(out, attemptJSON{Quality: a.Quality, Bytes: a.Bytes})
	}
	return out
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
