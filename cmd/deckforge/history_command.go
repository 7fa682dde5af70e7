package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/spf13/cobra"

	"deckforge/internal/history"
)

type runJSON struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	DurationMS int64     `json:"duration_ms"`
	Output     string    `json:"output"`
	Slides     int       `json:"slides"`
	Quality    int       `json:"quality"`
	SizeBytes  int64     `json:"size_bytes"`
	TargetMin  int64     `json:"target_min_bytes"`
	TargetMax  int64     `json:"target_max_bytes"`
	InRange    bool      `json:"in_range"`
	Attempts   int       `json:"attempts"`
	StopReason string    `json:"stop_reason"`
	Reencoded  bool      `json:"reencoded"`
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent PDF exports",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if _, err := os.Stat(cfg.Paths.HistoryDB); errors.Is(err, fs.ErrNotExist) {
				if jsonOutput {
					return writeJSON(cmd, []runJSON{})
				}
				fmt.Fprintln(out, "No exports recorded yet")
				return nil
			}

			store, err := history.Open(cfg.Paths.HistoryDB)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if jsonOutput {
				rows := make([]runJSON, 0, len(runs))
				for _, r := range runs {
					rows = append(rows, runJSON{
						ID:         r.ID,
						StartedAt:  r.StartedAt,
						DurationMS: r.Duration.Milliseconds(),
						Output:     r.Output,
						Slides:     r.SlideCount,
						Quality:    r.Quality,
						SizeBytes:  r.SizeBytes,
						TargetMin:  r.TargetMin,
						TargetMax:  r.TargetMax,
						InRange:    r.InRange,
						Attempts:   r.Attempts,
						StopReason: r.StopReason,
						Reencoded:  r.Reencoded,
					})
				}
				return writeJSON(cmd, rows)
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No exports recorded yet")
				return nil
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Started", "Slides", "Quality", "Size", "Target", "In range", "Attempts", "Stop"},
				historyRows(runs),
				[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print runs as JSON")
	return cmd
}

func historyRows(runs []history.Run) [][]string {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			fmt.Sprintf("%d", r.SlideCount),
			fmt.Sprintf("%d", r.Quality),
			formatBytes(r.SizeBytes),
			fmt.Sprintf("%s to %s", formatBytes(r.TargetMin), formatBytes(r.TargetMax)),
			yesNo(r.InRange),
			fmt.Sprintf("%d", r.Attempts),
			displayLabel(r.StopReason),
		})
	}
	return rows
}
