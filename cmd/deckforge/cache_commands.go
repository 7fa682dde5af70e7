package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"deckforge/internal/pipeline"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or reset the render cache",
	}
	cacheCmd.AddCommand(newCacheStatusCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))
	return cacheCmd
}

type unitStatusJSON struct {
	ID          string `json:"id"`
	Output      string `json:"output"`
	OutputBytes int64  `json:"output_bytes"`
	Cached      bool   `json:"cached"`
	NeedsRender bool   `json:"needs_render"`
	Reason      string `json:"reason"`
}

func newCacheStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show which slides would be re-rendered incrementally",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, cleanup, err := ctx.newPipeline(false)
			if err != nil {
				return err
			}
			defer cleanup()

			statuses, err := p.Status()
			if err != nil {
				return err
			}
			if jsonOutput {
				rows := make([]unitStatusJSON, 0, len(statuses))
				for _, s := range statuses {
					rows = append(rows, unitStatusJSON{
						ID:          s.ID,
						Output:      s.Output,
						OutputBytes: s.OutputBytes,
						Cached:      s.Cached,
						NeedsRender: s.NeedsRender,
						Reason:      string(s.Reason),
					})
				}
				return writeJSON(cmd, rows)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"#", "Unit", "Output", "Cached", "Status"},
				statusRows(statuses),
				[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft, alignLeft},
			))
			stale := 0
			for _, s := range statuses {
				if s.NeedsRender {
					stale++
				}
			}
			fmt.Fprintf(out, "%d of %d slides need rendering (cache: %s)\n", stale, len(statuses), p.Cache().Path())
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print unit status as JSON")
	return cmd
}

func statusRows(statuses []pipeline.UnitStatus) [][]string {
	rows := make([][]string, 0, len(statuses))
	for i, s := range statuses {
		size := "-"
		if s.OutputBytes > 0 {
			size = formatBytes(s.OutputBytes)
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			s.ID,
			size,
			yesNo(s.Cached),
			displayLabel(string(s.Reason)),
		})
	}
	return rows
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Forget every recorded render hash",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, cleanup, err := ctx.newPipeline(false)
			if err != nil {
				return err
			}
			defer cleanup()

			var cleared int
			err = withLock(p, func() error {
				cleared = p.Cache().Count()
				return p.Cache().InvalidateAll()
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d cache entries from %s\n", cleared, p.Cache().Path())
			return nil
		},
	}
}
