package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"darkframes/internal/library"
	"darkframes/internal/stats"
)

func newStatsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show per-image pixel statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSnapshot(cmd.Context(), func(lib *library.Library) error {
				summaries := stats.Library(lib)
				if asJSON {
					return writeJSON(cmd, summaries)
				}
				out := cmd.OutOrStdout()
				if len(summaries) == 0 {
					fmt.Fprintln(out, "Library is empty")
					return nil
				}
				rows := make([][]string, 0, len(summaries))
				for _, s := range summaries {
					rows = append(rows, []string{
						s.Key.String(),
						formatFloat(s.Mean),
						formatFloat(s.StdDev),
						formatFloat(s.Median),
						formatFloat(s.Min),
						formatFloat(s.Max),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Key", "Mean", "StdDev", "Median", "Min", "Max"},
					rows,
					rightAligned(1, 5),
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
