package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"darkframes/internal/gridtree"
	"darkframes/internal/library"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List the stored grid points",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSnapshot(cmd.Context(), func(lib *library.Library) error {
				names := lib.Controllables()
				params := lib.Params()
				if asJSON {
					rows := make([]map[string]int, 0, len(params))
					for _, key := range params {
						rows = append(rows, namedKey(names, key))
					}
					return writeJSON(cmd, rows)
				}
				out := cmd.OutOrStdout()
				if len(params) == 0 {
					fmt.Fprintln(out, "Library is empty")
					return nil
				}
				rows := make([][]string, 0, len(params))
				for _, key := range params {
					row := make([]string, len(key))
					for i, v := range key {
						row[i] = strconv.Itoa(v)
					}
					rows = append(rows, row)
				}
				fmt.Fprintln(out, renderTable(names, rows, rightAligned(0, len(names))))
				fmt.Fprintf(out, "%s images\n", formatCount(len(params)))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func namedKey(names []string, key gridtree.Key) map[string]int {
	out := make(map[string]int, len(names))
	for i, name := range names {
		out[name] = key[i]
	}
	return out
}
