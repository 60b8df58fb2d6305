package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"darkframes/internal/library"
)

func newRemoveCommand(ctx *commandContext) *cobra.Command {
	var sets []string

	cmd := &cobra.Command{
		Use:     "rm",
		Aliases: []string{"remove"},
		Short:   "Remove one grid point from the library",
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseSets(sets)
			if err != nil {
				return err
			}
			return ctx.withEditor(cmd.Context(), func(lib *library.Library) error {
				key, err := lib.Key(values)
				if err != nil {
					return err
				}
				if _, err := lib.Remove(cmd.Context(), key); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s, %s images remain\n", key, formatCount(lib.Len()))
				return nil
			})
		},
	}

	cmd.Flags().StringArrayVar(&sets, "set", nil, "Control value as name=value (repeatable)")
	return cmd
}
