package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"darkframes/internal/config"
	"darkframes/internal/fusion"
	"darkframes/internal/preflight"
)

func newFuseCommand(ctx *commandContext) *cobra.Command {
	var name string
	var target string

	cmd := &cobra.Command{
		Use:   "fuse <source>...",
		Short: "Merge libraries into a new one",
		Long: "Merge source libraries with the same controllables into a new library.\n" +
			"When several sources hold the same grid point, the first source listed wins.\n" +
			"The target defaults to library.path and must not exist.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			opts, err := ctx.storage()
			if err != nil {
				return err
			}

			out := strings.TrimSpace(target)
			if out == "" {
				out = cfg.Library.Path
			} else if out, err = config.ExpandPath(out); err != nil {
				return err
			}
			sources := make([]string, 0, len(args))
			for _, arg := range args {
				path, err := config.ExpandPath(strings.TrimSpace(arg))
				if err != nil {
					return err
				}
				sources = append(sources, path)
			}
			libName := strings.TrimSpace(name)
			if libName == "" {
				libName = cfg.Library.Name
			}

			if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
				return fmt.Errorf("create target directory: %w", err)
			}
			if err := preflight.Failed(preflight.ForFusion(out, sources)); err != nil {
				return err
			}

			report, err := fusion.Fuse(cmd.Context(), libName, out, sources, fusion.Options{
				Logger:      logger,
				Compression: opts.Compression,
				Format:      opts.Format,
			})
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			rows := make([][]string, 0, len(report.Sources))
			for _, src := range report.Sources {
				rows = append(rows, []string{
					src.Name,
					src.Path,
					formatCount(src.Images),
					formatCount(src.Added),
					formatCount(src.Skipped),
				})
			}
			fmt.Fprintln(w, renderTable(
				[]string{"Source", "Path", "Images", "Added", "Skipped"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight},
			))
			fmt.Fprintf(w, "Fused %s images into %s (%s duplicates skipped)\n",
				formatCount(report.Added), report.Target, formatCount(report.Skipped))
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Name of the fused library (defaults to library.name)")
	cmd.Flags().StringVarP(&target, "target", "t", "", "Target library file (defaults to library.path)")
	return cmd
}
