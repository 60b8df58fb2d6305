package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"darkframes/internal/camera"
	"darkframes/internal/capture"
	"darkframes/internal/frame"
	"darkframes/internal/library"
	"darkframes/internal/preflight"
)

func newCreateCommand(ctx *commandContext) *cobra.Command {
	var name string
	var overwrite bool
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Capture the configured grid into the library",
		Long: "Capture one averaged darkframe per grid point of the configured controllables.\n" +
			"An existing library is resumed: points already stored are skipped unless --overwrite is set.",
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
			set, err := cfg.AxisSet()
			if err != nil {
				return err
			}
			src, err := camera.Open(cfg.Camera, set.Names(), cfg.CaptureDelay())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if err := os.MkdirAll(filepath.Dir(cfg.Library.Path), 0o755); err != nil {
				return fmt.Errorf("create library directory: %w", err)
			}
			frameBytes := uint64(cfg.Camera.Width) * uint64(cfg.Camera.Height) * uint64(frame.Uint16.Size())
			checks := preflight.ForCapture(cfg, frameBytes, set.Count())
			if err := preflight.Failed(checks); err != nil {
				return err
			}
			estimate, frames := capture.Estimate(src, set, cfg.Capture.AverageOver)
			fmt.Fprintf(out, "Capturing %s grid points (%s frames) into %s, estimated %s\n",
				formatCount(set.Count()), formatCount(frames), cfg.Library.Path, estimate.Round(time.Second))
			if dryRun {
				return nil
			}

			libName := strings.TrimSpace(name)
			if libName == "" {
				libName = cfg.Library.Name
			}
			lib, err := library.Create(cmd.Context(), cfg.Library.Path, libName, set, opts)
			if err != nil {
				return err
			}
			defer lib.Close()

			progress := newCaptureProgress(cmd.ErrOrStderr(), set.Count(), logger)
			pipeline := &capture.Pipeline{
				Source:       src,
				Axes:         set,
				AverageOver:  cfg.Capture.AverageOver,
				Overwrite:    overwrite || cfg.Capture.Overwrite,
				PollInterval: cfg.PollInterval(),
				Progress:     progress,
				Logger:       logger,
			}
			report, runErr := pipeline.Run(cmd.Context(), lib)
			progress.finish()

			fmt.Fprintf(out, "Added %s, skipped %s, %s controls timed out (%s)\n",
				formatCount(report.Added), formatCount(report.Skipped), formatCount(report.TimedOut),
				report.Elapsed.Round(time.Millisecond))
			if runErr != nil {
				return runErr
			}
			return lib.Close()
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Library name (defaults to library.name)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Recapture grid points already in the library")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Run preflight checks and print the estimate without capturing")
	return cmd
}
