package fusion

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"darkframes/internal/axis"
	"darkframes/internal/container"
	"darkframes/internal/frame"
	"darkframes/internal/gridtree"
	"darkframes/internal/library"
	"darkframes/internal/logging"
)

// Options configures the target library.
type Options struct {
	Logger      *slog.Logger
	Compression container.Compression
	Format      container.Format
}

// SourceReport counts what one source contributed.
type SourceReport struct {
	Path    string
	Name    string
	ID      string
	Images  int
	Added   int
	Skipped int
}

// Report summarizes a fusion.
type Report struct {
	Target  string
	Sources []SourceReport
	Added   int
	Skipped int
}

// Fuse creates the library target named name from sources.
func Fuse(ctx context.Context, name, target string, sources []string, opts Options) (Report, error) {
	logger := logging.NewComponentLogger(opts.Logger, "fusion")
	if len(sources) == 0 {
		return Report{}, fmt.Errorf("%w: no source libraries", axis.ErrConfiguration)
	}
	if err := checkTarget(target); err != nil {
		return Report{}, err
	}

	libs := make([]*library.Library, 0, len(sources))
	defer func() {
		for _, lib := range libs {
			_ = lib.Close()
		}
	}()
	for _, path := range sources {
		lib, err := library.Open(ctx, path, library.Options{Logger: opts.Logger})
		if err != nil {
			return Report{}, fmt.Errorf("fuse: %w", err)
		}
		libs = append(libs, lib)
	}

	sets, err := checkSources(libs)
	if err != nil {
		return Report{}, err
	}

	out, err := library.Create(ctx, target, name, sets[0], library.Options{
		Logger:      opts.Logger,
		Compression: opts.Compression,
		Format:      opts.Format,
	})
	if err != nil {
		removeTarget(target)
		return Report{}, fmt.Errorf("fuse: %w", err)
	}

	report, err := copyAll(ctx, out, libs, sets, logger)
	report.Target = target
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		removeTarget(target)
		return report, fmt.Errorf("fuse into %s: %w", target, err)
	}
	logger.Info("libraries fused",
		logging.String(logging.FieldEventType, "fusion_complete"),
		logging.String(logging.FieldLibrary, name),
		logging.String("target", target),
		logging.Int("sources", len(libs)),
		logging.Int("added", report.Added),
		logging.Int("skipped", report.Skipped),
	)
	return report, nil
}

// removeTarget deletes a partially written target and its side files.
func removeTarget(target string) {
	for _, path := range []string{target, target + "-wal", target + "-shm", target + ".lock"} {
		_ = os.Remove(path)
	}
}

func checkTarget(target string) error {
	dir := filepath.Dir(target)
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("fuse: target directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("fuse: target directory %s is not a directory", dir)
	}
	if _, err := os.Stat(target); err == nil {
		return fmt.Errorf("fuse: target %s: %w", target, fs.ErrExist)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("fuse: target %s: %w", target, err)
	}
	return nil
}

// checkSources verifies that every source shares the controllables and
// image layout of the first, and returns the provenance axis sets.
func checkSources(libs []*library.Library) ([]axis.Set, error) {
	var (
		sets      []axis.Set
		layout    frame.Layout
		hasLayout bool
	)
	names := libs[0].Controllables()
	for _, lib := range libs {
		if !slices.Equal(names, lib.Controllables()) {
			return nil, fmt.Errorf("%w: can not fuse %s and %s: controllables %v and %v differ",
				axis.ErrConfiguration, libs[0].Path(), lib.Path(), names, lib.Controllables())
		}
		if l, ok := lib.Layout(); ok {
			if !hasLayout {
				layout, hasLayout = l, true
			} else if l.DType != layout.DType || !slices.Equal(l.Shape, layout.Shape) {
				return nil, fmt.Errorf("%w: %s stores %s images, expected %s",
					frame.ErrIncompatibleImage, lib.Path(), l, layout)
			}
		}
		sets = append(sets, lib.Axes()...)
	}
	return sets, nil
}

func copyAll(ctx context.Context, out *library.Library, libs []*library.Library, sets []axis.Set, logger *slog.Logger) (Report, error) {
	var report Report
	provenance := make([]container.Source, 0, len(libs))
	for _, lib := range libs {
		src := SourceReport{Path: lib.Path(), Name: lib.Name(), ID: lib.ID()}
		var copyErr error
		lib.Walk(func(key gridtree.Key, leaf gridtree.Leaf) bool {
			src.Images++
			added, err := out.Add(ctx, key, leaf.Image, leaf.Config, false)
			if err != nil {
				copyErr = fmt.Errorf("copy %s from %s: %w", key, lib.Path(), err)
				return false
			}
			if added {
				src.Added++
			} else {
				src.Skipped++
				logger.Debug("key already provided by an earlier source",
					logging.String(logging.FieldEventType, "fusion_skip"),
					logging.String(logging.FieldKey, key.String()),
					logging.String("source", lib.Path()),
				)
			}
			return true
		})
		report.Sources = append(report.Sources, src)
		report.Added += src.Added
		report.Skipped += src.Skipped
		if copyErr != nil {
			return report, copyErr
		}
		logger.Info("source merged",
			logging.String(logging.FieldEventType, "fusion_source"),
			logging.String("source", lib.Path()),
			logging.Int("added", src.Added),
			logging.Int("skipped", src.Skipped),
		)
		provenance = append(provenance, container.Source{Name: src.Name, ID: src.ID, Path: src.Path, Adds: src.Added})
	}

	if err := out.SetAxes(ctx, sets); err != nil {
		return report, err
	}
	if err := out.SetSources(ctx, provenance); err != nil {
		return report, err
	}
	return report, nil
}
