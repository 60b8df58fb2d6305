package testsupport

import (
	"context"
	"testing"

	"darkframes/internal/camera"
	"darkframes/internal/capture"
	"darkframes/internal/config"
	"darkframes/internal/container"
	"darkframes/internal/library"
)

// BuildLibrary captures the full grid of cfg with the dummy camera into
// cfg.Library.Path and returns that path. The library is closed on return.
func BuildLibrary(t testing.TB, cfg *config.Config) string {
	t.Helper()
	ctx := context.Background()

	set, err := cfg.AxisSet()
	if err != nil {
		t.Fatalf("AxisSet: %v", err)
	}
	src, err := camera.Open(cfg.Camera, set.Names(), cfg.CaptureDelay())
	if err != nil {
		t.Fatalf("camera.Open: %v", err)
	}
	compression, err := container.ParseCompression(cfg.Library.Compression)
	if err != nil {
		t.Fatalf("ParseCompression: %v", err)
	}
	format, err := container.ParseFormat(cfg.Library.Format)
	if err != nil {
		t.Fatalf("ParseFormat: %v", err)
	}

	lib, err := library.Create(ctx, cfg.Library.Path, cfg.Library.Name, set, library.Options{
		Compression: compression,
		Format:      format,
	})
	if err != nil {
		t.Fatalf("library.Create: %v", err)
	}
	defer lib.Close()

	pipeline := &capture.Pipeline{
		Source:       src,
		Axes:         set,
		AverageOver:  cfg.Capture.AverageOver,
		Overwrite:    cfg.Capture.Overwrite,
		PollInterval: cfg.PollInterval(),
	}
	if _, err := pipeline.Run(ctx, lib); err != nil {
		t.Fatalf("capture: %v", err)
	}
	return cfg.Library.Path
}

// OpenLibrary opens path as a snapshot and closes it when the test ends.
func OpenLibrary(t testing.TB, path string) *library.Library {
	t.Helper()
	lib, err := library.Open(context.Background(), path, library.Options{})
	if err != nil {
		t.Fatalf("library.Open: %v", err)
	}
	t.Cleanup(func() { _ = lib.Close() })
	return lib
}
