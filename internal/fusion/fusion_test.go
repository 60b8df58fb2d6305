package fusion

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"darkframes/internal/axis"
	"darkframes/internal/container"
	"darkframes/internal/frame"
	"darkframes/internal/gridtree"
	"darkframes/internal/library"
	"darkframes/internal/retrieval"
)

// build creates a library over width x height filled with value.
func build(t *testing.T, dir, name string, widths, heights []int, value float64) string {
	t.Helper()
	set, err := axis.NewSet(
		axis.Entry{Name: "width", Axis: axis.MustNew(widths[0], widths[len(widths)-1], widths[1]-widths[0], 0, 2)},
		axis.Entry{Name: "height", Axis: axis.MustNew(heights[0], heights[len(heights)-1], 1, 0, 2)},
	)
	if err != nil {
		t.Fatalf("NewSet failed: %v", err)
	}
	path := filepath.Join(dir, name+".db")
	lib, err := library.Create(context.Background(), path, name, set, library.Options{})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	defer lib.Close()
	img, _ := frame.Filled(frame.Uint16, value, 3, 3)
	for _, w := range widths {
		for _, h := range heights {
			key := gridtree.Key{w, h}
			cfg := frame.Config{"width": int64(w), "height": int64(h), "value": int64(value)}
			if _, err := lib.Add(context.Background(), key, img, cfg, false); err != nil {
				t.Fatalf("Add failed: %v", err)
			}
		}
	}
	return path
}

func TestFuseFirstSourceWins(t *testing.T) {
	dir := t.TempDir()
	first := build(t, dir, "lib1", []int{60, 80, 100}, []int{10, 11, 12, 13}, 1)
	second := build(t, dir, "lib2", []int{20, 40, 60, 80, 100}, []int{13, 14, 15}, 2)
	target := filepath.Join(dir, "fused.db")

	report, err := Fuse(context.Background(), "fused", target, []string{first, second}, Options{})
	if err != nil {
		t.Fatalf("Fuse failed: %v", err)
	}
	// lib2 overlaps lib1 on height 13 for widths 60, 80, 100
	if report.Added != 12+12 || report.Skipped != 3 {
		t.Fatalf("unexpected report %+v", report)
	}
	if report.Sources[1].Skipped != 3 || report.Sources[0].Skipped != 0 {
		t.Fatalf("per-source counts %+v", report.Sources)
	}

	fused, err := library.Open(context.Background(), target, library.Options{})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer fused.Close()
	if fused.Name() != "fused" || fused.Len() != 24 {
		t.Fatalf("fused library %q holds %d images", fused.Name(), fused.Len())
	}

	img, cfg, err := fused.Get(gridtree.Key{100, 13}, retrieval.Exact)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if img.At(0) != 1 || cfg["value"] != 1 {
		t.Fatalf("overlapping key holds pixel %v config %v, want the first source", img.At(0), cfg)
	}
	img, _, _ = fused.Get(gridtree.Key{40, 15}, retrieval.Exact)
	if img.At(0) != 2 {
		t.Fatalf("second-source key holds pixel %v", img.At(0))
	}

	if len(fused.Axes()) != 2 {
		t.Fatalf("provenance holds %d axis sets, want 2", len(fused.Axes()))
	}
	var names []string
	for _, s := range fused.Sources() {
		names = append(names, s.Name)
	}
	if diff := cmp.Diff([]string{"lib1", "lib2"}, names); diff != "" {
		t.Fatalf("sources mismatch (-want +got):\n%s", diff)
	}
	if fused.Sources()[0].ID == "" {
		t.Fatal("source id not recorded")
	}
}

func TestFuseRejectsMismatchedControllables(t *testing.T) {
	dir := t.TempDir()
	first := build(t, dir, "lib1", []int{60, 80}, []int{10, 11}, 1)

	set, _ := axis.NewSet(
		axis.Entry{Name: "height", Axis: axis.MustNew(10, 11, 1, 0, 2)},
		axis.Entry{Name: "width", Axis: axis.MustNew(60, 80, 20, 0, 2)},
	)
	swapped := filepath.Join(dir, "swapped.db")
	lib, err := library.Create(context.Background(), swapped, "swapped", set, library.Options{})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	_ = lib.Close()

	target := filepath.Join(dir, "fused.db")
	_, err = Fuse(context.Background(), "fused", target, []string{first, swapped}, Options{})
	if !errors.Is(err, axis.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if _, statErr := os.Stat(target); !errors.Is(statErr, fs.ErrNotExist) {
		t.Fatal("target created despite failed precondition")
	}
}

func TestFusePreconditions(t *testing.T) {
	dir := t.TempDir()
	first := build(t, dir, "lib1", []int{60, 80}, []int{10, 11}, 1)

	if _, err := Fuse(context.Background(), "x", filepath.Join(dir, "missing", "out.db"), []string{first}, Options{}); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected missing directory error, got %v", err)
	}
	if _, err := Fuse(context.Background(), "x", first, []string{first}, Options{}); !errors.Is(err, fs.ErrExist) {
		t.Fatalf("expected existing target error, got %v", err)
	}
	if _, err := Fuse(context.Background(), "x", filepath.Join(dir, "out.db"), []string{filepath.Join(dir, "nope.db")}, Options{}); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected missing source error, got %v", err)
	}
	if _, err := Fuse(context.Background(), "x", filepath.Join(dir, "out.db"), nil, Options{}); !errors.Is(err, axis.ErrConfiguration) {
		t.Fatalf("expected configuration error for no sources, got %v", err)
	}
}

func TestFuseIntoBolt(t *testing.T) {
	dir := t.TempDir()
	first := build(t, dir, "lib1", []int{60, 80}, []int{10, 11}, 1)
	target := filepath.Join(dir, "fused.bolt")
	report, err := Fuse(context.Background(), "fused", target, []string{first}, Options{Compression: container.CompressionZstd})
	if err != nil {
		t.Fatalf("Fuse failed: %v", err)
	}
	if report.Added != 4 {
		t.Fatalf("Added = %d, want 4", report.Added)
	}
	fused, err := library.Open(context.Background(), target, library.Options{})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer fused.Close()
	if fused.Len() != 4 {
		t.Fatalf("Len() = %d", fused.Len())
	}
}
