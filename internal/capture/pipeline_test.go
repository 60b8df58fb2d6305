package capture

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"darkframes/internal/axis"
	"darkframes/internal/camera"
	"darkframes/internal/gridtree"
	"darkframes/internal/library"
	"darkframes/internal/retrieval"
)

type recorder struct {
	captured []gridtree.Key
	added    int
	reaching int
}

func (r *recorder) Reaching(string, int, int, time.Duration) { r.reaching++ }

func (r *recorder) Captured(_, _ int, key gridtree.Key, added bool) {
	r.captured = append(r.captured, key)
	if added {
		r.added++
	}
}

func widthHeight(t *testing.T) axis.Set {
	t.Helper()
	set, err := axis.NewSet(
		axis.Entry{Name: "width", Axis: axis.MustNew(60, 100, 20, 0, 2)},
		axis.Entry{Name: "height", Axis: axis.MustNew(10, 13, 1, 0, 2)},
	)
	if err != nil {
		t.Fatalf("NewSet failed: %v", err)
	}
	return set
}

func newLibrary(t *testing.T, set axis.Set) *library.Library {
	t.Helper()
	lib, err := library.Create(context.Background(), filepath.Join(t.TempDir(), "darks.db"), "testlib", set, library.Options{})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	t.Cleanup(func() { _ = lib.Close() })
	return lib
}

func newDummy(t *testing.T, opts camera.DummyOptions) *camera.Dummy {
	t.Helper()
	if opts.Width == 0 {
		opts.Width, opts.Height = 6, 4
	}
	d, err := camera.NewDummy(opts)
	if err != nil {
		t.Fatalf("NewDummy failed: %v", err)
	}
	return d
}

func TestRunCapturesEveryPoint(t *testing.T) {
	set := widthHeight(t)
	lib := newLibrary(t, set)
	cam := newDummy(t, camera.DummyOptions{Controls: set.Names(), Value: 3})
	progress := &recorder{}
	p := &Pipeline{Source: cam, Axes: set, AverageOver: 3, Progress: progress}

	report, err := p.Run(context.Background(), lib)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Points != 12 || report.Added != 12 || report.Skipped != 0 {
		t.Fatalf("unexpected report %+v", report)
	}
	if cam.Captures() != 36 {
		t.Fatalf("Captures() = %d, want 36", cam.Captures())
	}
	if len(progress.captured) != 12 || !progress.captured[1].Equal(gridtree.Key{60, 11}) {
		t.Fatalf("progress order %v", progress.captured)
	}
	for _, w := range []int{60, 80, 100} {
		for _, h := range []int{10, 11, 12, 13} {
			if !lib.Contains(gridtree.Key{w, h}) {
				t.Fatalf("missing %d,%d", w, h)
			}
		}
	}

	_, cfg, err := lib.Get(gridtree.Key{61, 11}, retrieval.Closest)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if cfg["width"] != 60 || cfg["height"] != 11 || cfg["value"] != 3 {
		t.Fatalf("config = %v", cfg)
	}
}

func TestRunResumesWithoutRecapturing(t *testing.T) {
	set := widthHeight(t)
	lib := newLibrary(t, set)
	cam := newDummy(t, camera.DummyOptions{Controls: set.Names(), Value: 3})
	p := &Pipeline{Source: cam, Axes: set, AverageOver: 2}
	if _, err := p.Run(context.Background(), lib); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	before := cam.Captures()

	report, err := p.Run(context.Background(), lib)
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}
	if report.Skipped != 12 || report.Added != 0 || cam.Captures() != before {
		t.Fatalf("second run recaptured: %+v, captures %d -> %d", report, before, cam.Captures())
	}

	p.Overwrite = true
	report, err = p.Run(context.Background(), lib)
	if err != nil {
		t.Fatalf("overwrite Run failed: %v", err)
	}
	if report.Added != 12 {
		t.Fatalf("overwrite run added %d, want 12", report.Added)
	}
}

func TestRunStoresReachedValueOnTimeout(t *testing.T) {
	set, _ := axis.NewSet(axis.Entry{Name: "temperature", Axis: axis.MustNew(1000, 1000, 1, 1, 0.02)})
	lib := newLibrary(t, set)
	cam := newDummy(t, camera.DummyOptions{Controls: set.Names(), Dynamic: true})
	progress := &recorder{}
	p := &Pipeline{Source: cam, Axes: set, AverageOver: 1, PollInterval: time.Millisecond, Progress: progress}

	report, err := p.Run(context.Background(), lib)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.TimedOut != 1 || report.Added != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	if lib.Contains(gridtree.Key{1000}) {
		t.Fatal("frame stored under the unreached target")
	}
	if lib.Len() != 1 || progress.reaching == 0 {
		t.Fatalf("Len() = %d, reaching callbacks %d", lib.Len(), progress.reaching)
	}
}

func TestRunValidates(t *testing.T) {
	set := widthHeight(t)
	lib := newLibrary(t, set)
	cam := newDummy(t, camera.DummyOptions{Controls: []string{"width"}})

	p := &Pipeline{Source: cam, Axes: set, AverageOver: 1}
	if _, err := p.Run(context.Background(), lib); !errors.Is(err, axis.ErrConfiguration) || !errors.Is(err, camera.ErrUnknownControl) {
		t.Fatalf("expected unknown control configuration error, got %v", err)
	}
	p.AverageOver = 0
	if _, err := p.Run(context.Background(), lib); !errors.Is(err, axis.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	set := widthHeight(t)
	lib := newLibrary(t, set)
	cam := newDummy(t, camera.DummyOptions{Controls: set.Names()})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := &Pipeline{Source: cam, Axes: set, AverageOver: 1}
	if _, err := p.Run(ctx, lib); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if lib.Len() != 0 {
		t.Fatalf("Len() = %d after cancelled run", lib.Len())
	}
}

func TestEstimate(t *testing.T) {
	set := widthHeight(t)
	cam := newDummy(t, camera.DummyOptions{Controls: set.Names(), Delay: 10 * time.Millisecond})
	d, frames := Estimate(cam, set, 5)
	if frames != 60 || d != 600*time.Millisecond {
		t.Fatalf("Estimate = %s, %d", d, frames)
	}
}
