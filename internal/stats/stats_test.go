package stats

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"darkframes/internal/frame"
	"darkframes/internal/gridtree"
	"darkframes/internal/testsupport"
)

func TestImage(t *testing.T) {
	img, err := frame.FromValues(frame.Uint16, []int{2, 2}, []float64{1, 2, 3, 10})
	if err != nil {
		t.Fatalf("FromValues failed: %v", err)
	}
	got := Image(img)
	if got.Pixels != 4 || got.Mean != 4 || got.Min != 1 || got.Max != 10 || got.Median != 2 {
		t.Fatalf("unexpected summary %+v", got)
	}
	// sample standard deviation of {1,2,3,10}
	if math.Abs(got.StdDev-math.Sqrt(50.0/3)) > 1e-9 {
		t.Fatalf("StdDev = %v", got.StdDev)
	}
	if empty := Image(frame.Image{}); empty.Pixels != 0 || empty.Mean != 0 {
		t.Fatal("empty image should yield a zero summary")
	}
}

func TestLibrary(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithPixelValue(7))
	lib := testsupport.OpenLibrary(t, testsupport.BuildLibrary(t, cfg))

	summaries := Library(lib)
	if len(summaries) != 12 {
		t.Fatalf("got %d summaries, want 12", len(summaries))
	}
	if diff := cmp.Diff(gridtree.Key{60, 10}, summaries[0].Key); diff != "" {
		t.Fatalf("first key mismatch (-want +got):\n%s", diff)
	}
	for _, s := range summaries {
		if s.Mean != 7 || s.StdDev != 0 || s.Pixels != 24 {
			t.Fatalf("unexpected summary %+v", s)
		}
	}
}
