package stats

import (
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"darkframes/internal/frame"
	"darkframes/internal/gridtree"
	"darkframes/internal/library"
)

// Summary describes the pixels of one stored image.
type Summary struct {
	Key    gridtree.Key `json:"key"`
	Pixels int          `json:"pixels"`
	Mean   float64      `json:"mean"`
	StdDev float64      `json:"stddev"`
	Median float64      `json:"median"`
	Min    float64      `json:"min"`
	Max    float64      `json:"max"`
}

// Image summarizes img. An empty image yields a zero Summary.
func Image(img frame.Image) Summary {
	values := img.Values()
	if len(values) == 0 {
		return Summary{}
	}
	mean, std := stat.MeanStdDev(values, nil)
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	return Summary{
		Pixels: len(values),
		Mean:   mean,
		StdDev: std,
		Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
		Min:    floats.Min(values),
		Max:    floats.Max(values),
	}
}

// Library summarizes every image of lib in ascending key order.
func Library(lib *library.Library) []Summary {
	var out []Summary
	lib.Walk(func(key gridtree.Key, leaf gridtree.Leaf) bool {
		s := Image(leaf.Image)
		s.Key = key
		out = append(out, s)
		return true
	})
	return out
}
