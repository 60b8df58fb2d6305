package retrieval

import (
	"errors"
	"fmt"
	"math"

	"darkframes/internal/frame"
	"darkframes/internal/gridtree"
)

// Epsilon keeps inverse-distance weights finite.
const Epsilon = 1e-9

// Candidate is one leaf contributing to an interpolated image.
type Candidate struct {
	Key    gridtree.Key
	Leaf   gridtree.Leaf
	Weight float64
}

// Normalize maps each component of v into [0,1] using the observed bounds.
// A constant axis (max == min) contributes 0.
func Normalize(v, minKey, maxKey gridtree.Key) []float64 {
	out := make([]float64, len(v))
	for i := range v {
		span := float64(maxKey[i] - minKey[i])
		if span == 0 {
			continue
		}
		out[i] = float64(v[i]-minKey[i]) / span
	}
	return out
}

// Distance is the Euclidean distance between two normalized points.
func Distance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Weights returns one weight per candidate, proportional to
// 1/(distance+Epsilon) and summing to 1. Candidates at distance zero share
// the whole weight.
func Weights(target gridtree.Key, candidates []gridtree.Key, minKey, maxKey gridtree.Key) []float64 {
	if len(candidates) == 0 {
		return nil
	}
	nt := Normalize(target, minKey, maxKey)
	distances := make([]float64, len(candidates))
	exact := 0
	for i, c := range candidates {
		distances[i] = Distance(nt, Normalize(c, minKey, maxKey))
		if distances[i] == 0 {
			exact++
		}
	}

	weights := make([]float64, len(candidates))
	if exact > 0 {
		for i, d := range distances {
			if d == 0 {
				weights[i] = 1 / float64(exact)
			}
		}
		return weights
	}

	var total float64
	for i, d := range distances {
		weights[i] = 1 / (d + Epsilon)
		total += weights[i]
	}
	for i := range weights {
		weights[i] /= total
	}
	return weights
}

// Interpolate blends the entries into one image using inverse-distance
// weights. The returned candidates carry the weights that were applied.
func Interpolate(target gridtree.Key, entries []gridtree.Entry, minKey, maxKey gridtree.Key) (frame.Image, []Candidate, error) {
	if len(entries) == 0 {
		return frame.Image{}, nil, errors.New("interpolate: no candidates")
	}
	keys := make([]gridtree.Key, len(entries))
	images := make([]frame.Image, len(entries))
	for i, e := range entries {
		keys[i] = e.Key
		images[i] = e.Leaf.Image
	}
	weights := Weights(target, keys, minKey, maxKey)
	img, err := frame.WeightedAverage(images, weights)
	if err != nil {
		return frame.Image{}, nil, fmt.Errorf("interpolate %v: %w", target, err)
	}
	candidates := make([]Candidate, len(entries))
	for i, e := range entries {
		candidates[i] = Candidate{Key: e.Key, Leaf: e.Leaf, Weight: weights[i]}
	}
	return img, candidates, nil
}
