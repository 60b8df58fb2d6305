package frame

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Mean averages k samples of the same layout with equal weights.
func Mean(images []Image) (Image, error) {
	if len(images) == 0 {
		return Image{}, errors.New("mean of zero images")
	}
	weights := make([]float64, len(images))
	for i := range weights {
		weights[i] = 1 / float64(len(images))
	}
	return WeightedAverage(images, weights)
}

// WeightedAverage computes sum(w_i * image_i) pixel-wise and casts the
// result back to the element type of the inputs. Every image must share
// dtype and shape.
func WeightedAverage(images []Image, weights []float64) (Image, error) {
	if len(images) == 0 {
		return Image{}, errors.New("weighted average of zero images")
	}
	if len(images) != len(weights) {
		return Image{}, fmt.Errorf("weighted average: %d images but %d weights", len(images), len(weights))
	}
	layout := images[0].Layout()
	if err := images[0].Validate(); err != nil {
		return Image{}, err
	}
	acc := make([]float64, images[0].Len())
	for i, img := range images {
		if err := layout.Check(img); err != nil {
			return Image{}, fmt.Errorf("image %d: %w", i, err)
		}
		if err := img.Validate(); err != nil {
			return Image{}, fmt.Errorf("image %d: %w", i, err)
		}
		floats.AddScaled(acc, weights[i], img.Values())
	}
	return FromValues(layout.DType, layout.Shape, acc)
}
