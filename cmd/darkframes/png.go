package main

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"

	"darkframes/internal/frame"
)

// writePNG stores a two-dimensional image as 16-bit grayscale. Values are
// clamped to the uint16 range; other shapes are rejected.
func writePNG(path string, img frame.Image) error {
	if len(img.Shape) != 2 {
		return fmt.Errorf("%w: png export needs a 2D image, got shape %v", frame.ErrIncompatibleImage, img.Shape)
	}
	height, width := img.Shape[0], img.Shape[1]
	gray := image.NewGray16(image.Rect(0, 0, width, height))
	for y := range height {
		for x := range width {
			v := math.Round(img.At(y*width + x))
			v = math.Max(0, math.Min(math.MaxUint16, v))
			gray.SetGray16(x, y, color.Gray16{Y: uint16(v)})
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := png.Encode(f, gray); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode png: %w", err)
	}
	return f.Close()
}
