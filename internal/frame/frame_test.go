package frame

import (
	"errors"
	"math"
	"testing"
)

func TestMeanKeepsDTypeAndValue(t *testing.T) {
	maxValue := float64(math.MaxUint16)
	for _, value := range []float64{maxValue, math.Floor(maxValue / 2)} {
		samples := make([]Image, 50)
		for i := range samples {
			img, err := Filled(Uint16, value, 100, 100)
			if err != nil {
				t.Fatalf("Filled failed: %v", err)
			}
			samples[i] = img
		}

		mean, err := Mean(samples)
		if err != nil {
			t.Fatalf("Mean failed: %v", err)
		}
		if mean.DType != Uint16 {
			t.Fatalf("dtype = %s, want uint16", mean.DType)
		}
		if mean.Shape[0] != 100 || mean.Shape[1] != 100 {
			t.Fatalf("shape = %v", mean.Shape)
		}
		if got := mean.At(10*100 + 10); got != value {
			t.Fatalf("pixel = %v, want %v", got, value)
		}
	}
}

func TestWeightedAverage(t *testing.T) {
	a, _ := FromValues(Uint8, []int{2, 2}, []float64{0, 10, 20, 30})
	b, _ := FromValues(Uint8, []int{2, 2}, []float64{100, 110, 120, 130})

	got, err := WeightedAverage([]Image{a, b}, []float64{0.75, 0.25})
	if err != nil {
		t.Fatalf("WeightedAverage failed: %v", err)
	}
	want := []float64{25, 35, 45, 55}
	for i, v := range got.Values() {
		if v != want[i] {
			t.Fatalf("pixel %d = %v, want %v", i, v, want[i])
		}
	}
}

func TestWeightedAverageRejectsMismatch(t *testing.T) {
	a, _ := New(Uint16, 2, 2)
	b, _ := New(Uint16, 2, 3)
	c, _ := New(Uint8, 2, 2)

	if _, err := WeightedAverage([]Image{a, b}, []float64{0.5, 0.5}); !errors.Is(err, ErrIncompatibleImage) {
		t.Fatalf("expected shape mismatch error, got %v", err)
	}
	if _, err := WeightedAverage([]Image{a, c}, []float64{0.5, 0.5}); !errors.Is(err, ErrIncompatibleImage) {
		t.Fatalf("expected dtype mismatch error, got %v", err)
	}
	if _, err := WeightedAverage([]Image{a}, []float64{0.5, 0.5}); err == nil {
		t.Fatal("expected weight count error")
	}
}

func TestFromValuesClampsAndRounds(t *testing.T) {
	img, err := FromValues(Uint8, []int{4}, []float64{-3, 2.5, 254.6, 400})
	if err != nil {
		t.Fatalf("FromValues failed: %v", err)
	}
	want := []float64{0, 3, 255, 255}
	for i, v := range img.Values() {
		if v != want[i] {
			t.Fatalf("value %d = %v, want %v", i, v, want[i])
		}
	}

	signed, err := FromValues(Int16, []int{2}, []float64{-40000, -12.4})
	if err != nil {
		t.Fatalf("FromValues failed: %v", err)
	}
	if got := signed.Values(); got[0] != math.MinInt16 || got[1] != -12 {
		t.Fatalf("unexpected signed values %v", got)
	}
}

func TestLayoutCheck(t *testing.T) {
	img, _ := New(Float32, 3, 4)
	layout := img.Layout()
	if err := layout.Check(img); err != nil {
		t.Fatalf("Check failed on own layout: %v", err)
	}
	other, _ := New(Float32, 4, 3)
	if err := layout.Check(other); !errors.Is(err, ErrIncompatibleImage) {
		t.Fatalf("expected ErrIncompatibleImage, got %v", err)
	}
}

func TestParseDType(t *testing.T) {
	for d, name := range dtypeNames {
		parsed, err := ParseDType(name)
		if err != nil {
			t.Fatalf("ParseDType(%q) failed: %v", name, err)
		}
		if parsed != d {
			t.Fatalf("ParseDType(%q) = %s", name, parsed)
		}
	}
	if _, err := ParseDType("complex64"); err == nil {
		t.Fatal("expected error for unsupported dtype")
	}
}

func TestValidateDetectsShortPayload(t *testing.T) {
	img := Image{DType: Uint16, Shape: []int{2, 2}, Data: make([]byte, 6)}
	if err := img.Validate(); !errors.Is(err, ErrIncompatibleImage) {
		t.Fatalf("expected ErrIncompatibleImage, got %v", err)
	}
}
