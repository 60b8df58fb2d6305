package logging

import "testing"

func TestProgressSamplerDefaults(t *testing.T) {
	if s := NewProgressSampler(-1); s.step != 5 || s.bucket != -1 {
		t.Fatalf("unexpected sampler %+v", s)
	}
	var s *ProgressSampler
	if !s.ShouldLog(50, "capture") {
		t.Fatal("nil sampler should log everything")
	}
	s.Reset()
}

func TestProgressSamplerBuckets(t *testing.T) {
	s := NewProgressSampler(25)
	steps := []struct {
		percent float64
		stage   string
		want    bool
	}{
		{0, "capture", true},
		{20, "capture", false},
		{25, "capture", true},
		{49, "capture", false},
		{50, "capture", true},
		{100, "capture", true},
		{105, "capture", false},
		{-1, "capture", false},
		{-1, " gain=10 ", true},
		{-1, "gain=10", false},
		{10, "gain=10", true},
	}
	for i, step := range steps {
		if got := s.ShouldLog(step.percent, step.stage); got != step.want {
			t.Fatalf("step %d: ShouldLog(%v, %q) = %v, want %v", i, step.percent, step.stage, got, step.want)
		}
	}
}

func TestProgressSamplerReset(t *testing.T) {
	s := NewProgressSampler(10)
	s.ShouldLog(50, "capture")
	if s.ShouldLog(55, "capture") {
		t.Fatal("same bucket should be suppressed")
	}
	s.Reset()
	if !s.ShouldLog(55, "capture") {
		t.Fatal("should log again after reset")
	}
}
