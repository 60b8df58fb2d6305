package logging

import "strings"

// ProgressSampler thins progress logging to one line per percentage step,
// plus one whenever the stage changes.
type ProgressSampler struct {
	step   float64
	stage  string
	bucket int
}

// NewProgressSampler returns a sampler emitting every step percent. A
// non-positive step means 5.
func NewProgressSampler(step float64) *ProgressSampler {
	if step <= 0 {
		step = 5
	}
	return &ProgressSampler{step: step, bucket: -1}
}

// ShouldLog reports whether this progress update deserves a log line. A
// negative percent means unknown and only stage changes count. A nil
// sampler logs everything.
func (s *ProgressSampler) ShouldLog(percent float64, stage string) bool {
	if s == nil {
		return true
	}
	changed := false
	if stage = strings.TrimSpace(stage); stage != "" && stage != s.stage {
		s.stage, s.bucket, changed = stage, -1, true
	}
	if percent < 0 {
		return changed
	}
	if b := int(min(percent, 100) / s.step); b > s.bucket {
		s.bucket = b
		return true
	}
	return changed
}

// Reset forgets the last stage and bucket.
func (s *ProgressSampler) Reset() {
	if s != nil {
		s.stage, s.bucket = "", -1
	}
}
