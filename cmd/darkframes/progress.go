package main

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/schollz/progressbar/v3"

	"darkframes/internal/gridtree"
	"darkframes/internal/logging"
)

// captureProgress draws a progress bar on terminals and falls back to
// sampled log lines otherwise.
type captureProgress struct {
	bar     *progressbar.ProgressBar
	logger  *slog.Logger
	points  *logging.ProgressSampler
	reaches *logging.ProgressSampler
}

func newCaptureProgress(w io.Writer, total int, logger *slog.Logger) *captureProgress {
	p := &captureProgress{
		logger:  logging.NewComponentLogger(logger, "create"),
		points:  logging.NewProgressSampler(10),
		reaches: logging.NewProgressSampler(0),
	}
	if shouldColorize(w) {
		p.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(w),
			progressbar.OptionSetDescription("capturing"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
	}
	return p
}

func (p *captureProgress) Reaching(control string, current, target int, elapsed time.Duration) {
	if p.bar != nil {
		p.bar.Describe(fmt.Sprintf("%s %d -> %d (%s)", control, current, target, elapsed.Round(time.Second)))
		return
	}
	if p.reaches.ShouldLog(-1, control+"="+strconv.Itoa(target)) {
		p.logger.Info("waiting for control",
			logging.Event("reach_wait"),
			logging.String(logging.FieldControl, control),
			logging.Int("current", current),
			logging.Int("target", target),
		)
	}
}

func (p *captureProgress) Captured(done, total int, key gridtree.Key, added bool) {
	if p.bar != nil {
		p.bar.Describe(key.String())
		_ = p.bar.Set(done)
		return
	}
	percent := 100.0
	if total > 0 {
		percent = float64(done) * 100 / float64(total)
	}
	if p.points.ShouldLog(percent, "capture") {
		p.logger.Info("capture progress",
			logging.Event("capture_progress"),
			logging.Float64(logging.FieldProgressPercent, percent),
			logging.Key(key),
			logging.Int("done", done),
			logging.Int("total", total),
		)
	}
}

func (p *captureProgress) finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}
