package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"darkframes/internal/axis"
	"darkframes/internal/camera"
	"darkframes/internal/frame"
	"darkframes/internal/gridtree"
	"darkframes/internal/library"
	"darkframes/internal/logging"
)

// Progress receives capture feedback.
type Progress interface {
	// Reaching reports a control that has not converged yet.
	Reaching(control string, current, target int, elapsed time.Duration)
	// Captured reports a finished grid point. added is false for skipped
	// points.
	Captured(done, total int, key gridtree.Key, added bool)
}

// Pipeline captures one library.
type Pipeline struct {
	Source       camera.Source
	Axes         axis.Set
	AverageOver  int
	Overwrite    bool
	PollInterval time.Duration
	Progress     Progress
	Logger       *slog.Logger
}

// Report summarizes a run.
type Report struct {
	Points   int
	Added    int
	Skipped  int
	TimedOut int
	Elapsed  time.Duration
}

func (p *Pipeline) validate(lib *library.Library) error {
	if p.Source == nil {
		return errors.New("capture: no camera source")
	}
	if p.AverageOver < 1 {
		return fmt.Errorf("%w: average_over must be at least 1, got %d", axis.ErrConfiguration, p.AverageOver)
	}
	if p.Axes.Len() == 0 {
		return fmt.Errorf("%w: no controllables", axis.ErrConfiguration)
	}
	if !slices.Equal(p.Axes.Names(), lib.Controllables()) {
		return fmt.Errorf("%w: capture controllables %v differ from library %v",
			axis.ErrConfiguration, p.Axes.Names(), lib.Controllables())
	}
	if err := p.Source.Controls().Check(p.Axes.Names()); err != nil {
		return fmt.Errorf("%w: %w", axis.ErrConfiguration, err)
	}
	return nil
}

// Run captures every grid point into lib, which must be writable.
// Cancelling ctx stops between frames; points already stored remain.
func (p *Pipeline) Run(ctx context.Context, lib *library.Library) (Report, error) {
	if err := p.validate(lib); err != nil {
		return Report{}, err
	}
	logger := logging.NewComponentLogger(p.Logger, "capture")
	reacher := camera.NewReacher(p.Source.Controls(), p.PollInterval)
	names := p.Axes.Names()
	total := p.Axes.Count()
	start := time.Now()

	logger.Info("capture started",
		logging.String(logging.FieldEventType, "capture_start"),
		logging.String(logging.FieldLibrary, lib.Name()),
		logging.Int("points", total),
		logging.Int("average_over", p.AverageOver),
	)

	var report Report
	for point := range p.Axes.Product() {
		if err := ctx.Err(); err != nil {
			report.Elapsed = time.Since(start)
			return report, err
		}
		report.Points++
		added, err := p.capturePoint(ctx, lib, reacher, logger, names, point, &report)
		if err != nil {
			report.Elapsed = time.Since(start)
			return report, err
		}
		if added {
			report.Added++
		} else {
			report.Skipped++
		}
		if p.Progress != nil {
			p.Progress.Captured(report.Points, total, gridtree.Key(point), added)
		}
	}

	report.Elapsed = time.Since(start)
	logger.Info("capture finished",
		logging.String(logging.FieldEventType, "capture_complete"),
		logging.Int("added", report.Added),
		logging.Int("skipped", report.Skipped),
		logging.Int("timed_out", report.TimedOut),
		logging.Duration("elapsed", report.Elapsed),
	)
	return report, nil
}

func (p *Pipeline) capturePoint(
	ctx context.Context,
	lib *library.Library,
	reacher *camera.Reacher,
	logger *slog.Logger,
	names []string,
	point []int,
	report *Report,
) (bool, error) {
	desired := gridtree.Key(point)
	if !p.Overwrite && lib.Contains(desired) {
		logger.Debug("point already stored",
			logging.String(logging.FieldEventType, "capture_skip"),
			logging.String(logging.FieldKey, desired.String()),
		)
		return false, nil
	}

	for i, name := range names {
		a := p.Axes.At(i).Axis
		var progress camera.ProgressFunc
		if p.Progress != nil {
			progress = func(current, target int, elapsed time.Duration) {
				p.Progress.Reaching(name, current, target, elapsed)
			}
		}
		err := reacher.Reach(ctx, name, point[i], a.Threshold, a.TimeoutDuration(), progress)
		switch {
		case err == nil:
		case errors.Is(err, camera.ErrTimedOut):
			report.TimedOut++
			logging.WarnWithContext(logger, "control did not converge",
				"capture_reach_timeout",
				logging.String(logging.FieldControl, name),
				logging.Int("target", point[i]),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "increase the controllable timeout or threshold"),
				logging.String(logging.FieldImpact, "frames are stored under the reached value"),
			)
		default:
			return false, fmt.Errorf("reach %s=%d: %w", name, point[i], err)
		}
	}

	reached, err := p.Source.Controls().Read(names)
	if err != nil {
		return false, err
	}
	applied := gridtree.Key(reached)
	if !applied.Equal(desired) && !p.Overwrite && lib.Contains(applied) {
		logger.Debug("reached point already stored",
			logging.String(logging.FieldEventType, "capture_skip"),
			logging.String(logging.FieldKey, desired.String()),
			logging.String("reached", applied.String()),
		)
		return false, nil
	}

	img, err := p.average(ctx)
	if err != nil {
		return false, err
	}
	cfg, err := p.Source.Configuration()
	if err != nil {
		return false, fmt.Errorf("read camera configuration: %w", err)
	}
	added, err := lib.Add(ctx, applied, img, cfg, p.Overwrite)
	if err != nil {
		return false, err
	}
	logger.Debug("point captured",
		logging.String(logging.FieldEventType, "capture_point"),
		logging.String(logging.FieldKey, applied.String()),
		logging.Bool("added", added),
	)
	return added, nil
}

func (p *Pipeline) average(ctx context.Context) (frame.Image, error) {
	samples := make([]frame.Image, 0, p.AverageOver)
	for range p.AverageOver {
		img, err := p.Source.Capture(ctx)
		if err != nil {
			return frame.Image{}, fmt.Errorf("capture frame: %w", err)
		}
		samples = append(samples, img)
	}
	return frame.Mean(samples)
}

// Estimate returns the expected capture duration of a grid and the number
// of frames it takes.
func Estimate(source camera.Source, set axis.Set, averageOver int) (time.Duration, int) {
	names := set.Names()
	var total time.Duration
	points := 0
	for point := range set.Product() {
		values := make(map[string]int, len(names))
		for i, name := range names {
			values[name] = point[i]
		}
		total += source.EstimateCapture(values) * time.Duration(averageOver)
		points++
	}
	return total, points * averageOver
}
