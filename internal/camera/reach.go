package camera

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrTimedOut is returned when a control does not converge within its
// timeout.
var ErrTimedOut = errors.New("control did not converge")

// DefaultPollInterval is the wait between two reads while reaching a value.
const DefaultPollInterval = 20 * time.Millisecond

// ProgressFunc receives the current value, the target and the time spent
// on every poll that has not converged yet.
type ProgressFunc func(current, target int, elapsed time.Duration)

// Reacher drives controls onto target values. It remembers the last value
// set on each control and does not set it again.
type Reacher struct {
	controls *Registry
	interval time.Duration

	mu   sync.Mutex
	last map[string]int
}

// NewReacher returns a Reacher polling at interval, or DefaultPollInterval
// when interval is not positive.
func NewReacher(controls *Registry, interval time.Duration) *Reacher {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Reacher{controls: controls, interval: interval, last: make(map[string]int)}
}

// Reach sets name to target and blocks until the control reads within
// threshold of target. A zero threshold returns right after setting.
// ErrTimedOut is returned once timeout has elapsed without convergence.
func (r *Reacher) Reach(ctx context.Context, name string, target, threshold int, timeout time.Duration, progress ProgressFunc) error {
	r.mu.Lock()
	previous, seen := r.last[name]
	r.mu.Unlock()

	if !seen || previous != target {
		if err := r.controls.Set(name, target); err != nil {
			return err
		}
		r.mu.Lock()
		r.last[name] = target
		r.mu.Unlock()
	}
	if threshold == 0 {
		return nil
	}

	start := time.Now()
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		current, err := r.controls.Get(name)
		if err != nil {
			return err
		}
		if abs(current-target) <= threshold {
			return nil
		}
		elapsed := time.Since(start)
		if elapsed >= timeout {
			return fmt.Errorf("%w: %s at %d, target %d ±%d after %s", ErrTimedOut, name, current, target, threshold, elapsed.Round(time.Millisecond))
		}
		if progress != nil {
			progress(current, target, elapsed)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Forget clears the last-set cache so the next Reach sets every control.
func (r *Reacher) Forget() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.last)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
