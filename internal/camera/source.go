package camera

import (
	"context"
	"time"

	"darkframes/internal/frame"
)

// Source is a camera the capture pipeline can drive.
type Source interface {
	// Capture takes one raw frame.
	Capture(ctx context.Context) (frame.Image, error)
	// Controls returns the registry of settable controls.
	Controls() *Registry
	// Configuration snapshots the full instrument state stored with each
	// frame.
	Configuration() (frame.Config, error)
	// EstimateCapture estimates how long one frame takes at the given
	// control values.
	EstimateCapture(values map[string]int) time.Duration
}
