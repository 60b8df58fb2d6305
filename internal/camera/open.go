package camera

import (
	"fmt"
	"time"

	"darkframes/internal/axis"
	"darkframes/internal/config"
)

// Open builds the image source described by cfg with one control per name.
func Open(cfg config.Camera, controls []string, delay time.Duration) (Source, error) {
	switch cfg.Kind {
	case "", "dummy":
		return NewDummy(DummyOptions{
			Controls: controls,
			Width:    cfg.Width,
			Height:   cfg.Height,
			Value:    cfg.Value,
			Dynamic:  cfg.Dynamic,
			Delay:    delay,
		})
	default:
		return nil, fmt.Errorf("%w: unsupported camera kind %q", axis.ErrConfiguration, cfg.Kind)
	}
}
