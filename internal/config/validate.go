package config

import (
	"errors"
	"fmt"
	"slices"

	"darkframes/internal/axis"
)

// Validate ensures the configuration is usable. Every failure wraps
// axis.ErrConfiguration. An empty grid is valid here; commands that capture
// call AxisSet, which rejects it.
func (c *Config) Validate() error {
	if err := c.validateLibrary(); err != nil {
		return fmt.Errorf("%w: %w", axis.ErrConfiguration, err)
	}
	if err := c.validateCapture(); err != nil {
		return fmt.Errorf("%w: %w", axis.ErrConfiguration, err)
	}
	if len(c.Controllables) > 0 {
		if _, err := c.AxisSet(); err != nil {
			return err
		}
	}
	if err := c.validateCamera(); err != nil {
		return fmt.Errorf("%w: %w", axis.ErrConfiguration, err)
	}
	if err := c.validateLogging(); err != nil {
		return fmt.Errorf("%w: %w", axis.ErrConfiguration, err)
	}
	return nil
}

func (c *Config) validateLibrary() error {
	if c.Library.Path == "" {
		return errors.New("library.path must be set")
	}
	if !slices.Contains([]string{"zstd", "none"}, c.Library.Compression) {
		return fmt.Errorf("library.compression: unsupported value %q (want zstd or none)", c.Library.Compression)
	}
	if !slices.Contains([]string{"auto", "sqlite", "bolt", "bbolt"}, c.Library.Format) {
		return fmt.Errorf("library.format: unsupported value %q (want auto, sqlite or bolt)", c.Library.Format)
	}
	return nil
}

func (c *Config) validateCapture() error {
	if c.Capture.AverageOver < 1 {
		return fmt.Errorf("capture.average_over must be at least 1, got %d", c.Capture.AverageOver)
	}
	return nil
}

func (c *Config) validateCamera() error {
	switch c.Camera.Kind {
	case "dummy":
	default:
		return fmt.Errorf("camera.kind: unsupported value %q", c.Camera.Kind)
	}
	if c.Camera.Width < 1 || c.Camera.Height < 1 {
		return fmt.Errorf("camera.width and camera.height must be positive, got %dx%d", c.Camera.Width, c.Camera.Height)
	}
	if c.Camera.Value < 0 || c.Camera.Value > 65535 {
		return fmt.Errorf("camera.value must fit a 16 bit pixel, got %d", c.Camera.Value)
	}
	if c.Camera.DelayMS < 0 {
		return errors.New("camera.delay_ms must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
