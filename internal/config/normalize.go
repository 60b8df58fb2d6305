package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizeLibrary(); err != nil {
		return err
	}
	c.normalizeCapture()
	c.normalizeControllables()
	c.normalizeCamera()
	return c.normalizeLogging()
}

func (c *Config) normalizeLibrary() error {
	if value, ok := os.LookupEnv(libraryEnv); ok && strings.TrimSpace(value) != "" {
		c.Library.Path = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.Library.Path) == "" {
		c.Library.Path = defaultLibraryPath
	}
	var err error
	if c.Library.Path, err = expandPath(strings.TrimSpace(c.Library.Path)); err != nil {
		return fmt.Errorf("library.path: %w", err)
	}
	c.Library.Name = strings.TrimSpace(c.Library.Name)
	c.Library.Compression = strings.ToLower(strings.TrimSpace(c.Library.Compression))
	if c.Library.Compression == "" {
		c.Library.Compression = defaultCompression
	}
	c.Library.Format = strings.ToLower(strings.TrimSpace(c.Library.Format))
	if c.Library.Format == "" {
		c.Library.Format = defaultFormat
	}
	return nil
}

func (c *Config) normalizeCapture() {
	if c.Capture.PollIntervalMS <= 0 {
		c.Capture.PollIntervalMS = defaultPollIntervalMS
	}
}

func (c *Config) normalizeControllables() {
	for i := range c.Controllables {
		c.Controllables[i].Name = strings.TrimSpace(c.Controllables[i].Name)
	}
}

func (c *Config) normalizeCamera() {
	c.Camera.Kind = strings.ToLower(strings.TrimSpace(c.Camera.Kind))
	if c.Camera.Kind == "" {
		c.Camera.Kind = defaultCameraKind
	}
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if file := strings.TrimSpace(c.Logging.File); file != "" {
		expanded, err := expandPath(file)
		if err != nil {
			return fmt.Errorf("logging.file: %w", err)
		}
		c.Logging.File = expanded
	}
	return nil
}
