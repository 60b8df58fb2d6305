package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"darkframes/internal/axis"
)

//go:embed sample_config.toml
var sampleConfig string

// Library locates the library file and how new datasets are stored.
type Library struct {
	Path string `toml:"path"`
	Name string `toml:"name"`
	// Compression is "zstd" or "none".
	Compression string `toml:"compression"`
	// Format is "auto", "sqlite" or "bolt". Auto picks by file extension.
	Format string `toml:"format"`
}

// Capture contains the capture pipeline settings.
type Capture struct {
	AverageOver    int  `toml:"average_over"`
	PollIntervalMS int  `toml:"poll_interval_ms"`
	Overwrite      bool `toml:"overwrite"`
}

// Controllable is one axis of the capture grid.
type Controllable struct {
	Name      string  `toml:"name"`
	Min       int     `toml:"min"`
	Max       int     `toml:"max"`
	Step      int     `toml:"step"`
	Threshold int     `toml:"threshold"`
	Timeout   float64 `toml:"timeout"`
}

// Camera selects and configures the image source.
type Camera struct {
	Kind    string `toml:"kind"`
	Value   int    `toml:"value"`
	Width   int    `toml:"width"`
	Height  int    `toml:"height"`
	Dynamic bool   `toml:"dynamic"`
	DelayMS int    `toml:"delay_ms"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	File   string `toml:"file"`
}

// Config encapsulates all configuration values for darkframes.
//
// Configuration sections by subsystem:
//   - Library: library file location, name and storage options
//   - Capture: frames per grid point and control polling
//   - Controllables: the capture grid, one entry per control in key order
//   - Camera: which image source to drive
//   - Logging: log format, level and optional JSON log file
type Config struct {
	Library       Library        `toml:"library"`
	Capture       Capture        `toml:"capture"`
	Controllables []Controllable `toml:"controllables"`
	Camera        Camera         `toml:"camera"`
	Logging       Logging        `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load reads the configuration at path, or at the first existing default
// location when path is empty, then normalizes and validates it. It returns
// the resolved path and whether that file existed; a missing file yields
// the defaults.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()
	resolved, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}
	if exists {
		data, err := os.ReadFile(resolved)
		if err != nil {
			return nil, "", false, fmt.Errorf("read config: %w", err)
		}
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("%w: parse config %s: %w", axis.ErrConfiguration, resolved, err)
		}
	}
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolved, exists, nil
}

// resolveConfigPath picks the explicit path, else the user config, else
// ./darkframes.toml. When nothing exists the user config path is returned.
func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		switch _, err := os.Stat(expanded); {
		case err == nil:
			return expanded, true, nil
		case errors.Is(err, fs.ErrNotExist):
			return expanded, false, nil
		default:
			return "", false, fmt.Errorf("stat config: %w", err)
		}
	}

	candidates := []string{defaultConfigPath, projectConfigName}
	resolved := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		p, err := expandPath(candidate)
		if err != nil {
			return "", false, err
		}
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, true, nil
		}
		resolved = append(resolved, p)
	}
	return resolved[0], false, nil
}

// AxisSet builds the capture grid from the controllables, in file order.
func (c *Config) AxisSet() (axis.Set, error) {
	if len(c.Controllables) == 0 {
		return axis.Set{}, fmt.Errorf("%w: no [[controllables]] configured", axis.ErrConfiguration)
	}
	var set axis.Set
	for _, ctl := range c.Controllables {
		a, err := axis.New(ctl.Min, ctl.Max, ctl.Step, ctl.Threshold, ctl.Timeout)
		if err != nil {
			return axis.Set{}, fmt.Errorf("controllables.%s: %w", ctl.Name, err)
		}
		if err := set.Add(ctl.Name, a); err != nil {
			return axis.Set{}, fmt.Errorf("controllables: %w", err)
		}
	}
	return set, nil
}

// PollInterval returns the control polling period.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Capture.PollIntervalMS) * time.Millisecond
}

// CaptureDelay returns the simulated exposure duration of the dummy camera.
func (c *Config) CaptureDelay() time.Duration {
	return time.Duration(c.Camera.DelayMS) * time.Millisecond
}

// expandPath resolves a leading "~/" against the home directory and makes
// the result absolute.
func expandPath(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	if value == "~" || strings.HasPrefix(value, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		value = filepath.Join(home, strings.TrimPrefix(value[1:], "/"))
	}
	abs, err := filepath.Abs(value)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", value, err)
	}
	return abs, nil
}

// ExpandPath applies the config path rules to a user supplied path.
func ExpandPath(value string) (string, error) {
	return expandPath(value)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
