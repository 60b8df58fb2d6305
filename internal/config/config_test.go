package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pelletier/go-toml/v2"

	"darkframes/internal/axis"
	"darkframes/internal/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "darkframes.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("DARKFRAMES_LIBRARY", "")
	missing := filepath.Join(t.TempDir(), "absent.toml")

	cfg, resolved, exists, err := config.Load(missing)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved != missing || exists {
		t.Fatalf("unexpected resolution %q/%v", resolved, exists)
	}
	if cfg.Library.Path != filepath.Join(tempHome, "darkframes", "darkframes.db") {
		t.Fatalf("unexpected library path %q", cfg.Library.Path)
	}
	if _, err := cfg.AxisSet(); !errors.Is(err, axis.ErrConfiguration) {
		t.Fatalf("expected configuration error for empty grid, got %v", err)
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("DARKFRAMES_LIBRARY", "")
	path := writeConfig(t, `
[library]
path = "~/frames/bench.bolt"
name = " bench "
compression = "NONE"

[capture]
average_over = 3

[[controllables]]
name = "width"
min = 60
max = 100
step = 20
threshold = 0
timeout = 1.5

[[controllables]]
name = "height"
min = 10
max = 13
step = 1

[camera]
value = 7
width = 4
height = 2
dynamic = true

[logging]
level = "DEBUG"
format = "json"
file = "~/logs/df.log"
`)

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved != path || !exists {
		t.Fatalf("resolved %q exists %v", resolved, exists)
	}
	if cfg.Library.Path != filepath.Join(tempHome, "frames", "bench.bolt") {
		t.Fatalf("unexpected library path %q", cfg.Library.Path)
	}
	if cfg.Library.Name != "bench" || cfg.Library.Compression != "none" || cfg.Library.Format != "auto" {
		t.Fatalf("unexpected library section %+v", cfg.Library)
	}
	if cfg.Capture.AverageOver != 3 || cfg.Capture.PollIntervalMS != 20 {
		t.Fatalf("unexpected capture section %+v", cfg.Capture)
	}
	if cfg.Camera.Kind != "dummy" || !cfg.Camera.Dynamic || cfg.Camera.Width != 4 {
		t.Fatalf("unexpected camera section %+v", cfg.Camera)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.File != filepath.Join(tempHome, "logs", "df.log") {
		t.Fatalf("unexpected logging section %+v", cfg.Logging)
	}

	set, err := cfg.AxisSet()
	if err != nil {
		t.Fatalf("AxisSet failed: %v", err)
	}
	if diff := cmp.Diff([]string{"width", "height"}, set.Names()); diff != "" {
		t.Fatalf("controllable order mismatch (-want +got):\n%s", diff)
	}
	width, _ := set.Get("width")
	if diff := cmp.Diff([]int{60, 80, 100}, width.Values()); diff != "" {
		t.Fatalf("width values mismatch (-want +got):\n%s", diff)
	}
}

func TestLibraryEnvOverridesConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DARKFRAMES_LIBRARY", filepath.Join(dir, "env.db"))
	path := writeConfig(t, `
[library]
path = "/somewhere/else.db"

[[controllables]]
name = "gain"
min = 0
max = 10
step = 5
`)
	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Library.Path != filepath.Join(dir, "env.db") {
		t.Fatalf("expected library path from env, got %q", cfg.Library.Path)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, `
[capture]
average = 3
`)
	if _, _, _, err := config.Load(path); !errors.Is(err, axis.ErrConfiguration) {
		t.Fatalf("expected configuration error for unknown key, got %v", err)
	}
}

func TestCreateSample(t *testing.T) {
	t.Setenv("DARKFRAMES_LIBRARY", "")
	path := filepath.Join(t.TempDir(), "nested", "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "[[controllables]]") {
		t.Fatalf("sample config missing controllables: %s", contents)
	}

	var raw config.Config
	if err := toml.Unmarshal(contents, &raw); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}

	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config does not load: %v", err)
	}
	set, err := cfg.AxisSet()
	if err != nil {
		t.Fatalf("AxisSet failed: %v", err)
	}
	if set.Count() != 11*6 {
		t.Fatalf("sample grid holds %d points", set.Count())
	}
}

func validConfig() config.Config {
	cfg := config.Default()
	cfg.Library.Path = "/tmp/darkframes.db"
	cfg.Controllables = []config.Controllable{{Name: "gain", Min: 0, Max: 10, Step: 5}}
	return cfg
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"average_over", func(c *config.Config) { c.Capture.AverageOver = 0 }},
		{"compression", func(c *config.Config) { c.Library.Compression = "lz4" }},
		{"format", func(c *config.Config) { c.Library.Format = "hdf5" }},
		{"duplicate controllable", func(c *config.Config) {
			c.Controllables = append(c.Controllables, c.Controllables[0])
		}},
		{"inverted axis", func(c *config.Config) { c.Controllables[0].Min = 20 }},
		{"zero step", func(c *config.Config) { c.Controllables[0].Step = 0 }},
		{"camera kind", func(c *config.Config) { c.Camera.Kind = "asi" }},
		{"camera shape", func(c *config.Config) { c.Camera.Width = 0 }},
		{"log format", func(c *config.Config) { c.Logging.Format = "xml" }},
	}

	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, axis.ErrConfiguration) {
				t.Fatalf("expected configuration error, got %v", err)
			}
		})
	}
}
