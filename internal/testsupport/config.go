package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"darkframes/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config whose library lives in a unique temp directory.
// The grid is width 60..100 step 20 by height 10..13 on a 6x4 dummy camera
// with pixel value 1 and no averaging.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Library.Path = filepath.Join(base, "darkframes.db")
	cfgVal.Library.Name = "testlib"
	cfgVal.Capture.AverageOver = 1
	cfgVal.Capture.PollIntervalMS = 1
	cfgVal.Controllables = []config.Controllable{
		{Name: "width", Min: 60, Max: 100, Step: 20, Timeout: 1},
		{Name: "height", Min: 10, Max: 13, Step: 1, Timeout: 1},
	}
	cfgVal.Camera.Width = 6
	cfgVal.Camera.Height = 4
	cfgVal.Camera.Value = 1

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return builder.cfg
}

// WithLibraryFile places the library at name inside the config's temp directory.
func WithLibraryFile(name string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Library.Path = filepath.Join(b.baseDir, name)
	}
}

// WithControllables replaces the capture grid.
func WithControllables(controllables ...config.Controllable) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Controllables = controllables
	}
}

// WithPixelValue sets the value of every pixel the dummy camera produces.
func WithPixelValue(value int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Camera.Value = value
	}
}

// WithLibraryName sets the name written into a newly created library.
func WithLibraryName(name string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Library.Name = name
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Library.Path)
}

// WriteConfig stores cfg as TOML next to its library and returns the path.
func WriteConfig(t testing.TB, cfg *config.Config) string {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	path := filepath.Join(BaseDir(cfg), "darkframes.toml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
