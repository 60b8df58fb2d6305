package config

const (
	defaultConfigPath     = "~/.config/darkframes/config.toml"
	projectConfigName     = "darkframes.toml"
	defaultLibraryPath    = "~/darkframes/darkframes.db"
	defaultCompression    = "zstd"
	defaultFormat         = "auto"
	defaultAverageOver    = 5
	defaultPollIntervalMS = 20
	defaultCameraKind     = "dummy"
	defaultCameraWidth    = 64
	defaultCameraHeight   = 48
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"

	libraryEnv = "DARKFRAMES_LIBRARY"
)

// Default returns a Config populated with repository defaults. The grid is
// empty; a usable config names at least one controllable.
func Default() Config {
	return Config{
		Library: Library{
			Path:        defaultLibraryPath,
			Compression: defaultCompression,
			Format:      defaultFormat,
		},
		Capture: Capture{
			AverageOver:    defaultAverageOver,
			PollIntervalMS: defaultPollIntervalMS,
		},
		Camera: Camera{
			Kind:   defaultCameraKind,
			Width:  defaultCameraWidth,
			Height: defaultCameraHeight,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
