package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"darkframes/internal/config"
	"darkframes/internal/container"
	"darkframes/internal/library"
	"darkframes/internal/logging"
)

type commandContext struct {
	configFlag  *string
	libraryFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag, libraryFlag *string) *commandContext {
	return &commandContext{
		configFlag:  configFlag,
		libraryFlag: libraryFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = fmt.Errorf("load config: %w", err)
			return
		}
		if c.libraryFlag != nil && strings.TrimSpace(*c.libraryFlag) != "" {
			expanded, err := config.ExpandPath(strings.TrimSpace(*c.libraryFlag))
			if err != nil {
				c.configErr = fmt.Errorf("resolve library path: %w", err)
				return
			}
			cfg.Library.Path = expanded
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

// storage returns the library options derived from the [library] section.
func (c *commandContext) storage() (library.Options, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return library.Options{}, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return library.Options{}, err
	}
	compression, err := container.ParseCompression(cfg.Library.Compression)
	if err != nil {
		return library.Options{}, err
	}
	format, err := container.ParseFormat(cfg.Library.Format)
	if err != nil {
		return library.Options{}, err
	}
	return library.Options{Logger: logger, Compression: compression, Format: format}, nil
}

// withSnapshot opens the configured library read-only for the duration of fn.
func (c *commandContext) withSnapshot(ctx context.Context, fn func(*library.Library) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	opts, err := c.storage()
	if err != nil {
		return err
	}
	lib, err := library.Open(ctx, cfg.Library.Path, opts)
	if err != nil {
		return err
	}
	defer lib.Close()
	return fn(lib)
}

// withEditor opens the configured library for writing for the duration of fn.
func (c *commandContext) withEditor(ctx context.Context, fn func(*library.Library) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	opts, err := c.storage()
	if err != nil {
		return err
	}
	lib, err := library.OpenEdit(ctx, cfg.Library.Path, opts)
	if err != nil {
		return err
	}
	if err := fn(lib); err != nil {
		_ = lib.Close()
		return err
	}
	return lib.Close()
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
