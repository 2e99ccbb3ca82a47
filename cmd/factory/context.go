package main

import (
	"os"
	"strings"
	"sync"

	"github.com/therealutkarshpriyadarshi/shortforge/internal/app"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/config"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/logging"
)

type commandContext struct {
	configFlag  *string
	verboseFlag *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	app *app.App
}

func newCommandContext(configFlag *string, verboseFlag *bool) *commandContext {
	return &commandContext{
		configFlag:  configFlag,
		verboseFlag: verboseFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		if path == "" {
			path = os.Getenv("CONFIG_PATH")
		}
		c.config, c.configErr = config.Load(path)
	})
	return c.config, c.configErr
}

func (c *commandContext) logger() *logging.Logger {
	if c.verboseFlag == nil || !*c.verboseFlag {
		return logging.Nop()
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return logging.Nop()
	}
	return logging.NewWithWriter(os.Stderr, logging.Config{Level: cfg.Logging.Level, Format: "console"})
}

// ensureApp builds the full pipeline once per invocation
func (c *commandContext) ensureApp() (*app.App, error) {
	if c.app != nil {
		return c.app, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	a, err := app.New(cfg, c.logger())
	if err != nil {
		return nil, err
	}
	c.app = a
	return a, nil
}

func (c *commandContext) close() error {
	if c.app == nil {
		return nil
	}
	err := c.app.Close()
	c.app = nil
	return err
}
