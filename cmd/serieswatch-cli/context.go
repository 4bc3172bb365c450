package main

import (
	"strings"
	"sync"

	"github.com/vrsandeep/serieswatch/internal/config"
	"github.com/vrsandeep/serieswatch/internal/core"
)

// commandContext opens the application once, on first use by a command.
type commandContext struct {
	configFlag *string

	appOnce sync.Once
	app     *core.App
	appErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureApp() (*core.App, error) {
	c.appOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, err := config.LoadFile(path)
		if err != nil {
			c.appErr = err
			return
		}
		c.app, c.appErr = core.NewWithConfig(cfg)
	})
	return c.app, c.appErr
}

func (c *commandContext) close() {
	if c.app != nil {
		c.app.Close()
	}
}
