package main

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"mediasync/internal/infra"
	"mediasync/internal/pipeline"
)

type commandContext struct {
	envFileFlag *string
	jsonFlag    *bool

	configOnce sync.Once
	config     *config
	configErr  error

	syncOnce sync.Once
	sync     *pipeline.Sync
	syncErr  error
}

type config struct {
	*infra.Config
	logger infra.Logger
}

func newCommandContext(envFileFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{envFileFlag: envFileFlag, jsonFlag: jsonFlag}
}

func (c *commandContext) JSONMode() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

func (c *commandContext) ensureConfig() (*config, error) {
	c.configOnce.Do(func() {
		if path := c.envFile(); path != "" {
			if err := godotenv.Load(path); err != nil {
				c.configErr = fmt.Errorf("load env file %s: %w", path, err)
				return
			}
		} else {
			_ = godotenv.Load()
		}
		cfg, err := infra.LoadConfig()
		if err != nil {
			c.configErr = err
			return
		}
		// stdout carries command output
		logger := infra.NewLogger(cfg.AppEnv).Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
		c.config = &config{Config: cfg, logger: logger}
	})
	return c.config, c.configErr
}

func (c *commandContext) envFile() string {
	if c.envFileFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.envFileFlag)
}

func (c *commandContext) ensureSync() (*pipeline.Sync, error) {
	c.syncOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.syncErr = err
			return
		}
		c.sync, c.syncErr = pipeline.NewSync(cfg.Config, &cfg.logger)
	})
	return c.sync, c.syncErr
}
