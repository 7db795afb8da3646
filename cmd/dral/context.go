package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"dral/internal/config"
	"dral/internal/logging"
	"dral/internal/release"
	"dral/internal/services"
	"dral/internal/services/ffmpeg"
)

// newAudioClient builds the audio tool client for a command. Tests replace it
// with an in-process fake.
var newAudioClient = func(cfg *config.Config) ffmpeg.Client {
	return ffmpeg.NewCLI(ffmpeg.WithBinary(cfg.FFmpegBinary()))
}

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
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
			c.configErr = err
			return
		}
		if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
			cfg.Logging.Level = strings.TrimSpace(*c.logLevelFlag)
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
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

// session returns the loaded config and logger for a command.
func (c *commandContext) session() (*config.Config, *slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logger, nil
}

// overridePath replaces *target with the expanded flag value when the flag
// was given.
func overridePath(cmd *cobra.Command, flag, value string, target *string) error {
	if !cmd.Flags().Changed(flag) {
		return nil
	}
	expanded, err := config.ExpandPath(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("resolve --%s: %w", flag, err)
	}
	*target = expanded
	return nil
}

// stopEarly prints guard failures and treats them as success. Missing or
// existing outputs are expected outcomes of rerunning a step.
func stopEarly(out io.Writer, err error) error {
	if release.IsGuard(err) || errors.Is(err, services.ErrNotFound) {
		fmt.Fprintf(out, "Nothing to do: %v\n", err)
		return nil
	}
	return err
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
