package main

import (
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"reelscope/internal/config"
	"reelscope/internal/logging"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

// serverLogger logs to stderr and the log file, like any long-running process.
func (c *commandContext) serverLogger() (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return logging.NewFromConfig(cfg)
}

// fileLogger keeps the terminal free for rendered progress and sends logs to
// the log file only. With verbose set the records are mirrored to stderr.
func (c *commandContext) fileLogger(verbose bool) (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger := logging.NewNop()
	if strings.TrimSpace(cfg.Paths.LogDir) != "" {
		path := filepath.Join(cfg.Paths.LogDir, "reelscope.log")
		logger, err = logging.New(logging.Options{
			Level:            cfg.Logging.Level,
			Format:           "json",
			OutputPaths:      []string{path},
			ErrorOutputPaths: []string{path},
		})
		if err != nil {
			return nil, err
		}
	}
	if !verbose {
		return logger, nil
	}
	mirror, err := logging.New(logging.Options{
		Level:            "debug",
		Format:           "console",
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	})
	if err != nil {
		return nil, err
	}
	return logging.TeeLogger(logger, mirror.Handler()), nil
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
