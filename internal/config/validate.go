package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateDownloader(); err != nil {
		return err
	}
	if err := c.validateTranscriber(); err != nil {
		return err
	}
	if err := c.validateInstagram(); err != nil {
		return err
	}
	return c.validateLogging()
}

// IsSupportedModel reports whether name is an accepted transcription tier.
func IsSupportedModel(name string) bool {
	return slices.Contains(SupportedModels, strings.ToLower(strings.TrimSpace(name)))
}

func (c *Config) validatePipeline() error {
	if !IsSupportedModel(c.Pipeline.DefaultModel) {
		return fmt.Errorf("pipeline.default_model must be one of %s", strings.Join(SupportedModels, ", "))
	}
	if c.Pipeline.MaxComments < 0 {
		return errors.New("pipeline.max_comments must be positive")
	}
	if c.Pipeline.MaxConcurrentRuns < 0 {
		return errors.New("pipeline.max_concurrent_runs must be positive")
	}
	if c.Pipeline.FrameBuffer < 16 {
		return errors.New("pipeline.frame_buffer must be at least 16")
	}
	if c.Pipeline.RunRetentionMinutes < 0 {
		return errors.New("pipeline.run_retention_minutes must not be negative")
	}
	return nil
}

func (c *Config) validateDownloader() error {
	if strings.TrimSpace(c.Downloader.Binary) == "" {
		return errors.New("downloader.binary must be set")
	}
	return nil
}

func (c *Config) validateTranscriber() error {
	if c.Transcriber.TimeoutSeconds < 0 {
		return errors.New("transcriber.timeout_seconds must not be negative")
	}
	return nil
}

func (c *Config) validateInstagram() error {
	if !strings.HasPrefix(c.Instagram.BaseURL, "http://") && !strings.HasPrefix(c.Instagram.BaseURL, "https://") {
		return fmt.Errorf("instagram.base_url must be an http(s) url, got %q", c.Instagram.BaseURL)
	}
	if c.Instagram.PageSize > 100 {
		return errors.New("instagram.page_size must be at most 100")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "auto", "console", "json":
	default:
		return fmt.Errorf("logging.format must be auto, console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	return nil
}
