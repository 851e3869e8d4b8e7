package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizePipeline()
	if err := c.normalizeDownloader(); err != nil {
		return err
	}
	c.normalizeTranscriber()
	if err := c.normalizeInstagram(); err != nil {
		return err
	}
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DownloadDir, err = expandPath(orDefault(c.Paths.DownloadDir, defaultDownloadDir)); err != nil {
		return fmt.Errorf("paths.download_dir: %w", err)
	}
	if c.Paths.StateDir, err = expandPath(orDefault(c.Paths.StateDir, defaultStateDir)); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(orDefault(c.Paths.LogDir, defaultLogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("REELSCOPE_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizePipeline() {
	c.Pipeline.DefaultModel = strings.ToLower(strings.TrimSpace(c.Pipeline.DefaultModel))
	if c.Pipeline.DefaultModel == "" {
		c.Pipeline.DefaultModel = defaultModel
	}
	if c.Pipeline.MaxComments == 0 {
		c.Pipeline.MaxComments = defaultMaxComments
	}
	if c.Pipeline.MaxConcurrentRuns == 0 {
		c.Pipeline.MaxConcurrentRuns = defaultMaxConcurrentRuns
	}
	if c.Pipeline.FrameBuffer == 0 {
		c.Pipeline.FrameBuffer = defaultFrameBuffer
	}
}

func (c *Config) normalizeDownloader() error {
	c.Downloader.Binary = orDefault(c.Downloader.Binary, defaultYTDLPBinary)
	c.Downloader.Format = orDefault(c.Downloader.Format, defaultFormat)
	c.Downloader.UserAgent = orDefault(c.Downloader.UserAgent, defaultUserAgent)
	if c.Downloader.SocketTimeout <= 0 {
		c.Downloader.SocketTimeout = defaultSocketTimeout
	}
	if c.Downloader.Retries < 0 {
		c.Downloader.Retries = 0
	}
	if strings.TrimSpace(c.Downloader.CookiesFile) != "" {
		expanded, err := expandPath(strings.TrimSpace(c.Downloader.CookiesFile))
		if err != nil {
			return fmt.Errorf("downloader.cookies_file: %w", err)
		}
		c.Downloader.CookiesFile = expanded
	}
	return nil
}

func (c *Config) normalizeTranscriber() {
	c.Transcriber.Command = orDefault(c.Transcriber.Command, defaultTranscriberCommand)
	c.Transcriber.FFmpegBinary = orDefault(c.Transcriber.FFmpegBinary, defaultFFmpegBinary)
	c.Transcriber.FFprobeBinary = orDefault(c.Transcriber.FFprobeBinary, defaultFFprobeBinary)
	c.Transcriber.ComputeType = orDefault(c.Transcriber.ComputeType, defaultComputeType)
	if c.Transcriber.BatchSize <= 0 {
		c.Transcriber.BatchSize = defaultBatchSize
	}
	if c.Transcriber.TimeoutSeconds == 0 {
		c.Transcriber.TimeoutSeconds = defaultTranscribeTimeout
	}
}

func (c *Config) normalizeInstagram() error {
	c.Instagram.BaseURL = strings.TrimRight(orDefault(c.Instagram.BaseURL, defaultInstagramBaseURL), "/")
	c.Instagram.AppID = orDefault(c.Instagram.AppID, defaultInstagramAppID)
	c.Instagram.UserAgent = orDefault(c.Instagram.UserAgent, defaultUserAgent)
	if c.Instagram.RequestTimeout <= 0 {
		c.Instagram.RequestTimeout = defaultInstagramTimeout
	}
	if c.Instagram.PageSize <= 0 {
		c.Instagram.PageSize = defaultInstagramPageSize
	}
	envFallback(&c.Instagram.Username, "INSTAGRAM_USERNAME")
	envFallback(&c.Instagram.Password, "INSTAGRAM_PASSWORD")
	envFallback(&c.Instagram.CookiesFile, "INSTAGRAM_COOKIES_FILE")
	if c.Instagram.CookiesFile != "" {
		expanded, err := expandPath(c.Instagram.CookiesFile)
		if err != nil {
			return fmt.Errorf("instagram.cookies_file: %w", err)
		}
		c.Instagram.CookiesFile = expanded
	}
	return nil
}

func (c *Config) normalizeNotifications() {
	envFallback(&c.Notifications.NtfyTopic, "NTFY_TOPIC")
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = 10
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(orDefault(c.Logging.Format, defaultLogFormat))
	c.Logging.Level = strings.ToLower(orDefault(c.Logging.Level, defaultLogLevel))
}

func envFallback(target *string, key string) {
	*target = strings.TrimSpace(*target)
	if *target != "" {
		return
	}
	if value, ok := os.LookupEnv(key); ok {
		*target = strings.TrimSpace(value)
	}
}

func orDefault(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}
