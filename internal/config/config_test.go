package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"reelscope/internal/config"
)

func TestLoadDefaultsExpandPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())
	t.Setenv("INSTAGRAM_USERNAME", "")
	t.Setenv("REELSCOPE_API_TOKEN", "env-token")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantDownloads := filepath.Join(tempHome, ".local", "share", "reelscope", "downloads")
	if cfg.Paths.DownloadDir != wantDownloads {
		t.Fatalf("unexpected download dir: got %q want %q", cfg.Paths.DownloadDir, wantDownloads)
	}
	if cfg.Paths.APIBind != "127.0.0.1:7489" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	if cfg.Paths.APIToken != "env-token" {
		t.Fatalf("expected api token from env, got %q", cfg.Paths.APIToken)
	}
	if cfg.Pipeline.DefaultModel != "base" || cfg.Pipeline.MaxComments != 200 {
		t.Fatalf("unexpected pipeline defaults: %+v", cfg.Pipeline)
	}
	if cfg.Pipeline.EphemeralStorage {
		t.Fatal("expected ephemeral storage disabled by default")
	}
	if !cfg.History.Enabled {
		t.Fatal("expected history enabled by default")
	}
	if cfg.HistoryPath() != filepath.Join(cfg.Paths.StateDir, "history.db") {
		t.Fatalf("unexpected history path %q", cfg.HistoryPath())
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DownloadDir, cfg.Paths.StateDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "reelscope.toml")

	type payload struct {
		Pipeline struct {
			DefaultModel     string `toml:"default_model"`
			MaxComments      int    `toml:"max_comments"`
			EphemeralStorage bool   `toml:"ephemeral_storage"`
		} `toml:"pipeline"`
		Instagram struct {
			BaseURL string `toml:"base_url"`
		} `toml:"instagram"`
	}
	custom := payload{}
	custom.Pipeline.DefaultModel = "Small"
	custom.Pipeline.MaxComments = 50
	custom.Pipeline.EphemeralStorage = true
	custom.Instagram.BaseURL = "https://example.com/"

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected custom config to be used, got %q exists=%v", resolved, exists)
	}
	if cfg.Pipeline.DefaultModel != "small" {
		t.Fatalf("expected normalized model, got %q", cfg.Pipeline.DefaultModel)
	}
	if cfg.Pipeline.MaxComments != 50 || !cfg.Pipeline.EphemeralStorage {
		t.Fatalf("unexpected pipeline section: %+v", cfg.Pipeline)
	}
	if cfg.Instagram.BaseURL != "https://example.com" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Instagram.BaseURL)
	}
	if cfg.Downloader.Binary != "yt-dlp" {
		t.Fatalf("expected downloader default retained, got %q", cfg.Downloader.Binary)
	}
}

func TestLoadReadsDotEnvNextToConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
	t.Setenv("NTFY_TOPIC", "")
	os.Unsetenv("NTFY_TOPIC")

	dir := t.TempDir()
	configPath := filepath.Join(dir, "reelscope.toml")
	if err := os.WriteFile(configPath, []byte("[logging]\nlevel = \"debug\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("NTFY_TOPIC=https://ntfy.example/topic\n"), 0o644); err != nil {
		t.Fatalf("write env: %v", err)
	}

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Notifications.NtfyTopic != "https://ntfy.example/topic" {
		t.Fatalf("expected topic from .env, got %q", cfg.Notifications.NtfyTopic)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("expected debug level, got %q", cfg.Logging.Level)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"unknown model", func(c *config.Config) { c.Pipeline.DefaultModel = "huge" }, "pipeline.default_model"},
		{"negative comments", func(c *config.Config) { c.Pipeline.MaxComments = -1 }, "pipeline.max_comments"},
		{"tiny frame buffer", func(c *config.Config) { c.Pipeline.FrameBuffer = 2 }, "pipeline.frame_buffer"},
		{"bad base url", func(c *config.Config) { c.Instagram.BaseURL = "ftp://x" }, "instagram.base_url"},
		{"bad log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected %q in %q", tt.want, err.Error())
			}
		})
	}
}

func TestSampleConfigLoads(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config should load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample config to exist")
	}
	if cfg.Pipeline.MaxConcurrentRuns != 2 {
		t.Fatalf("unexpected max concurrent runs %d", cfg.Pipeline.MaxConcurrentRuns)
	}
}

func TestEncodeRedactsSecrets(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.APIToken = "secret-token"
	cfg.Instagram.Password = "hunter2"
	out, err := cfg.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if strings.Contains(out, "secret-token") || strings.Contains(out, "hunter2") {
		t.Fatalf("expected secrets redacted, got %s", out)
	}
	if !strings.Contains(out, "[pipeline]") {
		t.Fatalf("expected pipeline section in %s", out)
	}
}

func TestIsSupportedModel(t *testing.T) {
	for _, name := range []string{"tiny", "BASE", " large-v3 "} {
		if !config.IsSupportedModel(name) {
			t.Fatalf("expected %q supported", name)
		}
	}
	if config.IsSupportedModel("large-v2") {
		t.Fatal("large-v2 should not be supported")
	}
}
