package downloader

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"reelscope/internal/config"
	"reelscope/internal/logging"
	"reelscope/internal/media"
	"reelscope/internal/media/ffprobe"
	"reelscope/internal/platform"
	"reelscope/internal/services"
	"reelscope/internal/stage"
)

const (
	stageName       = "download"
	progressText    = "Downloading..."
	finishedText    = "Download complete, processing..."
	errorLinePrefix = "ERROR:"
)

var (
	progressLine  = regexp.MustCompile(`^\[download\]\s+(\d+(?:\.\d+)?)%`)
	preferredExts = []string{"mp4", "webm", "mkv"}
	servableExts  = map[string]struct{}{"mp4": {}, "webm": {}, "mkv": {}, "mov": {}, "m4a": {}}
)

// Option configures a Client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// WithProber sets the ffprobe wrapper used for missing durations.
func WithProber(p *ffprobe.Prober) Option {
	return func(c *Client) { c.probe = p }
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithNameGenerator overrides the random file stem (for tests).
func WithNameGenerator(fn func() string) Option {
	return func(c *Client) {
		if fn != nil {
			c.newName = fn
		}
	}
}

// Client downloads media with yt-dlp into a fixed directory.
type Client struct {
	cfg     config.Downloader
	dir     string
	exec    Executor
	probe   *ffprobe.Prober
	logger  *slog.Logger
	newName func() string
}

// New builds a client from configuration.
func New(cfg *config.Config, opts ...Option) *Client {
	c := &Client{
		cfg:     cfg.Downloader,
		dir:     cfg.Paths.DownloadDir,
		exec:    commandExecutor{},
		probe:   ffprobe.New(cfg.Transcriber.FFprobeBinary),
		logger:  logging.NewNop(),
		newName: randomStem,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.NewComponentLogger(c.logger, "downloader")
	return c
}

// Dir returns the directory downloads are written to.
func (c *Client) Dir() string { return c.dir }

// Download fetches req.URL and returns the artifact. report receives values
// in [0,1].
func (c *Client) Download(ctx context.Context, req media.Request, report stage.ProgressFunc) (*media.VideoArtifact, error) {
	if report == nil {
		report = func(float64, string) {}
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, stageName, "prepare", "create download dir", err)
	}

	stem := c.newName()
	args := c.buildArgs(req, stem)
	logger := logging.WithContext(ctx, c.logger)
	logger.Debug("yt-dlp invocation", logging.String("binary", c.cfg.Binary), logging.Any("args", args))

	var mu sync.Mutex
	var info *ytInfo
	var lastErr string
	lastPct := -1.0
	onLine := func(line string) {
		line = strings.TrimSpace(line)
		if line == "" {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		switch {
		case strings.HasPrefix(line, "{"):
			var decoded ytInfo
			if err := json.Unmarshal([]byte(line), &decoded); err == nil {
				info = &decoded
			}
		case strings.HasPrefix(line, errorLinePrefix):
			lastErr = strings.TrimSpace(strings.TrimPrefix(line, errorLinePrefix))
		default:
			if pct, ok := parseProgress(line); ok && pct > lastPct {
				lastPct = pct
				report(pct/100, progressText)
			}
		}
	}

	if err := c.exec.Run(ctx, c.cfg.Binary, args, onLine); err != nil {
		if ctx.Err() != nil {
			return nil, services.FromContextErr(ctx, stageName, "yt-dlp", err)
		}
		message := lastErr
		if message == "" {
			message = "yt-dlp exited with an error"
		}
		return nil, services.Wrap(services.ErrExternalTool, stageName, "yt-dlp", message, err)
	}

	path, err := locate(c.dir, stem)
	if err != nil {
		return nil, err
	}
	report(1.0, finishedText)

	artifact := media.NewVideoArtifact(path)
	artifact.Platform = req.Platform
	artifact.SourceURL = req.URL
	if info != nil {
		info.apply(&artifact)
	}
	if artifact.DurationSeconds <= 0 && c.probe != nil {
		if probed, err := c.probe.Inspect(ctx, path); err == nil {
			artifact.DurationSeconds = probed.DurationSeconds()
		} else {
			logger.Debug("duration probe failed", logging.Error(err))
		}
	}
	logger.Info("download complete",
		logging.String("file", artifact.FileName),
		logging.String("platform", artifact.Platform.String()),
		logging.Float64("duration_seconds", artifact.DurationSeconds),
	)
	return &artifact, nil
}

// HealthCheck verifies the yt-dlp binary is on PATH.
func (c *Client) HealthCheck(context.Context) stage.Health {
	if _, err := exec.LookPath(c.cfg.Binary); err != nil {
		return stage.Unhealthy(stageName, fmt.Sprintf("%s not found", c.cfg.Binary))
	}
	return stage.Healthy(stageName)
}

func (c *Client) buildArgs(req media.Request, stem string) []string {
	args := []string{
		"--newline",
		"--progress",
		"--no-playlist",
		"--no-warnings",
		"--socket-timeout", strconv.Itoa(c.cfg.SocketTimeout),
		"--retries", strconv.Itoa(c.cfg.Retries),
		"--fragment-retries", strconv.Itoa(c.cfg.Retries),
		"-f", c.cfg.Format,
		"--merge-output-format", "mp4",
		"--user-agent", c.cfg.UserAgent,
		"-o", filepath.Join(c.dir, stem+".%(ext)s"),
		"--print-json",
		"--no-simulate",
	}
	cookies := req.CookiesFile
	if cookies == "" {
		cookies = c.cfg.CookiesFile
	}
	if cookies != "" {
		args = append(args, "--cookies", cookies)
	}
	return append(args, "--", req.URL)
}

func parseProgress(line string) (float64, bool) {
	m := progressLine.FindStringSubmatch(line)
	if len(m) < 2 {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func locate(dir, stem string) (string, error) {
	for _, ext := range preferredExts {
		candidate := filepath.Join(dir, stem+"."+ext)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	matches, err := filepath.Glob(filepath.Join(dir, stem+".*"))
	if err == nil {
		for _, m := range matches {
			if !strings.HasSuffix(m, ".part") && !strings.HasSuffix(m, ".ytdl") {
				return m, nil
			}
		}
	}
	return "", services.Wrap(services.ErrNotFound, stageName, "locate", fmt.Sprintf("downloaded video file not found in %s", dir), nil)
}

func randomStem() string {
	return "video_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// ytInfo is the subset of yt-dlp's info JSON the pipeline keeps.
type ytInfo struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Duration    *float64 `json:"duration"`
	Thumbnail   string   `json:"thumbnail"`
	Uploader    string   `json:"uploader"`
	WebpageURL  string   `json:"webpage_url"`
}

func (i ytInfo) apply(a *media.VideoArtifact) {
	if t := strings.TrimSpace(i.Title); t != "" {
		a.Title = t
	}
	a.Description = i.Description
	if i.Duration != nil && *i.Duration > 0 {
		a.DurationSeconds = *i.Duration
	}
	a.Thumbnail = i.Thumbnail
	if u := strings.TrimSpace(i.Uploader); u != "" {
		a.Uploader = u
	}
	if i.WebpageURL != "" && platform.Detect(i.WebpageURL) == a.Platform {
		a.SourceURL = i.WebpageURL
	}
}

// IsManaged reports whether name looks like a file this package produced.
// The video endpoint uses it to refuse arbitrary paths.
func IsManaged(name string) bool {
	if name != filepath.Base(name) || !strings.HasPrefix(name, "video_") {
		return false
	}
	_, ok := servableExts[strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))]
	return ok
}
