package transcriber

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"reelscope/internal/config"
	"reelscope/internal/logging"
	"reelscope/internal/media"
	"reelscope/internal/media/audio"
	"reelscope/internal/media/ffprobe"
	"reelscope/internal/services"
	"reelscope/internal/stage"
)

const stageName = "transcribe"

// CommandRunner executes an external command.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// Option configures a Service.
type Option func(*Service)

// WithCommandRunner swaps the command runner (for tests).
func WithCommandRunner(run CommandRunner) Option {
	return func(s *Service) {
		if run != nil {
			s.run = run
		}
	}
}

// WithProber sets the ffprobe wrapper used to pick the audio stream.
func WithProber(p *ffprobe.Prober) Option {
	return func(s *Service) { s.probe = p }
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithWorkDir overrides the parent of per-call scratch directories.
func WithWorkDir(dir string) Option {
	return func(s *Service) {
		if strings.TrimSpace(dir) != "" {
			s.workRoot = dir
		}
	}
}

// Service transcribes media files with ffmpeg and WhisperX.
type Service struct {
	cfg      config.Transcriber
	workRoot string
	probe    *ffprobe.Prober
	run      CommandRunner
	logger   *slog.Logger
}

// New builds a service from configuration.
func New(cfg *config.Config, opts ...Option) *Service {
	s := &Service{
		cfg:      cfg.Transcriber,
		workRoot: filepath.Join(cfg.Paths.StateDir, "work"),
		probe:    ffprobe.New(cfg.Transcriber.FFprobeBinary),
		run:      runCommand,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.NewComponentLogger(s.logger, "transcriber")
	return s
}

// Transcribe extracts audio from path and runs WhisperX with the given model
// tier. lang is an ISO 639-1 code or "" for auto-detection. report receives
// values in [0,1].
func (s *Service) Transcribe(ctx context.Context, path, model, lang string, report stage.ProgressFunc) (*media.Transcription, error) {
	if report == nil {
		report = func(float64, string) {}
	}
	if strings.TrimSpace(path) == "" {
		return nil, services.Wrap(services.ErrValidation, stageName, "prepare", "media path required", nil)
	}
	if s.cfg.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(s.cfg.TimeoutSeconds)*time.Second)
		defer cancel()
	}
	logger := logging.WithContext(ctx, s.logger)

	report(0.1, "Loading transcription model...")

	selection := audio.Selection{Ordinal: 0}
	if s.probe != nil {
		info, err := s.probe.Inspect(ctx, path)
		switch {
		case err != nil:
			logger.Warn("audio probe failed; using first audio stream",
				logging.String(logging.FieldEventType, "audio_probe_failed"),
				logging.String(logging.FieldErrorHint, "check ffprobe_binary in [transcriber]"),
				logging.Error(err),
			)
		case !info.HasAudio():
			return nil, services.Wrap(services.ErrValidation, stageName, "probe", "video has no audio track", nil)
		default:
			selection = audio.Select(info.Streams, lang)
			logger.Debug("audio stream selected", logging.String("audio", selection.Label()))
		}
	}

	if err := os.MkdirAll(s.workRoot, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, stageName, "prepare", "create work dir", err)
	}
	workDir, err := os.MkdirTemp(s.workRoot, "transcribe-")
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, stageName, "prepare", "create work dir", err)
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			logger.Debug("work dir cleanup failed", logging.Error(err))
		}
	}()

	wav := filepath.Join(workDir, "audio.wav")
	if err := s.run(ctx, s.cfg.FFmpegBinary, extractArgs(path, selection.MapSpec(), wav)...); err != nil {
		return nil, s.toolError(ctx, "ffmpeg", err)
	}
	report(0.3, "Transcribing audio...")

	started := time.Now()
	if err := s.run(ctx, s.cfg.Command, s.whisperxArgs(wav, workDir, model, lang)...); err != nil {
		return nil, s.toolError(ctx, "whisperx", err)
	}

	result, err := loadPayload(filepath.Join(workDir, "audio.json"), lang)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, services.Wrap(services.ErrExternalTool, stageName, "whisperx", "whisperx produced no output", err)
		}
		return nil, services.Wrap(services.ErrExternalTool, stageName, "whisperx", "", err)
	}
	report(1.0, "Transcription complete")

	logger.Info("transcription complete",
		logging.String("model", model),
		logging.String("language", result.Language),
		logging.Int("segments", len(result.Segments)),
		logging.Duration("duration", time.Since(started)),
	)
	return result, nil
}

func (s *Service) toolError(ctx context.Context, tool string, err error) error {
	if ctx.Err() != nil {
		return services.FromContextErr(ctx, stageName, tool, err)
	}
	return services.Wrap(services.ErrExternalTool, stageName, tool, "", err)
}

// HealthCheck verifies ffmpeg and the transcription command are on PATH.
func (s *Service) HealthCheck(context.Context) stage.Health {
	for _, binary := range []string{s.cfg.FFmpegBinary, s.cfg.Command} {
		if _, err := exec.LookPath(binary); err != nil {
			return stage.Unhealthy(stageName, fmt.Sprintf("%s not found", binary))
		}
	}
	return stage.Healthy(stageName)
}

func runCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec

	// Torch 2.6 defaults torch.load to weights_only, which breaks the
	// WhisperX and pyannote checkpoints.
	if os.Getenv("TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD") == "" {
		cmd.Env = append(os.Environ(), "TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD=1")
	}

	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", filepath.Base(name), err, lastLines(string(output), 3))
	}
	return nil
}

func lastLines(output string, n int) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, " | ")
}
