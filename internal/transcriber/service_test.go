package transcriber

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"reelscope/internal/media/ffprobe"
	"reelscope/internal/services"
	"reelscope/internal/testsupport"
)

type fakeRunner struct {
	calls    [][]string
	payload  string
	ffmpeg   error
	whisperx error
}

func (f *fakeRunner) run(_ context.Context, name string, args ...string) error {
	f.calls = append(f.calls, append([]string{name}, args...))
	switch name {
	case "ffmpeg":
		if f.ffmpeg != nil {
			return f.ffmpeg
		}
		return os.WriteFile(args[len(args)-1], []byte("RIFF"), 0o644)
	default:
		if f.whisperx != nil {
			return f.whisperx
		}
		if f.payload == "" {
			return nil
		}
		idx := slices.Index(args, "--output_dir")
		return os.WriteFile(filepath.Join(args[idx+1], "audio.json"), []byte(f.payload), 0o644)
	}
}

func probeWith(streams string) *ffprobe.Prober {
	return ffprobe.New("ffprobe").WithRunner(func(context.Context, string, ...string) ([]byte, error) {
		return []byte(`{"streams":` + streams + `,"format":{"duration":"5.0"}}`), nil
	})
}

const twoAudioStreams = `[
	{"index":0,"codec_type":"video"},
	{"index":1,"codec_type":"audio","tags":{"language":"eng"},"disposition":{"default":1}},
	{"index":2,"codec_type":"audio","tags":{"language":"fra"}}
]`

func TestTranscribeParsesSegments(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	runner := &fakeRunner{payload: `{"language":"en","language_probability":0.93,"segments":[
		{"start":0,"end":2.5,"text":" hello there "},
		{"start":2.5,"end":3,"text":"   "},
		{"start":3,"end":5,"text":"general kenobi"}
	]}`}
	svc := New(cfg, WithCommandRunner(runner.run), WithProber(probeWith(twoAudioStreams)))

	var progress []float64
	got, err := svc.Transcribe(context.Background(), "/tmp/video_x.mp4", "base", "", func(local float64, _ string) {
		progress = append(progress, local)
	})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if got.FullText != "hello there general kenobi" {
		t.Fatalf("full text = %q", got.FullText)
	}
	if len(got.Segments) != 2 || got.Segments[0].Text != "hello there" || got.Segments[1].Start != 3 {
		t.Fatalf("segments = %+v", got.Segments)
	}
	if got.Language != "en" || got.LanguageConfidence != 0.93 {
		t.Fatalf("language = %q (%v)", got.Language, got.LanguageConfidence)
	}
	if !slices.Equal(progress, []float64{0.1, 0.3, 1.0}) {
		t.Fatalf("progress = %v", progress)
	}

	if len(runner.calls) != 2 {
		t.Fatalf("expected ffmpeg and whisperx calls, got %d", len(runner.calls))
	}
	ffmpegCall := runner.calls[0]
	if idx := slices.Index(ffmpegCall, "-map"); idx < 0 || ffmpegCall[idx+1] != "0:a:0" {
		t.Fatalf("ffmpeg map = %v", ffmpegCall)
	}
	whisper := runner.calls[1]
	if whisper[0] != "uvx" || !slices.Contains(whisper, "whisperx") {
		t.Fatalf("expected uvx whisperx, got %v", whisper)
	}
	if slices.Contains(whisper, "--language") {
		t.Fatalf("auto-detect must not pass --language: %v", whisper)
	}

	entries, err := os.ReadDir(filepath.Join(cfg.Paths.StateDir, "work"))
	if err != nil {
		t.Fatalf("read work root: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("scratch directory not removed: %v", entries)
	}
}

func TestTranscribeForcedLanguage(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	runner := &fakeRunner{payload: `{"segments":[{"start":0,"end":1,"text":"bonjour"}]}`}
	svc := New(cfg, WithCommandRunner(runner.run), WithProber(probeWith(twoAudioStreams)))

	got, err := svc.Transcribe(context.Background(), "/tmp/video_x.mp4", "small", "fr", nil)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if got.Language != "fr" || got.LanguageConfidence != 1.0 {
		t.Fatalf("language = %q (%v)", got.Language, got.LanguageConfidence)
	}
	if idx := slices.Index(runner.calls[0], "-map"); runner.calls[0][idx+1] != "0:a:1" {
		t.Fatalf("expected french stream, got %v", runner.calls[0])
	}
	whisper := runner.calls[1]
	if idx := slices.Index(whisper, "--language"); idx < 0 || whisper[idx+1] != "fr" {
		t.Fatalf("language flag missing: %v", whisper)
	}
	if idx := slices.Index(whisper, "--model"); whisper[idx+1] != "small" {
		t.Fatalf("model flag = %v", whisper)
	}
}

func TestTranscribeRejectsSilentVideo(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	runner := &fakeRunner{}
	svc := New(cfg, WithCommandRunner(runner.run), WithProber(probeWith(`[{"index":0,"codec_type":"video"}]`)))

	_, err := svc.Transcribe(context.Background(), "/tmp/video_x.mp4", "base", "", nil)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(runner.calls) != 0 {
		t.Fatalf("no commands should run, got %v", runner.calls)
	}
}

func TestTranscribeToolFailures(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	runner := &fakeRunner{whisperx: errors.New("uvx: exit status 1: CUDA out of memory")}
	svc := New(cfg, WithCommandRunner(runner.run), WithProber(nil))
	_, err := svc.Transcribe(context.Background(), "/tmp/video_x.mp4", "base", "", nil)
	if !errors.Is(err, services.ErrExternalTool) || !strings.Contains(err.Error(), "CUDA out of memory") {
		t.Fatalf("expected external tool error, got %v", err)
	}

	runner = &fakeRunner{}
	svc = New(cfg, WithCommandRunner(runner.run), WithProber(nil))
	_, err = svc.Transcribe(context.Background(), "/tmp/video_x.mp4", "base", "", nil)
	if !errors.Is(err, services.ErrExternalTool) || !strings.Contains(err.Error(), "no output") {
		t.Fatalf("expected missing output error, got %v", err)
	}
}

func TestWhisperxArgsDirectCommand(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Transcriber.Command = "/opt/whisperx/bin/whisperx"
	cfg.Transcriber.CUDAEnabled = true
	svc := New(cfg)

	args := svc.whisperxArgs("in.wav", "/out", "tiny", "")
	if args[0] != "in.wav" {
		t.Fatalf("direct command should start with the source: %v", args)
	}
	if slices.Contains(args, "--index-url") || slices.Contains(args, "--compute_type") {
		t.Fatalf("unexpected uvx or cpu flags: %v", args)
	}
	if idx := slices.Index(args, "--device"); args[idx+1] != "cuda" {
		t.Fatalf("device = %v", args)
	}
}
