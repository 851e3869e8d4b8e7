package ffprobe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// DefaultBinary is used when no binary is configured.
const DefaultBinary = "ffprobe"

// Runner executes a command and returns its stdout.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Prober wraps a configured ffprobe binary.
type Prober struct {
	binary string
	run    Runner
}

// New returns a prober for binary, defaulting to ffprobe on PATH.
func New(binary string) *Prober {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = DefaultBinary
	}
	return &Prober{binary: binary, run: execRunner}
}

// WithRunner swaps the command runner (for tests).
func (p *Prober) WithRunner(run Runner) *Prober {
	if run != nil {
		p.run = run
	}
	return p
}

// Binary returns the configured executable name.
func (p *Prober) Binary() string { return p.binary }

// Info is the subset of ffprobe output the pipeline reads.
type Info struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream is a single container stream.
type Stream struct {
	Index       int               `json:"index"`
	CodecName   string            `json:"codec_name"`
	CodecType   string            `json:"codec_type"`
	Channels    int               `json:"channels"`
	Duration    string            `json:"duration"`
	Tags        map[string]string `json:"tags"`
	Disposition map[string]int    `json:"disposition"`
}

// Language returns the stream's language tag, lower-cased.
func (s Stream) Language() string {
	for key, value := range s.Tags {
		if strings.EqualFold(key, "language") {
			return strings.ToLower(strings.TrimSpace(value))
		}
	}
	return ""
}

// IsDefault reports whether the container marks the stream as default.
func (s Stream) IsDefault() bool {
	return s.Disposition["default"] == 1
}

// Format is container-level metadata.
type Format struct {
	Duration   string `json:"duration"`
	FormatName string `json:"format_name"`
}

// Inspect runs ffprobe against path.
func (p *Prober) Inspect(ctx context.Context, path string) (Info, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Info{}, errors.New("ffprobe: empty path")
	}
	out, err := p.run(ctx, p.binary, "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path)
	if err != nil {
		return Info{}, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	var info Info
	if err := json.Unmarshal(out, &info); err != nil {
		return Info{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	return info, nil
}

// AudioStreams returns the audio streams in container order.
func (i Info) AudioStreams() []Stream {
	var out []Stream
	for _, s := range i.Streams {
		if strings.EqualFold(s.CodecType, "audio") {
			out = append(out, s)
		}
	}
	return out
}

// HasAudio reports whether any stream is audio.
func (i Info) HasAudio() bool {
	return i.countType("audio") > 0
}

// HasVideo reports whether any stream is video.
func (i Info) HasVideo() bool {
	return i.countType("video") > 0
}

// DurationSeconds prefers the container duration and falls back to the
// longest stream. Unparseable values count as zero.
func (i Info) DurationSeconds() float64 {
	if d := parseSeconds(i.Format.Duration); d > 0 {
		return d
	}
	var longest float64
	for _, s := range i.Streams {
		if d := parseSeconds(s.Duration); d > longest {
			longest = d
		}
	}
	return longest
}

func (i Info) countType(kind string) int {
	n := 0
	for _, s := range i.Streams {
		if strings.EqualFold(s.CodecType, kind) {
			n++
		}
	}
	return n
}

func parseSeconds(value string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	var stderr strings.Builder
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}
