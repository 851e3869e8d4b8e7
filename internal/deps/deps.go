// Package deps resolves the external binaries the pipeline shells out to.
package deps

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"reelscope/internal/config"
)

// Requirement defines an external dependency reelscope relies on.
type Requirement struct {
	Name        string
	Command     string
	VersionArgs []string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Path        string `json:"path,omitempty"`
	Version     string `json:"version,omitempty"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// VersionFunc runs a binary and returns its combined output.
type VersionFunc func(ctx context.Context, path string, args ...string) (string, error)

const versionTimeout = 5 * time.Second

// Requirements lists the binaries needed by the configured collaborators.
func Requirements(cfg *config.Config) []Requirement {
	return []Requirement{
		{
			Name:        "yt-dlp",
			Command:     cfg.Downloader.Binary,
			VersionArgs: []string{"--version"},
			Description: "Required for video downloads",
		},
		{
			Name:        "FFmpeg",
			Command:     cfg.Transcriber.FFmpegBinary,
			VersionArgs: []string{"-version"},
			Description: "Required for audio extraction",
		},
		{
			Name:        "FFprobe",
			Command:     cfg.Transcriber.FFprobeBinary,
			VersionArgs: []string{"-version"},
			Description: "Selects the audio track and fills missing durations",
			Optional:    true,
		},
		{
			Name:        "WhisperX",
			Command:     cfg.Transcriber.Command,
			VersionArgs: []string{"--version"},
			Description: "Required for transcription (run through uvx by default)",
		},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
// A nil version func skips version probing.
func CheckBinaries(ctx context.Context, requirements []Requirement, version VersionFunc) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		path, err := exec.LookPath(cmd)
		if err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		status.Path = path
		if version != nil && len(req.VersionArgs) > 0 {
			versionCtx, cancel := context.WithTimeout(ctx, versionTimeout)
			out, err := version(versionCtx, path, req.VersionArgs...)
			cancel()
			if err == nil {
				status.Version = firstLine(out)
			}
		}
		results = append(results, status)
	}
	return results
}

// RunVersion is the exec-backed VersionFunc.
func RunVersion(ctx context.Context, path string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, path, args...).CombinedOutput()
	return string(out), err
}

// MissingRequired returns the names of unavailable non-optional dependencies.
func MissingRequired(statuses []Status) []string {
	var missing []string
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			missing = append(missing, s.Name)
		}
	}
	return missing
}

func firstLine(output string) string {
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			return line
		}
	}
	return ""
}
