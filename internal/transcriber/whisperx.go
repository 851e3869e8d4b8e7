package transcriber

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"reelscope/internal/media"
)

const (
	cudaIndexURL   = "https://download.pytorch.org/whl/cu128"
	pypiIndexURL   = "https://pypi.org/simple"
	whisperxPkg    = "whisperx"
	outputFormat   = "json"
	vadMethod      = "silero"
	cpuDevice      = "cpu"
	cudaDevice     = "cuda"
	uvxCommandName = "uvx"
)

// whisperxArgs builds the command line for source. When the configured
// command is uvx the package name and index URLs are prepended.
func (s *Service) whisperxArgs(source, outputDir, model, lang string) []string {
	args := make([]string, 0, 24)
	if isUVX(s.cfg.Command) {
		if s.cfg.CUDAEnabled {
			args = append(args, "--index-url", cudaIndexURL, "--extra-index-url", pypiIndexURL)
		} else {
			args = append(args, "--index-url", pypiIndexURL)
		}
		args = append(args, whisperxPkg)
	}
	args = append(args,
		source,
		"--model", model,
		"--batch_size", strconv.Itoa(s.cfg.BatchSize),
		"--output_dir", outputDir,
		"--output_format", outputFormat,
		"--vad_method", vadMethod,
	)
	if lang != "" {
		args = append(args, "--language", lang)
	}
	if s.cfg.CUDAEnabled {
		args = append(args, "--device", cudaDevice)
	} else {
		args = append(args, "--device", cpuDevice, "--compute_type", s.cfg.ComputeType)
	}
	return args
}

func isUVX(command string) bool {
	return strings.EqualFold(filepath.Base(strings.TrimSpace(command)), uvxCommandName)
}

func extractArgs(source, mapSpec, dest string) []string {
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
		"-map", mapSpec,
		"-vn",
		"-sn",
		"-dn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		dest,
	}
}

type whisperxSegment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type whisperxPayload struct {
	Segments            []whisperxSegment `json:"segments"`
	Language            string            `json:"language"`
	LanguageProbability *float64          `json:"language_probability"`
}

// loadPayload parses a WhisperX JSON result into a Transcription. forced is
// the language passed on the command line, if any.
func loadPayload(path, forced string) (*media.Transcription, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var payload whisperxPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parse whisperx json: %w", err)
	}

	segments := make([]media.Segment, 0, len(payload.Segments))
	for _, seg := range payload.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		segments = append(segments, media.Segment{Start: seg.Start, End: seg.End, Text: text})
	}

	out := &media.Transcription{
		FullText: media.JoinSegments(segments),
		Segments: segments,
		Language: strings.TrimSpace(payload.Language),
	}
	switch {
	case forced != "":
		out.LanguageConfidence = 1.0
		if out.Language == "" {
			out.Language = forced
		}
	case payload.LanguageProbability != nil:
		out.LanguageConfidence = min(max(*payload.LanguageProbability, 0), 1)
	}
	return out, nil
}
