package media

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"reelscope/internal/platform"
)

// VideoArtifact is the downloaded media file plus its source metadata. The
// pipeline owns Path for the lifetime of the run. VideoURL points at the kept
// file; VideoData is a data: URL carrying the whole file when downloads are
// deleted at run end and the file is small enough to inline.
type VideoArtifact struct {
	Path            string            `json:"-"`
	FileName        string            `json:"file_name"`
	Title           string            `json:"title"`
	Description     string            `json:"description"`
	DurationSeconds float64           `json:"duration_seconds"`
	Platform        platform.Platform `json:"platform"`
	Uploader        string            `json:"uploader"`
	Thumbnail       string            `json:"thumbnail,omitempty"`
	SourceURL       string            `json:"url"`
	VideoURL        string            `json:"video_url,omitempty"`
	VideoData       string            `json:"video_data,omitempty"`
}

// NewVideoArtifact fills the metadata defaults shared by every downloader.
func NewVideoArtifact(path string) VideoArtifact {
	return VideoArtifact{
		Path:     path,
		FileName: filepath.Base(path),
		Title:    "Unknown",
		Uploader: "Unknown",
	}
}

// Segment is one timestamped span of recognized speech.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Transcription is the speech-to-text output for a run.
type Transcription struct {
	FullText           string    `json:"full_text"`
	Segments           []Segment `json:"segments"`
	Language           string    `json:"language"`
	LanguageConfidence float64   `json:"language_probability"`
}

// JoinSegments builds FullText the way every transcriber does: trimmed segment
// texts separated by single spaces.
func JoinSegments(segments []Segment) string {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		if text := strings.TrimSpace(seg.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

// FormatTimestamp renders seconds as MM:SS, or HH:MM:SS once an hour is reached.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	hours := total / 3600
	minutes := (total % 3600) / 60
	secs := total % 60
	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%02d:%02d", minutes, secs)
}

// FormatSegments renders segments one per line, optionally prefixed with their
// time span. It has no side effects; equal input yields equal output.
func FormatSegments(segments []Segment, withTimestamps bool) string {
	lines := make([]string, 0, len(segments))
	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if withTimestamps {
			lines = append(lines, fmt.Sprintf("[%s - %s] %s", FormatTimestamp(seg.Start), FormatTimestamp(seg.End), text))
			continue
		}
		lines = append(lines, text)
	}
	return strings.Join(lines, "\n")
}

// FormattedWithTimestamps is the "[MM:SS - MM:SS] text" projection of Segments.
func (t Transcription) FormattedWithTimestamps() string {
	return FormatSegments(t.Segments, true)
}

// FormattedPlain is the one-line-per-segment projection of Segments.
func (t Transcription) FormattedPlain() string {
	return FormatSegments(t.Segments, false)
}

type segmentJSON struct {
	Segment
	StartFormatted string `json:"start_formatted"`
	EndFormatted   string `json:"end_formatted"`
}

// MarshalJSON adds the formatted projections so API clients need no
// timestamp logic of their own.
func (t Transcription) MarshalJSON() ([]byte, error) {
	segments := make([]segmentJSON, 0, len(t.Segments))
	for _, seg := range t.Segments {
		segments = append(segments, segmentJSON{
			Segment:        seg,
			StartFormatted: FormatTimestamp(seg.Start),
			EndFormatted:   FormatTimestamp(seg.End),
		})
	}
	return json.Marshal(struct {
		FullText                string        `json:"full_text"`
		Segments                []segmentJSON `json:"segments"`
		Language                string        `json:"language"`
		LanguageConfidence      float64       `json:"language_probability"`
		FormattedWithTimestamps string        `json:"formatted_with_timestamps"`
		FormattedPlain          string        `json:"formatted_plain"`
	}{
		FullText:                t.FullText,
		Segments:                segments,
		Language:                t.Language,
		LanguageConfidence:      t.LanguageConfidence,
		FormattedWithTimestamps: t.FormattedWithTimestamps(),
		FormattedPlain:          t.FormattedPlain(),
	})
}

// UnmarshalJSON accepts the MarshalJSON shape and drops the projections.
func (t *Transcription) UnmarshalJSON(data []byte) error {
	var raw struct {
		FullText           string    `json:"full_text"`
		Segments           []Segment `json:"segments"`
		Language           string    `json:"language"`
		LanguageConfidence float64   `json:"language_probability"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*t = Transcription{
		FullText:           raw.FullText,
		Segments:           raw.Segments,
		Language:           raw.Language,
		LanguageConfidence: raw.LanguageConfidence,
	}
	return nil
}
