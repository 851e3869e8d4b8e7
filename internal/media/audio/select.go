package audio

import (
	"strconv"
	"strings"

	"reelscope/internal/language"
	"reelscope/internal/media/ffprobe"
)

// Selection identifies the chosen audio stream.
type Selection struct {
	Stream ffprobe.Stream
	// Ordinal is the position among audio streams, as used by ffmpeg's
	// "0:a:N" stream specifier. -1 when the file has no audio.
	Ordinal int
}

// Found reports whether an audio stream was selected.
func (s Selection) Found() bool { return s.Ordinal >= 0 }

// MapSpec returns the ffmpeg -map argument for the selection.
func (s Selection) MapSpec() string {
	if !s.Found() {
		return "0:a:0"
	}
	return "0:a:" + strconv.Itoa(s.Ordinal)
}

// Label summarizes the selected stream for logs.
func (s Selection) Label() string {
	if !s.Found() {
		return "none"
	}
	parts := make([]string, 0, 4)
	if lang := s.Stream.Language(); lang != "" {
		parts = append(parts, lang)
	}
	if s.Stream.CodecName != "" {
		parts = append(parts, s.Stream.CodecName)
	}
	if s.Stream.Channels > 0 {
		parts = append(parts, strconv.Itoa(s.Stream.Channels)+"ch")
	}
	if name := title(s.Stream); name != "" {
		parts = append(parts, name)
	}
	if len(parts) == 0 {
		return "audio"
	}
	return strings.Join(parts, " | ")
}

// Select returns the best audio stream for speech recognition. hint is an
// ISO 639-1 code or "" for no preference.
func Select(streams []ffprobe.Stream, hint string) Selection {
	hint = language.ToISO2(hint)
	best := Selection{Ordinal: -1}
	bestScore := 0
	ordinal := 0
	for _, stream := range streams {
		if !strings.EqualFold(stream.CodecType, "audio") {
			continue
		}
		current := score(stream, hint, ordinal)
		if best.Ordinal < 0 || current > bestScore {
			best = Selection{Stream: stream, Ordinal: ordinal}
			bestScore = current
		}
		ordinal++
	}
	return best
}

var secondaryKeywords = []string{"commentary", "description", "descriptive", "director"}

func score(stream ffprobe.Stream, hint string, ordinal int) int {
	s := 0
	if hint != "" && language.ToISO2(stream.Language()) == hint {
		s += 1000
	}
	if stream.IsDefault() {
		s += 100
	}
	t := title(stream)
	for _, keyword := range secondaryKeywords {
		if strings.Contains(t, keyword) {
			s -= 500
			break
		}
	}
	// Earlier streams win ties.
	return s - ordinal
}

func title(stream ffprobe.Stream) string {
	for key, value := range stream.Tags {
		switch strings.ToLower(key) {
		case "title", "handler_name":
			if v := strings.ToLower(strings.TrimSpace(value)); v != "" && v != "soundhandler" {
				return v
			}
		}
	}
	return ""
}
