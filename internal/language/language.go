package language

import (
	"fmt"
	"strings"
)

type entry struct {
	code2   string
	code3   string
	alt3    string
	display string
	word    string
}

// Whisper-capable languages most often seen in short-form video.
var languages = []entry{
	{"en", "eng", "", "English", "english"},
	{"es", "spa", "", "Spanish", "spanish"},
	{"fr", "fra", "fre", "French", "french"},
	{"de", "deu", "ger", "German", "german"},
	{"it", "ita", "", "Italian", "italian"},
	{"pt", "por", "", "Portuguese", "portuguese"},
	{"ja", "jpn", "", "Japanese", "japanese"},
	{"ko", "kor", "", "Korean", "korean"},
	{"zh", "zho", "chi", "Chinese", "chinese"},
	{"ru", "rus", "", "Russian", "russian"},
	{"ar", "ara", "", "Arabic", "arabic"},
	{"hi", "hin", "", "Hindi", "hindi"},
	{"nl", "nld", "dut", "Dutch", "dutch"},
	{"pl", "pol", "", "Polish", "polish"},
	{"sv", "swe", "", "Swedish", "swedish"},
	{"tr", "tur", "", "Turkish", "turkish"},
	{"uk", "ukr", "", "Ukrainian", "ukrainian"},
	{"id", "ind", "", "Indonesian", "indonesian"},
	{"vi", "vie", "", "Vietnamese", "vietnamese"},
}

var index = func() map[string]*entry {
	m := make(map[string]*entry, len(languages)*4)
	for i := range languages {
		e := &languages[i]
		m[e.code2] = e
		m[e.code3] = e
		m[e.word] = e
		if e.alt3 != "" {
			m[e.alt3] = e
		}
	}
	return m
}()

// Auto is the hint value asking the transcriber to detect the language.
const Auto = "auto"

// ResolveHint turns a request language hint into an ISO 639-1 code. Blank and
// "auto" return "" (auto-detect). Unknown three-letter codes and words are
// rejected; unknown two-letter codes pass through so newer Whisper languages
// still work.
func ResolveHint(hint string) (string, error) {
	code := strings.ToLower(strings.TrimSpace(hint))
	if code == "" || code == Auto {
		return "", nil
	}
	if e, ok := index[code]; ok {
		return e.code2, nil
	}
	if len(code) == 2 && isLetters(code) {
		return code, nil
	}
	return "", fmt.Errorf("unrecognized language %q", hint)
}

// ToISO2 maps any recognized code or English name to ISO 639-1. Two-letter
// input passes through; anything else returns "".
func ToISO2(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if e, ok := index[code]; ok {
		return e.code2
	}
	if len(code) == 2 && isLetters(code) {
		return code
	}
	return ""
}

// DisplayName returns a human-readable language name for any recognized code.
// Returns "Unknown" for empty input, or the uppercased code for unrecognized input.
func DisplayName(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return "Unknown"
	}
	if e, ok := index[code]; ok {
		return e.display
	}
	return strings.ToUpper(code)
}

func isLetters(s string) bool {
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}
