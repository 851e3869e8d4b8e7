package analysis

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"reelscope/internal/media"
)

const (
	minPhraseWords  = 1
	maxPhraseWords  = 4
	minPhraseLength = 3
)

var (
	sentenceBreak = regexp.MustCompile(`[.!?;:\n]+`)
	wordPunct     = regexp.MustCompile(`[\p{L}\p{N}_]+|[^\p{L}\p{N}_\s]+`)
)

// ExtractPhrases ranks candidate phrases by summed word degree/frequency.
// Candidates are runs of one to four words between stopwords and
// punctuation; longer runs are discarded, not split. At most maxPhrases phrases are
// returned, deduplicated case-insensitively, each at least three characters
// long with its score rounded to two decimals. Equal scores order by phrase,
// descending.
func ExtractPhrases(text string, maxPhrases int) []media.RankedPhrase {
	if maxPhrases <= 0 || strings.TrimSpace(text) == "" {
		return nil
	}
	phrases := candidatePhrases(text)
	if len(phrases) == 0 {
		return nil
	}

	freq := make(map[string]int)
	degree := make(map[string]int)
	for _, phrase := range phrases {
		for _, word := range phrase {
			freq[word]++
			degree[word] += len(phrase)
		}
	}

	type scored struct {
		phrase string
		score  float64
	}
	ranked := make([]scored, 0, len(phrases))
	for _, phrase := range phrases {
		var score float64
		for _, word := range phrase {
			score += float64(degree[word]) / float64(freq[word])
		}
		ranked = append(ranked, scored{phrase: strings.Join(phrase, " "), score: score})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].phrase > ranked[j].phrase
	})

	limit := min(len(ranked), maxPhrases*2)
	seen := make(map[string]struct{}, limit)
	out := make([]media.RankedPhrase, 0, maxPhrases)
	for _, item := range ranked[:limit] {
		normalized := strings.ToLower(strings.TrimSpace(item.phrase))
		if _, dup := seen[normalized]; dup || len([]rune(normalized)) < minPhraseLength {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, media.RankedPhrase{Phrase: item.phrase, Score: round(item.score, 2)})
		if len(out) >= maxPhrases {
			break
		}
	}
	return out
}

// candidatePhrases returns each distinct candidate once, in first-seen order.
func candidatePhrases(text string) [][]string {
	var (
		out    [][]string
		seen   = make(map[string]struct{})
		buffer []string
	)
	flush := func() {
		if len(buffer) >= minPhraseWords && len(buffer) <= maxPhraseWords {
			key := strings.Join(buffer, " ")
			if _, ok := seen[key]; !ok {
				seen[key] = struct{}{}
				out = append(out, append([]string(nil), buffer...))
			}
		}
		buffer = buffer[:0]
	}
	for _, sentence := range sentenceBreak.Split(text, -1) {
		for _, token := range wordPunct.FindAllString(strings.ToLower(sentence), -1) {
			if !isWordToken(token) {
				flush()
				continue
			}
			if _, stop := englishStopwords[token]; stop {
				flush()
				continue
			}
			buffer = append(buffer, token)
		}
		flush()
	}
	return out
}

// isWordToken relies on wordPunct never mixing word and punctuation runes in
// one match.
func isWordToken(token string) bool {
	r, _ := utf8.DecodeRuneInString(token)
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
