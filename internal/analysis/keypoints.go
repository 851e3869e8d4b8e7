package analysis

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"reelscope/internal/media"
)

const (
	// MaxKeyPoints bounds both phrase and theme lists.
	MaxKeyPoints = 10

	summaryTopics     = 5
	popularComments   = 3
	popularTextLimit  = 100
	contextTextLimit  = 150
	minContextLength  = 20
	noCommentText     = "No comment text available for analysis."
	noCommentPoints   = "Not enough data to extract meaningful points."
	noTranscriptText  = "No transcription text available."
	noTranscriptPoint = "Not enough content to extract key points."
)

var (
	themeWord     = regexp.MustCompile(`\b[a-zA-Z]{3,}\b`)
	sentenceSplit = regexp.MustCompile(`[.!?]+`)
)

// Themes counts words of three or more ASCII letters, lower-cased, minus
// stopwords. Ties keep first-occurrence order.
func Themes(text string, limit int) []media.Theme {
	if limit <= 0 {
		return nil
	}
	counts := make(map[string]int)
	var order []string
	for _, word := range themeWord.FindAllString(strings.ToLower(text), -1) {
		if _, stop := themeStopwords[word]; stop {
			continue
		}
		if counts[word] == 0 {
			order = append(order, word)
		}
		counts[word]++
	}
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > limit {
		order = order[:limit]
	}
	out := make([]media.Theme, 0, len(order))
	for _, word := range order {
		out = append(out, media.Theme{Word: word, Count: counts[word]})
	}
	return out
}

// CommentKeyPoints extracts phrases and themes from the joined comment texts
// and synthesizes summary lines in a fixed order: topics, frequent words, then
// the most-liked comments.
func CommentKeyPoints(comments []media.Comment) *media.KeyPointSet {
	texts := make([]string, 0, len(comments))
	for _, c := range comments {
		if c.Text != "" {
			texts = append(texts, c.Text)
		}
	}
	joined := strings.Join(texts, " ")
	if strings.TrimSpace(joined) == "" {
		return &media.KeyPointSet{
			Phrases: []media.RankedPhrase{},
			Themes:  []media.Theme{},
			Summary: []string{noCommentText},
		}
	}

	phrases := ExtractPhrases(joined, MaxKeyPoints)
	themes := Themes(joined, MaxKeyPoints)

	var summary []string
	if len(phrases) > 0 {
		summary = append(summary, "Top topics discussed: "+strings.Join(phraseTexts(phrases, summaryTopics), ", "))
	}
	if len(themes) > 0 {
		words := make([]string, 0, summaryTopics)
		for _, th := range themes[:min(len(themes), summaryTopics)] {
			words = append(words, th.Word)
		}
		summary = append(summary, "Most frequently mentioned: "+strings.Join(words, ", "))
	}
	for _, c := range mostLiked(comments, popularComments) {
		summary = append(summary, fmt.Sprintf(`Popular comment (%d likes): "%s"`, c.LikeCount, truncate(c.Text, popularTextLimit)))
	}
	if len(summary) == 0 {
		summary = []string{noCommentPoints}
	}
	return &media.KeyPointSet{Phrases: nonNil(phrases), Themes: nonNilThemes(themes), Summary: summary}
}

// TranscriptKeyPoints extracts phrases from transcript text and, when a
// sentence longer than twenty characters mentions the top phrase, quotes the
// first such sentence as context. No context line is invented otherwise.
func TranscriptKeyPoints(text string) *media.KeyPointSet {
	if strings.TrimSpace(text) == "" {
		return &media.KeyPointSet{Phrases: []media.RankedPhrase{}, Summary: []string{noTranscriptText}}
	}
	phrases := ExtractPhrases(text, MaxKeyPoints)

	var summary []string
	if len(phrases) > 0 {
		summary = append(summary, "Key topics in the video: "+strings.Join(phraseTexts(phrases, summaryTopics), ", "))
		top := strings.ToLower(phrases[0].Phrase)
		for _, raw := range sentenceSplit.Split(text, -1) {
			sentence := strings.TrimSpace(raw)
			if len([]rune(sentence)) <= minContextLength {
				continue
			}
			if strings.Contains(strings.ToLower(sentence), top) {
				summary = append(summary, fmt.Sprintf(`Context: "%s..."`, clip(sentence, contextTextLimit)))
				break
			}
		}
	}
	if len(summary) == 0 {
		summary = []string{noTranscriptPoint}
	}
	return &media.KeyPointSet{Phrases: nonNil(phrases), Summary: summary}
}

func mostLiked(comments []media.Comment, n int) []media.Comment {
	var liked []media.Comment
	for _, c := range comments {
		if c.LikeCount > 0 {
			liked = append(liked, c)
		}
	}
	sort.SliceStable(liked, func(i, j int) bool { return liked[i].LikeCount > liked[j].LikeCount })
	if len(liked) > n {
		liked = liked[:n]
	}
	return liked
}

func phraseTexts(phrases []media.RankedPhrase, n int) []string {
	out := make([]string, 0, n)
	for _, p := range phrases[:min(len(phrases), n)] {
		out = append(out, p.Phrase)
	}
	return out
}

// truncate clips to limit runes and marks the cut with an ellipsis.
func truncate(s string, limit int) string {
	if len([]rune(s)) <= limit {
		return s
	}
	return clip(s, limit) + "..."
}

func clip(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

func nonNil(p []media.RankedPhrase) []media.RankedPhrase {
	if p == nil {
		return []media.RankedPhrase{}
	}
	return p
}

func nonNilThemes(t []media.Theme) []media.Theme {
	if t == nil {
		return []media.Theme{}
	}
	return t
}
