package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"reelscope/internal/media"
)

const rankedSubsetSize = 5

// AnalyzeComments scores every comment with non-blank text and aggregates the
// results. Overall classifies the average compound score, so it can disagree
// with the largest bucket of the distribution.
func AnalyzeComments(comments []media.Comment) *media.SentimentReport {
	results := make([]media.CommentSentiment, 0, len(comments))
	for _, c := range comments {
		if strings.TrimSpace(c.Text) == "" {
			continue
		}
		s := Score(c.Text)
		results = append(results, media.CommentSentiment{
			Text:     c.Text,
			Author:   c.Author,
			Likes:    c.LikeCount,
			Compound: s.Compound,
			Positive: s.Positive,
			Negative: s.Negative,
			Neutral:  s.Neutral,
			Label:    Classify(s.Compound),
		})
	}
	return Summarize(results)
}

// Summarize aggregates already-scored comments. It is separate from
// AnalyzeComments so callers with their own scorer share the same report.
func Summarize(results []media.CommentSentiment) *media.SentimentReport {
	if len(results) == 0 {
		return &media.SentimentReport{
			Results:      []media.CommentSentiment{},
			MostPositive: []media.CommentSentiment{},
			MostNegative: []media.CommentSentiment{},
			Overall:      media.Neutral,
			Summary:      "No comments to analyze",
		}
	}

	var dist media.Distribution
	var sum float64
	for _, r := range results {
		switch r.Label {
		case media.Positive:
			dist.Positive++
		case media.Negative:
			dist.Negative++
		default:
			dist.Neutral++
		}
		sum += r.Compound
	}
	total := len(results)
	avg := sum / float64(total)
	overall := Classify(avg)
	pct := media.Percentages{
		Positive: percent(dist.Positive, total),
		Negative: percent(dist.Negative, total),
		Neutral:  percent(dist.Neutral, total),
	}

	desc := append([]media.CommentSentiment(nil), results...)
	sort.SliceStable(desc, func(i, j int) bool { return desc[i].Compound > desc[j].Compound })
	asc := append([]media.CommentSentiment(nil), results...)
	sort.SliceStable(asc, func(i, j int) bool { return asc[i].Compound < asc[j].Compound })

	return &media.SentimentReport{
		Results:         results,
		Distribution:    dist,
		Percentages:     pct,
		AverageCompound: avg,
		Overall:         overall,
		MostPositive:    desc[:min(rankedSubsetSize, total)],
		MostNegative:    asc[:min(rankedSubsetSize, total)],
		Total:           total,
		Summary: fmt.Sprintf(
			"Overall sentiment: %s (avg score: %.3f). Distribution: %.1f%% positive, %.1f%% negative, %.1f%% neutral across %d comments.",
			overall, avg, pct.Positive, pct.Negative, pct.Neutral, total,
		),
	}
}

func percent(n, total int) float64 {
	return math.Round(float64(n)/float64(total)*1000) / 10
}
