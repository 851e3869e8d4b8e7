package analysis

import (
	"strings"
	"sync"

	"github.com/jonreiter/govader"

	"reelscope/internal/media"
)

const (
	positiveThreshold = 0.05
	negativeThreshold = -0.05
)

// Scores is the polarity breakdown of one text. Compound is normalised to
// [-1,1]; Positive, Negative and Neutral are proportions summing to ~1.
type Scores struct {
	Compound float64
	Positive float64
	Negative float64
	Neutral  float64
}

// The analyzer loads the full VADER lexicon and emoji table once; after that
// it only reads them, so one instance serves every run.
var vader = sync.OnceValue(govader.NewSentimentIntensityAnalyzer)

// Classify maps a compound score onto a label. Both thresholds are inclusive.
func Classify(compound float64) media.SentimentLabel {
	switch {
	case compound >= positiveThreshold:
		return media.Positive
	case compound <= negativeThreshold:
		return media.Negative
	default:
		return media.Neutral
	}
}

// Score rates text with VADER: lexicon valence, boosters, negation,
// capitalised emphasis, contrastive "but" and punctuation.
func Score(text string) Scores {
	if strings.TrimSpace(text) == "" {
		return Scores{Neutral: 1}
	}
	s := vader().PolarityScores(text)
	return Scores{
		Compound: round(s.Compound, 4),
		Positive: round(s.Positive, 3),
		Negative: round(s.Negative, 3),
		Neutral:  round(s.Neutral, 3),
	}
}
