package media

// SentimentLabel is the three-way classification of a compound score.
type SentimentLabel string

const (
	Positive SentimentLabel = "Positive"
	Negative SentimentLabel = "Negative"
	Neutral  SentimentLabel = "Neutral"
)

// CommentSentiment is the score of a single comment.
type CommentSentiment struct {
	Text     string         `json:"text"`
	Author   string         `json:"owner"`
	Likes    int            `json:"likes"`
	Compound float64        `json:"compound"`
	Positive float64        `json:"positive"`
	Negative float64        `json:"negative"`
	Neutral  float64        `json:"neutral"`
	Label    SentimentLabel `json:"sentiment"`
}

// Distribution counts comments per label.
type Distribution struct {
	Positive int `json:"Positive"`
	Negative int `json:"Negative"`
	Neutral  int `json:"Neutral"`
}

// Percentages is Distribution as one-decimal percentages of the total.
type Percentages struct {
	Positive float64 `json:"Positive"`
	Negative float64 `json:"Negative"`
	Neutral  float64 `json:"Neutral"`
}

// SentimentReport aggregates per-comment scores. Overall classifies
// AverageCompound; it is not a majority vote over Distribution.
type SentimentReport struct {
	Results         []CommentSentiment `json:"results"`
	Distribution    Distribution       `json:"distribution"`
	Percentages     Percentages        `json:"percentages"`
	AverageCompound float64            `json:"average_compound"`
	Overall         SentimentLabel     `json:"overall"`
	MostPositive    []CommentSentiment `json:"most_positive"`
	MostNegative    []CommentSentiment `json:"most_negative"`
	Total           int                `json:"total_analyzed"`
	Summary         string             `json:"summary"`
}

// RankedPhrase is an extracted phrase with its relevance score.
type RankedPhrase struct {
	Phrase string  `json:"phrase"`
	Score  float64 `json:"score"`
}

// Theme is a frequent single word and its count.
type Theme struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// KeyPointSet is the keyword extraction output for transcript or comment text.
type KeyPointSet struct {
	Phrases []RankedPhrase `json:"key_phrases"`
	Themes  []Theme        `json:"themes,omitempty"`
	Summary []string       `json:"summary_points"`
}
