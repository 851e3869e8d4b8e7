package analysis

import "reelscope/internal/media"

// Engine exposes the package functions as methods so the pipeline can accept
// any analyzer through an interface.
type Engine struct{}

// Sentiment scores and aggregates comments.
func (Engine) Sentiment(comments []media.Comment) *media.SentimentReport {
	return AnalyzeComments(comments)
}

// CommentKeyPoints extracts comment phrases, themes and summary lines.
func (Engine) CommentKeyPoints(comments []media.Comment) *media.KeyPointSet {
	return CommentKeyPoints(comments)
}

// TranscriptKeyPoints extracts transcript phrases and summary lines.
func (Engine) TranscriptKeyPoints(text string) *media.KeyPointSet {
	return TranscriptKeyPoints(text)
}
