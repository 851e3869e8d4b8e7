package media

import "reelscope/internal/platform"

// AggregateResult is the final payload of a successful run. Every pointer is
// independently nullable; Sentiment and CommentKeyPoints are set only when
// Comments is non-nil and non-empty.
type AggregateResult struct {
	Platform               platform.Platform `json:"platform"`
	IsCommentEligible      bool              `json:"is_comment_eligible"`
	Video                  *VideoArtifact    `json:"video"`
	Transcription          *Transcription    `json:"transcription"`
	TranscriptionKeyPoints *KeyPointSet      `json:"transcription_key_points"`
	Comments               *CommentSet       `json:"comments"`
	Sentiment              *SentimentReport  `json:"sentiment"`
	CommentKeyPoints       *KeyPointSet      `json:"key_points"`
}
