package pipeline

import (
	"context"

	"reelscope/internal/media"
	"reelscope/internal/stage"
)

// Downloader fetches the video behind a request URL.
type Downloader interface {
	Download(ctx context.Context, req media.Request, report stage.ProgressFunc) (*media.VideoArtifact, error)
}

// Transcriber turns a media file into timestamped text. An empty lang asks
// for auto-detection.
type Transcriber interface {
	Transcribe(ctx context.Context, path, model, lang string, report stage.ProgressFunc) (*media.Transcription, error)
}

// CommentFetcher retrieves the comments of the post behind a request URL.
type CommentFetcher interface {
	FetchComments(ctx context.Context, req media.Request, report stage.ProgressFunc) (*media.CommentSet, error)
}

// Analyzer is the set of pure text analyses. Implementations must be safe
// for concurrent use; the comment analyses run in parallel.
type Analyzer interface {
	Sentiment(comments []media.Comment) *media.SentimentReport
	CommentKeyPoints(comments []media.Comment) *media.KeyPointSet
	TranscriptKeyPoints(text string) *media.KeyPointSet
}

// Stages bundles the collaborators one orchestrator drives.
type Stages struct {
	Downloader  Downloader
	Transcriber Transcriber
	Comments    CommentFetcher
	Analyzer    Analyzer
}

// Reporter receives run-level progress from the orchestrator. Progress values
// are already mapped to the global 0-100 scale; the reporter owns clamping.
type Reporter interface {
	Progress(step stage.Step, progress int, message string)
	Note(message string)
}

type nopReporter struct{}

func (nopReporter) Progress(stage.Step, int, string) {}
func (nopReporter) Note(string)                      {}
