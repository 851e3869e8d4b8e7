package pipeline_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"reelscope/internal/analysis"
	"reelscope/internal/media"
	"reelscope/internal/notifications"
	"reelscope/internal/runs"
	"reelscope/internal/stage"
)

type stubDownloader struct {
	calls    atomic.Int32
	steps    []float64
	artifact *media.VideoArtifact
	err      error
	gate     chan struct{}
}

func (s *stubDownloader) Download(ctx context.Context, req media.Request, report stage.ProgressFunc) (*media.VideoArtifact, error) {
	s.calls.Add(1)
	if s.gate != nil {
		<-s.gate
	}
	for _, p := range s.steps {
		report(p, "Downloading video...")
	}
	if s.err != nil {
		return nil, s.err
	}
	out := *s.artifact
	return &out, nil
}

func newDownloader() *stubDownloader {
	artifact := media.NewVideoArtifact("/tmp/downloads/video_0a1b2c3d.mp4")
	artifact.Title = "A clip"
	return &stubDownloader{artifact: &artifact}
}

type stubTranscriber struct {
	calls      atomic.Int32
	result     *media.Transcription
	err        error
	panicValue any
	gotPath    string
	gotModel   string
}

func (s *stubTranscriber) Transcribe(ctx context.Context, path, model, lang string, report stage.ProgressFunc) (*media.Transcription, error) {
	s.calls.Add(1)
	s.gotPath, s.gotModel = path, model
	if s.panicValue != nil {
		panic(s.panicValue)
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func newTranscriber() *stubTranscriber {
	segments := []media.Segment{{Start: 0, End: 5, Text: "hello"}}
	return &stubTranscriber{result: &media.Transcription{
		FullText: media.JoinSegments(segments),
		Segments: segments,
		Language: "en",
	}}
}

type stubFetcher struct {
	calls atomic.Int32
	set   *media.CommentSet
	err   error
}

func (s *stubFetcher) FetchComments(ctx context.Context, req media.Request, report stage.ProgressFunc) (*media.CommentSet, error) {
	s.calls.Add(1)
	report(0.5, "Fetching comments...")
	if s.err != nil {
		return nil, s.err
	}
	return s.set, nil
}

func newFetcher(comments ...media.Comment) *stubFetcher {
	return &stubFetcher{set: media.NewCommentSet(comments, media.PostMetadata{Shortcode: "Cabc123"}, false)}
}

// countingAnalyzer delegates to the real engine and counts calls.
type countingAnalyzer struct {
	sentiment      atomic.Int32
	keyPoints      atomic.Int32
	transcript     atomic.Int32
	panicSentiment bool
}

func (a *countingAnalyzer) Sentiment(comments []media.Comment) *media.SentimentReport {
	a.sentiment.Add(1)
	if a.panicSentiment {
		panic("boom")
	}
	return analysis.Engine{}.Sentiment(comments)
}

func (a *countingAnalyzer) CommentKeyPoints(comments []media.Comment) *media.KeyPointSet {
	a.keyPoints.Add(1)
	return analysis.Engine{}.CommentKeyPoints(comments)
}

func (a *countingAnalyzer) TranscriptKeyPoints(text string) *media.KeyPointSet {
	a.transcript.Add(1)
	return analysis.Engine{}.TranscriptKeyPoints(text)
}

type progressCall struct {
	step     stage.Step
	progress int
	message  string
}

type recorder struct {
	mu     sync.Mutex
	frames []progressCall
	notes  []string
}

func (r *recorder) Progress(step stage.Step, progress int, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, progressCall{step, progress, message})
}

func (r *recorder) Note(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, message)
}

func (r *recorder) calls() []progressCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]progressCall(nil), r.frames...)
}

func (r *recorder) has(step stage.Step, progress int, message string) bool {
	for _, c := range r.calls() {
		if c.step == step && c.progress == progress && c.message == message {
			return true
		}
	}
	return false
}

func (r *recorder) stepSeen(step stage.Step) bool {
	for _, c := range r.calls() {
		if c.step == step {
			return true
		}
	}
	return false
}

type recordedEvent struct {
	event   notifications.Event
	payload notifications.Payload
}

type stubNotifier struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (s *stubNotifier) Publish(_ context.Context, event notifications.Event, payload notifications.Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, recordedEvent{event, payload})
	return nil
}

func (s *stubNotifier) snapshot() []recordedEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]recordedEvent(nil), s.events...)
}

type stubArchive struct {
	mu      sync.Mutex
	records []runs.Run
}

func (s *stubArchive) Record(_ context.Context, run runs.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, run)
	return nil
}

func (s *stubArchive) snapshot() []runs.Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]runs.Run(nil), s.records...)
}

func mustRequest(t *testing.T, url string) media.Request {
	t.Helper()
	req, err := media.NewRequest(media.RequestInput{URL: url}, media.DefaultsFromConfig(nil))
	if err != nil {
		t.Fatalf("NewRequest(%q): %v", url, err)
	}
	return req
}
