package pipeline_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"

	"reelscope/internal/media"
	"reelscope/internal/pipeline"
	"reelscope/internal/services"
	"reelscope/internal/stage"
)

type harness struct {
	download   *stubDownloader
	transcribe *stubTranscriber
	fetch      *stubFetcher
	analyzer   *countingAnalyzer
	reporter   *recorder
}

func newHarness() *harness {
	return &harness{
		download:   newDownloader(),
		transcribe: newTranscriber(),
		fetch:      newFetcher(),
		analyzer:   &countingAnalyzer{},
		reporter:   &recorder{},
	}
}

func (h *harness) orchestrator(opts ...pipeline.Option) *pipeline.Orchestrator {
	return pipeline.NewOrchestrator(pipeline.Stages{
		Downloader:  h.download,
		Transcriber: h.transcribe,
		Comments:    h.fetch,
		Analyzer:    h.analyzer,
	}, opts...)
}

func (h *harness) run(t *testing.T, url string, opts ...pipeline.Option) (*media.AggregateResult, error) {
	t.Helper()
	return h.orchestrator(opts...).Execute(context.Background(), mustRequest(t, url), h.reporter)
}

func TestExecuteTranscribesNonInstagramVideo(t *testing.T) {
	h := newHarness()
	result, err := h.run(t, "https://youtube.com/watch?v=X")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Video == nil || result.Transcription == nil || result.TranscriptionKeyPoints == nil {
		t.Fatalf("expected video, transcription and transcript key points: %+v", result)
	}
	if result.Comments != nil || result.Sentiment != nil || result.CommentKeyPoints != nil {
		t.Fatalf("expected comment fields nil for youtube: %+v", result)
	}
	if result.IsCommentEligible || result.Platform != "youtube" {
		t.Fatalf("unexpected platform fields: %s eligible=%v", result.Platform, result.IsCommentEligible)
	}
	if result.Video.VideoURL != "/api/video/video_0a1b2c3d.mp4" {
		t.Fatalf("video url = %q", result.Video.VideoURL)
	}
	if h.transcribe.gotPath != "/tmp/downloads/video_0a1b2c3d.mp4" || h.transcribe.gotModel != "base" {
		t.Fatalf("transcriber got path=%q model=%q", h.transcribe.gotPath, h.transcribe.gotModel)
	}

	want := []progressCall{
		{stage.StepDownloading, 5, "Downloading video..."},
		{stage.StepDownloading, 35, "Download complete"},
		{stage.StepTranscribing, 38, "Loading transcription model..."},
		{stage.StepTranscribing, 65, "Extracting key points..."},
		{stage.StepTranscribing, 70, "Transcription complete"},
		{stage.StepDone, 100, "Complete"},
	}
	if got := h.reporter.calls(); !reflect.DeepEqual(got, want) {
		t.Fatalf("progress calls:\n got %+v\nwant %+v", got, want)
	}
}

func TestExecuteAnalysesInstagramComments(t *testing.T) {
	long := strings.Repeat("long comment text ", 8)
	h := newHarness()
	h.fetch = newFetcher(
		media.Comment{Text: "I love this, amazing work!", Author: "a", LikeCount: 10},
		media.Comment{Text: "This is terrible and boring", Author: "b", LikeCount: 5},
		media.Comment{Text: long, Author: "c", LikeCount: 1},
	)

	result, err := h.run(t, "https://www.instagram.com/reel/Cabc123/")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !result.IsCommentEligible || result.Comments == nil || result.Comments.Count != 3 {
		t.Fatalf("expected 3 fetched comments: %+v", result.Comments)
	}
	if result.Sentiment == nil || result.CommentKeyPoints == nil {
		t.Fatalf("expected sentiment and comment key points")
	}
	if len(result.Sentiment.MostPositive) != 3 || len(result.Sentiment.MostNegative) != 3 {
		t.Fatalf("ranked subsets = %d/%d, want 3/3", len(result.Sentiment.MostPositive), len(result.Sentiment.MostNegative))
	}

	var popular []string
	for _, line := range result.CommentKeyPoints.Summary {
		if strings.HasPrefix(line, "Popular comment") {
			popular = append(popular, line)
		}
	}
	want := []string{
		`Popular comment (10 likes): "I love this, amazing work!"`,
		`Popular comment (5 likes): "This is terrible and boring"`,
		`Popular comment (1 likes): "` + string([]rune(long)[:100]) + `..."`,
	}
	if !reflect.DeepEqual(popular, want) {
		t.Fatalf("popular comments:\n got %q\nwant %q", popular, want)
	}

	for _, c := range []progressCall{
		{stage.StepFetchingComments, 72, "Fetching Instagram comments..."},
		{stage.StepFetchingComments, 80, "Fetching comments..."},
		{stage.StepFetchingComments, 88, "Comments fetched"},
		{stage.StepAnalysing, 90, "Running sentiment analysis..."},
		{stage.StepAnalysing, 98, "Analysis complete"},
		{stage.StepDone, 100, "Complete"},
	} {
		if !h.reporter.has(c.step, c.progress, c.message) {
			t.Fatalf("missing progress call %+v in %+v", c, h.reporter.calls())
		}
	}
	if h.analyzer.sentiment.Load() != 1 || h.analyzer.keyPoints.Load() != 1 {
		t.Fatalf("analysis calls = %d/%d", h.analyzer.sentiment.Load(), h.analyzer.keyPoints.Load())
	}
}

func TestTranscriptionFailureIsPartial(t *testing.T) {
	h := newHarness()
	h.transcribe.err = services.Wrap(services.ErrExternalTool, "transcribe", "whisperx", "model crashed", nil)

	result, err := h.run(t, "https://youtube.com/watch?v=X")
	if err != nil {
		t.Fatalf("transcription failure must not be fatal: %v", err)
	}
	if result.Video == nil {
		t.Fatal("video must survive a transcription failure")
	}
	if result.Transcription != nil || result.TranscriptionKeyPoints != nil {
		t.Fatalf("expected nil transcription fields, got %+v", result)
	}
	msg := "Transcription failed: transcribe: whisperx: model crashed"
	if !h.reporter.has(stage.StepTranscribing, 70, msg) {
		t.Fatalf("missing failure frame in %+v", h.reporter.calls())
	}
	if len(h.reporter.notes) != 1 || h.reporter.notes[0] != msg {
		t.Fatalf("notes = %q", h.reporter.notes)
	}
	if h.analyzer.transcript.Load() != 0 {
		t.Fatal("transcript key points must not run without a transcription")
	}
	if !h.reporter.has(stage.StepDone, 100, "Complete") {
		t.Fatal("run should still reach done")
	}
}

func TestTranscriberPanicIsContained(t *testing.T) {
	h := newHarness()
	h.transcribe.panicValue = "nil map"

	result, err := h.run(t, "https://youtube.com/watch?v=X")
	if err != nil {
		t.Fatalf("panic must become a partial failure: %v", err)
	}
	if result.Transcription != nil || result.Video == nil {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestDownloadFailureShortCircuits(t *testing.T) {
	h := newHarness()
	h.download.err = services.Wrap(services.ErrExternalTool, "download", "yt-dlp", "Unsupported URL", nil)

	result, err := h.run(t, "https://www.instagram.com/reel/Cabc123/")
	if result != nil {
		t.Fatalf("expected no result, got %+v", result)
	}
	var fatal *pipeline.FatalError
	if !errors.As(err, &fatal) {
		t.Fatalf("expected FatalError, got %v", err)
	}
	if fatal.Stage != stage.Download || fatal.Message != "Download failed: download: yt-dlp: Unsupported URL" {
		t.Fatalf("unexpected fatal error %+v", fatal)
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatal("fatal error should unwrap to the stage error")
	}
	if n := h.transcribe.calls.Load() + h.fetch.calls.Load(); n != 0 {
		t.Fatalf("later stages called %d times", n)
	}
	if n := h.analyzer.sentiment.Load() + h.analyzer.keyPoints.Load() + h.analyzer.transcript.Load(); n != 0 {
		t.Fatalf("analysis called %d times", n)
	}
	calls := h.reporter.calls()
	if len(calls) != 1 || calls[0].progress != 5 {
		t.Fatalf("expected only the start frame, got %+v", calls)
	}
}

func TestMissingArtifactIsFatal(t *testing.T) {
	h := newHarness()
	orch := pipeline.NewOrchestrator(pipeline.Stages{
		Downloader:  nilDownloader{},
		Transcriber: h.transcribe,
	})
	_, err := orch.Execute(context.Background(), mustRequest(t, "https://youtube.com/watch?v=X"), nil)
	if err == nil || h.transcribe.calls.Load() != 0 {
		t.Fatalf("expected fatal error before transcription, got %v", err)
	}
}

type nilDownloader struct{}

func (nilDownloader) Download(context.Context, media.Request, stage.ProgressFunc) (*media.VideoArtifact, error) {
	return nil, nil
}

func TestNonInstagramPlatformsSkipComments(t *testing.T) {
	for _, url := range []string{
		"https://x.com/user/status/1",
		"https://www.tiktok.com/@u/video/1",
		"https://threads.net/@u/post/1",
		"https://example.com/clip.mp4",
	} {
		t.Run(url, func(t *testing.T) {
			h := newHarness()
			h.fetch = newFetcher(media.Comment{Text: "great", LikeCount: 1})
			result, err := h.run(t, url)
			if err != nil {
				t.Fatalf("Execute: %v", err)
			}
			if h.fetch.calls.Load() != 0 || h.analyzer.sentiment.Load() != 0 || h.analyzer.keyPoints.Load() != 0 {
				t.Fatal("comment stages must not run")
			}
			if result.Comments != nil || result.Sentiment != nil || result.CommentKeyPoints != nil {
				t.Fatalf("expected nil comment fields: %+v", result)
			}
			if h.reporter.stepSeen(stage.StepFetchingComments) || h.reporter.stepSeen(stage.StepAnalysing) {
				t.Fatal("no comment progress expected")
			}
		})
	}
}

func TestEmptyCommentsSkipAnalysis(t *testing.T) {
	h := newHarness()
	result, err := h.run(t, "https://instagram.com/p/Cabc123/")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if h.fetch.calls.Load() != 1 {
		t.Fatalf("fetch calls = %d", h.fetch.calls.Load())
	}
	if result.Comments == nil || !result.Comments.Empty() {
		t.Fatalf("expected empty comment set, got %+v", result.Comments)
	}
	if result.Sentiment != nil || result.CommentKeyPoints != nil {
		t.Fatal("analysis fields must stay nil for empty comments")
	}
	if h.analyzer.sentiment.Load() != 0 || h.analyzer.keyPoints.Load() != 0 {
		t.Fatal("analysis must not be invoked")
	}
	if h.reporter.stepSeen(stage.StepAnalysing) {
		t.Fatal("no analysing progress expected")
	}
}

func TestFetchFailureLeavesCommentsNil(t *testing.T) {
	h := newHarness()
	h.fetch.err = services.Wrap(services.ErrAuthRequired, "fetch_comments", "comments", "login required", nil)

	result, err := h.run(t, "https://instagram.com/reel/Cabc123/")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Comments != nil || result.Sentiment != nil || result.CommentKeyPoints != nil {
		t.Fatalf("expected nil comment fields: %+v", result)
	}
	if result.Transcription == nil {
		t.Fatal("transcription must survive a fetch failure")
	}
	if !h.reporter.has(stage.StepFetchingComments, 88, "Could not fetch comments: fetch_comments: comments: login required") {
		t.Fatalf("missing fetch failure frame in %+v", h.reporter.calls())
	}
	if h.analyzer.sentiment.Load() != 0 {
		t.Fatal("analysis must not run after a failed fetch")
	}
}

func TestAnalysisBranchPanicKeepsOtherBranch(t *testing.T) {
	h := newHarness()
	h.fetch = newFetcher(media.Comment{Text: "so good", LikeCount: 3})
	h.analyzer.panicSentiment = true

	result, err := h.run(t, "https://instagram.com/reel/Cabc123/")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Sentiment != nil {
		t.Fatal("panicking branch must leave sentiment nil")
	}
	if result.CommentKeyPoints == nil {
		t.Fatal("independent branch must still produce key points")
	}
	if len(h.reporter.notes) != 1 || h.reporter.notes[0] != "Analysis incomplete: sentiment: boom" {
		t.Fatalf("notes = %q", h.reporter.notes)
	}
	if !h.reporter.has(stage.StepAnalysing, 98, "Analysis complete") {
		t.Fatal("analysis stage should still complete")
	}
}

func TestEphemeralVideoRemovedOnce(t *testing.T) {
	var removed atomic.Int32
	var removedPath atomic.Value
	remover := pipeline.WithRemover(func(path string) error {
		removed.Add(1)
		removedPath.Store(path)
		return nil
	})

	h := newHarness()
	h.transcribe.err = errors.New("whisperx exploded")
	result, err := h.run(t, "https://youtube.com/watch?v=X", pipeline.WithEphemeralStorage(true), remover)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if removed.Load() != 1 || removedPath.Load() != "/tmp/downloads/video_0a1b2c3d.mp4" {
		t.Fatalf("removed %d times (%v)", removed.Load(), removedPath.Load())
	}
	if result.Video.VideoURL != "" || result.Video.VideoData != "" {
		t.Fatalf("missing file yields neither url nor data, got %+v", result.Video)
	}

	failed := newHarness()
	failed.download.err = errors.New("offline")
	if _, err := failed.run(t, "https://youtube.com/watch?v=X", pipeline.WithEphemeralStorage(true), remover); err == nil {
		t.Fatal("expected fatal error")
	}
	if removed.Load() != 1 {
		t.Fatal("nothing to remove when the download failed")
	}
}

func TestEphemeralVideoInlinedUnderLimit(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name     string
		file     string
		limit    int64
		wantData string
	}{
		{"webm under limit", "clip.webm", 0, "data:video/webm;base64,YWJj"},
		{"mkv under limit", "clip.MKV", 0, "data:video/x-matroska;base64,YWJj"},
		{"unknown extension falls back to mp4", "clip.bin", 0, "data:video/mp4;base64,YWJj"},
		{"exactly at the limit", "clip.mp4", 3, "data:video/mp4;base64,YWJj"},
		{"over the limit", "clip.mp4", 2, ""},
		{"inlining disabled", "clip.mp4", -1, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			if err := os.WriteFile(path, []byte("abc"), 0o644); err != nil {
				t.Fatalf("write video: %v", err)
			}
			var removed []string
			opts := []pipeline.Option{
				pipeline.WithEphemeralStorage(true),
				pipeline.WithRemover(func(p string) error {
					if _, err := os.Stat(p); err != nil {
						t.Errorf("file should exist until release: %v", err)
					}
					removed = append(removed, p)
					return nil
				}),
			}
			if tt.limit != 0 {
				opts = append(opts, pipeline.WithInlineVideoLimit(tt.limit))
			}

			h := newHarness()
			h.download.artifact.Path = path
			h.download.artifact.FileName = tt.file
			result, err := h.run(t, "https://youtube.com/watch?v=X", opts...)
			if err != nil {
				t.Fatalf("Execute: %v", err)
			}
			if result.Video.VideoData != tt.wantData {
				t.Fatalf("video data = %q, want %q", result.Video.VideoData, tt.wantData)
			}
			if result.Video.VideoURL != "" {
				t.Fatalf("ephemeral videos are not served, got %q", result.Video.VideoURL)
			}
			if len(removed) != 1 || removed[0] != path {
				t.Fatalf("removed %v, want %s once", removed, path)
			}
		})
	}
}

func TestDefaultInlineVideoLimit(t *testing.T) {
	if pipeline.DefaultInlineVideoLimit != 10*1024*1024 {
		t.Fatalf("default limit = %d", pipeline.DefaultInlineVideoLimit)
	}
	path := filepath.Join(t.TempDir(), "big.mp4")
	if err := os.WriteFile(path, make([]byte, pipeline.DefaultInlineVideoLimit+1), 0o644); err != nil {
		t.Fatalf("write video: %v", err)
	}
	h := newHarness()
	h.download.artifact.Path = path
	result, err := h.run(t, "https://youtube.com/watch?v=X",
		pipeline.WithEphemeralStorage(true),
		pipeline.WithRemover(func(string) error { return nil }),
	)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Video.VideoData != "" {
		t.Fatal("files over the default limit must not be inlined")
	}
}

func TestKeptVideoIsNotInlined(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(path, []byte("abc"), 0o644); err != nil {
		t.Fatalf("write video: %v", err)
	}
	h := newHarness()
	h.download.artifact.Path = path
	result, err := h.run(t, "https://youtube.com/watch?v=X")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Video.VideoData != "" || result.Video.VideoURL == "" {
		t.Fatalf("kept videos are served by URL, got %+v", result.Video)
	}
}

func TestKeptVideoIsNotRemoved(t *testing.T) {
	var removed atomic.Int32
	h := newHarness()
	if _, err := h.run(t, "https://youtube.com/watch?v=X", pipeline.WithRemover(func(string) error {
		removed.Add(1)
		return nil
	})); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if removed.Load() != 0 {
		t.Fatal("non-ephemeral runs keep their video")
	}
}
