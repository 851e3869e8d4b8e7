package daemon_test

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"reelscope/internal/config"
	"reelscope/internal/daemon"
	"reelscope/internal/events"
	"reelscope/internal/media"
	"reelscope/internal/notifications"
	"reelscope/internal/pipeline"
	"reelscope/internal/stage"
	"reelscope/internal/testsupport"
)

type fakeDownloader struct {
	dir   string
	calls atomic.Int32
}

func (f *fakeDownloader) Download(_ context.Context, _ media.Request, report stage.ProgressFunc) (*media.VideoArtifact, error) {
	f.calls.Add(1)
	report(0.5, "Downloading video...")
	artifact := media.NewVideoArtifact(filepath.Join(f.dir, "video_0a1b2c3d.mp4"))
	artifact.Title = "A clip"
	return &artifact, nil
}

type fakeTranscriber struct{}

func (fakeTranscriber) Transcribe(_ context.Context, _, _, _ string, report stage.ProgressFunc) (*media.Transcription, error) {
	report(1, "Transcribing...")
	segments := []media.Segment{{Start: 0, End: 5, Text: "hello"}}
	return &media.Transcription{FullText: media.JoinSegments(segments), Segments: segments, Language: "en"}, nil
}

type fakeFetcher struct{}

func (fakeFetcher) FetchComments(context.Context, media.Request, stage.ProgressFunc) (*media.CommentSet, error) {
	return media.NewCommentSet([]media.Comment{
		{Text: "love this so much", LikeCount: 3},
		{Text: "terrible audio", LikeCount: 1},
	}, media.PostMetadata{Shortcode: "Cabc123"}, false), nil
}

type silentNotifier struct {
	sent atomic.Int32
}

func (n *silentNotifier) Publish(context.Context, notifications.Event, notifications.Payload) error {
	n.sent.Add(1)
	return nil
}

type fixture struct {
	cfg      *config.Config
	manager  *pipeline.Manager
	daemon   *daemon.Daemon
	server   *httptest.Server
	download *fakeDownloader
	notifier *silentNotifier
}

func newFixture(t *testing.T, opts ...testsupport.ConfigOption) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	f := &fixture{cfg: cfg, download: &fakeDownloader{dir: cfg.Paths.DownloadDir}, notifier: &silentNotifier{}}
	orch := pipeline.NewOrchestrator(pipeline.Stages{
		Downloader:  f.download,
		Transcriber: fakeTranscriber{},
		Comments:    fakeFetcher{},
	}, pipeline.WithEphemeralStorage(cfg.Pipeline.EphemeralStorage), pipeline.WithRemover(func(string) error { return nil }))

	var seq atomic.Int32
	managerOpts := []pipeline.ManagerOption{
		pipeline.WithNotifier(f.notifier),
		pipeline.WithIDGenerator(func() string { return fmt.Sprintf("run-%d", seq.Add(1)) }),
	}
	var daemonOpts []daemon.Option
	if cfg.History.Enabled {
		store := testsupport.MustOpenHistory(t, cfg)
		managerOpts = append(managerOpts, pipeline.WithArchive(store))
		daemonOpts = append(daemonOpts, daemon.WithHistory(store))
	}
	daemonOpts = append(daemonOpts,
		daemon.WithNotifier(f.notifier),
		daemon.WithVersionProbe(func(context.Context, string, ...string) (string, error) { return "stub 1.0", nil }),
	)
	f.manager = pipeline.NewManager(cfg, orch, managerOpts...)

	d, err := daemon.New(cfg, f.manager, nil, daemonOpts...)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	f.daemon = d
	f.server = httptest.NewServer(d.Handler())
	t.Cleanup(func() {
		f.server.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = f.manager.Wait(ctx)
	})
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string, header http.Header) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, f.server.URL+path, reader)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	for key, values := range header {
		req.Header[key] = values
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := f.server.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (f *fixture) await(t *testing.T, id string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := f.manager.Await(ctx, id); err != nil {
		t.Fatalf("Await(%s): %v", id, err)
	}
	if err := f.manager.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

type sseEvent struct {
	id    string
	event string
	frame events.Frame
}

// readSSE parses a complete event stream, skipping keep-alive comments.
func readSSE(t *testing.T, body io.Reader) []sseEvent {
	t.Helper()
	var (
		out     []sseEvent
		current sseEvent
		data    string
	)
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if data != "" {
				if err := json.Unmarshal([]byte(data), &current.frame); err != nil {
					t.Fatalf("decode frame %q: %v", data, err)
				}
				out = append(out, current)
			}
			current, data = sseEvent{}, ""
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "id: "):
			current.id = strings.TrimPrefix(line, "id: ")
		case strings.HasPrefix(line, "event: "):
			current.event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("read stream: %v", err)
	}
	return out
}
