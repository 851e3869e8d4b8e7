package stageexec

import (
	"context"
	"errors"
	"sync"
	"testing"

	"reelscope/internal/logging"
	"reelscope/internal/services"
	"reelscope/internal/stage"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) sink(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) terminals() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if e.Terminal {
			out = append(out, e)
		}
	}
	return out
}

func TestRunSuccessMapsProgress(t *testing.T) {
	rec := &recorder{}
	opts := Options{
		Logger:          logging.NewNop(),
		Stage:           stage.Download,
		Sink:            rec.sink,
		StartMessage:    "Downloading video...",
		CompleteMessage: "Download complete",
		FailurePrefix:   "Download failed: ",
	}
	out := Run(context.Background(), opts, func(_ context.Context, report stage.ProgressFunc) (string, error) {
		report(0.5, "")
		report(1.0, "merging")
		return "video.mp4", nil
	})
	if !out.OK() || out.Value != "video.mp4" {
		t.Fatalf("unexpected outcome %+v", out)
	}

	want := []Event{
		{Stage: stage.Download, Step: stage.StepDownloading, Progress: 5, Message: "Downloading video..."},
		{Stage: stage.Download, Step: stage.StepDownloading, Progress: 20, Message: "Downloading video..."},
		{Stage: stage.Download, Step: stage.StepDownloading, Progress: 35, Message: "merging"},
		{Stage: stage.Download, Step: stage.StepDownloading, Progress: 35, Message: "Download complete", Terminal: true, Kind: stage.Success},
	}
	if len(rec.events) != len(want) {
		t.Fatalf("expected %d events, got %d: %+v", len(want), len(rec.events), rec.events)
	}
	for i := range want {
		if rec.events[i] != want[i] {
			t.Fatalf("event %d = %+v, want %+v", i, rec.events[i], want[i])
		}
	}
}

func TestRunClassifiesFailures(t *testing.T) {
	boom := services.Wrap(services.ErrTimeout, "transcribe", "whisperx", "deadline exceeded", nil)
	tests := []struct {
		name   string
		stage  stage.ID
		prefix string
		kind   stage.Kind
	}{
		{"download is fatal", stage.Download, "Download failed: ", stage.FatalFailure},
		{"transcribe is partial", stage.Transcribe, "Transcription failed: ", stage.PartialFailure},
		{"fetch is partial", stage.FetchComments, "Could not fetch comments: ", stage.PartialFailure},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := &recorder{}
			out := Run(context.Background(), Options{Stage: tc.stage, Sink: rec.sink, FailurePrefix: tc.prefix},
				func(context.Context, stage.ProgressFunc) (int, error) { return 7, boom })
			if out.Kind != tc.kind {
				t.Fatalf("expected %v, got %v", tc.kind, out.Kind)
			}
			if out.Value != 0 {
				t.Fatalf("failed outcome must not carry a value, got %d", out.Value)
			}
			if !errors.Is(out.Err, services.ErrTimeout) {
				t.Fatalf("expected timeout marker, got %v", out.Err)
			}
			terms := rec.terminals()
			if len(terms) != 1 {
				t.Fatalf("expected one terminal event, got %d", len(terms))
			}
			if terms[0].Message != tc.prefix+"transcribe: whisperx: deadline exceeded" {
				t.Fatalf("unexpected terminal message %q", terms[0].Message)
			}
		})
	}
}

func TestRunRecoversPanics(t *testing.T) {
	rec := &recorder{}
	out := Run(context.Background(), Options{Stage: stage.Analyse, Sink: rec.sink},
		func(context.Context, stage.ProgressFunc) (*int, error) { panic("nil map write") })
	if out.Kind != stage.PartialFailure || out.Value != nil {
		t.Fatalf("expected partial failure with nil value, got %+v", out)
	}
	if !errors.Is(out.Err, services.ErrExternalTool) {
		t.Fatalf("expected external tool marker, got %v", out.Err)
	}
	if len(rec.terminals()) != 1 {
		t.Fatal("panic must still produce exactly one terminal event")
	}
}

func TestRunLogsLifecycle(t *testing.T) {
	capture := logging.NewCaptureHandler()
	logger := logging.TeeLogger(nil, capture)
	Run(context.Background(), Options{Logger: logger, Stage: stage.Transcribe},
		func(context.Context, stage.ProgressFunc) (bool, error) { return false, errors.New("no audio") })
	types := capture.EventTypes()
	if len(types) != 2 || types[0] != "stage_start" || types[1] != "stage_partial" {
		t.Fatalf("unexpected event types %v", types)
	}
	for _, rec := range capture.Records() {
		if rec.Attrs[logging.FieldStage] != "transcribe" {
			t.Fatalf("expected stage attr on %q, got %v", rec.Message, rec.Attrs)
		}
	}
}

func TestRunNilFunc(t *testing.T) {
	out := Run[int](context.Background(), Options{Stage: stage.Download}, nil)
	if !out.Fatal() || !errors.Is(out.Err, services.ErrConfiguration) {
		t.Fatalf("expected fatal configuration failure, got %+v", out)
	}
}
