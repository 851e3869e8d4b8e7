package stage

import (
	"errors"
	"testing"

	"reelscope/internal/services"
)

func TestFailedAppliesPolicy(t *testing.T) {
	err := services.Wrap(services.ErrExternalTool, "download", "yt-dlp", "unsupported URL", nil)

	fatal := Failed[int](Download, err)
	if fatal.Kind != FatalFailure || !fatal.Fatal() || fatal.OK() {
		t.Fatalf("expected fatal download failure, got %v", fatal.Kind)
	}
	if !errors.Is(fatal.Err, services.ErrExternalTool) {
		t.Fatalf("expected marker preserved, got %v", fatal.Err)
	}
	if fatal.Message != "download: yt-dlp: unsupported URL" {
		t.Fatalf("unexpected message %q", fatal.Message)
	}

	for _, id := range []ID{Transcribe, FetchComments, Analyse} {
		out := Failed[string](id, err)
		if out.Kind != PartialFailure || out.Fatal() {
			t.Fatalf("%s: expected partial failure, got %v", id, out.Kind)
		}
	}
}

func TestSucceeded(t *testing.T) {
	out := Succeeded(Transcribe, "text")
	if !out.OK() || out.Value != "text" || out.Stage != Transcribe {
		t.Fatalf("unexpected outcome %+v", out)
	}
}

func TestStepMapping(t *testing.T) {
	want := map[ID]Step{
		Download:      StepDownloading,
		Transcribe:    StepTranscribing,
		FetchComments: StepFetchingComments,
		Analyse:       StepAnalysing,
		ID("bogus"):   StepDone,
	}
	for id, step := range want {
		if id.Step() != step {
			t.Fatalf("%s.Step() = %s, want %s", id, id.Step(), step)
		}
	}
}

func TestFailureMessageFallbacks(t *testing.T) {
	if FailureMessage(nil) != "stage failed" {
		t.Fatal("nil error should use fallback")
	}
	if got := FailureMessage(errors.New("boom")); got != "boom" {
		t.Fatalf("unexpected message %q", got)
	}
}
