package daemon_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"reelscope/internal/daemon"
	"reelscope/internal/testsupport"
)

func TestDaemonStartStop(t *testing.T) {
	f := newFixture(t)
	t.Cleanup(func() {
		_ = f.daemon.Close()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := f.daemon.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	status := f.daemon.Status(ctx)
	if !status.Running || status.Address == "" {
		t.Fatalf("expected daemon to report running with an address, got %+v", status)
	}

	// Second start should fail
	if err := f.daemon.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	other, err := daemon.New(f.cfg, f.manager, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := other.Start(ctx); err == nil {
		other.Stop()
		t.Fatal("expected lock contention on the shared state directory")
	}

	resp, err := http.Get("http://" + status.Address + "/api/runs")
	if err != nil {
		t.Fatalf("GET /api/runs: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from live listener, got %d", resp.StatusCode)
	}

	f.daemon.Stop()
	time.Sleep(50 * time.Millisecond)
	status = f.daemon.Status(ctx)
	if status.Running {
		t.Fatal("expected daemon to be stopped")
	}

	if err := other.Start(ctx); err != nil {
		t.Fatalf("lock should be free after stop: %v", err)
	}
	other.Stop()
}

func TestTestNotification(t *testing.T) {
	f := newFixture(t)
	ok, message, err := f.daemon.TestNotification(context.Background())
	if ok || err != nil || message != "ntfy topic not configured" {
		t.Fatalf("unexpected result ok=%v message=%q err=%v", ok, message, err)
	}

	f = newFixture(t, testsupport.WithNtfyTopic("https://ntfy.example/reelscope"))
	ok, message, err = f.daemon.TestNotification(context.Background())
	if !ok || err != nil || message != "test notification sent" {
		t.Fatalf("unexpected result ok=%v message=%q err=%v", ok, message, err)
	}
	if f.notifier.sent.Load() != 1 {
		t.Fatalf("expected one notification, got %d", f.notifier.sent.Load())
	}
}
