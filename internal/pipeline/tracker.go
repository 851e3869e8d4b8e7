package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"reelscope/internal/events"
	"reelscope/internal/logging"
	"reelscope/internal/media"
	"reelscope/internal/progress"
	"reelscope/internal/runs"
	"reelscope/internal/stage"
)

// tracker is the only writer of one run's registry record and feed. The
// mutex keeps the record and the frame sequence in the same order when
// collaborators report from several goroutines.
type tracker struct {
	mu       sync.Mutex
	id       string
	registry *runs.Registry
	feed     *events.Feed
	logger   *slog.Logger
}

func newTracker(id string, registry *runs.Registry, feed *events.Feed, logger *slog.Logger) *tracker {
	return &tracker{id: id, registry: registry, feed: feed, logger: logger}
}

func (t *tracker) start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.update(func(r *runs.Run) {
		r.Status = runs.StatusRunning
		r.Step = stage.StepDownloading
		r.StartedAt = time.Now().UTC()
	})
}

// Progress stores the clamped value and publishes it, so a late or
// out-of-order callback never moves the displayed progress backwards.
func (t *tracker) Progress(step stage.Step, value int, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	run, ok := t.update(func(r *runs.Run) {
		r.Status = runs.StatusRunning
		r.Step = step
		r.Progress = progress.Clamp(r.Progress, value)
		r.Message = message
	})
	if !ok {
		return
	}
	t.publish(t.feed.Progress(run.Step, run.Progress, run.Message))
}

func (t *tracker) Note(message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.update(func(r *runs.Run) { r.Notes = append(r.Notes, message) })
}

func (t *tracker) complete(result *media.AggregateResult) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.update(func(r *runs.Run) {
		r.Status = runs.StatusComplete
		r.Step = stage.StepDone
		r.Progress = 100
		r.Message = "Complete"
		r.Result = result
	}); !ok {
		return
	}
	t.publish(t.feed.Complete(result))
}

func (t *tracker) fail(message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.update(func(r *runs.Run) {
		r.Status = runs.StatusError
		r.Message = message
		r.Error = message
		r.Result = nil
	}); !ok {
		return
	}
	t.publish(t.feed.Fail(message))
}

func (t *tracker) update(fn func(*runs.Run)) (runs.Run, bool) {
	run, err := t.registry.Update(t.id, fn)
	if err != nil {
		level := slog.LevelWarn
		if errors.Is(err, runs.ErrTerminal) {
			level = slog.LevelDebug
		}
		t.logger.Log(context.Background(), level, "run record update rejected", logging.Error(err))
		return run, false
	}
	return run, true
}

func (t *tracker) publish(_ events.Frame, err error) {
	if err != nil {
		t.logger.Debug("frame dropped", logging.Error(err))
	}
}
