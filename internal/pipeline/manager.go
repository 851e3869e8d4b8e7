package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"reelscope/internal/config"
	"reelscope/internal/events"
	"reelscope/internal/logging"
	"reelscope/internal/media"
	"reelscope/internal/notifications"
	"reelscope/internal/runs"
	"reelscope/internal/services"
)

// Archive persists finished runs.
type Archive interface {
	Record(ctx context.Context, run runs.Run) error
}

// Manager accepts requests and executes each as an independent run.
type Manager struct {
	orchestrator *Orchestrator
	registry     *runs.Registry
	archive      Archive
	notifier     notifications.Service
	logger       *slog.Logger
	defaults     media.RequestDefaults
	slots        chan struct{}
	frameBuffer  int
	retention    time.Duration
	newID        func() string

	mu    sync.Mutex
	feeds map[string]*events.Feed
	wg    sync.WaitGroup
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*Manager)

// WithArchive records terminal runs in a persistent store.
func WithArchive(archive Archive) ManagerOption {
	return func(m *Manager) { m.archive = archive }
}

// WithNotifier replaces the notifier built from configuration.
func WithNotifier(notifier notifications.Service) ManagerOption {
	return func(m *Manager) {
		if notifier != nil {
			m.notifier = notifier
		}
	}
}

// WithManagerLogger sets the manager logger.
func WithManagerLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithIDGenerator replaces uuid run identifiers (used in tests).
func WithIDGenerator(fn func() string) ManagerOption {
	return func(m *Manager) {
		if fn != nil {
			m.newID = fn
		}
	}
}

// NewManager builds a manager around orchestrator using the pipeline limits
// from cfg.
func NewManager(cfg *config.Config, orchestrator *Orchestrator, opts ...ManagerOption) *Manager {
	limit := cfg.Pipeline.MaxConcurrentRuns
	if limit <= 0 {
		limit = 1
	}
	m := &Manager{
		orchestrator: orchestrator,
		registry:     runs.NewRegistry(),
		notifier:     notifications.NewService(cfg),
		logger:       logging.NewNop(),
		defaults:     media.DefaultsFromConfig(cfg),
		slots:        make(chan struct{}, limit),
		frameBuffer:  cfg.Pipeline.FrameBuffer,
		retention:    time.Duration(cfg.Pipeline.RunRetentionMinutes) * time.Minute,
		newID:        uuid.NewString,
		feeds:        make(map[string]*events.Feed),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = logging.NewComponentLogger(m.logger, "run-manager")
	return m
}

// Registry exposes the run registry for read access.
func (m *Manager) Registry() *runs.Registry { return m.registry }

// Submit validates in and starts a run for it. Validation failures return an
// error wrapping services.ErrValidation and never create a run.
func (m *Manager) Submit(ctx context.Context, in media.RequestInput) (runs.Run, error) {
	req, err := media.NewRequest(in, m.defaults)
	if err != nil {
		return runs.Run{}, err
	}
	return m.Start(ctx, req)
}

// Start registers a queued run for an already validated request and executes
// it in the background. The run is detached from ctx cancellation.
func (m *Manager) Start(ctx context.Context, req media.Request) (runs.Run, error) {
	m.Prune()

	id := m.newID()
	feed := events.NewFeed(id, m.frameBuffer)
	m.mu.Lock()
	m.feeds[id] = feed
	m.mu.Unlock()

	run, err := m.registry.Insert(runs.Run{
		ID:       id,
		URL:      req.URL,
		Platform: req.Platform,
		Status:   runs.StatusQueued,
		Message:  "Queued",
	})
	if err != nil {
		m.mu.Lock()
		delete(m.feeds, id)
		m.mu.Unlock()
		return runs.Run{}, services.Wrap(services.ErrValidation, "pipeline", "register run", "", err)
	}

	runCtx := logging.WithRunID(context.WithoutCancel(ctx), id)
	logging.WithContext(runCtx, m.logger).Info("run queued",
		logging.String(logging.FieldEventType, "run_queued"),
		logging.String("url", req.URL),
		logging.String("platform", req.Platform.String()),
	)

	m.wg.Add(1)
	go m.execute(runCtx, req, feed)
	return run, nil
}

func (m *Manager) execute(ctx context.Context, req media.Request, feed *events.Feed) {
	defer m.wg.Done()
	logger := logging.WithContext(ctx, m.logger)
	track := newTracker(feed.RunID(), m.registry, feed, logger)

	m.slots <- struct{}{}
	defer func() { <-m.slots }()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("run panicked",
				logging.String(logging.FieldEventType, "run_failed"),
				logging.String("panic", fmt.Sprint(r)),
				logging.String("stack", string(debug.Stack())),
			)
			track.fail(fmt.Sprintf("internal error: %v", r))
			m.finish(ctx, feed.RunID())
		}
	}()

	track.start()
	logger.Info("run started", logging.String(logging.FieldEventType, "run_started"))

	result, err := m.orchestrator.Execute(ctx, req, track)
	if err != nil {
		track.fail(err.Error())
	} else {
		track.complete(result)
	}
	m.finish(ctx, feed.RunID())
}

// Frames returns the frame feed of a registered run.
func (m *Manager) Frames(id string) (*events.Feed, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	feed, ok := m.feeds[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", runs.ErrNotFound, id)
	}
	return feed, nil
}

// Status returns the poll record of a registered run.
func (m *Manager) Status(id string) (runs.Run, error) {
	return m.registry.Get(id)
}

// List returns every registered run, newest first.
func (m *Manager) List() []runs.Run {
	return m.registry.List()
}

// Await blocks until the run reaches a terminal status and returns its final
// record.
func (m *Manager) Await(ctx context.Context, id string) (runs.Run, error) {
	feed, err := m.Frames(id)
	if err != nil {
		return runs.Run{}, err
	}
	if _, err := feed.Await(ctx); err != nil {
		return runs.Run{}, err
	}
	return m.registry.Get(id)
}

// Prune drops terminal runs older than the retention window together with
// their feeds. A zero retention keeps everything.
func (m *Manager) Prune() []string {
	if m.retention <= 0 {
		return nil
	}
	removed := m.registry.Prune(time.Now().Add(-m.retention))
	if len(removed) == 0 {
		return nil
	}
	m.mu.Lock()
	for _, id := range removed {
		delete(m.feeds, id)
	}
	m.mu.Unlock()
	m.logger.Debug("pruned finished runs", logging.Int("count", len(removed)))
	return removed
}

// Wait blocks until every started run finishes or ctx ends.
func (m *Manager) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
