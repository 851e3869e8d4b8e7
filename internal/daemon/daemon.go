package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"reelscope/internal/config"
	"reelscope/internal/deps"
	"reelscope/internal/history"
	"reelscope/internal/logging"
	"reelscope/internal/notifications"
	"reelscope/internal/pipeline"
	"reelscope/internal/preflight"
	"reelscope/internal/runs"
)

const (
	pruneInterval = time.Minute
	drainTimeout  = 30 * time.Second
)

// Daemon serves the run manager over HTTP and enforces single-instance
// execution per state directory.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	manager  *pipeline.Manager
	history  *history.Store
	notifier notifications.Service
	version  deps.VersionFunc
	api      *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	janitor sync.WaitGroup
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool                `json:"running"`
	PID          int                 `json:"pid"`
	Address      string              `json:"address,omitempty"`
	LockFilePath string              `json:"lock_file"`
	HistoryPath  string              `json:"history_db,omitempty"`
	Runs         map[runs.Status]int `json:"runs"`
	Archived     map[runs.Status]int `json:"archived,omitempty"`
	Preflight    preflight.Report    `json:"preflight"`
}

// Option configures optional daemon collaborators.
type Option func(*Daemon)

// WithHistory serves archived runs from store and closes it on Close.
func WithHistory(store *history.Store) Option {
	return func(d *Daemon) { d.history = store }
}

// WithNotifier replaces the notifier used by TestNotification.
func WithNotifier(notifier notifications.Service) Option {
	return func(d *Daemon) {
		if notifier != nil {
			d.notifier = notifier
		}
	}
}

// WithVersionProbe replaces the binary version probe used by status checks.
func WithVersionProbe(fn deps.VersionFunc) Option {
	return func(d *Daemon) { d.version = fn }
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, manager *pipeline.Manager, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil || manager == nil {
		return nil, errors.New("daemon requires config and run manager")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		manager:  manager,
		notifier: notifications.NewService(cfg),
		version:  deps.RunVersion,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Handler returns the HTTP API handler, including authentication.
func (d *Daemon) Handler() http.Handler { return d.api.handler() }

// Start acquires the daemon lock, starts the API listener and the prune loop.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	if err := d.cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another reelscope server is already using this state directory")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.api.start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start api: %w", err)
	}
	d.cancel = cancel

	d.janitor.Add(1)
	go d.pruneLoop(runCtx)

	d.running.Store(true)
	d.logger.Info("reelscope server started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("lock", d.lockPath),
		logging.String("address", d.api.address()),
	)
	return nil
}

// Stop stops accepting requests, waits briefly for in-flight runs and
// releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	d.janitor.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if err := d.manager.Wait(ctx); err != nil {
		logging.WarnWithContext(d.logger, "runs still active at shutdown", "shutdown_incomplete",
			logging.Error(err),
			logging.String(logging.FieldImpact, "unfinished runs are not archived"),
		)
	}

	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("reelscope server stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.history != nil {
		return d.history.Close()
	}
	return nil
}

// Address returns the bound listener address while running.
func (d *Daemon) Address() string { return d.api.address() }

func (d *Daemon) pruneLoop(ctx context.Context) {
	defer d.janitor.Done()
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.manager.Prune()
		}
	}
}

// Status returns the current daemon status with fresh dependency checks.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		Address:      d.api.address(),
		LockFilePath: d.lockPath,
		Runs:         d.manager.Registry().Counts(),
		Preflight:    preflight.Run(ctx, d.cfg, d.version),
	}
	if d.history != nil {
		status.HistoryPath = d.history.Path()
		archived, err := d.history.Stats(ctx)
		if err != nil {
			d.logger.Warn("history stats unavailable", logging.Error(err))
		} else {
			status.Archived = archived
		}
	}
	return status
}

// TestNotification triggers a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.Publish(ctx, notifications.EventTest, nil); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}
