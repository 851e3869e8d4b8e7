package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"reelscope/internal/logging"
	"reelscope/internal/notifications"
	"reelscope/internal/runs"
)

// finish logs, archives and announces a terminal run.
func (m *Manager) finish(ctx context.Context, id string) {
	logger := logging.WithContext(ctx, m.logger)
	run, err := m.registry.Get(id)
	if err != nil {
		logger.Warn("finished run missing from registry", logging.Error(err))
		return
	}

	switch run.Status {
	case runs.StatusComplete:
		logger.Info("run completed",
			logging.String(logging.FieldEventType, "run_complete"),
			logging.Duration("duration", run.Duration()),
			logging.Int("notes", len(run.Notes)),
		)
	case runs.StatusError:
		logging.ErrorWithContext(logger, "run failed", "run_failed",
			logging.String("error_message", run.Error),
			logging.String(logging.FieldErrorHint, "check the URL and downloader logs"),
		)
	default:
		return
	}

	m.record(ctx, logger, run)
	m.notify(ctx, logger, run)
}

func (m *Manager) record(ctx context.Context, logger *slog.Logger, run runs.Run) {
	if m.archive == nil {
		return
	}
	if err := m.archive.Record(ctx, run); err != nil {
		logging.WarnWithContext(logger, "run history write failed", "history_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check state_dir permissions and disk space"),
			logging.String(logging.FieldImpact, "run will not appear in history"),
		)
	}
}

func (m *Manager) notify(ctx context.Context, logger *slog.Logger, run runs.Run) {
	if m.notifier == nil {
		return
	}
	event := notifications.EventRunCompleted
	payload := notifications.Payload{
		"url":      run.URL,
		"platform": run.Platform.String(),
		"notes":    len(run.Notes),
		"duration": run.Duration(),
	}
	if run.Status == runs.StatusError {
		event = notifications.EventRunFailed
		payload["error"] = run.Error
	}
	if result := run.Result; result != nil {
		if result.Video != nil {
			payload["title"] = result.Video.Title
		}
		if result.Comments != nil {
			payload["comments"] = result.Comments.Count
		}
		if result.Sentiment != nil {
			payload["sentiment"] = string(result.Sentiment.Overall)
		}
	}
	if err := m.notifier.Publish(ctx, event, payload); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("shutting down, could not send run notification")
		} else {
			logger.Debug("run notification failed", logging.Error(err))
		}
	}
}
