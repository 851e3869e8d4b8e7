package stageexec

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"reelscope/internal/logging"
	"reelscope/internal/progress"
	"reelscope/internal/services"
	"reelscope/internal/stage"
)

// Event is a progress notification emitted while a stage runs. Exactly one
// event per Run has Terminal set.
type Event struct {
	Stage    stage.ID
	Step     stage.Step
	Progress int
	Message  string
	Terminal bool
	Kind     stage.Kind
}

// Sink receives stage events. It is called from the goroutine running the
// stage and from whatever goroutine the collaborator reports progress on.
type Sink func(Event)

// Options describes one stage invocation.
type Options struct {
	Logger *slog.Logger
	Stage  stage.ID
	Sink   Sink
	// StartMessage is emitted at the start of the stage range when set.
	StartMessage string
	// CompleteMessage is the terminal message on success.
	CompleteMessage string
	// FailurePrefix is prepended to the failure message, e.g. "Download failed: ".
	FailurePrefix string
}

// Run executes fn and converts its result, error or panic into an Outcome.
// Collaborator progress is mapped into the stage range before reaching the
// sink. Run never retries.
func Run[T any](ctx context.Context, opts Options, fn stage.Func[T]) stage.Outcome[T] {
	rng := progress.For(opts.Stage)
	step := opts.Stage.Step()
	emit := opts.Sink
	if emit == nil {
		emit = func(Event) {}
	}

	stageCtx := logging.WithStage(ctx, opts.Stage.String())
	logger := logging.WithContext(stageCtx, opts.Logger)
	logger.Info("stage started", logging.String(logging.FieldEventType, "stage_start"))
	started := time.Now()

	if opts.StartMessage != "" {
		emit(Event{Stage: opts.Stage, Step: step, Progress: rng.Start, Message: opts.StartMessage})
	}

	sampler := logging.NewProgressSampler(10)
	report := func(local float64, message string) {
		message = strings.TrimSpace(message)
		if message == "" {
			message = opts.StartMessage
		}
		global := rng.Map(local)
		if sampler.ShouldLog(opts.Stage.String(), local) {
			logger.Debug("stage progress",
				logging.Int("progress", global),
				logging.String("progress_message", message),
			)
		}
		emit(Event{Stage: opts.Stage, Step: step, Progress: global, Message: message})
	}

	value, err := invoke(stageCtx, logger, opts.Stage, fn, report)
	elapsed := time.Since(started)

	if err != nil {
		outcome := stage.Failed[T](opts.Stage, err)
		attrs := []logging.Attr{
			logging.String("outcome", outcome.Kind.String()),
			logging.String("error_message", outcome.Message),
			logging.Duration("duration", elapsed),
			logging.Error(err),
		}
		if outcome.Fatal() {
			logging.ErrorWithContext(logger, "stage failed", "stage_failure", attrs...)
		} else {
			logging.WarnWithContext(logger, "stage failed; continuing without its output", "stage_partial", attrs...)
		}
		emit(Event{
			Stage:    opts.Stage,
			Step:     step,
			Progress: rng.End,
			Message:  opts.FailurePrefix + outcome.Message,
			Terminal: true,
			Kind:     outcome.Kind,
		})
		return outcome
	}

	logger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("duration", elapsed),
	)
	emit(Event{
		Stage:    opts.Stage,
		Step:     step,
		Progress: rng.End,
		Message:  opts.CompleteMessage,
		Terminal: true,
		Kind:     stage.Success,
	})
	return stage.Succeeded(opts.Stage, value)
}

func invoke[T any](ctx context.Context, logger *slog.Logger, id stage.ID, fn stage.Func[T], report stage.ProgressFunc) (value T, err error) {
	if fn == nil {
		return value, services.Wrap(services.ErrConfiguration, id.String(), "run", "stage function unavailable", nil)
	}
	defer func() {
		if r := recover(); r != nil {
			var zero T
			value = zero
			err = services.Wrap(services.ErrExternalTool, id.String(), "panic", fmt.Sprintf("%v", r), nil)
			logger.Error("stage panic", logging.String("panic", fmt.Sprintf("%v", r)), logging.String("stack", string(debug.Stack())))
		}
	}()
	return fn(ctx, report)
}
