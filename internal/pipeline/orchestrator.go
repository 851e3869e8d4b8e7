package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"

	"reelscope/internal/analysis"
	"reelscope/internal/logging"
	"reelscope/internal/media"
	"reelscope/internal/services"
	"reelscope/internal/stage"
	"reelscope/internal/stageexec"
)

// VideoRoute is the path prefix under which kept videos are served.
const VideoRoute = "/api/video/"

// Share of the transcribe range given to the transcriber itself; key-point
// extraction fills the rest.
const transcriptShare = 0.85

// FatalError ends a run without a result.
type FatalError struct {
	Stage   stage.ID
	Message string
	Err     error
}

func (e *FatalError) Error() string { return e.Message }

func (e *FatalError) Unwrap() error { return e.Err }

// Orchestrator runs the stages of one request in order.
type Orchestrator struct {
	stages      Stages
	logger      *slog.Logger
	ephemeral   bool
	inlineLimit int64
	remove      func(string) error
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the orchestrator logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithEphemeralStorage deletes each downloaded video when its run ends. The
// result then carries the file inline instead of a served URL.
func WithEphemeralStorage(enabled bool) Option {
	return func(o *Orchestrator) { o.ephemeral = enabled }
}

// WithRemover replaces the file removal used for ephemeral cleanup.
func WithRemover(fn func(string) error) Option {
	return func(o *Orchestrator) {
		if fn != nil {
			o.remove = fn
		}
	}
}

// NewOrchestrator builds an orchestrator. A nil Analyzer falls back to the
// built-in analysis engine.
func NewOrchestrator(stages Stages, opts ...Option) *Orchestrator {
	if stages.Analyzer == nil {
		stages.Analyzer = analysis.Engine{}
	}
	o := &Orchestrator{
		stages:      stages,
		logger:      logging.NewNop(),
		inlineLimit: DefaultInlineVideoLimit,
		remove:      os.Remove,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = logging.NewComponentLogger(o.logger, "orchestrator")
	return o
}

// Execute runs req to completion. It returns a *FatalError when the download
// fails; every other stage failure is reported as a note and leaves the
// corresponding result fields nil.
func (o *Orchestrator) Execute(ctx context.Context, req media.Request, reporter Reporter) (*media.AggregateResult, error) {
	if reporter == nil {
		reporter = nopReporter{}
	}
	logger := logging.WithContext(ctx, o.logger)
	sink := stageSink(reporter)
	result := &media.AggregateResult{
		Platform:          req.Platform,
		IsCommentEligible: req.Platform.CommentEligible(),
	}

	downloaded := stageexec.Run(ctx, o.options(stage.Download, sink, "Downloading video...", "Download complete", "Download failed: "),
		func(ctx context.Context, report stage.ProgressFunc) (*media.VideoArtifact, error) {
			if o.stages.Downloader == nil {
				return nil, services.Wrap(services.ErrConfiguration, "download", "run", "no downloader configured", nil)
			}
			artifact, err := o.stages.Downloader.Download(ctx, req, report)
			if err == nil && artifact == nil {
				err = services.Wrap(services.ErrExternalTool, "download", "run", "downloader returned no video", nil)
			}
			return artifact, err
		})
	if downloaded.Fatal() {
		return nil, &FatalError{Stage: stage.Download, Message: "Download failed: " + downloaded.Message, Err: downloaded.Err}
	}
	defer o.release(logger, downloaded.Value)

	video := *downloaded.Value
	if o.ephemeral {
		video.VideoURL = ""
		video.VideoData = o.inlineVideo(logger, video.Path)
	} else {
		video.VideoURL = VideoRoute + video.FileName
	}
	result.Video = &video

	o.transcribe(ctx, req, video.Path, sink, result)

	if !result.IsCommentEligible {
		logger.Debug("comment stages skipped", logging.String("platform", req.Platform.String()))
		reporter.Progress(stage.StepDone, 100, "Complete")
		return result, nil
	}

	o.comments(ctx, req, sink, reporter, result)
	reporter.Progress(stage.StepDone, 100, "Complete")
	return result, nil
}

type transcriptOutput struct {
	transcription *media.Transcription
	keyPoints     *media.KeyPointSet
}

func (o *Orchestrator) transcribe(ctx context.Context, req media.Request, path string, sink stageexec.Sink, result *media.AggregateResult) {
	spoken := stageexec.Run(ctx, o.options(stage.Transcribe, sink, "Loading transcription model...", "Transcription complete", "Transcription failed: "),
		func(ctx context.Context, report stage.ProgressFunc) (transcriptOutput, error) {
			if o.stages.Transcriber == nil {
				return transcriptOutput{}, services.Wrap(services.ErrConfiguration, "transcribe", "run", "no transcriber configured", nil)
			}
			scaled := func(local float64, message string) { report(local*transcriptShare, message) }
			tr, err := o.stages.Transcriber.Transcribe(ctx, path, req.ModelSize, req.Language, scaled)
			if err != nil {
				return transcriptOutput{}, err
			}
			if tr == nil {
				return transcriptOutput{}, services.Wrap(services.ErrExternalTool, "transcribe", "run", "transcriber returned no transcription", nil)
			}
			report(transcriptShare, "Extracting key points...")
			return transcriptOutput{transcription: tr, keyPoints: o.stages.Analyzer.TranscriptKeyPoints(tr.FullText)}, nil
		})
	if spoken.OK() {
		result.Transcription = spoken.Value.transcription
		result.TranscriptionKeyPoints = spoken.Value.keyPoints
	}
}

func (o *Orchestrator) comments(ctx context.Context, req media.Request, sink stageexec.Sink, reporter Reporter, result *media.AggregateResult) {
	fetched := stageexec.Run(ctx, o.options(stage.FetchComments, sink, "Fetching Instagram comments...", "Comments fetched", "Could not fetch comments: "),
		func(ctx context.Context, report stage.ProgressFunc) (*media.CommentSet, error) {
			if o.stages.Comments == nil {
				return nil, services.Wrap(services.ErrConfiguration, "fetch_comments", "run", "no comment fetcher configured", nil)
			}
			set, err := o.stages.Comments.FetchComments(ctx, req, report)
			if err == nil && set == nil {
				err = services.Wrap(services.ErrExternalTool, "fetch_comments", "run", "fetcher returned no comments", nil)
			}
			return set, err
		})
	if !fetched.OK() {
		return
	}
	result.Comments = fetched.Value
	if fetched.Value.Empty() {
		logging.WithContext(ctx, o.logger).Info("no comments to analyse",
			logging.String(logging.FieldEventType, "analysis_skipped"),
		)
		return
	}

	comments := fetched.Value.Comments
	analysed := stageexec.Run(ctx, o.options(stage.Analyse, sink, "Running sentiment analysis...", "Analysis complete", "Analysis failed: "),
		func(context.Context, stage.ProgressFunc) (analysisOutput, error) {
			out := fanOut(comments, o.stages.Analyzer)
			if out.empty() && len(out.failures) > 0 {
				return out, errors.New(strings.Join(out.failures, "; "))
			}
			return out, nil
		})
	if !analysed.OK() {
		return
	}
	for _, failure := range analysed.Value.failures {
		logging.WarnWithContext(logging.WithContext(ctx, o.logger), "comment analysis branch failed", "analysis_branch_failed",
			logging.String("failure", failure),
			logging.String(logging.FieldImpact, "result field left empty"),
		)
		reporter.Note("Analysis incomplete: " + failure)
	}
	result.Sentiment = analysed.Value.sentiment
	result.CommentKeyPoints = analysed.Value.keyPoints
}

func (o *Orchestrator) options(id stage.ID, sink stageexec.Sink, start, complete, failure string) stageexec.Options {
	return stageexec.Options{
		Logger:          o.logger,
		Stage:           id,
		Sink:            sink,
		StartMessage:    start,
		CompleteMessage: complete,
		FailurePrefix:   failure,
	}
}

// release deletes the downloaded file in ephemeral mode. It is deferred once
// per run right after a successful download.
func (o *Orchestrator) release(logger *slog.Logger, artifact *media.VideoArtifact) {
	if !o.ephemeral || artifact == nil || artifact.Path == "" {
		return
	}
	if err := o.remove(artifact.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.WarnWithContext(logger, "ephemeral video cleanup failed", "video_cleanup_failed",
			logging.String("path", artifact.Path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove the file manually"),
			logging.String(logging.FieldImpact, "disk space is not reclaimed"),
		)
		return
	}
	logger.Debug("ephemeral video removed", logging.String("path", artifact.Path))
}

// stageSink forwards stage events to the reporter. The fatal terminal event is
// dropped; the run's error frame replaces it.
func stageSink(reporter Reporter) stageexec.Sink {
	return func(ev stageexec.Event) {
		if ev.Terminal && ev.Kind == stage.FatalFailure {
			return
		}
		reporter.Progress(ev.Step, ev.Progress, ev.Message)
		if ev.Terminal && ev.Kind == stage.PartialFailure {
			reporter.Note(ev.Message)
		}
	}
}
