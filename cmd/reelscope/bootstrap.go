package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"reelscope/internal/analysis"
	"reelscope/internal/config"
	"reelscope/internal/downloader"
	"reelscope/internal/history"
	"reelscope/internal/instagram"
	"reelscope/internal/media/ffprobe"
	"reelscope/internal/pipeline"
	"reelscope/internal/transcriber"
)

const drainTimeout = 30 * time.Second

// stageFactory builds the pipeline collaborators. Tests swap it for stubs.
var stageFactory = buildStages

func buildStages(cfg *config.Config, logger *slog.Logger) (pipeline.Stages, error) {
	prober := ffprobe.New(cfg.Transcriber.FFprobeBinary)
	comments, err := instagram.New(cfg, instagram.WithLogger(logger))
	if err != nil {
		return pipeline.Stages{}, err
	}
	return pipeline.Stages{
		Downloader:  downloader.New(cfg, downloader.WithLogger(logger), downloader.WithProber(prober)),
		Transcriber: transcriber.New(cfg, transcriber.WithLogger(logger), transcriber.WithProber(prober)),
		Comments:    comments,
		Analyzer:    analysis.Engine{},
	}, nil
}

// runtime owns the manager and, when enabled, the history archive it writes to.
type runtime struct {
	manager *pipeline.Manager
	history *history.Store
}

func newRuntime(cfg *config.Config, logger *slog.Logger) (*runtime, error) {
	stages, err := stageFactory(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("build stages: %w", err)
	}
	orch := pipeline.NewOrchestrator(stages,
		pipeline.WithLogger(logger),
		pipeline.WithEphemeralStorage(cfg.Pipeline.EphemeralStorage),
	)

	rt := &runtime{}
	opts := []pipeline.ManagerOption{pipeline.WithManagerLogger(logger)}
	if cfg.History.Enabled {
		store, err := history.Open(cfg)
		if err != nil {
			return nil, fmt.Errorf("open history: %w", err)
		}
		rt.history = store
		opts = append(opts, pipeline.WithArchive(store))
	}
	rt.manager = pipeline.NewManager(cfg, orch, opts...)
	return rt, nil
}

// Close waits for in-flight runs to archive before closing the store.
func (r *runtime) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	_ = r.manager.Wait(ctx)
	if r.history != nil {
		return r.history.Close()
	}
	return nil
}
