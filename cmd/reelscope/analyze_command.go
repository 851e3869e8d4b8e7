package main

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"reelscope/internal/events"
	"reelscope/internal/media"
)

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	var (
		model       string
		language    string
		maxComments int
		cookies     string
		jsonOutput  bool
		verbose     bool
	)

	cmd := &cobra.Command{
		Use:   "analyze <url>",
		Short: "Download, transcribe and analyse one video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.fileLogger(verbose)
			if err != nil {
				return err
			}
			rt, err := newRuntime(cfg, logger)
			if err != nil {
				return err
			}
			defer rt.Close()

			in := media.RequestInput{URL: args[0], ModelSize: strings.TrimSpace(model)}
			flags := cmd.Flags()
			if flags.Changed("language") {
				in.Language = &language
			}
			if flags.Changed("max-comments") {
				in.MaxComments = &maxComments
			}
			if flags.Changed("cookies") {
				in.CookiesFile = &cookies
			}

			run, err := rt.manager.Submit(cmd.Context(), in)
			if err != nil {
				return err
			}
			feed, err := rt.manager.Frames(run.ID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			renderer := newFrameRenderer(out, jsonOutput, shouldColorize(out))
			for frame := range feed.Subscribe(cmd.Context(), 0) {
				if err := renderer.render(frame); err != nil {
					return err
				}
			}

			terminal, ok := feed.Terminal()
			if !ok {
				if err := cmd.Context().Err(); err != nil {
					return err
				}
				return errors.New("run ended without a terminal frame")
			}
			if terminal.Type == events.TypeError {
				return errors.New(terminal.Error)
			}
			if jsonOutput {
				return nil
			}
			final, err := rt.manager.Status(run.ID)
			if err != nil {
				return err
			}
			renderResult(out, terminal.Result, final.Notes, shouldColorize(out))
			return nil
		},
	}

	cmd.Flags().StringVarP(&model, "model", "m", "", "Transcription model size (see pipeline.default_model)")
	cmd.Flags().StringVarP(&language, "language", "l", "", "Spoken language code; empty detects automatically")
	cmd.Flags().IntVar(&maxComments, "max-comments", 0, "Maximum Instagram comments to fetch")
	cmd.Flags().StringVar(&cookies, "cookies", "", "Netscape cookies file for Instagram")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print frames as JSON lines instead of rendered progress")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Mirror debug logs to stderr")
	return cmd
}
