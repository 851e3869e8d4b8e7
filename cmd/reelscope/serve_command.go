package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"reelscope/internal/daemon"
	"reelscope/internal/logging"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("bind") {
				cfg.Paths.APIBind = bind
			}
			logger, err := ctx.serverLogger()
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			rt, err := newRuntime(cfg, logger)
			if err != nil {
				return err
			}

			var opts []daemon.Option
			if rt.history != nil {
				opts = append(opts, daemon.WithHistory(rt.history))
			}
			d, err := daemon.New(cfg, rt.manager, logger, opts...)
			if err != nil {
				_ = rt.Close()
				return err
			}
			defer d.Close()

			if err := d.Start(cmd.Context()); err != nil {
				return err
			}
			if ctx.configPath != "" {
				logger.Info("configuration loaded", logging.String("path", ctx.configPath))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Listening on http://%s\n", d.Address())

			<-cmd.Context().Done()
			logger.Info("reelscope shutting down")
			return nil
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Override paths.api_bind")
	return cmd
}
