package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"reelscope/internal/deps"
	"reelscope/internal/preflight"
)

// versionProbe runs binary version commands; tests replace it.
var versionProbe deps.VersionFunc = deps.RunVersion

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check external tools, directories and credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			report := preflight.Run(cmd.Context(), cfg, versionProbe)
			if jsonOutput {
				if err := writeJSON(cmd, report); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, strings.Join(renderReport(report, shouldColorize(out)), "\n"))
			}
			if !report.Healthy() {
				if missing := deps.MissingRequired(report.Dependencies); len(missing) > 0 {
					return fmt.Errorf("missing required tools: %s", strings.Join(missing, ", "))
				}
				return errors.New("one or more checks failed")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the report as JSON")
	return cmd
}
