package cli

import (
	"fmt"

	"github.com/fmueller/streamplay/internal/engine"
	"github.com/spf13/cobra"
)

func newEngineCmd(app *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "engine",
		Short: "Show which media engine binary would be used",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configured := ""
			if app.cfg != nil {
				configured = app.cfg.Engine.FFplayPath
			}

			for _, candidate := range engine.Diagnose(configured) {
				state := "ok"
				if candidate.Err != nil {
					state = candidate.Err.Error()
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-8s %s: %s\n", candidate.Source, candidate.Path, state)
			}
			fmt.Fprintln(cmd.OutOrStdout())

			resolved, err := engine.ResolveExecutable(configured)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "using %s (%s)\n", resolved.Path, resolved.Source)
			return nil
		},
	}
}
