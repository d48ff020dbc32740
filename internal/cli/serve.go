package cli

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newServeCmd(app *appState) *cobra.Command {
	return &cobra.Command{
		Use:         "serve",
		Short:       "Run the method channel daemon in the foreground",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationDaemonLog: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if app.cfg == nil {
				return errors.New("configuration not loaded")
			}

			serveFn := app.serveFn
			if serveFn == nil {
				serveFn = serveDaemon
			}
			return serveFn(ctx, app.cfg, app.log())
		},
	}
}
