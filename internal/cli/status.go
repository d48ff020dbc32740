package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/fmueller/streamplay/internal/ipc"
	"github.com/spf13/cobra"
)

func newStatusCmd(app *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and engine state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := app.connect()
			if err != nil {
				return err
			}
			defer client.Close()

			status, err := app.status(cmd.Context(), client)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderStatus(status, time.Now()))
			return nil
		},
	}
}

func renderStatus(status *ipc.StatusResponse, now time.Time) string {
	rows := [][]string{
		{"Daemon PID", strconv.Itoa(status.PID)},
		{"Socket", status.Socket},
	}
	if !status.StartedAt.IsZero() {
		rows = append(rows, []string{"Uptime", now.Sub(status.StartedAt).Truncate(time.Second).String()})
	}
	rows = append(rows, []string{"Engine", status.Engine.Executable})

	if active := status.Engine.Active; active != nil {
		rows = append(rows,
			[]string{"Playing", active.Source},
			[]string{"Invocation", active.ID},
			[]string{"Engine PID", strconv.Itoa(active.PID)},
			[]string{"Command", active.Command},
		)
	} else {
		rows = append(rows, []string{"Playing", "-"})
	}

	if last := status.Engine.Last; last != nil {
		outcome := fmt.Sprintf("exit code %d", last.ExitCode)
		if last.Canceled {
			outcome += " (cancelled)"
		}
		if last.Error != "" {
			outcome += " (" + last.Error + ")"
		}
		rows = append(rows,
			[]string{"Last source", last.Source},
			[]string{"Last result", outcome},
		)
	}

	return renderTable([]string{"Field", "Value"}, rows)
}
