package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fmueller/streamplay/internal/bridge"
	"github.com/fmueller/streamplay/internal/engine"
	"github.com/fmueller/streamplay/internal/ipc"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const waitPollInterval = 250 * time.Millisecond

func newPlayCmd(app *appState) *cobra.Command {
	var wait bool

	cmd := &cobra.Command{
		Use:   "play <url>",
		Short: "Start playing a stream, replacing whatever is playing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := app.connect()
			if err != nil {
				return err
			}
			defer client.Close()

			ctx, cancel := app.callContext(cmd.Context())
			result, err := client.Invoke(ctx, "play", map[string]any{bridge.ArgURL: args[0]})
			cancel()
			if err != nil {
				return err
			}
			if err := result.Err(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), result.Value)

			if !wait {
				return nil
			}
			return app.waitForPlayback(cmd.Context(), client, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&wait, "wait", false, "Block until the engine finishes playing")
	return cmd
}

func newStopCmd(app *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop playback",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			result, err := app.invoke(cmd.Context(), "stop", nil)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), result.Value)
			return nil
		},
	}
}

func newCallCmd(app *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "call <method> [key=value ...]",
		Short: "Send a raw method call to the daemon",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			callArgs, err := parseCallArgs(args[1:])
			if err != nil {
				return err
			}

			result, err := app.invoke(cmd.Context(), args[0], callArgs)
			if err != nil {
				if errors.Is(err, bridge.ErrNotImplemented) {
					return fmt.Errorf("method %q: %w", args[0], err)
				}
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), result.Value)
			return nil
		},
	}
}

func (a *appState) invoke(parent context.Context, method string, args map[string]any) (bridge.Result, error) {
	client, err := a.connect()
	if err != nil {
		return bridge.Result{}, err
	}
	defer client.Close()

	ctx, cancel := a.callContext(parent)
	defer cancel()

	result, err := client.Invoke(ctx, method, args)
	if err != nil {
		return bridge.Result{}, err
	}
	if err := result.Err(); err != nil {
		return result, err
	}
	return result, nil
}

func parseCallArgs(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	args := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid argument %q: expected key=value", pair)
		}
		args[key] = value
	}
	return args, nil
}

// waitForPlayback polls the daemon until the invocation started for source
// is no longer the active one.
func (a *appState) waitForPlayback(ctx context.Context, client bridgeClient, source string, cmd *cobra.Command) error {
	status, err := a.status(ctx, client)
	if err != nil {
		return err
	}
	if status.Engine.Active == nil || status.Engine.Active.Source != source {
		a.log().Debug("engine already finished", zap.String("source", source))
		return reportCompletion(cmd, status.Engine.Last, "")
	}
	id := status.Engine.Active.ID

	stopSpinner := startPlaybackSpinner(a.progressEnabled(), cmd.ErrOrStderr(), *status.Engine.Active)
	defer stopSpinner()

	ticker := time.NewTicker(waitPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		status, err := a.status(ctx, client)
		if err != nil {
			return err
		}
		if status.Engine.Active != nil && status.Engine.Active.ID == id {
			continue
		}

		stopSpinner()
		return reportCompletion(cmd, status.Engine.Last, id)
	}
}

func (a *appState) status(parent context.Context, client bridgeClient) (*ipc.StatusResponse, error) {
	ctx, cancel := a.callContext(parent)
	defer cancel()

	return client.Status(ctx)
}

func reportCompletion(cmd *cobra.Command, last *engine.Completion, id string) error {
	if last == nil || (id != "" && last.ID != id) {
		fmt.Fprintln(cmd.OutOrStdout(), "playback replaced or stopped")
		return nil
	}
	if last.Canceled {
		fmt.Fprintln(cmd.OutOrStdout(), "playback cancelled")
		return nil
	}
	if last.Error != "" {
		return fmt.Errorf("engine did not start: %s", last.Error)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "engine finished with code %d\n", last.ExitCode)
	return nil
}
