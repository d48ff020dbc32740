package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fmueller/streamplay/internal/bridge"
	"github.com/fmueller/streamplay/internal/config"
	"github.com/fmueller/streamplay/internal/engine"
	"github.com/fmueller/streamplay/internal/ipc"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPlaySendsURLAndPrintsAck(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	app, dialed := appWithClient(client)
	socket := filepath.Join(t.TempDir(), "bridge.sock")

	stdout, _, err := runWithApp(t, app, []string{"--socket", socket, "play", "https://example.com/live.m3u8"})
	require.NoError(t, err)
	require.Equal(t, bridge.AckPlay+"\n", stdout)
	require.Equal(t, socket, *dialed)
	require.Equal(t, []string{"play"}, client.methods)
	require.Equal(t, []string{"https://example.com/live.m3u8"}, client.engine.sources)
	require.Equal(t, 1, client.engine.cancels)
	require.True(t, client.closed)
}

func TestPlayRejectsEmptyURL(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	app, _ := appWithClient(client)

	_, _, err := runWithApp(t, app, []string{"play", ""})
	require.Error(t, err)
	require.Contains(t, err.Error(), bridge.CodeInvalidArgument)
	require.Contains(t, err.Error(), "url must not be empty")
	require.Empty(t, client.engine.sources)
}

func TestSocketFlagIsExpanded(t *testing.T) {
	t.Parallel()

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	cwd, err := os.Getwd()
	require.NoError(t, err)

	tests := []struct {
		name string
		flag string
		want string
	}{
		{name: "home", flag: "~/run/streamplay.sock", want: filepath.Join(home, "run", "streamplay.sock")},
		{name: "relative", flag: "run/../streamplay.sock", want: filepath.Join(cwd, "streamplay.sock")},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			app, dialed := appWithClient(newFakeClient())
			_, _, err := runWithApp(t, app, []string{"--socket", tt.flag, "stop"})
			require.NoError(t, err)
			require.Equal(t, tt.want, *dialed)
			require.Equal(t, tt.want, app.cfg.Bridge.SocketPath)
		})
	}
}

func TestStopPrintsAck(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	app, _ := appWithClient(client)

	stdout, _, err := runWithApp(t, app, []string{"stop"})
	require.NoError(t, err)
	require.Equal(t, bridge.AckStop+"\n", stdout)
	require.Equal(t, 1, client.engine.cancels)
}

func TestCallForwardsRawMethods(t *testing.T) {
	t.Parallel()

	t.Run("play with url", func(t *testing.T) {
		t.Parallel()

		client := newFakeClient()
		app, _ := appWithClient(client)

		stdout, _, err := runWithApp(t, app, []string{"call", "play", "url=https://example.com/a.m3u8"})
		require.NoError(t, err)
		require.Equal(t, bridge.AckPlay+"\n", stdout)
		require.Equal(t, []string{"https://example.com/a.m3u8"}, client.engine.sources)
	})

	t.Run("play without url", func(t *testing.T) {
		t.Parallel()

		client := newFakeClient()
		app, _ := appWithClient(client)

		_, _, err := runWithApp(t, app, []string{"call", "play"})
		require.Error(t, err)
		require.Contains(t, err.Error(), "url must not be empty")
	})

	t.Run("unknown method", func(t *testing.T) {
		t.Parallel()

		client := newFakeClient()
		app, _ := appWithClient(client)

		_, _, err := runWithApp(t, app, []string{"call", "pause"})
		require.ErrorIs(t, err, bridge.ErrNotImplemented)
		require.Contains(t, err.Error(), `method "pause"`)
		require.Zero(t, client.engine.cancels)
	})

	t.Run("malformed pair", func(t *testing.T) {
		t.Parallel()

		client := newFakeClient()
		app, _ := appWithClient(client)

		_, _, err := runWithApp(t, app, []string{"call", "play", "https://example.com"})
		require.Error(t, err)
		require.Contains(t, err.Error(), "expected key=value")
		require.Empty(t, client.methods)
	})
}

func TestParseCallArgs(t *testing.T) {
	t.Parallel()

	args, err := parseCallArgs(nil)
	require.NoError(t, err)
	require.Nil(t, args)

	args, err = parseCallArgs([]string{"url=https://example.com/a?x=1", "empty="})
	require.NoError(t, err)
	require.Equal(t, map[string]any{"url": "https://example.com/a?x=1", "empty": ""}, args)

	_, err = parseCallArgs([]string{"=value"})
	require.Error(t, err)
}

func TestPlayWaitReportsExitCode(t *testing.T) {
	t.Parallel()

	url := "https://example.com/a.m3u8"
	client := newFakeClient(
		&ipc.StatusResponse{Engine: engine.Snapshot{Active: &engine.Invocation{ID: "inv", Source: url}}},
		&ipc.StatusResponse{Engine: engine.Snapshot{Active: &engine.Invocation{ID: "inv", Source: url}}},
		&ipc.StatusResponse{Engine: engine.Snapshot{Last: &engine.Completion{ID: "inv", Source: url, ExitCode: 3}}},
	)
	app, _ := appWithClient(client)

	stdout, _, err := runWithApp(t, app, []string{"play", "--wait", url})
	require.NoError(t, err)
	require.Equal(t, bridge.AckPlay+"\nengine finished with code 3\n", stdout)
}

func TestPlayWaitReportsReplacement(t *testing.T) {
	t.Parallel()

	url := "https://example.com/a.m3u8"
	client := newFakeClient(
		&ipc.StatusResponse{Engine: engine.Snapshot{Active: &engine.Invocation{ID: "inv", Source: url}}},
		&ipc.StatusResponse{Engine: engine.Snapshot{Active: &engine.Invocation{ID: "other", Source: "https://example.com/b.m3u8"}}},
	)
	app, _ := appWithClient(client)

	stdout, _, err := runWithApp(t, app, []string{"play", "--wait", url})
	require.NoError(t, err)
	require.Contains(t, stdout, "playback replaced or stopped")
}

func TestPlayWaitReportsLaunchFailure(t *testing.T) {
	t.Parallel()

	url := "https://example.com/a.m3u8"
	client := newFakeClient(&ipc.StatusResponse{Engine: engine.Snapshot{
		Last: &engine.Completion{ID: "inv", Source: url, ExitCode: engine.ReturnCodeNotStarted, Error: "start engine: no such file"},
	}})
	app, _ := appWithClient(client)

	stdout, _, err := runWithApp(t, app, []string{"play", "--wait", url})
	require.Error(t, err)
	require.Contains(t, err.Error(), "engine did not start: start engine: no such file")
	require.Equal(t, bridge.AckPlay+"\n", stdout)
}

func TestReportCompletionCancelled(t *testing.T) {
	t.Parallel()

	cmd := newStopCmd(newAppState())
	out := new(strings.Builder)
	cmd.SetOut(out)

	require.NoError(t, reportCompletion(cmd, &engine.Completion{ID: "a", ExitCode: engine.ReturnCodeCancel, Canceled: true}, "a"))
	require.Equal(t, "playback cancelled\n", out.String())
}

func TestStatusRendersTable(t *testing.T) {
	t.Parallel()

	started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	client := newFakeClient(&ipc.StatusResponse{
		PID:       4242,
		Socket:    "/run/streamplay.sock",
		StartedAt: started,
		Engine: engine.Snapshot{
			Executable: "/usr/bin/ffplay",
			Active:     &engine.Invocation{ID: "inv-2", Source: "https://example.com/b.m3u8", PID: 99, Command: engine.CommandLine("https://example.com/b.m3u8")},
			Last:       &engine.Completion{ID: "inv-1", Source: "https://example.com/a.m3u8", ExitCode: engine.ReturnCodeCancel, Canceled: true},
		},
	})
	app, _ := appWithClient(client)

	stdout, _, err := runWithApp(t, app, []string{"status"})
	require.NoError(t, err)
	require.Contains(t, stdout, "4242")
	require.Contains(t, stdout, "/usr/bin/ffplay")
	require.Contains(t, stdout, "https://example.com/b.m3u8")
	require.Contains(t, stdout, "inv-2")
	require.Contains(t, stdout, "exit code 255 (cancelled)")
}

func TestRenderStatusIdle(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	out := renderStatus(&ipc.StatusResponse{PID: 1, StartedAt: now.Add(-90 * time.Second)}, now)
	require.Contains(t, out, "1m30s")
	require.Contains(t, out, "Playing")
	require.NotContains(t, out, "Last result")
}

func TestRenderTablePadsShortRows(t *testing.T) {
	t.Parallel()

	require.Empty(t, renderTable(nil, nil))

	out := renderTable([]string{"A", "B"}, [][]string{{"only"}})
	require.Contains(t, out, "only")
	require.Contains(t, out, "A")
}

func TestConfigInitWritesSample(t *testing.T) {
	t.Parallel()

	target := filepath.Join(t.TempDir(), "nested", "config.toml")

	stdout, _, err := runCommand(t, []string{"config", "init", "--path", target})
	require.NoError(t, err)
	require.Contains(t, stdout, target)

	cfg, _, exists, err := config.Load(target)
	require.NoError(t, err)
	require.True(t, exists)
	require.Equal(t, config.Default().Engine.StopGraceMillis, cfg.Engine.StopGraceMillis)

	_, _, err = runCommand(t, []string{"config", "init", "--path", target})
	require.Error(t, err)
	require.Contains(t, err.Error(), "--overwrite")

	_, _, err = runCommand(t, []string{"config", "init", "--path", target, "--overwrite"})
	require.NoError(t, err)
}

func TestEngineCommandShowsConfiguredBinary(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	binary := filepath.Join(dir, "ffplay")
	require.NoError(t, os.WriteFile(binary, []byte("#!/bin/sh\nexit 0\n"), 0o755))

	cfgPath := filepath.Join(dir, "config.toml")
	require.NoError(t, writeFile(cfgPath, fmt.Sprintf("[engine]\nffplay_path = %q\n", binary)))

	stdout, _, err := runCommand(t, []string{"--config", cfgPath, "engine"})
	require.NoError(t, err)
	require.Contains(t, stdout, "config   "+binary+": ok")
	require.Contains(t, stdout, "using "+binary+" (config)")
}

func TestServeUsesLoadedConfig(t *testing.T) {
	t.Parallel()

	socket := filepath.Join(t.TempDir(), "serve.sock")
	app := newAppState()

	var got *config.Config
	app.serveFn = func(_ context.Context, cfg *config.Config, logger *zap.Logger) error {
		require.NotNil(t, logger)
		got = cfg
		return nil
	}

	_, _, err := runWithApp(t, app, []string{"--socket", socket, "serve"})
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, socket, got.Bridge.SocketPath)
}
