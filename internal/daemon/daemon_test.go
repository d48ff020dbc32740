package daemon

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fmueller/streamplay/internal/bridge"
	"github.com/fmueller/streamplay/internal/config"
	"github.com/fmueller/streamplay/internal/engine"
	"github.com/fmueller/streamplay/internal/ipc"
)

type fakeEngine struct {
	mu      sync.Mutex
	cancels int
	active  *engine.Invocation
}

func (f *fakeEngine) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancels++
	f.active = nil
}

func (f *fakeEngine) Start(source string, _ func(engine.Completion)) engine.Invocation {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv := engine.Invocation{ID: "inv-" + source, Source: source, Command: engine.CommandLine(source)}
	f.active = &inv
	return inv
}

func (f *fakeEngine) Snapshot() engine.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap := engine.Snapshot{Executable: "ffplay"}
	if f.active != nil {
		active := *f.active
		snap.Active = &active
	}
	return snap
}

func (f *fakeEngine) cancelCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancels
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.Daemon.StateDir = filepath.Join(root, "state")
	cfg.Bridge.SocketPath = filepath.Join(root, "sp.sock")
	return &cfg
}

func runDaemon(t *testing.T, d *Daemon) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- d.Run(ctx)
	}()
	t.Cleanup(cancel)
	return cancel, errCh
}

func waitForSocket(t *testing.T, path string) {
	t.Helper()
	require.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestDaemonServesMethodChannel(t *testing.T) {
	cfg := testConfig(t)
	eng := &fakeEngine{}
	d, err := New(cfg, eng, nil)
	require.NoError(t, err)

	cancel, errCh := runDaemon(t, d)
	waitForSocket(t, cfg.Bridge.SocketPath)

	client, err := ipc.Dial(cfg.Bridge.SocketPath)
	require.NoError(t, err)

	ack, err := client.Play(context.Background(), "https://example.com/stream.m3u8")
	require.NoError(t, err)
	require.Equal(t, bridge.AckPlay, ack)

	status, err := client.Status(context.Background())
	require.NoError(t, err)
	require.Equal(t, os.Getpid(), status.PID)
	require.Equal(t, cfg.Bridge.SocketPath, status.Socket)
	require.NotNil(t, status.Engine.Active)
	require.Equal(t, "https://example.com/stream.m3u8", status.Engine.Active.Source)
	require.Equal(t, 1, eng.cancelCount())
	require.NoError(t, client.Close())

	cancel()
	require.NoError(t, <-errCh)
	require.Equal(t, 2, eng.cancelCount())

	_, err = os.Stat(cfg.Bridge.SocketPath)
	require.True(t, os.IsNotExist(err))
}

func TestDaemonShutsDownWithClientConnected(t *testing.T) {
	cfg := testConfig(t)
	eng := &fakeEngine{}
	d, err := New(cfg, eng, nil)
	require.NoError(t, err)

	cancel, errCh := runDaemon(t, d)
	waitForSocket(t, cfg.Bridge.SocketPath)

	client, err := ipc.Dial(cfg.Bridge.SocketPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	_, err = client.Play(context.Background(), "https://example.com/live.m3u8")
	require.NoError(t, err)
	require.Equal(t, 1, eng.cancelCount())

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatalf("Run did not return after shutdown with a connected client; cancels=%d", eng.cancelCount())
	}
	require.Equal(t, 2, eng.cancelCount())
	require.Nil(t, d.Status().Engine.Active)

	locked, err := d.lock.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	require.NoError(t, d.lock.Unlock())
}

func TestDaemonRefusesSecondInstance(t *testing.T) {
	cfg := testConfig(t)

	first, err := New(cfg, &fakeEngine{}, nil)
	require.NoError(t, err)
	cancel, errCh := runDaemon(t, first)
	waitForSocket(t, cfg.Bridge.SocketPath)

	second, err := New(cfg, &fakeEngine{}, nil)
	require.NoError(t, err)
	err = second.Run(context.Background())
	require.ErrorIs(t, err, ErrAlreadyRunning)

	cancel()
	require.NoError(t, <-errCh)
}

func TestNewRequiresConfigAndEngine(t *testing.T) {
	t.Parallel()

	_, err := New(nil, &fakeEngine{}, nil)
	require.Error(t, err)

	cfg := config.Default()
	_, err = New(&cfg, nil, nil)
	require.Error(t, err)
}

func TestNewWithPlayerUsesConfiguredEngine(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Engine.FFplayPath = filepath.Join(t.TempDir(), "ffplay")
	require.NoError(t, os.WriteFile(cfg.Engine.FFplayPath, []byte("#!/bin/sh\nexit 0\n"), 0o755))

	d, err := NewWithPlayer(cfg, nil)
	require.NoError(t, err)
	require.Equal(t, cfg.Engine.FFplayPath, d.Status().Engine.Executable)
}

func TestNewWithPlayerFailsForMissingEngine(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Engine.FFplayPath = filepath.Join(t.TempDir(), "missing")

	_, err := NewWithPlayer(cfg, nil)
	require.Error(t, err)
}
