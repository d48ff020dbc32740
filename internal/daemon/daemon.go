// Package daemon runs the long-lived half of streamplay: it owns the engine
// slot, serves the method channel and makes sure only one instance runs per
// state directory.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"

	"github.com/fmueller/streamplay/internal/bridge"
	"github.com/fmueller/streamplay/internal/config"
	"github.com/fmueller/streamplay/internal/engine"
	"github.com/fmueller/streamplay/internal/ipc"
	"github.com/fmueller/streamplay/internal/logging"
)

var ErrAlreadyRunning = errors.New("another streamplay daemon instance is already running")

// Engine is the engine surface the daemon needs beyond the bridge.
type Engine interface {
	bridge.Engine
	Snapshot() engine.Snapshot
}

type Daemon struct {
	cfg    *config.Config
	logger *zap.Logger
	engine Engine
	bridge *bridge.Bridge

	lock      *flock.Flock
	running   atomic.Bool
	startedAt time.Time
}

// New builds a daemon around an engine; use NewWithPlayer to resolve and
// construct the ffplay engine from configuration.
func New(cfg *config.Config, e Engine, logger *zap.Logger) (*Daemon, error) {
	if cfg == nil || e == nil {
		return nil, errors.New("daemon requires config and engine")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Daemon{
		cfg:    cfg,
		logger: logger,
		engine: e,
		bridge: bridge.New(e, logging.Component(logger, "bridge")),
		lock:   flock.New(cfg.LockPath()),
	}, nil
}

func NewWithPlayer(cfg *config.Config, logger *zap.Logger) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires config")
	}

	resolved, err := engine.ResolveExecutable(cfg.Engine.FFplayPath)
	if err != nil {
		return nil, err
	}

	player, err := engine.NewPlayer(engine.Options{
		Executable: resolved.Path,
		StopGrace:  cfg.StopGrace(),
		Logger:     logging.Component(logger, "engine"),
	})
	if err != nil {
		return nil, err
	}

	if logger != nil {
		logger.Debug("media engine resolved", zap.String("path", resolved.Path), zap.String("source", resolved.Source))
	}
	return New(cfg, player, logger)
}

// Run holds the instance lock and serves the method channel until ctx is
// done. On the way out any active engine invocation is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	if !d.running.CompareAndSwap(false, true) {
		return errors.New("daemon already running")
	}
	defer d.running.Store(false)

	if err := d.cfg.EnsureDirectories(); err != nil {
		return err
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return ErrAlreadyRunning
	}
	defer func() {
		if err := d.lock.Unlock(); err != nil {
			d.logger.Warn("failed to release daemon lock", zap.Error(err))
		}
	}()

	server, err := ipc.NewServer(ctx, d.cfg.Bridge.SocketPath, d, d.logger)
	if err != nil {
		return err
	}

	d.startedAt = time.Now()
	server.Serve()
	d.logger.Info("streamplay daemon started", zap.String("socket", d.cfg.Bridge.SocketPath), zap.String("lock", d.cfg.LockPath()))

	<-ctx.Done()

	d.engine.Cancel()
	server.Close()
	d.logger.Info("streamplay daemon stopped")
	return nil
}

func (d *Daemon) Handle(method string, args map[string]any) bridge.Result {
	return d.bridge.Handle(method, args)
}

func (d *Daemon) Status() ipc.StatusResponse {
	return ipc.StatusResponse{
		PID:       os.Getpid(),
		Socket:    d.cfg.Bridge.SocketPath,
		StartedAt: d.startedAt,
		Engine:    d.engine.Snapshot(),
	}
}
