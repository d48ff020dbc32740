// Package bridge turns method calls from a UI client into requests for the
// media engine.
//
// A call is a method name plus an argument mapping. "play" validates its url
// argument, cancels whatever the engine is doing and starts a new invocation;
// "stop" cancels unconditionally. Every other method is reported as not
// implemented. Calls never wait for the engine: its completion is logged and
// nothing else.
package bridge

import (
	"go.uber.org/zap"

	"github.com/fmueller/streamplay/internal/engine"
)

const (
	AckPlay = "playback command sent"
	AckStop = "stop command sent"
)

// Engine is the slice of the media engine the bridge drives.
type Engine interface {
	Cancel()
	Start(source string, onExit func(engine.Completion)) engine.Invocation
}

type Bridge struct {
	engine Engine
	logger *zap.Logger
}

func New(e Engine, logger *zap.Logger) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bridge{engine: e, logger: logger}
}

func (b *Bridge) Handle(method string, args map[string]any) Result {
	req := NewRequest(method, args)

	switch req.Operation {
	case OperationPlay:
		return b.play(req)
	case OperationStop:
		return b.stop()
	default:
		b.logger.Debug("method not implemented", zap.String("method", req.Method))
		return NotImplemented()
	}
}

func (b *Bridge) play(req Request) Result {
	if err := req.Validate(); err != nil {
		b.logger.Debug("play rejected", zap.Error(err))
		return Failure(err)
	}

	b.engine.Cancel()
	inv := b.engine.Start(req.Source, b.logCompletion)
	b.logger.Info("playback command sent", zap.String("invocation", inv.ID), zap.String("command", inv.Command))

	return Success(AckPlay)
}

func (b *Bridge) stop() Result {
	b.engine.Cancel()
	b.logger.Info("stop command sent")
	return Success(AckStop)
}

func (b *Bridge) logCompletion(c engine.Completion) {
	b.logger.Info("engine finished with code", zap.String("invocation", c.ID), zap.Int("exit_code", c.ExitCode))
}
