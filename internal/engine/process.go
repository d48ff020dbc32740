package engine

import (
	"errors"
	"os"
	"os/exec"
	"time"

	"go.uber.org/zap"
)

// stopProcess asks the engine to quit with an interrupt and kills it when
// it is still running after grace. done must be closed once Wait returned.
func stopProcess(cmd *exec.Cmd, done <-chan struct{}, grace time.Duration, logger *zap.Logger) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	if err := cmd.Process.Signal(os.Interrupt); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			<-done
			return nil
		}
		logger.Debug("interrupt failed; killing engine", zap.Error(err))
		return kill(cmd, done)
	}

	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case <-done:
		return nil
	case <-timer.C:
		logger.Debug("engine ignored interrupt; killing", zap.Duration("grace", grace))
		return kill(cmd, done)
	}
}

func kill(cmd *exec.Cmd, done <-chan struct{}) error {
	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	<-done
	return nil
}
