package engine

import (
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReturnCodeCancel is reported for invocations stopped through Cancel.
const ReturnCodeCancel = 255

// ReturnCodeNotStarted is reported when the engine process could not be launched.
const ReturnCodeNotStarted = -1

const defaultStopGrace = 2 * time.Second

// Args builds the fixed engine argument list for a source URL.
func Args(source string) []string {
	return []string{"-i", source, "-nodisp", "-autoexit"}
}

// CommandLine renders Args the way it would be typed into the engine's
// command interpreter.
func CommandLine(source string) string {
	return fmt.Sprintf("-i %q -nodisp -autoexit", source)
}

type Invocation struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Command   string    `json:"command"`
	PID       int       `json:"pid"`
	StartedAt time.Time `json:"started_at"`
}

type Completion struct {
	ID         string    `json:"id"`
	Source     string    `json:"source"`
	ExitCode   int       `json:"exit_code"`
	Canceled   bool      `json:"canceled"`
	Error      string    `json:"error,omitempty"`
	FinishedAt time.Time `json:"finished_at"`
}

type Snapshot struct {
	Executable string      `json:"executable"`
	Active     *Invocation `json:"active,omitempty"`
	Last       *Completion `json:"last,omitempty"`
}

type Options struct {
	Executable string
	StopGrace  time.Duration
	Output     io.Writer
	Logger     *zap.Logger
}

// Player owns the single engine slot: at most one process runs at a time.
type Player struct {
	executable string
	stopGrace  time.Duration
	output     io.Writer
	logger     *zap.Logger
	now        func() time.Time

	mu     sync.Mutex
	active *running
	last   *Completion
	// seq numbers invocations; lastSeq is the one that produced last.
	seq     uint64
	lastSeq uint64
}

type running struct {
	seq      uint64
	info     Invocation
	cmd      *exec.Cmd
	done     chan struct{}
	canceled bool
}

func NewPlayer(opts Options) (*Player, error) {
	if strings.TrimSpace(opts.Executable) == "" {
		return nil, errors.New("engine executable is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	grace := opts.StopGrace
	if grace <= 0 {
		grace = defaultStopGrace
	}

	return &Player{
		executable: opts.Executable,
		stopGrace:  grace,
		output:     opts.Output,
		logger:     logger,
		now:        time.Now,
	}, nil
}

func (p *Player) Executable() string {
	return p.executable
}

// Cancel stops the active invocation, if any, and waits for it to exit.
func (p *Player) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.cancelLocked()
}

// Start cancels any active invocation, launches a new one for source and
// returns without waiting for it. onExit runs once the process is gone; a
// launch failure is reported there with ReturnCodeNotStarted.
func (p *Player) Start(source string, onExit func(Completion)) Invocation {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.cancelLocked()
	p.seq++
	seq := p.seq

	info := Invocation{
		ID:        uuid.NewString(),
		Source:    source,
		Command:   CommandLine(source),
		StartedAt: p.now(),
	}

	cmd := exec.Command(p.executable, Args(source)...)
	if p.output != nil {
		cmd.Stdout = p.output
		cmd.Stderr = p.output
	}

	p.logger.Debug("starting engine", zap.String("invocation", info.ID), zap.String("engine", p.executable), zap.String("command", info.Command))
	if err := cmd.Start(); err != nil {
		completion := Completion{
			ID:         info.ID,
			Source:     source,
			ExitCode:   ReturnCodeNotStarted,
			Error:      fmt.Sprintf("start engine: %v", err),
			FinishedAt: p.now(),
		}
		p.record(seq, completion)
		go p.report(completion, onExit)
		return info
	}

	info.PID = cmd.Process.Pid
	r := &running{seq: seq, info: info, cmd: cmd, done: make(chan struct{})}
	p.active = r

	go p.wait(r, onExit)
	return info
}

func (p *Player) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	snap := Snapshot{Executable: p.executable}
	if p.active != nil {
		info := p.active.info
		snap.Active = &info
	}
	if p.last != nil {
		last := *p.last
		snap.Last = &last
	}
	return snap
}

func (p *Player) cancelLocked() {
	r := p.active
	if r == nil {
		return
	}
	p.active = nil
	r.canceled = true

	p.logger.Debug("cancelling engine", zap.String("invocation", r.info.ID), zap.Int("pid", r.info.PID))
	if err := stopProcess(r.cmd, r.done, p.stopGrace, p.logger); err != nil {
		p.logger.Warn("failed to stop engine process", zap.String("invocation", r.info.ID), zap.Error(err))
	}
}

func (p *Player) wait(r *running, onExit func(Completion)) {
	err := r.cmd.Wait()
	close(r.done)

	p.mu.Lock()
	if p.active == r {
		p.active = nil
	}
	completion := Completion{
		ID:         r.info.ID,
		Source:     r.info.Source,
		ExitCode:   exitCode(r.cmd, err),
		Canceled:   r.canceled,
		FinishedAt: p.now(),
	}
	if completion.Canceled {
		completion.ExitCode = ReturnCodeCancel
	}
	p.record(r.seq, completion)
	p.mu.Unlock()

	p.report(completion, onExit)
}

// record keeps c as the last completion unless a newer invocation already
// produced one. Callers hold p.mu.
func (p *Player) record(seq uint64, c Completion) {
	if seq < p.lastSeq {
		return
	}
	p.last = &c
	p.lastSeq = seq
}

func (p *Player) report(c Completion, onExit func(Completion)) {
	fields := []zap.Field{
		zap.String("invocation", c.ID),
		zap.Int("exit_code", c.ExitCode),
		zap.Bool("canceled", c.Canceled),
	}
	if c.Error != "" {
		fields = append(fields, zap.String("error", c.Error))
	}
	p.logger.Info("engine finished", fields...)

	if onExit != nil {
		onExit(c)
	}
}

func exitCode(cmd *exec.Cmd, err error) int {
	if err == nil {
		return 0
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code >= 0 {
			return code
		}
	}

	if cmd.ProcessState != nil && cmd.ProcessState.ExitCode() >= 0 {
		return cmd.ProcessState.ExitCode()
	}
	return 1
}
