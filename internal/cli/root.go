package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fmueller/streamplay/internal/bridge"
	"github.com/fmueller/streamplay/internal/config"
	"github.com/fmueller/streamplay/internal/daemon"
	"github.com/fmueller/streamplay/internal/ipc"
	"github.com/fmueller/streamplay/internal/logging"
	"github.com/fmueller/streamplay/internal/version"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/spf13/cobra"
)

const (
	annotationDaemonLog      = "daemonLog"
	annotationSkipConfigLoad = "skipConfigLoad"
)

// bridgeClient is the part of ipc.Client the commands use.
type bridgeClient interface {
	Invoke(ctx context.Context, method string, args map[string]any) (bridge.Result, error)
	Status(ctx context.Context) (*ipc.StatusResponse, error)
	Close() error
}

type appState struct {
	configPath string
	socketPath string
	verbose    bool
	jsonLogs   bool
	noProgress bool
	timeout    time.Duration

	cfg    *config.Config
	logger *zap.Logger

	dialFn  func(path string) (bridgeClient, error)
	serveFn func(ctx context.Context, cfg *config.Config, logger *zap.Logger) error
}

func NewRootCmd() *cobra.Command {
	return newRootCmd(newAppState())
}

func newAppState() *appState {
	return &appState{
		timeout: 5 * time.Second,
		dialFn:  dialDaemon,
		serveFn: serveDaemon,
	}
}

func newRootCmd(app *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "streamplay",
		Short:         "Forward play/stop method calls to a bundled ffplay engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.Resolve(),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.prepare(cmd)
		},
	}

	cmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")

	bindGlobalFlags(cmd, app)

	cmd.AddCommand(newServeCmd(app))
	cmd.AddCommand(newPlayCmd(app))
	cmd.AddCommand(newStopCmd(app))
	cmd.AddCommand(newCallCmd(app))
	cmd.AddCommand(newStatusCmd(app))
	cmd.AddCommand(newEngineCmd(app))
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func bindGlobalFlags(cmd *cobra.Command, app *appState) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&app.configPath, "config", app.configPath, "Configuration file (default ~/.config/streamplay/config.toml)")
	flags.StringVar(&app.socketPath, "socket", app.socketPath, "Daemon socket path; overrides bridge.socket_path")
	flags.BoolVar(&app.verbose, "verbose", app.verbose, "Enable verbose logs")
	flags.BoolVar(&app.jsonLogs, "json", app.jsonLogs, "Enable JSON logging")
	flags.BoolVar(&app.noProgress, "no-progress", app.noProgress, "Disable progress indicators")
	flags.DurationVar(&app.timeout, "timeout", app.timeout, "How long to wait for the daemon to answer")
}

func (a *appState) prepare(cmd *cobra.Command) error {
	if cmd.Annotations[annotationSkipConfigLoad] == "true" {
		logger, err := logging.New(logging.Options{Verbose: a.verbose, JSON: a.jsonLogs})
		if err != nil {
			return fmt.Errorf("initialize logger: %w", err)
		}
		a.logger = logger
		return nil
	}

	cfg, _, _, err := config.Load(a.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if a.socketPath != "" {
		socket, err := config.ExpandPath(a.socketPath)
		if err != nil {
			return fmt.Errorf("--socket: %w", err)
		}
		a.socketPath = socket
		cfg.Bridge.SocketPath = socket
	}
	if flags.Changed("verbose") {
		cfg.Logging.Verbose = a.verbose
	}
	if flags.Changed("json") {
		cfg.Logging.JSON = a.jsonLogs
	}

	opts := logging.Options{Verbose: cfg.Logging.Verbose, JSON: cfg.Logging.JSON}
	if cmd.Annotations[annotationDaemonLog] == "true" {
		opts.File = cfg.Daemon.LogFile
	}

	logger, err := logging.New(opts)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}

	a.cfg = cfg
	a.logger = logger
	return nil
}

func (a *appState) log() *zap.Logger {
	if a.logger == nil {
		return zap.NewNop()
	}
	return a.logger
}

func (a *appState) progressEnabled() bool {
	if a.noProgress {
		return false
	}
	return term.IsTerminal(int(os.Stderr.Fd()))
}

func (a *appState) socket() string {
	if a.socketPath != "" {
		return a.socketPath
	}
	if a.cfg != nil {
		return a.cfg.Bridge.SocketPath
	}
	return ""
}

func (a *appState) connect() (bridgeClient, error) {
	socket := a.socket()
	if socket == "" {
		return nil, fmt.Errorf("daemon socket path is not configured")
	}

	dialFn := a.dialFn
	if dialFn == nil {
		dialFn = dialDaemon
	}

	client, err := dialFn(socket)
	if err != nil {
		return nil, fmt.Errorf("%w (is 'streamplay serve' running?)", err)
	}
	return client, nil
}

func (a *appState) callContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	if a.timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, a.timeout)
}

func dialDaemon(path string) (bridgeClient, error) {
	client, err := ipc.Dial(path)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func serveDaemon(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	d, err := daemon.NewWithPlayer(cfg, logger)
	if err != nil {
		return err
	}
	return d.Run(ctx)
}
