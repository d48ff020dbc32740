package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/fmueller/streamplay/internal/platform"
)

//go:embed sample_config.toml
var sampleConfig string

const (
	defaultStopGraceMillis = 2000
	maxStopGraceMillis     = 60000
	lockFileName           = "streamplay.lock"
)

// Bridge configures the method channel endpoint.
type Bridge struct {
	SocketPath string `toml:"socket_path"`
}

// Engine configures the external media engine.
type Engine struct {
	FFplayPath      string `toml:"ffplay_path"`
	StopGraceMillis int    `toml:"stop_grace_ms"`
}

type Daemon struct {
	StateDir string `toml:"state_dir"`
	LogFile  string `toml:"log_file"`
}

type Logging struct {
	Verbose bool `toml:"verbose"`
	JSON    bool `toml:"json"`
}

type Config struct {
	Bridge  Bridge  `toml:"bridge"`
	Engine  Engine  `toml:"engine"`
	Daemon  Daemon  `toml:"daemon"`
	Logging Logging `toml:"logging"`
}

func Default() Config {
	return Config{
		Engine: Engine{StopGraceMillis: defaultStopGraceMillis},
	}
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return platform.ResolveConfigPath()
}

// Load reads path (or the default location when empty), applies defaults for
// anything missing and validates the result. A missing file is not an error.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolvedPath, err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", false, err
		}
		path = defaultPath
	}

	expanded, err := ExpandPath(path)
	if err != nil {
		return "", false, err
	}

	info, err := os.Stat(expanded)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return expanded, false, nil
		}
		return "", false, fmt.Errorf("stat config: %w", err)
	}
	if info.IsDir() {
		return "", false, fmt.Errorf("config path %s is a directory", expanded)
	}
	return expanded, true, nil
}

func (c *Config) normalize() error {
	var err error

	if c.Daemon.StateDir, err = ExpandPath(c.Daemon.StateDir); err != nil {
		return fmt.Errorf("daemon.state_dir: %w", err)
	}
	if c.Daemon.StateDir, err = platform.ResolveStateDir(c.Daemon.StateDir); err != nil {
		return fmt.Errorf("daemon.state_dir: %w", err)
	}
	if c.Daemon.LogFile, err = ExpandPath(c.Daemon.LogFile); err != nil {
		return fmt.Errorf("daemon.log_file: %w", err)
	}

	if c.Bridge.SocketPath, err = ExpandPath(c.Bridge.SocketPath); err != nil {
		return fmt.Errorf("bridge.socket_path: %w", err)
	}
	if c.Bridge.SocketPath, err = platform.ResolveSocketPath(c.Bridge.SocketPath, c.Daemon.StateDir); err != nil {
		return fmt.Errorf("bridge.socket_path: %w", err)
	}

	if c.Engine.FFplayPath, err = ExpandPath(c.Engine.FFplayPath); err != nil {
		return fmt.Errorf("engine.ffplay_path: %w", err)
	}
	if c.Engine.StopGraceMillis == 0 {
		c.Engine.StopGraceMillis = defaultStopGraceMillis
	}
	return nil
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if c.Engine.StopGraceMillis < 0 || c.Engine.StopGraceMillis > maxStopGraceMillis {
		return fmt.Errorf("engine.stop_grace_ms must be between 1 and %d, got %d", maxStopGraceMillis, c.Engine.StopGraceMillis)
	}
	if strings.TrimSpace(c.Bridge.SocketPath) == "" {
		return errors.New("bridge.socket_path could not be determined")
	}
	if strings.TrimSpace(c.Daemon.StateDir) == "" {
		return errors.New("daemon.state_dir could not be determined")
	}
	return nil
}

func (c *Config) StopGrace() time.Duration {
	return time.Duration(c.Engine.StopGraceMillis) * time.Millisecond
}

func (c *Config) LockPath() string {
	return filepath.Join(c.Daemon.StateDir, lockFileName)
}

// EnsureDirectories creates the directories the daemon writes into.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Daemon.StateDir, filepath.Dir(c.Bridge.SocketPath)}
	if c.Daemon.LogFile != "" {
		dirs = append(dirs, filepath.Dir(c.Daemon.LogFile))
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// ExpandPath resolves a leading ~ and makes the path absolute. Empty stays empty.
func ExpandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}
