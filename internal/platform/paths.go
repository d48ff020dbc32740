package platform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

const appName = "streamplay"

type Runtime struct {
	OS   string
	Arch string
}

func CurrentRuntime() Runtime {
	return Runtime{
		OS:   runtime.GOOS,
		Arch: NormalizeArch(runtime.GOARCH),
	}
}

func NormalizeArch(arch string) string {
	switch arch {
	case "x86_64":
		return "amd64"
	case "aarch64":
		return "arm64"
	default:
		return arch
	}
}

func DefaultConfigPathFor(goos, homeDir, xdgConfigHome string) (string, error) {
	if homeDir == "" {
		return "", errors.New("home directory is empty")
	}

	switch goos {
	case "linux":
		if xdgConfigHome != "" {
			return filepath.Join(xdgConfigHome, appName, "config.toml"), nil
		}
		return filepath.Join(homeDir, ".config", appName, "config.toml"), nil
	case "darwin":
		return filepath.Join(homeDir, "Library", "Application Support", appName, "config.toml"), nil
	default:
		return "", fmt.Errorf("unsupported OS: %s", goos)
	}
}

func DefaultStateDirFor(goos, homeDir, xdgStateHome string) (string, error) {
	if homeDir == "" {
		return "", errors.New("home directory is empty")
	}

	switch goos {
	case "linux":
		if xdgStateHome != "" {
			return filepath.Join(xdgStateHome, appName), nil
		}
		return filepath.Join(homeDir, ".local", "state", appName), nil
	case "darwin":
		return filepath.Join(homeDir, "Library", "Application Support", appName), nil
	default:
		return "", fmt.Errorf("unsupported OS: %s", goos)
	}
}

// DefaultSocketPathFor prefers the per-user runtime dir so the socket goes
// away with the login session.
func DefaultSocketPathFor(runtimeDir, stateDir string) (string, error) {
	if runtimeDir != "" {
		return filepath.Join(runtimeDir, appName+".sock"), nil
	}
	if stateDir == "" {
		return "", errors.New("state directory is empty")
	}
	return filepath.Join(stateDir, appName+".sock"), nil
}

func ResolveConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve user home: %w", err)
	}

	return DefaultConfigPathFor(runtime.GOOS, homeDir, os.Getenv("XDG_CONFIG_HOME"))
}

func ResolveStateDir(override string) (string, error) {
	if override != "" {
		return filepath.Clean(override), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve user home: %w", err)
	}

	return DefaultStateDirFor(runtime.GOOS, homeDir, os.Getenv("XDG_STATE_HOME"))
}

func ResolveSocketPath(override, stateDir string) (string, error) {
	if override != "" {
		return filepath.Clean(override), nil
	}

	return DefaultSocketPathFor(os.Getenv("XDG_RUNTIME_DIR"), stateDir)
}
