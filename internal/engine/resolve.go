package engine

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/fmueller/streamplay/internal/platform"
)

// EnvExecutable overrides the engine executable lookup.
const EnvExecutable = "STREAMPLAY_FFPLAY_PATH"

type Resolution struct {
	Path   string
	Source string
}

type Candidate struct {
	Path   string
	Source string
	Err    error
}

// ResolveExecutable picks the engine binary: explicit path, environment
// override, a copy bundled next to streamplay, then PATH.
func ResolveExecutable(configured string) (Resolution, error) {
	self, err := os.Executable()
	if err != nil {
		self = ""
	}
	return resolveExecutable(configured, os.Getenv(EnvExecutable), self, exec.LookPath)
}

func resolveExecutable(configured, envOverride, self string, lookPath func(string) (string, error)) (Resolution, error) {
	if value := strings.TrimSpace(configured); value != "" {
		if err := ensureExecutable(value); err != nil {
			return Resolution{}, fmt.Errorf("configured engine path is not executable: %w", err)
		}
		return Resolution{Path: value, Source: "config"}, nil
	}

	if value := strings.TrimSpace(envOverride); value != "" {
		if err := ensureExecutable(value); err != nil {
			return Resolution{}, fmt.Errorf("%s is not executable: %w", EnvExecutable, err)
		}
		return Resolution{Path: value, Source: "env"}, nil
	}

	if self != "" {
		for _, candidate := range BundledCandidates(self) {
			if err := ensureExecutable(candidate); err == nil {
				return Resolution{Path: candidate, Source: "bundled"}, nil
			}
		}
	}

	if lookPath != nil {
		if found, err := lookPath(executableName()); err == nil {
			return Resolution{Path: found, Source: "path"}, nil
		}
	}

	return Resolution{}, fmt.Errorf("media engine %s not found; install ffplay, place it at ../libexec/ffplay/%s next to streamplay, or set %s", executableName(), executableName(), EnvExecutable)
}

func BundledCandidates(self string) []string {
	binDir := filepath.Dir(self)
	name := executableName()
	host := platform.CurrentRuntime()
	hostTarget := fmt.Sprintf("%s_%s", host.OS, host.Arch)

	return []string{
		filepath.Join(binDir, "..", "libexec", "ffplay", name),
		filepath.Join(binDir, "libexec", "ffplay", name),
		filepath.Join(binDir, "packaging", "ffplay", hostTarget, name),
		filepath.Join(binDir, name),
	}
}

// Diagnose lists every lookup location with the reason it was rejected.
func Diagnose(configured string) []Candidate {
	var out []Candidate

	if value := strings.TrimSpace(configured); value != "" {
		out = append(out, Candidate{Path: value, Source: "config", Err: ensureExecutable(value)})
	}
	if value := strings.TrimSpace(os.Getenv(EnvExecutable)); value != "" {
		out = append(out, Candidate{Path: value, Source: "env", Err: ensureExecutable(value)})
	}

	if self, err := os.Executable(); err == nil {
		for _, candidate := range BundledCandidates(self) {
			out = append(out, Candidate{Path: candidate, Source: "bundled", Err: ensureExecutable(candidate)})
		}
	}

	found, err := exec.LookPath(executableName())
	if err != nil {
		out = append(out, Candidate{Path: executableName(), Source: "path", Err: err})
	} else {
		out = append(out, Candidate{Path: found, Source: "path"})
	}

	return out
}

func executableName() string {
	if runtime.GOOS == "windows" {
		return "ffplay.exe"
	}
	return "ffplay"
}

func ensureExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	if runtime.GOOS != "windows" && info.Mode()&0o111 == 0 {
		return fmt.Errorf("%s is not executable", path)
	}
	return nil
}
