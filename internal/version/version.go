package version

import (
	"os/exec"
	"runtime/debug"
	"strings"
)

// Set at link time by release builds.
var (
	Version = "0.1.0"
	Commit  = ""
	Date    = ""
)

type Info struct {
	Version string
	Commit  string
	Date    string
}

// Resolve returns the full version string, appending a git-derived suffix
// when the binary is run from inside a git repository whose HEAD is not on
// a release tag.
func Resolve() string {
	return resolveVersion(Version, runGit)
}

// Current combines the linked values with the VCS stamp the Go toolchain
// embeds, preferring the linked ones.
func Current() Info {
	info := Info{Version: Resolve(), Commit: Commit, Date: Date}
	if build, ok := debug.ReadBuildInfo(); ok {
		info = fillFromBuild(info, build.Settings)
	}
	return info
}

func fillFromBuild(info Info, settings []debug.BuildSetting) Info {
	for _, setting := range settings {
		switch setting.Key {
		case "vcs.revision":
			if info.Commit == "" {
				info.Commit = shortRevision(setting.Value)
			}
		case "vcs.time":
			if info.Date == "" {
				info.Date = setting.Value
			}
		case "vcs.modified":
			if setting.Value == "true" && info.Commit != "" && !strings.HasSuffix(info.Commit, "-dirty") {
				info.Commit += "-dirty"
			}
		}
	}
	return info
}

func shortRevision(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}

func resolveVersion(base string, git func(...string) (string, error)) string {
	base = strings.TrimPrefix(strings.TrimSpace(base), "v")
	if base == "" {
		base = "0.0.0"
	}

	suffix := computeGitSuffix(base, git)
	if suffix == "" {
		return base
	}
	return base + "-" + suffix
}

func computeGitSuffix(base string, git func(...string) (string, error)) string {
	if _, err := git("rev-parse", "--git-dir"); err != nil {
		return ""
	}

	if _, err := git("describe", "--tags", "--exact-match"); err == nil {
		return ""
	}

	desc, err := git("describe", "--tags", "--dirty", "--always")
	if err != nil {
		return ""
	}

	return strings.TrimPrefix(desc, "v"+base+"-")
}

func runGit(args ...string) (string, error) {
	out, err := exec.Command("git", args...).Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
