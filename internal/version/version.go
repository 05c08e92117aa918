// Package version reports the lumen build that is running, as printed by
// "lumen version" and the root command's --version flag.
//
// Release builds stamp both values with ldflags:
//
//	go build -ldflags="-X github.com/muurk/lumen/internal/version.Version=v0.3.0 \
//	                   -X github.com/muurk/lumen/internal/version.Commit=1a2b3c4" ./cmd/lumen
//
// Builds from a checkout fall back to the VCS stamp the go tool embeds, and
// anything else reports a dated dev version.
package version

import (
	"fmt"
	"runtime/debug"
	"time"
)

var (
	// Version is the lumen release, such as v0.3.0.
	Version = ""
	// Commit is the short revision lumen was built from.
	Commit = ""
)

func init() {
	if info, ok := debug.ReadBuildInfo(); ok {
		Version, Commit = fromSettings(Version, Commit, info.Settings)
	}
	if Version == "" {
		Version = "dev-" + time.Now().Format("20060102-150405")
	}
	if Commit == "" {
		Commit = "unknown"
	}
}

// fromSettings fills whichever of version and commit is empty from the vcs.*
// build settings. Commits are shortened to seven characters and marked -dirty
// for modified trees; the version becomes dev-YYYYMMDD of the commit time.
func fromSettings(version, commit string, settings []debug.BuildSetting) (string, string) {
	vcs := make(map[string]string, len(settings))
	for _, s := range settings {
		vcs[s.Key] = s.Value
	}

	if rev := vcs["vcs.revision"]; commit == "" && rev != "" {
		if len(rev) > 7 {
			rev = rev[:7]
		}
		if vcs["vcs.modified"] == "true" {
			rev += "-dirty"
		}
		commit = rev
	}
	if version == "" {
		if t, err := time.Parse(time.RFC3339, vcs["vcs.time"]); err == nil {
			version = "dev-" + t.Format("20060102")
		}
	}
	return version, commit
}

// Full returns the version line printed by "lumen version".
func Full() string {
	return fmt.Sprintf("lumen %s (commit: %s)", Version, Commit)
}
