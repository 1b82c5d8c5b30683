// Package version reports the build of the running sitezone binary. Release
// builds stamp the variables below with -ldflags; other builds fall back to
// the VCS settings the Go toolchain embeds.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"sync"
	"time"
)

const unknown = "unknown"

// Set at build time, e.g.
//
//	-ldflags "-X github.com/conneroisu/sitezone/internal/version.Version=v1.2.0"
var (
	Version   = "dev"
	GitCommit = unknown
	BuildTime = unknown
	BuildUser = unknown
)

// BuildInfo is the build description served by /health and the version
// command.
type BuildInfo struct {
	Version   string    `json:"version" yaml:"version"`
	GitCommit string    `json:"git_commit" yaml:"git_commit"`
	BuildTime time.Time `json:"build_time" yaml:"build_time"`
	GoVersion string    `json:"go_version" yaml:"go_version"`
	Platform  string    `json:"platform" yaml:"platform"`
	BuildUser string    `json:"build_user,omitempty" yaml:"build_user,omitempty"`
	Dirty     bool      `json:"dirty,omitempty" yaml:"dirty,omitempty"`
}

type vcsInfo struct {
	module   string
	revision string
	modified bool
}

var readVCS = sync.OnceValue(func() vcsInfo {
	var v vcsInfo
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return v
	}
	if info.Main.Version != "(devel)" {
		v.module = info.Main.Version
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			v.revision = s.Value
		case "vcs.modified":
			v.modified = s.Value == "true"
		}
	}
	return v
})

func GetBuildInfo() *BuildInfo {
	user := BuildUser
	if user == unknown {
		user = ""
	}
	return &BuildInfo{
		Version:   GetVersion(),
		GitCommit: GetGitCommit(),
		BuildTime: parseBuildTime(BuildTime),
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		BuildUser: user,
		Dirty:     readVCS().modified,
	}
}

// GetVersion prefers the stamped version, then the module version, then
// "dev-<short revision>".
func GetVersion() string {
	if Version != "" && Version != "dev" {
		return Version
	}
	vcs := readVCS()
	if vcs.module != "" {
		return vcs.module
	}
	if len(vcs.revision) >= 7 {
		return "dev-" + vcs.revision[:7]
	}
	return "dev"
}

func GetGitCommit() string {
	if GitCommit != "" && GitCommit != unknown {
		return GitCommit
	}
	if rev := readVCS().revision; rev != "" {
		return rev
	}
	return unknown
}

// GetShortVersion is the one-line form, e.g. "v1.2.0 (abc1234)".
func GetShortVersion() string {
	v := GetVersion()
	commit := GetGitCommit()
	if commit == unknown || len(commit) < 7 || strings.HasSuffix(v, commit[:7]) {
		return v
	}
	return fmt.Sprintf("%s (%s)", v, commit[:7])
}

// GetDetailedVersion renders every known field, one per line.
func GetDetailedVersion() string {
	info := GetBuildInfo()

	lines := []string{"sitezone " + info.Version}
	if info.GitCommit != unknown {
		commit := info.GitCommit
		if info.Dirty {
			commit += " (dirty)"
		}
		lines = append(lines, "Commit:   "+commit)
	}
	if !info.BuildTime.IsZero() {
		lines = append(lines, "Built:    "+info.BuildTime.Format(time.RFC3339))
	}
	if info.BuildUser != "" {
		lines = append(lines, "By:       "+info.BuildUser)
	}
	lines = append(lines,
		"Go:       "+info.GoVersion,
		"Platform: "+info.Platform,
	)
	return strings.Join(lines, "\n")
}

// IsRelease reports whether this is a tagged build.
func IsRelease() bool {
	v := GetVersion()
	return v != "dev" && !strings.HasPrefix(v, "dev-")
}

var buildTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// parseBuildTime returns the zero time for anything it cannot read.
func parseBuildTime(s string) time.Time {
	if s == "" || s == unknown {
		return time.Time{}
	}
	for _, layout := range buildTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
