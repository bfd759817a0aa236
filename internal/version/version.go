// Package version reports what chartscrape binary is running.
//
// Release builds stamp the values with ldflags:
//
//	go build -ldflags "-X github.com/jmylchreest/chartscrape/internal/version.Version=v0.3.0 \
//	  -X github.com/jmylchreest/chartscrape/internal/version.Commit=$(git rev-parse HEAD)"
//
// Plain "go build" and "go install" fall back to the VCS stamp the Go
// toolchain embeds.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

// Stamped at link time. Empty means not stamped.
var (
	Version   = "dev"
	Commit    = ""
	BuildDate = ""
)

// Info is the build report of the running binary.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	Modified  bool   `json:"modified,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// readBuildInfo is replaced in tests.
var readBuildInfo = debug.ReadBuildInfo

// Get merges the ldflags values with the embedded VCS settings.
func Get() Info {
	info := Info{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}

	bi, ok := readBuildInfo()
	if !ok {
		return info
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "" {
				info.Commit = s.Value
			}
		case "vcs.time":
			if info.BuildDate == "" {
				info.BuildDate = s.Value
			}
		case "vcs.modified":
			info.Modified = s.Value == "true"
		}
	}
	return info
}

// String is the one-line version, e.g. "v0.3.0 (1a2b3c4, modified)".
func String() string {
	return Get().short()
}

func (i Info) short() string {
	var extra []string
	if i.Commit != "" {
		extra = append(extra, abbrev(i.Commit))
	}
	if i.Modified {
		extra = append(extra, "modified")
	}
	if len(extra) == 0 {
		return i.Version
	}
	return fmt.Sprintf("%s (%s)", i.Version, strings.Join(extra, ", "))
}

// Full is the report printed by "chartscrape version".
func Full() string {
	i := Get()
	lines := []string{"chartscrape " + i.short()}
	if i.Commit != "" {
		lines = append(lines, "commit   "+i.Commit)
	}
	if i.BuildDate != "" {
		lines = append(lines, "built    "+i.BuildDate)
	}
	lines = append(lines, "go       "+i.GoVersion, "platform "+i.Platform)
	return strings.Join(lines, "\n")
}

func abbrev(commit string) string {
	if len(commit) > 7 {
		return commit[:7]
	}
	return commit
}
