// Package buildinfo provides build-time version information.
package buildinfo

import (
	"runtime/debug"
	"sync"
)

// Build-time variables (set via ldflags).
var (
	// Version is the semantic version.
	Version = "dev"

	// Commit is the git commit hash.
	Commit = "unknown"

	// BuildTime is the build timestamp.
	BuildTime = "unknown"
)

// Info contains build information.
type Info struct {
	Version   string `json:"version" yaml:"version"`
	Commit    string `json:"commit" yaml:"commit"`
	BuildTime string `json:"build_time" yaml:"build_time"`
	GoVersion string `json:"go_version" yaml:"go_version"`
}

var (
	embedded     Info
	embeddedOnce sync.Once
)

// Get returns the build information.
func Get() Info {
	embeddedOnce.Do(func() {
		embedded = fromBuildInfo(debug.ReadBuildInfo())
	})

	info := Info{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: embedded.GoVersion,
	}
	if info.Commit == "unknown" && embedded.Commit != "" {
		info.Commit = embedded.Commit
	}
	if info.BuildTime == "unknown" && embedded.BuildTime != "" {
		info.BuildTime = embedded.BuildTime
	}
	return info
}

func fromBuildInfo(bi *debug.BuildInfo, ok bool) Info {
	info := Info{GoVersion: "unknown"}
	if !ok || bi == nil {
		return info
	}
	info.GoVersion = bi.GoVersion
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			info.Commit = s.Value
			if len(info.Commit) > 12 {
				info.Commit = info.Commit[:12]
			}
		case "vcs.time":
			info.BuildTime = s.Value
		}
	}
	return info
}

// String returns a formatted version string.
func String() string {
	info := Get()
	return info.Version + " (" + info.Commit + ") built at " + info.BuildTime
}
