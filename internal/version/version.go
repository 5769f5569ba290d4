// Package version carries build metadata set with -ldflags -X.
package version

import (
	"fmt"
	"runtime"
)

var (
	Version   = "0.1.0"
	BuildTime = "development"
	GitCommit = "unknown"
)

type Info struct {
	Version   string `json:"version"`
	BuildTime string `json:"build_time"`
	GitCommit string `json:"git_commit"`
	GoVersion string `json:"go_version"`
}

func String() string {
	return fmt.Sprintf("v%s", Version)
}

func Get() Info {
	return Info{
		Version:   Version,
		BuildTime: BuildTime,
		GitCommit: GitCommit,
		GoVersion: runtime.Version(),
	}
}
