// Package version exposes build metadata stamped in at link time.
package version

import (
	"runtime"
	"time"
)

// Set via -ldflags "-X habitarchitect/internal/version.Version=..." at build time.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// Info is the payload served by the version endpoint
type Info struct {
	Version     string    `json:"version"`
	GitCommit   string    `json:"git_commit"`
	BuildTime   string    `json:"build_time"`
	GoVersion   string    `json:"go_version"`
	Platform    string    `json:"platform"`
	ServerTime  time.Time `json:"server_time"`
	DBVersion   int       `json:"db_version,omitempty"`
	Environment string    `json:"environment"`
}

// Get assembles the version info for the given environment and applied
// migration version.
func Get(env string, dbVersion int) Info {
	return Info{
		Version:     Version,
		GitCommit:   GitCommit,
		BuildTime:   BuildTime,
		GoVersion:   runtime.Version(),
		Platform:    runtime.GOOS + "/" + runtime.GOARCH,
		ServerTime:  time.Now().UTC(),
		DBVersion:   dbVersion,
		Environment: env,
	}
}
