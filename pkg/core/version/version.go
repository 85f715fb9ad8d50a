// Package version holds build information stamped at link time.
package version

import "fmt"

// Set via -ldflags at build time.
var (
	Version   = "0.1.0-dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// Info describes the running build.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

// Get returns the build information of the running binary
func Get() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
	}
}

// String returns a single-line human-readable form
func (i Info) String() string {
	return fmt.Sprintf("airlock %s (commit %s, built %s)", i.Version, i.Commit, i.BuildTime)
}
