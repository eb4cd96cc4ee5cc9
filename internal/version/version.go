// Package version exposes build metadata injected at link time.
package version

import "fmt"

// Populated via -ldflags "-X shopwise/internal/version.Version=..." etc.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// Info returns a single-line human-readable version string.
func Info() string {
	return fmt.Sprintf("shopwise %s (commit %s, built %s)", Version, Commit, Date)
}
