// Package version holds build information set by ldflags.
package version

import "fmt"

// Build information set by ldflags
var (
	Version = "dev"     // -X github.com/dmyersturnbull/tyranno-sandbox/internal/version.Version={{.Version}}
	Commit  = "unknown" // -X github.com/dmyersturnbull/tyranno-sandbox/internal/version.Commit={{.Commit}}
	Date    = "unknown" // -X github.com/dmyersturnbull/tyranno-sandbox/internal/version.Date={{.Date}}
)

// String is the one-line version banner.
func String() string {
	return fmt.Sprintf("tyranno %s (commit %s, built %s)", Version, Commit, Date)
}

// UserAgent is sent with every HTTP request, as in "tyranno/1.4.0".
func UserAgent(product string) string {
	return product + "/" + Version
}
