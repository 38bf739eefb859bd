// Package version holds build metadata set via -ldflags, e.g.
//
//	go build -ldflags "-X github.com/banshee-data/sarplan/internal/version.Version=v0.3.0"
package version

import "fmt"

var (
	// Version is the current application version
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String returns a single-line build description for -version output and
// the mission store.
func String() string {
	return fmt.Sprintf("sarplan %s (%s, built %s)", Version, shortSHA(GitSHA), BuildTime)
}

func shortSHA(sha string) string {
	if len(sha) > 12 {
		return sha[:12]
	}
	return sha
}
