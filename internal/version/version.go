// Package version carries build metadata set with -ldflags -X.
package version

import (
	"fmt"
	"runtime"
)

var (
	// Version is the release tag.
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// FormatVersion is the file format version written into saved designs.
const FormatVersion = "0.5.0"

// String describes the build on one line.
func String() string {
	sha := GitSHA
	if len(sha) > 12 {
		sha = sha[:12]
	}
	return fmt.Sprintf("%s (commit %s, built %s, %s, format %s)", Version, sha, BuildTime, runtime.Version(), FormatVersion)
}
