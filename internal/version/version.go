// Package version holds build metadata injected with -ldflags.
package version

var (
	// Version is the release version.
	Version = "dev"
	// GitCommit is the commit the binary was built from.
	GitCommit = ""
	// BuildDate is the RFC3339 build timestamp.
	BuildDate = ""
)
