package common

import "fmt"

// Set at build time via -ldflags.
var (
	Version   = "dev"
	Build     = "unknown"
	GitCommit = "unknown"
)

// GetVersion returns the bare version string.
func GetVersion() string {
	return Version
}

// GetFullVersion returns the version with build metadata.
func GetFullVersion() string {
	return fmt.Sprintf("%s (build: %s, commit: %s)", Version, Build, GitCommit)
}
