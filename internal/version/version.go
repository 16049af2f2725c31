// Package version exposes the build version of blunderlab.
// Release builds override it with ldflags:
//
//	go build -ldflags "-X github.com/mlowell/blunderlab/internal/version.Version=v0.3.0"
package version

// Version defaults to "dev" for local builds.
var Version = "dev"

// GetVersion returns the current application version.
func GetVersion() string {
	return Version
}
