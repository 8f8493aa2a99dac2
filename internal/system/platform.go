// Package system wraps the OS facilities the assistant drives: launching
// processes, opening URLs and running commands with elevated privileges.
package system

import (
	"runtime"
	"strings"
)

// Platform is the host operating system family.
type Platform string

const (
	Windows Platform = "windows"
	Darwin  Platform = "darwin"
	Linux   Platform = "linux"
	Other   Platform = "other"
)

// Detect returns the platform of the running process.
func Detect() Platform {
	return ParsePlatform(runtime.GOOS)
}

// ParsePlatform maps a GOOS-style name to a Platform. Unknown unix-likes are
// treated as Linux since they share the same launch and elevation tools.
func ParsePlatform(goos string) Platform {
	switch strings.ToLower(strings.TrimSpace(goos)) {
	case "windows":
		return Windows
	case "darwin", "macos":
		return Darwin
	case "linux", "freebsd", "openbsd", "netbsd", "dragonfly", "solaris", "illumos":
		return Linux
	default:
		return Other
	}
}

// String returns the platform name.
func (p Platform) String() string {
	return string(p)
}
