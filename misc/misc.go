// Package misc keeps program identity: name, version and build hash.
package misc

import (
	"runtime/debug"
)

// Set at link time with -ldflags "-X cyc/misc.version=... -X cyc/misc.gitHash=...".
var (
	version = "dev"
	gitHash = ""
)

const appName = "cyc"

func GetAppName() string {
	return appName
}

func GetVersion() string {
	return version
}

// GetGitHash returns the commit the program was built from. When it was not
// provided at link time the VCS revision from build info is used.
func GetGitHash() string {
	if gitHash != "" {
		return gitHash
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" {
				return s.Value
			}
		}
	}
	return "unknown"
}
