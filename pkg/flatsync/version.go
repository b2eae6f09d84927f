// Package flatsync provides flatsync build information.
package flatsync

import (
	"fmt"
)

const (
	// VersionMajor represents the current major version of flatsync.
	VersionMajor = 0
	// VersionMinor represents the current minor version of flatsync.
	VersionMinor = 1
	// VersionPatch represents the current patch version of flatsync.
	VersionPatch = 0
	// VersionTag represents a tag to be appended to the version string. It
	// must not contain spaces. If empty, no tag is appended.
	VersionTag = "dev"
)

// Version provides a stringified version of the current flatsync version.
var Version string

func init() {
	if VersionTag != "" {
		Version = fmt.Sprintf("%d.%d.%d-%s", VersionMajor, VersionMinor, VersionPatch, VersionTag)
	} else {
		Version = fmt.Sprintf("%d.%d.%d", VersionMajor, VersionMinor, VersionPatch)
	}
}
