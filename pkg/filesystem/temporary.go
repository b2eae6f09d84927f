package filesystem

import (
	"strings"
)

const (
	// TemporaryNamePrefix is the file name prefix used for all temporary files
	// created by flatsync. Using this prefix guarantees that any such files
	// will be ignored by inventory scans. It may be suffixed with additional
	// elements if desired.
	TemporaryNamePrefix = ".flatsync-temporary-"
)

// IsTemporaryName returns whether or not name was generated by flatsync for an
// in-flight temporary file.
func IsTemporaryName(name string) bool {
	return strings.HasPrefix(name, TemporaryNamePrefix)
}
