package protocol

import (
	"strings"
)

// PatternMarker prefixes PULL filter entries that are doublestar patterns.
// Every other entry is an exact file name. Names in a flat root can't contain
// a path separator, so the marker never collides with a file name.
const PatternMarker = "/"

// PatternEntry returns the filter entry for a doublestar pattern.
func PatternEntry(pattern string) string {
	return PatternMarker + pattern
}

// ParseFilterEntry splits a filter entry into its value and whether or not
// that value is a pattern.
func ParseFilterEntry(entry string) (string, bool) {
	if strings.HasPrefix(entry, PatternMarker) {
		return entry[len(PatternMarker):], true
	}
	return entry, false
}
