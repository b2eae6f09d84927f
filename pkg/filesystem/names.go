package filesystem

import (
	"strings"

	"github.com/pkg/errors"
)

// ErrInvalidName indicates that a file name is not valid within a flat root.
var ErrInvalidName = errors.New("invalid file name")

// ValidateName verifies that name refers to an entry directly inside a root.
// It rejects empty names, the dot entries, names containing path separators or
// NUL bytes, and names reserved for temporary files.
func ValidateName(name string) error {
	switch {
	case name == "":
		return errors.Wrap(ErrInvalidName, "empty name")
	case name == "." || name == "..":
		return errors.Wrapf(ErrInvalidName, "%q is a directory reference", name)
	case strings.ContainsAny(name, "/\\\x00"):
		return errors.Wrapf(ErrInvalidName, "%q contains a path separator or NUL byte", name)
	case IsTemporaryName(name):
		return errors.Wrapf(ErrInvalidName, "%q uses the reserved temporary prefix", name)
	}
	return nil
}
