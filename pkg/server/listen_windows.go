package server

import (
	"syscall"
)

// controlReuse is a no-op on Windows, where SO_REUSEADDR has different
// semantics (it permits port hijacking) and SO_REUSEPORT doesn't exist.
func controlReuse(_, _ string, _ syscall.RawConn) error {
	return nil
}
