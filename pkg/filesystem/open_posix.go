//go:build !windows
// +build !windows

package filesystem

import (
	"os"

	"golang.org/x/sys/unix"
)

// openFlags are the flags used to open files for reading. O_NOFOLLOW only
// affects the leaf component, which is the only component in a flat root.
const openFlags = os.O_RDONLY | unix.O_NOFOLLOW
