//go:build !windows

package server

import (
	"syscall"

	"github.com/pkg/errors"

	"golang.org/x/sys/unix"
)

// controlReuse sets SO_REUSEADDR and SO_REUSEPORT on a listening socket before
// it's bound.
func controlReuse(_, _ string, connection syscall.RawConn) error {
	var optionErr error
	err := connection.Control(func(descriptor uintptr) {
		if optionErr = unix.SetsockoptInt(int(descriptor), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); optionErr != nil {
			optionErr = errors.Wrap(optionErr, "unable to set SO_REUSEADDR")
			return
		}
		if optionErr = unix.SetsockoptInt(int(descriptor), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1); optionErr != nil {
			optionErr = errors.Wrap(optionErr, "unable to set SO_REUSEPORT")
		}
	})
	if err != nil {
		return errors.Wrap(err, "unable to access socket")
	}
	return optionErr
}
