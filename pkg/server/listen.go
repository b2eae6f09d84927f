package server

import (
	"context"
	"net"

	"github.com/pkg/errors"
)

// Listen creates a TCP listener on address. If reusePort is true, the socket
// is configured to allow immediate rebinding of the address (where the
// platform supports it).
func Listen(ctx context.Context, address string, reusePort bool) (net.Listener, error) {
	configuration := &net.ListenConfig{}
	if reusePort {
		configuration.Control = controlReuse
	}
	listener, err := configuration.Listen(ctx, "tcp", address)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to listen on %s", address)
	}
	return listener, nil
}
