package transfer

import (
	"github.com/pkg/errors"
)

// ErrTransfer is matched (via errors.Is) by every *Error.
var ErrTransfer = errors.New("transfer failed")

// Error is a batch transfer failure.
type Error struct {
	// Fatal indicates that the stream is no longer aligned on an envelope
	// boundary, so the connection can't be used further. Non-fatal failures
	// leave the stream positioned after the end-of-batch sentinel.
	Fatal bool
	// Err is the underlying failure.
	Err error
}

// Error implements error.Error.
func (e *Error) Error() string {
	return "transfer failed: " + e.Err.Error()
}

// Unwrap returns the underlying failure.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrTransfer.
func (e *Error) Is(target error) bool {
	return target == ErrTransfer
}

// fatal creates a connection-fatal transfer error.
func fatal(err error, message string) error {
	return &Error{Fatal: true, Err: errors.Wrap(err, message)}
}

// IsFatal returns whether err is a transfer error that leaves the connection
// unusable.
func IsFatal(err error) bool {
	var transferErr *Error
	return errors.As(err, &transferErr) && transferErr.Fatal
}
