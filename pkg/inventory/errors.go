package inventory

import (
	"github.com/pkg/errors"
)

// ErrScan is matched (via errors.Is) by every ScanError.
var ErrScan = errors.New("scan failed")

// ScanError indicates that an inventory root could not be enumerated.
type ScanError struct {
	// Root is the directory being scanned.
	Root string
	// Err is the underlying failure.
	Err error
}

// Error implements error.Error.
func (e *ScanError) Error() string {
	return "unable to scan " + e.Root + ": " + e.Err.Error()
}

// Unwrap returns the underlying failure.
func (e *ScanError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrScan.
func (e *ScanError) Is(target error) bool {
	return target == ErrScan
}
