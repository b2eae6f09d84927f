// Package filesystem provides the small set of flat-directory operations that
// synchronization needs: name validation, symlink-safe opening of regular
// files, and atomic placement of received files.
package filesystem
