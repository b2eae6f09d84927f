package filesystem

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/flatsync/flatsync/pkg/logging"
	"github.com/flatsync/flatsync/pkg/must"
)

const (
	// atomicWriteTemporaryNamePrefix is the file name prefix to use for
	// intermediate temporary files used in atomic writes.
	atomicWriteTemporaryNamePrefix = TemporaryNamePrefix + "atomic-write"

	// atomicWritePermissions are the permissions applied to committed files,
	// matching the original receiver's creation mode.
	atomicWritePermissions = 0644
)

// AtomicFile is a file being written in place of a target path. Data is
// written to an intermediate temporary file in the target's directory, which
// is swapped into place by Commit or discarded by Abort.
type AtomicFile struct {
	// temporary is the intermediate file.
	temporary *os.File
	// target is the final path.
	target string
	// logger is used to report cleanup failures.
	logger *logging.Logger
	// done indicates that the file has been committed or aborted.
	done bool
}

// CreateAtomic starts an atomic write of the file with the specified name in
// directory.
func CreateAtomic(directory, name string, logger *logging.Logger) (*AtomicFile, error) {
	// Validate the name.
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	// Create a temporary file. The os package already uses secure permissions
	// for creating temporary files, so they are only widened on commit.
	temporary, err := os.CreateTemp(directory, atomicWriteTemporaryNamePrefix)
	if err != nil {
		return nil, errors.Wrap(err, "unable to create temporary file")
	}

	// Success.
	return &AtomicFile{
		temporary: temporary,
		target:    filepath.Join(directory, name),
		logger:    logger,
	}, nil
}

// Write implements io.Writer.Write.
func (f *AtomicFile) Write(data []byte) (int, error) {
	return f.temporary.Write(data)
}

// Commit closes the temporary file and renames it over the target path.
func (f *AtomicFile) Commit() error {
	if f.done {
		return errors.New("atomic file already finalized")
	}
	f.done = true

	// Close out the file.
	if err := f.temporary.Close(); err != nil {
		must.OSRemove(f.temporary.Name(), f.logger)
		return errors.Wrap(err, "unable to close temporary file")
	}

	// Set the file's permissions.
	if err := os.Chmod(f.temporary.Name(), atomicWritePermissions); err != nil {
		must.OSRemove(f.temporary.Name(), f.logger)
		return errors.Wrap(err, "unable to change file permissions")
	}

	// Rename the file.
	if err := os.Rename(f.temporary.Name(), f.target); err != nil {
		must.OSRemove(f.temporary.Name(), f.logger)
		return errors.Wrap(err, "unable to rename file")
	}

	// Success.
	return nil
}

// Abort closes and removes the temporary file. It is a no-op after Commit.
func (f *AtomicFile) Abort() {
	if f.done {
		return
	}
	f.done = true
	must.Close(f.temporary, f.logger)
	must.OSRemove(f.temporary.Name(), f.logger)
}
