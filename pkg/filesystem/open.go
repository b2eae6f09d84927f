package filesystem

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/flatsync/flatsync/pkg/logging"
	"github.com/flatsync/flatsync/pkg/must"
)

// ErrNotRegular indicates that an entry exists but is not a regular file.
var ErrNotRegular = errors.New("not a regular file")

// OpenRegular opens the regular file with the specified name inside root for
// reading. The leaf is never resolved through a symbolic link (where the
// platform supports it) and the opened object must be a regular file. It
// returns the file and the size reported by the opened handle. Failures to
// close a rejected handle are logged to logger.
func OpenRegular(root, name string, logger *logging.Logger) (*os.File, int64, error) {
	// Validate the name.
	if err := ValidateName(name); err != nil {
		return nil, 0, err
	}

	// Open the file.
	file, err := os.OpenFile(filepath.Join(root, name), openFlags, 0)
	if err != nil {
		return nil, 0, err
	}

	// Grab metadata from the handle itself so that it can't race with a
	// replacement of the path.
	metadata, err := file.Stat()
	if err != nil {
		must.Close(file, logger)
		return nil, 0, errors.Wrap(err, "unable to query file metadata")
	} else if !metadata.Mode().IsRegular() {
		must.Close(file, logger)
		return nil, 0, errors.Wrapf(ErrNotRegular, "%q", name)
	}

	// Success.
	return file, metadata.Size(), nil
}
