package inventory

import (
	"context"
	"hash"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/flatsync/flatsync/pkg/filesystem"
	"github.com/flatsync/flatsync/pkg/logging"
	"github.com/flatsync/flatsync/pkg/must"
	"github.com/flatsync/flatsync/pkg/stream"
)

const (
	// scannerCopyBufferSize specifies the size of the internal buffer that a
	// scanner uses to feed file data into the digest.
	scannerCopyBufferSize = 32 * 1024

	// scannerCopyPreemptionInterval specifies the number of buffer-sized
	// writes into a digest between cancellation checks.
	scannerCopyPreemptionInterval = 64
)

// scanner holds per-scan state.
type scanner struct {
	// ctx governs cancellation of the scan.
	ctx context.Context
	// root is the directory being scanned.
	root string
	// hasher is the hash function used for digests. It is reset per file.
	hasher hash.Hash
	// copyBuffer is the buffer used to copy file contents into the hasher.
	copyBuffer []byte
	// logger is the scan logger.
	logger *logging.Logger
}

// digest computes the hex-encoded content digest of the named file.
func (s *scanner) digest(name string) (string, error) {
	// Open the file, refusing anything that isn't a regular file by the time
	// we reach it.
	file, size, err := filesystem.OpenRegular(s.root, name, s.logger)
	if err != nil {
		return "", errors.Wrap(err, "unable to open file")
	}
	defer must.Close(file, s.logger)

	// Stream the content through the digest in bounded-size chunks.
	s.hasher.Reset()
	digester := stream.NewDigestWriter(nil, s.hasher)
	preemptable := stream.NewContextWriter(s.ctx, digester, scannerCopyPreemptionInterval)
	if _, err := io.CopyBuffer(preemptable, file, s.copyBuffer); err != nil {
		return "", errors.Wrap(err, "unable to hash file contents")
	}

	// A size change during hashing indicates concurrent modification. The
	// digest still describes what we read, so only note it.
	if digester.Written() != size {
		s.logger.Debugf("File %q changed size during hashing (%d != %d)", name, digester.Written(), size)
	}

	// Success.
	return digester.HexSum(), nil
}

// Build scans the flat directory at root and returns one record per regular
// file. Symbolic links, directories, and special files are excluded, as are
// in-flight temporary files. Failure to enumerate root yields a *ScanError;
// failure to read an individual file is logged and that file is skipped.
func Build(ctx context.Context, root string, logger *logging.Logger) (Inventory, error) {
	// Enumerate the directory.
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, &ScanError{Root: root, Err: err}
	}

	// Create the scanner.
	s := &scanner{
		ctx:        ctx,
		root:       root,
		hasher:     NewHasher(),
		copyBuffer: make([]byte, scannerCopyBufferSize),
		logger:     logger,
	}

	// Process entries.
	result := make(Inventory, 0, len(entries))
	for _, entry := range entries {
		// Check for cancellation between files.
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "scan cancelled")
		}

		// Filter to regular files. The entry type comes from the directory
		// listing itself, so symbolic links report as such.
		name := entry.Name()
		if !entry.Type().IsRegular() {
			logger.Tracef("Skipping non-regular entry %q", name)
			continue
		} else if filesystem.IsTemporaryName(name) {
			logger.Tracef("Skipping temporary file %q", name)
			continue
		}

		// Compute the digest. Per-file failures are not fatal.
		digest, err := s.digest(name)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, errors.Wrap(ctxErr, "scan cancelled")
			}
			logger.Warnf("Skipping %q: %v", name, err)
			continue
		}

		// Record the file.
		result = append(result, FileRecord{Name: name, Digest: digest})
	}

	// Success.
	logger.Debugf("Scanned %d files in %s", len(result), root)
	return result, nil
}
