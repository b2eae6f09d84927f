package transfer

import (
	"context"
	"io"

	"github.com/pkg/errors"

	"github.com/flatsync/flatsync/pkg/filesystem"
	"github.com/flatsync/flatsync/pkg/inventory"
	"github.com/flatsync/flatsync/pkg/logging"
	"github.com/flatsync/flatsync/pkg/must"
	"github.com/flatsync/flatsync/pkg/protocol"
	"github.com/flatsync/flatsync/pkg/stream"
)

// copyPreemptionInterval is the number of writes between cancellation checks
// while copying file content.
const copyPreemptionInterval = 16

// Send streams the files described by records, in order, from root. Each file
// is announced by a header envelope of the specified kind carrying its name,
// size, and digest, followed immediately by exactly that many raw bytes. The
// batch ends with the end-of-batch sentinel.
//
// Files that can't be opened (or that are no longer regular files) are logged
// and skipped. Any failure once a header has been written is fatal to the
// connection.
func Send(ctx context.Context, encoder *protocol.Encoder, kind protocol.Kind, root string, records []inventory.FileRecord, logger *logging.Logger) (Summary, error) {
	var summary Summary
	for _, record := range records {
		if err := ctx.Err(); err != nil {
			return summary, fatal(err, "batch cancelled")
		}

		// Open the file. Failure here is non-terminal since nothing has been
		// written for this file yet.
		file, size, err := filesystem.OpenRegular(root, record.Name, logger)
		if err != nil {
			logger.Warnf("Skipping %q: %v", record.Name, err)
			continue
		}

		// Encode the header.
		header, err := protocol.EncodeHeader(kind, &protocol.Header{
			Name:   record.Name,
			Size:   uint64(size),
			Digest: record.Digest,
		})
		if err != nil {
			must.Close(file, logger)
			logger.Warnf("Skipping %q: %v", record.Name, err)
			continue
		}

		// Transmit the header and content.
		err = sendFile(ctx, encoder, header, file, size)
		must.Close(file, logger)
		if err != nil {
			return summary, fatal(err, "unable to send "+record.Name)
		}
		logger.Debugf("Sent %q (%d bytes)", record.Name, size)

		// Update the summary.
		summary.Files = append(summary.Files, record.Name)
		summary.Bytes += uint64(size)
	}

	// Terminate the batch.
	sentinel, err := protocol.EncodeHeader(kind, &protocol.Header{End: true})
	if err != nil {
		return summary, fatal(err, "unable to encode end-of-batch sentinel")
	} else if err = encoder.Encode(sentinel); err != nil {
		return summary, fatal(err, "unable to send end-of-batch sentinel")
	}

	// Success.
	return summary, nil
}

// sendFile transmits a header and exactly size bytes of content.
func sendFile(ctx context.Context, encoder *protocol.Encoder, header *protocol.Message, file io.Reader, size int64) error {
	if err := encoder.Encode(header); err != nil {
		return err
	}
	copied, err := io.CopyN(stream.NewContextWriter(ctx, encoder, copyPreemptionInterval), file, size)
	if err == io.EOF {
		return errors.Errorf("file shrank during transfer (%d of %d bytes)", copied, size)
	} else if err != nil {
		return errors.Wrap(err, "unable to copy content")
	}
	return nil
}
