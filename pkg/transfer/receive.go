package transfer

import (
	"context"
	"io"
	"math"

	"github.com/pkg/errors"

	"github.com/flatsync/flatsync/pkg/filesystem"
	"github.com/flatsync/flatsync/pkg/inventory"
	"github.com/flatsync/flatsync/pkg/logging"
	"github.com/flatsync/flatsync/pkg/protocol"
	"github.com/flatsync/flatsync/pkg/stream"
)

// receiveBufferSize is the size of the chunks in which content is read from
// the stream.
const receiveBufferSize = 32 * 1024

// receiver holds per-batch reception state.
type receiver struct {
	// ctx governs cancellation.
	ctx context.Context
	// decoder is the stream source.
	decoder *protocol.Decoder
	// destination is the directory receiving files.
	destination string
	// buffer is the content copy buffer.
	buffer []byte
	// logger is the transfer logger.
	logger *logging.Logger
}

// discard consumes size content bytes without storing them.
func (r *receiver) discard(size int64) error {
	discarded, err := io.CopyBuffer(io.Discard, io.LimitReader(r.decoder, size), r.buffer)
	if err != nil {
		return err
	} else if discarded != size {
		return errors.Wrapf(io.ErrUnexpectedEOF, "short read (%d of %d bytes)", discarded, size)
	}
	return nil
}

// receiveFile receives one file's content. A non-nil storageErr indicates a
// filesystem failure after which the stream is still aligned (the remainder of
// the file's content has been consumed). A non-nil streamErr indicates that the
// stream itself failed. A false match indicates that the content didn't match
// the announced digest and was discarded.
func (r *receiver) receiveFile(header *protocol.Header, size int64) (match bool, storageErr, streamErr error) {
	// Create the destination.
	file, err := filesystem.CreateAtomic(r.destination, header.Name, r.logger)
	if err != nil {
		if err := r.discard(size); err != nil {
			return false, nil, err
		}
		return false, errors.Wrapf(err, "unable to create %q", header.Name), nil
	}

	// Copy the content in bounded chunks, hashing as we go.
	digester := stream.NewDigestWriter(file, inventory.NewHasher())
	var received int64
	for received < size {
		if err := r.ctx.Err(); err != nil {
			file.Abort()
			return false, nil, err
		}
		chunk := r.buffer
		if remaining := size - received; remaining < int64(len(chunk)) {
			chunk = chunk[:remaining]
		}
		n, err := io.ReadFull(r.decoder, chunk)
		received += int64(n)
		if err != nil {
			file.Abort()
			return false, nil, errors.Wrapf(err, "short read (%d of %d bytes)", received, size)
		}
		if _, err := digester.Write(chunk); err != nil {
			file.Abort()
			if err := r.discard(size - received); err != nil {
				return false, nil, err
			}
			return false, errors.Wrapf(err, "unable to write %q", header.Name), nil
		}
	}

	// Verify the byte count and digest.
	if digester.Written() != size {
		file.Abort()
		return false, errors.Errorf("wrote %d of %d bytes to %q", digester.Written(), size, header.Name), nil
	} else if digester.HexSum() != header.Digest {
		file.Abort()
		return false, nil, nil
	}

	// Move the file into place.
	if err := file.Commit(); err != nil {
		return false, errors.Wrapf(err, "unable to commit %q", header.Name), nil
	}

	// Success.
	return true, nil, nil
}

// Receive reads a batch of the specified kind from decoder into destination
// and returns a summary of the files written. It is equivalent to decoding the
// first header envelope, verifying its kind, and invoking ReceiveBatch.
func Receive(ctx context.Context, decoder *protocol.Decoder, kind protocol.Kind, destination string, logger *logging.Logger) (Summary, error) {
	first, err := decoder.Decode()
	if err != nil {
		return Summary{}, fatal(err, "unable to receive transfer header")
	} else if first.Kind != kind {
		return Summary{}, fatal(protocol.ErrProtocolViolation, "unexpected "+first.Kind.String()+" envelope in place of "+kind.String()+" batch")
	}
	return ReceiveBatch(ctx, decoder, first, destination, logger)
}

// ReceiveBatch reads a batch whose first header envelope has already been
// decoded. The batch kind is that of the first envelope. Each file is written
// to a temporary file and moved into place only once all of its bytes have
// been received and its digest verified; files whose digest doesn't match are
// logged and discarded.
//
// A failed or short read from the stream aborts the batch with a fatal *Error.
// A filesystem failure or an invalid file name also aborts the batch, without
// writing any further files, but the remainder of the batch is consumed so
// that the connection remains usable; the resulting *Error is not fatal.
func ReceiveBatch(ctx context.Context, decoder *protocol.Decoder, first *protocol.Message, destination string, logger *logging.Logger) (Summary, error) {
	r := &receiver{
		ctx:         ctx,
		decoder:     decoder,
		destination: destination,
		buffer:      make([]byte, receiveBufferSize),
		logger:      logger,
	}

	kind := first.Kind
	var summary Summary
	var batchErr error
	message := first
	for {
		// Read and validate the next header.
		if message == nil {
			next, err := decoder.Decode()
			if err != nil {
				return summary, fatal(err, "unable to receive transfer header")
			}
			message = next
		}
		if message.Kind != kind {
			return summary, fatal(protocol.ErrProtocolViolation, "unexpected "+message.Kind.String()+" envelope in "+kind.String()+" batch")
		}
		header, err := protocol.DecodeHeader(message)
		message = nil
		if err != nil {
			return summary, fatal(err, "invalid transfer header")
		} else if header.End {
			break
		} else if header.Size > math.MaxInt64 {
			return summary, fatal(protocol.ErrProtocolViolation, "transfer size out of range")
		}
		size := int64(header.Size)

		// Once the batch has been aborted, only keep the stream aligned.
		if batchErr != nil {
			if err := r.discard(size); err != nil {
				return summary, fatal(err, "unable to drain aborted batch")
			}
			continue
		}

		// Reject names that would escape the destination.
		if err := filesystem.ValidateName(header.Name); err != nil {
			batchErr = errors.Wrap(protocol.ErrProtocolViolation, err.Error())
			logger.Warnf("Aborting batch: %v", batchErr)
			if err := r.discard(size); err != nil {
				return summary, fatal(err, "unable to drain aborted batch")
			}
			continue
		}

		// Receive the file.
		logger.Debugf("Receiving %q (%d bytes)", header.Name, size)
		match, storageErr, streamErr := r.receiveFile(header, size)
		if streamErr != nil {
			return summary, fatal(streamErr, "unable to receive "+header.Name)
		} else if storageErr != nil {
			batchErr = storageErr
			logger.Warnf("Aborting batch: %v", batchErr)
			continue
		} else if !match {
			logger.Warnf("Discarding %q: content does not match announced digest", header.Name)
			summary.Discarded = append(summary.Discarded, header.Name)
			continue
		}

		// Update the summary.
		summary.Files = append(summary.Files, header.Name)
		summary.Bytes += header.Size
	}

	// Report any batch abort.
	if batchErr != nil {
		return summary, &Error{Err: batchErr}
	}
	return summary, nil
}
