package stream

import (
	"encoding/hex"
	"hash"
	"io"
)

// DigestWriter is an io.Writer that forwards writes to an underlying writer
// while feeding every successfully written byte into a hash function and
// counting them.
type DigestWriter struct {
	// writer is the underlying writer.
	writer io.Writer
	// hasher is the associated hash function.
	hasher hash.Hash
	// written is the number of bytes successfully written.
	written int64
}

// NewDigestWriter creates a new DigestWriter. If writer is nil, data is only
// hashed and counted.
func NewDigestWriter(writer io.Writer, hasher hash.Hash) *DigestWriter {
	if writer == nil {
		writer = io.Discard
	}
	return &DigestWriter{writer: writer, hasher: hasher}
}

// Write implements io.Writer.Write.
func (w *DigestWriter) Write(data []byte) (int, error) {
	n, err := w.writer.Write(data)

	// Hash writes can't fail, so the digest always covers exactly the bytes
	// that reached the underlying writer.
	w.hasher.Write(data[:n])
	w.written += int64(n)

	return n, err
}

// Written returns the number of bytes written so far.
func (w *DigestWriter) Written() int64 {
	return w.written
}

// Sum returns the raw digest of all bytes written so far.
func (w *DigestWriter) Sum() []byte {
	return w.hasher.Sum(nil)
}

// HexSum returns the hex-encoded digest of all bytes written so far.
func (w *DigestWriter) HexSum() string {
	return hex.EncodeToString(w.Sum())
}
