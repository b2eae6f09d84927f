package stream

import (
	"context"
	"io"
)

// contextWriter is the io.Writer implementation underlying
// NewContextWriter.
type contextWriter struct {
	// ctx is the governing context.
	ctx context.Context
	// writer is the underlying writer.
	writer io.Writer
	// interval is the number of writes allowed between cancellation checks.
	interval uint
	// count is the number of writes since the last cancellation check.
	count uint
}

// NewContextWriter wraps writer so that long copy operations stop once ctx is
// cancelled. Cancellation is checked every interval writes (every write if
// interval is 0), in which case the context's error is returned.
func NewContextWriter(ctx context.Context, writer io.Writer, interval uint) io.Writer {
	return &contextWriter{ctx: ctx, writer: writer, interval: interval}
}

// Write implements io.Writer.Write.
func (w *contextWriter) Write(data []byte) (int, error) {
	if w.count == w.interval {
		if err := w.ctx.Err(); err != nil {
			return 0, err
		}
		w.count = 0
	} else {
		w.count++
	}
	return w.writer.Write(data)
}
