package logging

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fatih/color"
)

// timestampFormat is the layout used for log line timestamps.
const timestampFormat = "2006-01-02 15:04:05.000000"

// sink is the shared destination for a logger and all of its subloggers. It
// serializes writes so that lines from concurrent connections don't interleave.
type sink struct {
	// lock serializes access to writer.
	lock sync.Mutex
	// writer is the underlying output stream.
	writer io.Writer
}

// write writes a single complete line to the sink.
func (s *sink) write(line []byte) {
	s.lock.Lock()
	s.writer.Write(line)
	s.lock.Unlock()
}

// Logger is the main logger type. It has the novel property that it still
// functions if nil, but it doesn't log anything. It is safe for concurrent
// usage.
type Logger struct {
	// level is the maximum level that the logger will emit.
	level Level
	// scope is the dot-separated name of the logger, if any.
	scope string
	// output is the shared output sink.
	output *sink
}

// NewLogger creates a new root logger that emits lines at or below the
// specified level to the specified writer.
func NewLogger(level Level, writer io.Writer) *Logger {
	return &Logger{
		level:  level,
		output: &sink{writer: writer},
	}
}

// Sublogger creates a new sublogger with the specified name.
func (l *Logger) Sublogger(name string) *Logger {
	// If the logger is nil, then the sublogger will be as well.
	if l == nil {
		return nil
	}

	// Compute the new scope.
	scope := name
	if l.scope != "" {
		scope = l.scope + "." + name
	}

	// Create the new logger.
	return &Logger{
		level:  l.level,
		scope:  scope,
		output: l.output,
	}
}

// Level returns the logger's level. A nil logger is always disabled.
func (l *Logger) Level() Level {
	if l == nil {
		return LevelDisabled
	}
	return l.level
}

// enabled returns whether or not lines at the specified level are emitted.
func (l *Logger) enabled(level Level) bool {
	return l != nil && level <= l.level
}

// emit formats and writes a single log line.
func (l *Logger) emit(level Level, message string) {
	// Strip any trailing newline, since we add our own.
	message = string(bytes.TrimRight([]byte(message), "\r\n"))

	// Colorize errors and warnings.
	switch level {
	case LevelError:
		message = color.RedString(message)
	case LevelWarn:
		message = color.YellowString(message)
	}

	// Build the line.
	var line bytes.Buffer
	line.WriteString(time.Now().Format(timestampFormat))
	line.WriteByte(' ')
	line.WriteString(level.abbreviation())
	line.WriteByte(' ')
	if l.scope != "" {
		line.WriteByte('[')
		line.WriteString(l.scope)
		line.WriteString("] ")
	}
	line.WriteString(message)
	line.WriteByte('\n')

	// Write the line.
	l.output.write(line.Bytes())
}

// log emits a message using fmt.Sprint semantics.
func (l *Logger) log(level Level, v ...interface{}) {
	if l.enabled(level) {
		l.emit(level, fmt.Sprint(v...))
	}
}

// logf emits a message using fmt.Sprintf semantics.
func (l *Logger) logf(level Level, format string, v ...interface{}) {
	if l.enabled(level) {
		l.emit(level, fmt.Sprintf(format, v...))
	}
}

// Error logs errors with semantics equivalent to fmt.Print.
func (l *Logger) Error(v ...interface{}) {
	l.log(LevelError, v...)
}

// Errorf logs errors with semantics equivalent to fmt.Printf.
func (l *Logger) Errorf(format string, v ...interface{}) {
	l.logf(LevelError, format, v...)
}

// Warn logs warnings with semantics equivalent to fmt.Print.
func (l *Logger) Warn(v ...interface{}) {
	l.log(LevelWarn, v...)
}

// Warnf logs warnings with semantics equivalent to fmt.Printf.
func (l *Logger) Warnf(format string, v ...interface{}) {
	l.logf(LevelWarn, format, v...)
}

// Info logs information with semantics equivalent to fmt.Print.
func (l *Logger) Info(v ...interface{}) {
	l.log(LevelInfo, v...)
}

// Infof logs information with semantics equivalent to fmt.Printf.
func (l *Logger) Infof(format string, v ...interface{}) {
	l.logf(LevelInfo, format, v...)
}

// Debug logs information with semantics equivalent to fmt.Print, but only if
// the logger is at debug level or above.
func (l *Logger) Debug(v ...interface{}) {
	l.log(LevelDebug, v...)
}

// Debugf logs information with semantics equivalent to fmt.Printf, but only if
// the logger is at debug level or above.
func (l *Logger) Debugf(format string, v ...interface{}) {
	l.logf(LevelDebug, format, v...)
}

// Trace logs low-level information with semantics equivalent to fmt.Print.
func (l *Logger) Trace(v ...interface{}) {
	l.log(LevelTrace, v...)
}

// Tracef logs low-level information with semantics equivalent to fmt.Printf.
func (l *Logger) Tracef(format string, v ...interface{}) {
	l.logf(LevelTrace, format, v...)
}

// writer is an io.Writer that splits its input stream into lines and writes
// those lines to an underlying logger.
type writer struct {
	// callback is the logging callback.
	callback func(string)
	// buffer is any incomplete line fragment left over from a previous write.
	buffer []byte
}

// trimCarriageReturn trims any single trailing carriage return from the end of
// a byte slice.
func trimCarriageReturn(buffer []byte) []byte {
	if len(buffer) > 0 && buffer[len(buffer)-1] == '\r' {
		return buffer[:len(buffer)-1]
	}
	return buffer
}

// Write implements io.Writer.Write.
func (w *writer) Write(buffer []byte) (int, error) {
	// Append the data to our internal buffer.
	w.buffer = append(w.buffer, buffer...)

	// Process all complete lines in the buffer.
	remaining := w.buffer
	for {
		index := bytes.IndexByte(remaining, '\n')
		if index == -1 {
			break
		}
		w.callback(string(trimCarriageReturn(remaining[:index])))
		remaining = remaining[index+1:]
	}

	// Shift any leftover fragment to the front of the buffer.
	w.buffer = w.buffer[:copy(w.buffer, remaining)]

	// Done.
	return len(buffer), nil
}

// Writer returns an io.Writer that writes lines at the specified level.
func (l *Logger) Writer(level Level) io.Writer {
	// If the logger won't emit at this level, then we can just discard input.
	// This saves us the overhead of scanning lines.
	if !l.enabled(level) {
		return io.Discard
	}

	// Create the writer.
	return &writer{
		callback: func(s string) {
			l.emit(level, s)
		},
	}
}
