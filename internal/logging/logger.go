package logging

import (
	"fmt"
	"io"
	"os"
)

// Logger writes human-oriented status lines to stderr. It satisfies
// gssext.Logger, so native call tracing goes through Debug.
type Logger struct {
	debug   bool
	noColor bool
	out     io.Writer
}

// New creates a logger writing to stderr
func New(debug, noColor bool) *Logger {
	return &Logger{
		debug:   debug,
		noColor: noColor,
		out:     os.Stderr,
	}
}

// SetOutput redirects the logger, mainly for tests
func (l *Logger) SetOutput(w io.Writer) {
	l.out = w
}

// DebugEnabled reports whether Debug lines are written
func (l *Logger) DebugEnabled() bool {
	return l.debug
}

func (l *Logger) write(color, marker, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if l.noColor {
		_, _ = fmt.Fprintf(l.out, "%s %s\n", marker, msg)
		return
	}
	_, _ = fmt.Fprintf(l.out, "\033[%sm%s\033[0m %s\n", color, marker, msg)
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) {
	l.write("32", "✓", format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	l.write("33", "⚠", format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.write("31", "✗", format, args...)
}

// Debug logs a debug message if debug mode is enabled
func (l *Logger) Debug(format string, args ...interface{}) {
	if !l.debug {
		return
	}
	l.write("36", "[DEBUG]", format, args...)
}

// Secret is a password or attribute value that must never reach a log line
type Secret []byte

// String implements the Stringer interface, always returning a redacted value
func (s Secret) String() string {
	return "[REDACTED]"
}

// GoString implements the GoStringer interface for %#v formatting
func (s Secret) GoString() string {
	return "[REDACTED]"
}

// Format keeps %x and %q from printing the underlying bytes.
func (s Secret) Format(f fmt.State, _ rune) {
	_, _ = io.WriteString(f, "[REDACTED]")
}
