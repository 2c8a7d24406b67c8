package testutil

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/systmms/gssext/internal/logging"
)

// TestLogger captures the output of a logging.Logger for validation in tests.
//
// Example usage:
//
//	logger := NewTestLogger(t)
//	logger.Logger().Debug("password %s", logging.Secret(pw))
//
//	logger.AssertRedacted(t, string(pw))
type TestLogger struct {
	mu     sync.Mutex
	buffer bytes.Buffer
	logger *logging.Logger
}

// NewTestLogger creates a TestLogger without color. Debug messages are
// dropped.
func NewTestLogger(t *testing.T) *TestLogger {
	t.Helper()
	return NewTestLoggerWithDebug(t, false)
}

// NewTestLoggerWithDebug creates a TestLogger that also captures Debug
// messages when debug is true.
func NewTestLoggerWithDebug(t *testing.T, debug bool) *TestLogger {
	t.Helper()

	l := &TestLogger{logger: logging.New(debug, true)}
	l.logger.SetOutput(l)
	return l
}

// Write implements io.Writer for the wrapped logger.
func (l *TestLogger) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buffer.Write(p)
}

// Logger returns the logger to hand to the code under test.
func (l *TestLogger) Logger() *logging.Logger {
	return l.logger
}

// GetOutput returns everything logged so far.
func (l *TestLogger) GetOutput() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buffer.String()
}

// AssertContains asserts that the log output contains substr.
func (l *TestLogger) AssertContains(t *testing.T, substr string) {
	t.Helper()
	assert.Contains(t, l.GetOutput(), substr, "Expected log output to contain %q", substr)
}

// AssertNotContains asserts that the log output does NOT contain substr.
func (l *TestLogger) AssertNotContains(t *testing.T, substr string) {
	t.Helper()
	assert.NotContains(t, l.GetOutput(), substr, "Expected log output to NOT contain %q", substr)
}

// AssertRedacted asserts that secretValue never appears in the log output
// and that at least one [REDACTED] marker does.
func (l *TestLogger) AssertRedacted(t *testing.T, secretValue string) {
	t.Helper()

	output := l.GetOutput()
	assert.NotContains(t, output, secretValue,
		"Secret value %q should be redacted, but appears in logs", secretValue)
	assert.Contains(t, output, "[REDACTED]",
		"Expected [REDACTED] marker in logs when secret is used")
}

// AssertLogCount asserts that a log level appears count times.
//
// Level markers:
//   - Info: "✓"
//   - Warn: "⚠"
//   - Error: "✗"
//   - Debug: "[DEBUG]"
func (l *TestLogger) AssertLogCount(t *testing.T, level string, count int) {
	t.Helper()

	var marker string
	switch level {
	case "info":
		marker = "✓"
	case "warn":
		marker = "⚠"
	case "error":
		marker = "✗"
	case "debug":
		marker = "[DEBUG]"
	default:
		t.Fatalf("Unknown log level: %s", level)
	}

	actual := strings.Count(l.GetOutput(), marker)
	assert.Equal(t, count, actual, "Expected %d %s log messages, got %d", count, level, actual)
}
