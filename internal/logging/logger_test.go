package logging_test

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/systmms/gssext/internal/logging"
)

func newBufferedLogger(debug bool) (*logging.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	l := logging.New(debug, true)
	l.SetOutput(&buf)
	return l, &buf
}

func TestSecretRedaction(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		format string
	}{
		{"string verb", "%s"},
		{"value verb", "%v"},
		{"go syntax", "%#v"},
		{"hex", "%x"},
		{"quoted", "%q"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			out := fmt.Sprintf(tt.format, logging.Secret("hunter2-password"))
			assert.Equal(t, "[REDACTED]", out)
		})
	}
}

func TestLoggerLevels(t *testing.T) {
	t.Parallel()

	logger, buf := newBufferedLogger(false)
	logger.Info("imported %s", "alice@EXAMPLE.COM")
	logger.Warn("attribute %q is not complete", "urn:role")
	logger.Error("native call failed")
	logger.Debug("gss_import_name: major 0x00000000, minor 0")

	out := buf.String()
	assert.Contains(t, out, "✓ imported alice@EXAMPLE.COM\n")
	assert.Contains(t, out, "⚠ attribute \"urn:role\" is not complete\n")
	assert.Contains(t, out, "✗ native call failed\n")
	assert.NotContains(t, out, "[DEBUG]")
	assert.NotContains(t, out, "\033[")
	assert.False(t, logger.DebugEnabled())
}

// TestLoggerDebugRedactsSecrets verifies Debug honours the Secret type
func TestLoggerDebugRedactsSecrets(t *testing.T) {
	t.Parallel()

	logger, buf := newBufferedLogger(true)
	logger.Debug("password %s for %s", logging.Secret("correct horse"), "alice")

	assert.Equal(t, "[DEBUG] password [REDACTED] for alice\n", buf.String())
	assert.True(t, logger.DebugEnabled())
}

func TestLoggerColor(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := logging.New(false, false)
	logger.SetOutput(&buf)
	logger.Error("boom")

	assert.Equal(t, "\033[31m✗\033[0m boom\n", buf.String())
}
