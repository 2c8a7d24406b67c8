package commands

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/systmms/gssext/internal/config"
	"github.com/systmms/gssext/tests/testutil"
)

const (
	testPrincipal = "alice@EXAMPLE.COM"
	testPassword  = "hunter2"
)

// newMemoryConfig returns a memory backend config knowing testPrincipal,
// and the logger capturing what the command logs.
func newMemoryConfig(t *testing.T) (*config.Config, *testutil.TestLogger) {
	t.Helper()
	logger := testutil.NewTestLoggerWithDebug(t, true)
	cfg := testutil.NewTestConfig(t).
		WithBackend(config.BackendMemory).
		WithPrincipal(testPrincipal, testPassword).
		Build(logger.Logger())
	return cfg, logger
}

func newTestConfig(t *testing.T, content string) *config.Config {
	t.Helper()
	return &config.Config{
		Path:   testutil.WriteConfig(t, content),
		Logger: testutil.NewTestLogger(t).Logger(),
	}
}

// execute runs cmd with args and stdin, returning what it wrote to stdout.
func execute(cmd *cobra.Command, stdin string, args ...string) (string, error) {
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}
