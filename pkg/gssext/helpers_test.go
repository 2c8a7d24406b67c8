package gssext_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/gssext/pkg/gssext"
	"github.com/systmms/gssext/pkg/native"
	"github.com/systmms/gssext/pkg/native/memory"
)

const principal = "alice@EXAMPLE.COM"

func newClient(t *testing.T, opts ...gssext.Option) (*gssext.Client, *memory.Library) {
	t.Helper()
	lib := memory.New()
	return gssext.New(lib, opts...), lib
}

func contextPair(t *testing.T, lib *memory.Library, opts memory.ContextOptions) (*gssext.SecurityContext, *gssext.SecurityContext) {
	t.Helper()
	a, b, err := lib.NewContextPair(opts)
	require.NoError(t, err)
	t.Cleanup(func() {
		lib.DeleteContext(a)
		lib.DeleteContext(b)
	})
	return gssext.NewSecurityContext(a), gssext.NewSecurityContext(b)
}

func importPrincipal(t *testing.T, c *gssext.Client) *gssext.Name {
	t.Helper()
	n, err := c.ImportName([]byte(principal), gssext.NTKRB5Principal)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.ReleaseName(n) })
	return n
}

// assertBalanced checks that every native allocation was released exactly
// once.
func assertBalanced(t *testing.T, lib *memory.Library) {
	t.Helper()
	stats := lib.Stats()
	assert.Zero(t, stats.Outstanding(), "outstanding native allocations: %+v", stats)
	assert.Zero(t, stats.InvalidReleases, "invalid releases: %+v", stats)
}

type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordingLogger) Debug(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}

type observation struct {
	op string
	st native.Status
}

type recordingObserver struct {
	mu   sync.Mutex
	seen []observation
}

func (o *recordingObserver) ObserveNativeCall(op string, st native.Status, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.seen = append(o.seen, observation{op: op, st: st})
}
