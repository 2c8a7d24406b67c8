package metrics_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/gssext/internal/metrics"
	"github.com/systmms/gssext/pkg/gssext"
	"github.com/systmms/gssext/pkg/native"
	"github.com/systmms/gssext/pkg/native/memory"
)

var _ gssext.Observer = (*metrics.Recorder)(nil)

func find(t *testing.T, op, status string) uint64 {
	t.Helper()
	summary, err := metrics.Summary(prometheus.DefaultGatherer)
	require.NoError(t, err)
	for _, s := range summary {
		if s.Op == op && s.Status == status {
			return s.Count
		}
	}
	return 0
}

func TestStatusLabel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "complete", metrics.StatusLabel(native.Status{Minor: 9}))
	assert.Equal(t, "0x00100000", metrics.StatusLabel(native.Status{Major: native.Unavailable}))
}

func TestRecorderCountsCalls(t *testing.T) {
	t.Parallel()

	r := metrics.NewRecorder()
	metrics.InitMetrics()

	r.ObserveNativeCall("test_recorder_op", native.Status{}, time.Millisecond)
	r.ObserveNativeCall("test_recorder_op", native.Status{}, time.Millisecond)
	r.ObserveNativeCall("test_recorder_op", native.Status{Major: native.Failure}, time.Millisecond)

	assert.Equal(t, uint64(2), find(t, "test_recorder_op", "complete"))
	assert.Equal(t, uint64(1), find(t, "test_recorder_op", "0x000d0000"))
}

// TestRecorderAsClientObserver verifies release calls are counted alongside the operation
func TestRecorderAsClientObserver(t *testing.T) {
	t.Parallel()

	before := find(t, native.OpDisplayNameExt, "complete")
	releasesBefore := find(t, native.OpReleaseBuffer, "complete")

	lib := memory.New()
	c := gssext.New(lib, gssext.WithObserver(metrics.NewRecorder()))
	name, err := c.ImportName([]byte("alice@EXAMPLE.COM"), gssext.NTKRB5Principal)
	require.NoError(t, err)
	_, err = c.DisplayNameExt(name, gssext.NTKRB5Principal)
	require.NoError(t, err)
	require.NoError(t, c.ReleaseName(name))

	assert.GreaterOrEqual(t, find(t, native.OpDisplayNameExt, "complete"), before+1)
	assert.GreaterOrEqual(t, find(t, native.OpReleaseBuffer, "complete"), releasesBefore+1)
}
