package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/gssext/pkg/native/cgss"
)

func TestDoctorCommand_MemoryBackend(t *testing.T) {
	t.Parallel()

	cfg, logger := newMemoryConfig(t)
	output, err := execute(NewDoctorCommand(cfg), "", "--verbose")
	require.NoError(t, err)
	logger.AssertContains(t, "Configuration loaded, backend memory")
	logger.AssertContains(t, "All checks passed")
	logger.AssertLogCount(t, "warn", 0)

	for _, check := range []string{"aead wrap/unwrap", "name attributes", "composite export", "attribute delete", "release balance"} {
		assert.Contains(t, output, check)
	}
	assert.NotContains(t, output, "✗")
	assert.Contains(t, output, "Summary: 0/5 checks failed")
	assert.Contains(t, output, "Native calls:")
	assert.Contains(t, output, "gss_wrap_aead")
	assert.Contains(t, output, "gss_release_buffer")
}

// TestDoctorCommand_NativeBackendNotBuilt verifies the build hint when cgo support is missing
func TestDoctorCommand_NativeBackendNotBuilt(t *testing.T) {
	t.Parallel()

	if lib, err := cgss.Open(); err == nil && lib != nil {
		t.Skip("native GSSAPI library is available")
	}

	cfg := newTestConfig(t, "backend: native\n")
	_, err := execute(NewDoctorCommand(cfg), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, cgss.ErrNotBuilt)
	assert.Contains(t, err.Error(), "--backend memory")
}

func TestDoctorCommand_InvalidConfig(t *testing.T) {
	t.Parallel()

	cfg := newTestConfig(t, "backend: heimdal\n")
	_, err := execute(NewDoctorCommand(cfg), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema validation failed")
}
