package secure

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSecureBuffer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data []byte
	}{
		{"password", []byte("my-secret-password")},
		{"empty password", []byte{}},
		{"nil password", nil},
		{"binary data", []byte{0x00, 0xFF, 0x10, 0x20}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			want := append([]byte{}, tt.data...)
			buf, err := NewSecureBuffer(tt.data)
			require.NoError(t, err)
			defer buf.Destroy()

			var got []byte
			require.NoError(t, buf.Use(func(p []byte) error {
				got = append([]byte{}, p...)
				return nil
			}))
			assert.Equal(t, want, got)
		})
	}
}

// TestSecureBufferWipesSource verifies the caller's copy does not survive sealing
func TestSecureBufferWipesSource(t *testing.T) {
	t.Parallel()

	src := []byte("hunter2")
	buf, err := NewSecureBuffer(src)
	require.NoError(t, err)
	defer buf.Destroy()

	assert.Equal(t, make([]byte, len(src)), src)
}

func TestSecureBufferUse(t *testing.T) {
	t.Parallel()

	buf, err := NewSecureBuffer([]byte("pw"))
	require.NoError(t, err)
	defer buf.Destroy()

	for i := 0; i < 3; i++ {
		require.NoError(t, buf.Use(func(p []byte) error {
			assert.Equal(t, []byte("pw"), p)
			return nil
		}))
	}

	boom := errors.New("boom")
	assert.ErrorIs(t, buf.Use(func([]byte) error { return boom }), boom)
}

func TestSecureBufferDestroy(t *testing.T) {
	t.Parallel()

	buf, err := NewSecureBuffer([]byte("secret-to-destroy"))
	require.NoError(t, err)

	buf.Destroy()
	buf.Destroy()

	require.NoError(t, buf.Use(func(p []byte) error {
		assert.Empty(t, p)
		return nil
	}))
}
