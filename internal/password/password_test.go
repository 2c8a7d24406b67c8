package password_test

import (
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/gssext/internal/password"
	"github.com/systmms/gssext/internal/secure"
	"github.com/systmms/gssext/tests/fakes"
)

func plaintext(t *testing.T, buf *secure.SecureBuffer) string {
	t.Helper()
	var out string
	require.NoError(t, buf.Use(func(p []byte) error {
		out = string(p)
		return nil
	}))
	buf.Destroy()
	return out
}

func TestFromStdin(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"newline terminated", "hunter2\n", "hunter2", false},
		{"crlf terminated", "hunter2\r\n", "hunter2", false},
		{"no newline", "hunter2", "hunter2", false},
		{"only first line", "first\nsecond\n", "first", false},
		{"empty line is empty password", "\n", "", false},
		{"spaces are kept", "  pass word \n", "  pass word ", false},
		{"no input", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			buf, err := password.FromStdin(strings.NewReader(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, plaintext(t, buf))
		})
	}
}

func TestParseKeyringRef(t *testing.T) {
	t.Parallel()

	service, account, err := password.ParseKeyringRef("gssext/HTTP/web@EXAMPLE.COM")
	require.NoError(t, err)
	assert.Equal(t, "gssext", service)
	assert.Equal(t, "HTTP/web@EXAMPLE.COM", account)

	for _, ref := range []string{"", "gssext", "/alice", "gssext/"} {
		_, _, err := password.ParseKeyringRef(ref)
		assert.Error(t, err, "ref %q", ref)
	}
}

func TestFromKeyring(t *testing.T) {
	t.Parallel()

	kc := fakes.NewFakeKeychainClient()
	kc.SetSecret("gssext", "alice@EXAMPLE.COM", []byte("from-keyring"))

	buf, err := password.FromKeyring(kc, "gssext/alice@EXAMPLE.COM")
	require.NoError(t, err)
	assert.Equal(t, "from-keyring", plaintext(t, buf))
	assert.Equal(t, []byte("from-keyring"), kc.Secrets["gssext"]["alice@EXAMPLE.COM"])

	_, err = password.FromKeyring(kc, "gssext/bob@EXAMPLE.COM")
	assert.ErrorIs(t, err, password.ErrKeyringItemNotFound)

	denied := errors.New("access denied")
	kc.QueryErr = denied
	_, err = password.FromKeyring(kc, "gssext/alice@EXAMPLE.COM")
	assert.ErrorIs(t, err, denied)

	_, err = password.FromKeyring(kc, "malformed")
	assert.Error(t, err)
	assert.Equal(t, []string{"gssext/alice@EXAMPLE.COM", "gssext/bob@EXAMPLE.COM", "gssext/alice@EXAMPLE.COM"}, kc.Queries)
}

// TestFromTerminalRequiresTTY verifies a pipe is rejected before anything is prompted
func TestFromTerminalRequiresTTY(t *testing.T) {
	t.Parallel()

	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	var prompt strings.Builder
	_, err = password.FromTerminal(int(r.Fd()), &prompt, "Password: ")
	assert.ErrorIs(t, err, password.ErrNotTerminal)
	assert.Empty(t, prompt.String())
}
