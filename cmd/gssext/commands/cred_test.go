package commands

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/gssext/internal/config"
	"github.com/systmms/gssext/internal/password"
	"github.com/systmms/gssext/pkg/gssext"
	"github.com/systmms/gssext/tests/fakes"
	"github.com/systmms/gssext/tests/testutil"
)

func TestCredAddPassword_Stdin(t *testing.T) {
	t.Parallel()

	cfg, logger := newMemoryConfig(t)
	output, err := execute(NewCredCommand(cfg), "hunter2\n",
		"add-password", testPrincipal,
		"--password-stdin",
		"--usage", "both",
		"--initiator-ttl", "1h",
		"--option", "no-ci-flags=01",
	)
	require.NoError(t, err)

	assert.Regexp(t, `Principal:\s+alice@EXAMPLE.COM`, output)
	assert.Regexp(t, `Usage:\s+both`, output)
	assert.Regexp(t, `Mechanism:\s+1.2.840.113554.1.2.2`, output)
	assert.Regexp(t, `Initiator TTL:\s+1h0m0s`, output)
	assert.Regexp(t, `Acceptor TTL:\s+indefinite`, output)
	assert.Regexp(t, `Option:\s+no-ci-flags`, output)
	assert.NotContains(t, output, testPassword)
	logger.AssertContains(t, "gss_add_cred_with_password")
	logger.AssertRedacted(t, testPassword)
	logger.AssertNotContains(t, "no configuration at")
}

// TestCredAddPassword_ConfigDefaults verifies the credentials section supplies usage and lifetimes
func TestCredAddPassword_ConfigDefaults(t *testing.T) {
	t.Parallel()

	logger := testutil.NewTestLogger(t)
	cfg := testutil.NewTestConfig(t).
		WithBackend(config.BackendMemory).
		WithPrincipal(testPrincipal, testPassword).
		WithCredentials(config.CredentialDefaults{Usage: "both", InitiatorTTL: "2h", AcceptorTTL: "30m"}).
		Build(logger.Logger())

	output, err := execute(NewCredCommand(cfg), "hunter2\n", "add-password", testPrincipal, "--password-stdin")
	require.NoError(t, err)
	assert.Regexp(t, `Usage:\s+both`, output)
	assert.Regexp(t, `Initiator TTL:\s+2h0m0s`, output)
	assert.Regexp(t, `Acceptor TTL:\s+30m0s`, output)

	output, err = execute(NewCredCommand(cfg), "hunter2\n",
		"add-password", testPrincipal, "--password-stdin", "--usage", "accept")
	require.NoError(t, err)
	assert.Regexp(t, `Usage:\s+accept`, output, "flags override the config file")
}

func TestCredAddPassword_Keyring(t *testing.T) {
	t.Parallel()

	kc := fakes.NewFakeKeychainClient()
	kc.SetSecret("gssext", "alice", []byte("hunter2"))

	cfg, logger := newMemoryConfig(t)
	output, err := execute(newCredCommand(cfg, kc), "",
		"add-password", testPrincipal, "--password-keyring", "gssext/alice")
	require.NoError(t, err)
	logger.AssertContains(t, "acquiring alice@EXAMPLE.COM with password [REDACTED]")
	logger.AssertRedacted(t, "hunter2")
	assert.Equal(t, []string{"gssext/alice"}, kc.Queries)
	assert.Regexp(t, `Usage:\s+initiate`, output)
	assert.Regexp(t, `Initiator TTL:\s+10h0m0s`, output)

	// The fake keeps its copy; the command only wiped what it was handed.
	assert.Equal(t, []byte("hunter2"), kc.Secrets["gssext"]["alice"])
}

func TestCredAddPassword_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		stdin    string
		args     []string
		queryErr error
		wantIs   error
		wantMsg  string
	}{
		{
			name:    "wrong password",
			stdin:   "hunter3\n",
			args:    []string{"add-password", testPrincipal, "--password-stdin"},
			wantIs:  gssext.ErrNativeFailure,
			wantMsg: "password was rejected",
		},
		{
			name:    "unknown principal",
			stdin:   "hunter2\n",
			args:    []string{"add-password", "bob@EXAMPLE.COM", "--password-stdin"},
			wantIs:  gssext.ErrNativeFailure,
			wantMsg: "does not know this principal",
		},
		{
			name:    "both password sources",
			args:    []string{"add-password", testPrincipal, "--password-stdin", "--password-keyring", "a/b"},
			wantMsg: "mutually exclusive",
		},
		{
			name:    "missing keyring entry",
			args:    []string{"add-password", testPrincipal, "--password-keyring", "gssext/nobody"},
			wantIs:  password.ErrKeyringItemNotFound,
		},
		{
			name:     "keyring failure",
			args:     []string{"add-password", testPrincipal, "--password-keyring", "gssext/alice"},
			queryErr: errors.New("dbus unavailable"),
			wantMsg:  "dbus unavailable",
		},
		{
			name:    "undefined usage",
			stdin:   "hunter2\n",
			args:    []string{"add-password", testPrincipal, "--password-stdin", "--usage", "sometimes"},
			wantIs:  gssext.ErrInvalidInput,
			wantMsg: "--usage",
		},
		{
			name:    "bad TTL",
			stdin:   "hunter2\n",
			args:    []string{"add-password", testPrincipal, "--password-stdin", "--acceptor-ttl", "soon"},
			wantMsg: "--acceptor-ttl",
		},
		{
			name:    "option value not hex",
			stdin:   "hunter2\n",
			args:    []string{"add-password", testPrincipal, "--password-stdin", "--option", "no-ci-flags=zz"},
			wantMsg: "must be hex",
		},
		{
			name:    "option the mechanism does not know",
			stdin:   "hunter2\n",
			args:    []string{"add-password", testPrincipal, "--password-stdin", "--option", "1.2.3.4"},
			wantIs:  gssext.ErrOperationUnavailable,
			wantMsg: "set credential option 1.2.3.4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			kc := fakes.NewFakeKeychainClient()
			kc.SetSecret("gssext", "alice", []byte("hunter2"))
			kc.QueryErr = tt.queryErr

			cfg, _ := newMemoryConfig(t)
			_, err := execute(newCredCommand(cfg, kc), tt.stdin, tt.args...)
			require.Error(t, err)
			if tt.wantIs != nil {
				assert.ErrorIs(t, err, tt.wantIs)
			}
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
			assert.NotContains(t, err.Error(), "hunter")
		})
	}
}

func TestCredSetOption(t *testing.T) {
	t.Parallel()

	cfg, logger := newMemoryConfig(t)

	_, err := execute(NewCredCommand(cfg), "", "set-option", "no-ci-flags")
	require.NoError(t, err)
	logger.AssertContains(t, "Option no-ci-flags accepted (1.2.752.43.13.29)")

	_, err = execute(NewCredCommand(cfg), "", "set-option", "no-ci-flags", "--value", "")
	require.NoError(t, err)


	_, err = execute(NewCredCommand(cfg), "", "set-option", "1.2.3.4")
	assert.ErrorIs(t, err, gssext.ErrOperationUnavailable)
	assert.Contains(t, err.Error(), "does not support")

	_, err = execute(NewCredCommand(cfg), "", "set-option", "krb5.x")
	assert.Error(t, err)
}

func TestParseCredOption(t *testing.T) {
	t.Parallel()

	opt, err := parseCredOption("no-ci-flags")
	require.NoError(t, err)
	assert.True(t, opt.oid.Equal(gssext.CredOptionNoCIFlags))
	assert.False(t, opt.hasValue)
	assert.Nil(t, opt.apply())

	opt, err = parseCredOption("no-ci-flags=")
	require.NoError(t, err)
	assert.True(t, opt.hasValue)
	assert.Empty(t, opt.value)
	assert.Len(t, opt.apply(), 1)

	opt, err = parseCredOption("1.2.3.4=cafe")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xca, 0xfe}, opt.value)
	assert.Equal(t, "1.2.3.4", opt.label)
}
