package errors_test

import (
	stderrors "errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/gssext/internal/errors"
	"github.com/systmms/gssext/pkg/gssext"
	"github.com/systmms/gssext/pkg/native"
	"github.com/systmms/gssext/pkg/native/cgss"
	"github.com/systmms/gssext/pkg/native/memory"
)

// TestUserErrorFormatting verifies UserError displays properly
func TestUserErrorFormatting(t *testing.T) {
	t.Parallel()

	err := errors.UserError{
		Message:    "Operation failed",
		Details:    "major 0x000d0000, minor 5",
		Suggestion: "Check the keytab",
	}

	assert.Equal(t, "Operation failed\n  Details: major 0x000d0000, minor 5\n  💡 Try: Check the keytab", err.Error())
	assert.Equal(t, "boom", errors.UserError{Err: fmt.Errorf("boom")}.Error())
}

// TestConfigErrorFormatting verifies ConfigError displays with context
func TestConfigErrorFormatting(t *testing.T) {
	t.Parallel()

	err := errors.ConfigError{
		Field:      "credentials.usage",
		Value:      "sometimes",
		Message:    "unknown credential usage",
		Suggestion: "Use one of initiate, accept, both",
	}

	msg := err.Error()
	assert.Contains(t, msg, "in field 'credentials.usage'")
	assert.Contains(t, msg, "(value: sometimes)")
	assert.Contains(t, msg, "unknown credential usage")
	assert.Contains(t, msg, "💡 Use one of initiate, accept, both")
}

func statusError(major, minor uint32) error {
	return fmt.Errorf("value 2 of 3: %w", &gssext.StatusError{Op: native.OpSetNameAttribute, Major: major, Minor: minor})
}

func TestNativeErrorSuggestions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"backend not built", cgss.ErrNotBuilt, "--backend memory"},
		{"invalid input", fmt.Errorf("%w: usage", gssext.ErrInvalidInput), "nothing was sent"},
		{"preauth failed", statusError(native.Failure, memory.MinorPreauthFailed), "password was rejected"},
		{"principal unknown", statusError(native.Failure, memory.MinorPrincipalUnknown), "does not know this principal"},
		{"bad name", statusError(native.BadName, 0), "name type"},
		{"bad mech", statusError(native.BadMech, 0), "--mech krb5"},
		{"unavailable", statusError(native.Unavailable, 0), "does not support"},
		{"unauthorized", statusError(native.Unauthorized, 0), "cannot be modified"},
		{"tampered token", statusError(native.BadSig, 0), "associated data"},
		{"duplicate element", statusError(native.DuplicateElement, 0), "already holds"},
		{"no suggestion", statusError(native.Failure, 42), ""},
		{"foreign error", stderrors.New("disk full"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := errors.NativeError("set attribute", tt.err)
			var ue errors.UserError
			require.ErrorAs(t, err, &ue)
			assert.Equal(t, "failed to set attribute", ue.Message)
			assert.ErrorIs(t, err, tt.err)
			if tt.want == "" {
				assert.Empty(t, ue.Suggestion)
			} else {
				assert.Contains(t, ue.Suggestion, tt.want)
			}
		})
	}
}

// TestNativeErrorKeepsTaxonomy verifies wrapped status errors still match their sentinel
func TestNativeErrorKeepsTaxonomy(t *testing.T) {
	t.Parallel()

	err := errors.NativeError("delete attribute", statusError(native.Unavailable, 0))
	assert.ErrorIs(t, err, gssext.ErrOperationUnavailable)
	assert.ErrorIs(t, err, gssext.ErrNativeFailure)

	var se *gssext.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, native.OpSetNameAttribute, se.Op)

	assert.NoError(t, errors.NativeError("anything", nil))
}

func TestSimplifyError(t *testing.T) {
	t.Parallel()

	assert.NoError(t, errors.SimplifyError(nil))

	ue := errors.UserError{Message: "already friendly"}
	assert.Equal(t, error(ue), errors.SimplifyError(ue))

	var ce errors.ConfigError
	require.ErrorAs(t, errors.SimplifyError(fmt.Errorf("parse: %w", stderrors.New("yaml: line 3: did not find expected key"))), &ce)
	assert.Equal(t, "Invalid YAML format", ce.Message)

	_, statErr := os.Stat("/nonexistent/gssext.yaml")
	var simplified errors.UserError
	require.ErrorAs(t, errors.SimplifyError(statErr), &simplified)
	assert.Equal(t, "File or directory not found", simplified.Message)

	other := stderrors.New("something else")
	assert.Equal(t, other, errors.SimplifyError(other))
}
