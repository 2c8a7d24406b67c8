package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/systmms/gssext/pkg/gssext"
	"github.com/systmms/gssext/pkg/native"
	"github.com/systmms/gssext/pkg/native/cgss"
)

// UserError represents an error that should be shown to the user with helpful context
type UserError struct {
	Message    string
	Suggestion string
	Details    string
	Err        error
}

func (e UserError) Error() string {
	var parts []string

	if e.Message != "" {
		parts = append(parts, e.Message)
	} else if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}

	if e.Details != "" {
		parts = append(parts, "\n  Details: "+e.Details)
	}

	if e.Suggestion != "" {
		parts = append(parts, "\n  💡 Try: "+e.Suggestion)
	}

	return strings.Join(parts, "")
}

func (e UserError) Unwrap() error {
	return e.Err
}

// ConfigError represents a configuration error with helpful context
type ConfigError struct {
	Field      string
	Value      interface{}
	Message    string
	Suggestion string
}

func (e ConfigError) Error() string {
	msg := "Configuration error"
	if e.Field != "" {
		msg += fmt.Sprintf(" in field '%s'", e.Field)
	}
	if e.Value != nil {
		msg += fmt.Sprintf(" (value: %v)", e.Value)
	}
	msg += ": " + e.Message

	if e.Suggestion != "" {
		msg += "\n  💡 " + e.Suggestion
	}

	return msg
}

// krb5 minor status codes worth a dedicated suggestion.
const (
	krb5PrincipalUnknown uint32 = 0x96c73a06
	krb5PreauthFailed    uint32 = 0x96c73a18
)

// NativeError wraps an error returned by a gssext call made while doing
// action, attaching a suggestion for the common GSS failures. The original
// error stays reachable through errors.Is and errors.As.
func NativeError(action string, err error) error {
	if err == nil {
		return nil
	}
	return UserError{
		Message:    fmt.Sprintf("failed to %s", action),
		Details:    err.Error(),
		Suggestion: nativeSuggestion(err),
		Err:        err,
	}
}

func nativeSuggestion(err error) string {
	if errors.Is(err, cgss.ErrNotBuilt) {
		return "Rebuild with '-tags gssapi' or run with '--backend memory'"
	}
	if errors.Is(err, gssext.ErrInvalidInput) {
		return "Check the command arguments; nothing was sent to the GSSAPI library"
	}

	var se *gssext.StatusError
	if !errors.As(err, &se) {
		return ""
	}
	switch se.Minor {
	case krb5PrincipalUnknown:
		return "The KDC does not know this principal. Check the realm and spelling"
	case krb5PreauthFailed:
		return "The password was rejected. Re-enter it or update the keyring entry"
	}

	switch se.RoutineError() {
	case native.BadName, native.BadNameType:
		return "Check the name and its name type (see 'gssext name inspect --help')"
	case native.BadMech:
		return "Use a mechanism the library supports, for example --mech krb5"
	case native.NoCred:
		return "The input credential is no longer valid; acquire a new one"
	case native.DuplicateElement:
		return "The credential already holds an element for this name and mechanism"
	case native.Unavailable:
		return "The mechanism does not support this operation for this name or option"
	case native.Unauthorized:
		return "The attribute is authenticated or complete and cannot be modified"
	case native.BadSig, native.DefectiveToken:
		return "The token was modified or the associated data does not match"
	case native.NoContext, native.ContextExpired:
		return "Re-establish the security context"
	}
	return ""
}

// SimplifyError simplifies complex error messages for users
func SimplifyError(err error) error {
	if err == nil {
		return nil
	}

	// Already a user-friendly error
	var ue UserError
	if errors.As(err, &ue) {
		return err
	}
	var ce ConfigError
	if errors.As(err, &ce) {
		return err
	}

	// Unwrap to get the root cause
	rootErr := err
	for {
		unwrapped := errors.Unwrap(rootErr)
		if unwrapped == nil {
			break
		}
		rootErr = unwrapped
	}
	errStr := rootErr.Error()

	if strings.Contains(errStr, "yaml:") {
		return ConfigError{
			Message:    "Invalid YAML format",
			Suggestion: "Check for indentation errors and missing quotes",
		}
	}

	if strings.Contains(errStr, "permission denied") {
		return UserError{
			Message:    "Permission denied",
			Suggestion: "Check file permissions or run with appropriate privileges",
			Err:        err,
		}
	}

	if strings.Contains(errStr, "no such file or directory") {
		return UserError{
			Message:    "File or directory not found",
			Suggestion: "Verify the path exists and is spelled correctly",
			Err:        err,
		}
	}

	// Return original error if we can't simplify it
	return err
}
