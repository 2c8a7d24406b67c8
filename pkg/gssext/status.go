package gssext

import (
	"errors"
	"fmt"
	"strings"

	"github.com/systmms/gssext/pkg/native"
)

var (
	// ErrNativeFailure matches every *StatusError.
	ErrNativeFailure = errors.New("gssapi call failed")

	// ErrOperationUnavailable matches a *StatusError whose routine error is
	// GSS_S_UNAVAILABLE: the mechanism does not support the request.
	ErrOperationUnavailable = errors.New("operation unavailable")

	// ErrUnauthorized matches a *StatusError whose routine error is
	// GSS_S_UNAUTHORIZED.
	ErrUnauthorized = errors.New("operation not authorized")

	// ErrInvalidInput is returned before any native call for arguments
	// outside the accepted domain.
	ErrInvalidInput = errors.New("invalid input")
)

// StatusError is a failed native call. Major and Minor are reported exactly
// as the library returned them.
type StatusError struct {
	Op    string
	Major uint32
	Minor uint32
}

// RFC 2744 section 3.9.1 routine error texts, indexed by routine error number.
var routineErrors = [...]string{
	1:  "bad mechanism",
	2:  "bad name",
	3:  "bad name type",
	4:  "bad channel bindings",
	5:  "bad status",
	6:  "bad signature",
	7:  "no credentials",
	8:  "no context",
	9:  "defective token",
	10: "defective credential",
	11: "credentials expired",
	12: "context expired",
	13: "failure",
	14: "bad QOP",
	15: "unauthorized",
	16: "unavailable",
	17: "duplicate element",
	18: "name not a mechanism name",
	19: "bad mechanism attribute",
}

var callingErrors = [...]string{
	1: "inaccessible read",
	2: "inaccessible write",
	3: "bad structure",
}

var supplementaryInfo = []struct {
	bit  uint32
	text string
}{
	{native.ContinueNeeded, "continue needed"},
	{native.DuplicateToken, "duplicate token"},
	{native.OldToken, "old token"},
	{native.UnseqToken, "unsequenced token"},
	{native.GapToken, "gap token"},
}

func (e *StatusError) Error() string {
	var parts []string
	if ce := e.CallingError() >> 24; ce != 0 {
		parts = append(parts, describe(callingErrors[:], ce, "calling error"))
	}
	if re := e.RoutineError() >> 16; re != 0 {
		parts = append(parts, describe(routineErrors[:], re, "routine error"))
	}
	for _, s := range supplementaryInfo {
		if e.SupplementaryInfo()&s.bit != 0 {
			parts = append(parts, s.text)
		}
	}
	if len(parts) == 0 {
		parts = append(parts, "complete")
	}
	return fmt.Sprintf("%s: %s (major 0x%08x, minor %d)", e.Op, strings.Join(parts, ", "), e.Major, e.Minor)
}

func describe(table []string, code uint32, kind string) string {
	if int(code) < len(table) && table[code] != "" {
		return table[code]
	}
	return fmt.Sprintf("%s %d", kind, code)
}

// Is reports whether target is one of the sentinel errors e belongs to.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrNativeFailure:
		return true
	case ErrOperationUnavailable:
		return e.RoutineError() == native.Unavailable
	case ErrUnauthorized:
		return e.RoutineError() == native.Unauthorized
	}
	return false
}

// RoutineError returns the routine error field of Major, still shifted.
func (e *StatusError) RoutineError() uint32 {
	return e.Major & native.RoutineErrorMask
}

// CallingError returns the calling error field of Major, still shifted.
func (e *StatusError) CallingError() uint32 {
	return e.Major & native.CallingErrorMask
}

// SupplementaryInfo returns the supplementary information bits of Major.
func (e *StatusError) SupplementaryInfo() uint32 {
	return e.Major & native.SupplementaryMask
}

// Status returns the pair as a native.Status.
func (e *StatusError) Status() native.Status {
	return native.Status{Major: e.Major, Minor: e.Minor}
}

// checkStatus translates the result of a native call. Only GSS_S_COMPLETE is
// success; a set supplementary bit alone is still a failure.
func checkStatus(op string, st native.Status) error {
	if st.Complete() {
		return nil
	}
	return &StatusError{Op: op, Major: st.Major, Minor: st.Minor}
}

func invalidInput(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
