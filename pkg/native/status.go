package native

import "fmt"

// Status is the (major, minor) pair every GSSAPI call reports. Minor codes are
// mechanism specific and are never interpreted here.
type Status struct {
	Major uint32
	Minor uint32
}

// Complete reports whether the major status is GSS_S_COMPLETE.
func (s Status) Complete() bool {
	return s.Major == StatusComplete
}

func (s Status) String() string {
	return fmt.Sprintf("major 0x%08x, minor %d", s.Major, s.Minor)
}

// Major status layout from RFC 2744 section 3.9.1.
const (
	callingErrorOffset = 24
	routineErrorOffset = 16

	CallingErrorMask  = 0xff << callingErrorOffset
	RoutineErrorMask  = 0xff << routineErrorOffset
	SupplementaryMask = 0xffff
)

const StatusComplete uint32 = 0

// Calling errors.
const (
	CallInaccessibleRead  uint32 = 1 << callingErrorOffset
	CallInaccessibleWrite uint32 = 2 << callingErrorOffset
	CallBadStructure      uint32 = 3 << callingErrorOffset
)

// Routine errors.
const (
	BadMech             uint32 = 1 << routineErrorOffset
	BadName             uint32 = 2 << routineErrorOffset
	BadNameType         uint32 = 3 << routineErrorOffset
	BadBindings         uint32 = 4 << routineErrorOffset
	BadStatus           uint32 = 5 << routineErrorOffset
	BadSig              uint32 = 6 << routineErrorOffset
	NoCred              uint32 = 7 << routineErrorOffset
	NoContext           uint32 = 8 << routineErrorOffset
	DefectiveToken      uint32 = 9 << routineErrorOffset
	DefectiveCredential uint32 = 10 << routineErrorOffset
	CredentialsExpired  uint32 = 11 << routineErrorOffset
	ContextExpired      uint32 = 12 << routineErrorOffset
	Failure             uint32 = 13 << routineErrorOffset
	BadQOP              uint32 = 14 << routineErrorOffset
	Unauthorized        uint32 = 15 << routineErrorOffset
	Unavailable         uint32 = 16 << routineErrorOffset
	DuplicateElement    uint32 = 17 << routineErrorOffset
	NameNotMN           uint32 = 18 << routineErrorOffset
	BadMechAttr         uint32 = 19 << routineErrorOffset
)

// Supplementary information bits.
const (
	ContinueNeeded uint32 = 1 << 0
	DuplicateToken uint32 = 1 << 1
	OldToken       uint32 = 1 << 2
	UnseqToken     uint32 = 1 << 3
	GapToken       uint32 = 1 << 4
)

// Indefinite is GSS_C_INDEFINITE, the lifetime value meaning "no limit".
const Indefinite uint32 = 0xffffffff

// QoPDefault is GSS_C_QOP_DEFAULT.
const QoPDefault uint32 = 0

// CredUsage is gss_cred_usage_t.
type CredUsage int

const (
	CredBoth     CredUsage = 0
	CredInitiate CredUsage = 1
	CredAccept   CredUsage = 2
)

func (u CredUsage) String() string {
	switch u {
	case CredBoth:
		return "both"
	case CredInitiate:
		return "initiate"
	case CredAccept:
		return "accept"
	}
	return fmt.Sprintf("CredUsage(%d)", int(u))
}
