package native

import "unsafe"

// ContextHandle is an established security context (gss_ctx_id_t).
type ContextHandle unsafe.Pointer

// CredHandle is a credential (gss_cred_id_t). A nil handle is
// GSS_C_NO_CREDENTIAL.
type CredHandle unsafe.Pointer

// NameHandle is an internal name (gss_name_t). A nil handle is GSS_C_NO_NAME.
type NameHandle unsafe.Pointer

// Buffer mirrors gss_buffer_desc. For inputs Value points into caller memory,
// for outputs into memory owned by the implementation.
type Buffer struct {
	Length int
	Value  unsafe.Pointer
}

// EmptyBuffer is GSS_C_EMPTY_BUFFER: zero length and no payload. Optional
// inputs that were not supplied are passed as EmptyBuffer, while an explicitly
// supplied zero-length value always carries a non-nil Value.
var EmptyBuffer = Buffer{}

// IsEmpty reports whether b is the EmptyBuffer sentinel.
func (b Buffer) IsEmpty() bool {
	return b.Value == nil && b.Length == 0
}

// Bytes returns a view of the buffer contents without copying. The view is
// only valid until the buffer is released.
func (b Buffer) Bytes() []byte {
	if b.Value == nil {
		return nil
	}
	return unsafe.Slice((*byte)(b.Value), b.Length)
}

// BufferSet mirrors gss_buffer_set_t. A nil Ref is GSS_C_NO_BUFFER_SET and
// must not be released.
type BufferSet struct {
	Ref      unsafe.Pointer
	Elements []Buffer
}

// IsEmpty reports whether s is GSS_C_NO_BUFFER_SET.
func (s BufferSet) IsEmpty() bool {
	return s.Ref == nil
}

// OidSet mirrors gss_OID_set. Each element holds the DER contents of one OID.
// A nil Ref is GSS_C_NO_OID_SET.
type OidSet struct {
	Ref      unsafe.Pointer
	Elements []Buffer
}

// IsEmpty reports whether s is GSS_C_NO_OID_SET.
func (s OidSet) IsEmpty() bool {
	return s.Ref == nil
}

// Library is the set of native entry points gssext drives. OIDs are passed as
// Buffers holding DER contents (no tag or length); EmptyBuffer is
// GSS_C_NO_OID.
//
// Implementations must not populate output buffers when the returned major
// status is not StatusComplete.
type Library interface {
	// WrapAEAD is gss_wrap_aead. An EmptyBuffer assoc is GSS_C_NO_BUFFER.
	WrapAEAD(ctx ContextHandle, confReq bool, qop uint32, input, assoc Buffer) (st Status, output Buffer, confState bool)

	// UnwrapAEAD is gss_unwrap_aead.
	UnwrapAEAD(ctx ContextHandle, input, assoc Buffer) (st Status, output Buffer, confState bool, qop uint32)

	// AddCredWithPassword is gss_add_cred_with_password. A new credential is
	// always returned through output; input is left untouched.
	AddCredWithPassword(input CredHandle, name NameHandle, mech Buffer, password Buffer, usage CredUsage, initiatorTime, acceptorTime uint32) (st Status, output CredHandle, actualMechs OidSet, initiatorTimeRec, acceptorTimeRec uint32)

	// DisplayNameExt is gss_display_name_ext.
	DisplayNameExt(name NameHandle, nameType Buffer) (st Status, display Buffer)

	// InquireName is gss_inquire_name. When wantMechName is false the
	// name_is_MN and MN_mech out-pointers are passed as NULL; when wantAttrs is
	// false the attrs out-pointer is. The returned mech points at storage
	// owned by the implementation and is not released.
	InquireName(name NameHandle, wantMechName, wantAttrs bool) (st Status, isMechName bool, mech Buffer, attrs BufferSet)

	// SetNameAttribute is gss_set_name_attribute; it adds one value.
	SetNameAttribute(name NameHandle, complete bool, attr, value Buffer) Status

	// GetNameAttribute is gss_get_name_attribute. more is the in/out
	// continuation cursor: -1 on the first call, 0 once no values remain.
	GetNameAttribute(name NameHandle, attr Buffer, more *int) (st Status, authenticated, complete bool, value, display Buffer)

	// DeleteNameAttribute is gss_delete_name_attribute.
	DeleteNameAttribute(name NameHandle, attr Buffer) Status

	// ExportNameComposite is gss_export_name_composite.
	ExportNameComposite(name NameHandle) (st Status, exported Buffer)

	// SetCredOption is gss_set_cred_option. cred is in/out: a nil handle is
	// replaced by a newly allocated credential.
	SetCredOption(cred *CredHandle, option Buffer, value Buffer) Status

	// ImportName is gss_import_name.
	ImportName(input Buffer, nameType Buffer) (st Status, name NameHandle)

	// ReleaseName is gss_release_name; the handle is reset to nil.
	ReleaseName(name *NameHandle) Status

	// ReleaseCred is gss_release_cred; the handle is reset to nil.
	ReleaseCred(cred *CredHandle) Status

	// ReleaseBuffer is gss_release_buffer; the buffer is reset to EmptyBuffer.
	ReleaseBuffer(buf *Buffer) Status

	// ReleaseBufferSet is gss_release_buffer_set.
	ReleaseBufferSet(set *BufferSet) Status

	// ReleaseOidSet is gss_release_oid_set.
	ReleaseOidSet(set *OidSet) Status
}
