//go:build gssapi

package cgss

/*
#cgo pkg-config: krb5-gssapi
#include <gssapi/gssapi.h>
#include <gssapi/gssapi_ext.h>

// Payload for explicitly supplied zero-length inputs, so they never reach the
// library as GSS_C_EMPTY_BUFFER.
char gssext_empty_payload[1];
*/
import "C"

import (
	"fmt"
	"runtime"
	"unsafe"

	"github.com/systmms/gssext/pkg/native"
)

// Library calls the system GSSAPI library.
type Library struct{}

// Open checks that the library answers gss_indicate_mechs and returns it.
// Process-wide library initialisation is left to the library itself.
func Open() (native.Library, error) {
	var minor C.OM_uint32
	var mechs C.gss_OID_set = C.GSS_C_NO_OID_SET

	major := C.gss_indicate_mechs(&minor, &mechs)
	if major != C.GSS_S_COMPLETE {
		return nil, fmt.Errorf("gss_indicate_mechs: %s", status(major, minor))
	}
	C.gss_release_oid_set(&minor, &mechs)
	return &Library{}, nil
}

func status(major, minor C.OM_uint32) native.Status {
	return native.Status{Major: uint32(major), Minor: uint32(minor)}
}

func cBool(b bool) C.int {
	if b {
		return 1
	}
	return 0
}

// inputs pins Go memory referenced by the descriptors built for one call.
type inputs struct {
	pinner runtime.Pinner
}

func (in *inputs) release() {
	in.pinner.Unpin()
}

func (in *inputs) buffer(b native.Buffer) C.gss_buffer_desc {
	switch {
	case b.Value == nil:
		return C.gss_buffer_desc{}
	case b.Length == 0:
		return C.gss_buffer_desc{value: unsafe.Pointer(&C.gssext_empty_payload[0])}
	}
	in.pinner.Pin(b.Value)
	return C.gss_buffer_desc{length: C.size_t(b.Length), value: b.Value}
}

// optionalBuffer maps EmptyBuffer to GSS_C_NO_BUFFER.
func (in *inputs) optionalBuffer(b native.Buffer) C.gss_buffer_t {
	if b.IsEmpty() {
		return C.GSS_C_NO_BUFFER
	}
	desc := in.buffer(b)
	return &desc
}

// oid maps EmptyBuffer to GSS_C_NO_OID.
func (in *inputs) oid(b native.Buffer) C.gss_OID {
	if b.IsEmpty() {
		return C.GSS_C_NO_OID
	}
	in.pinner.Pin(b.Value)
	return &C.gss_OID_desc{length: C.OM_uint32(b.Length), elements: b.Value}
}

func output(desc C.gss_buffer_desc) native.Buffer {
	if desc.value == nil {
		return native.EmptyBuffer
	}
	return native.Buffer{Length: int(desc.length), Value: desc.value}
}

func oidView(oid C.gss_OID) native.Buffer {
	if oid == C.GSS_C_NO_OID {
		return native.EmptyBuffer
	}
	return native.Buffer{Length: int(oid.length), Value: oid.elements}
}

// WrapAEAD implements native.Library.
func (*Library) WrapAEAD(ctx native.ContextHandle, confReq bool, qop uint32, input, assoc native.Buffer) (native.Status, native.Buffer, bool) {
	var in inputs
	defer in.release()

	var minor C.OM_uint32
	var confState C.int
	var out C.gss_buffer_desc
	payload := in.buffer(input)

	major := C.gss_wrap_aead(&minor, C.gss_ctx_id_t(ctx), cBool(confReq), C.gss_qop_t(qop),
		in.optionalBuffer(assoc), &payload, &confState, &out)
	if major != C.GSS_S_COMPLETE {
		return status(major, minor), native.EmptyBuffer, false
	}
	return status(major, minor), output(out), confState != 0
}

// UnwrapAEAD implements native.Library.
func (*Library) UnwrapAEAD(ctx native.ContextHandle, input, assoc native.Buffer) (native.Status, native.Buffer, bool, uint32) {
	var in inputs
	defer in.release()

	var minor C.OM_uint32
	var confState C.int
	var qop C.gss_qop_t
	var out C.gss_buffer_desc
	message := in.buffer(input)

	major := C.gss_unwrap_aead(&minor, C.gss_ctx_id_t(ctx), &message, in.optionalBuffer(assoc),
		&out, &confState, &qop)
	if major != C.GSS_S_COMPLETE {
		return status(major, minor), native.EmptyBuffer, false, 0
	}
	return status(major, minor), output(out), confState != 0, uint32(qop)
}

// AddCredWithPassword implements native.Library.
func (*Library) AddCredWithPassword(input native.CredHandle, name native.NameHandle, mech native.Buffer, password native.Buffer, usage native.CredUsage, initiatorTime, acceptorTime uint32) (native.Status, native.CredHandle, native.OidSet, uint32, uint32) {
	var in inputs
	defer in.release()

	var minor, initRec, accRec C.OM_uint32
	var cred C.gss_cred_id_t = C.GSS_C_NO_CREDENTIAL
	var mechs C.gss_OID_set = C.GSS_C_NO_OID_SET
	pw := in.buffer(password)

	major := C.gss_add_cred_with_password(&minor, C.gss_cred_id_t(input), C.gss_name_t(name),
		in.oid(mech), &pw, C.gss_cred_usage_t(usage),
		C.OM_uint32(initiatorTime), C.OM_uint32(acceptorTime),
		&cred, &mechs, &initRec, &accRec)
	if major != C.GSS_S_COMPLETE {
		return status(major, minor), nil, native.OidSet{}, 0, 0
	}
	return status(major, minor), native.CredHandle(cred), oidSetView(mechs), uint32(initRec), uint32(accRec)
}

// DisplayNameExt implements native.Library.
func (*Library) DisplayNameExt(name native.NameHandle, nameType native.Buffer) (native.Status, native.Buffer) {
	var in inputs
	defer in.release()

	var minor C.OM_uint32
	var out C.gss_buffer_desc

	major := C.gss_display_name_ext(&minor, C.gss_name_t(name), in.oid(nameType), &out)
	if major != C.GSS_S_COMPLETE {
		return status(major, minor), native.EmptyBuffer
	}
	return status(major, minor), output(out)
}

// InquireName implements native.Library.
func (*Library) InquireName(name native.NameHandle, wantMechName, wantAttrs bool) (native.Status, bool, native.Buffer, native.BufferSet) {
	var minor C.OM_uint32
	var isMN C.int
	var mech C.gss_OID = C.GSS_C_NO_OID
	var attrs C.gss_buffer_set_t = C.GSS_C_NO_BUFFER_SET

	isMNPtr, mechPtr, attrsPtr := &isMN, &mech, &attrs
	if !wantMechName {
		isMNPtr, mechPtr = nil, nil
	}
	if !wantAttrs {
		attrsPtr = nil
	}

	major := C.gss_inquire_name(&minor, C.gss_name_t(name), isMNPtr, mechPtr, attrsPtr)
	if major != C.GSS_S_COMPLETE {
		return status(major, minor), false, native.EmptyBuffer, native.BufferSet{}
	}
	return status(major, minor), isMN != 0, oidView(mech), bufferSetView(attrs)
}

// SetNameAttribute implements native.Library.
func (*Library) SetNameAttribute(name native.NameHandle, complete bool, attr, value native.Buffer) native.Status {
	var in inputs
	defer in.release()

	var minor C.OM_uint32
	key, val := in.buffer(attr), in.buffer(value)

	major := C.gss_set_name_attribute(&minor, C.gss_name_t(name), cBool(complete), &key, &val)
	return status(major, minor)
}

// GetNameAttribute implements native.Library.
func (*Library) GetNameAttribute(name native.NameHandle, attr native.Buffer, more *int) (native.Status, bool, bool, native.Buffer, native.Buffer) {
	var in inputs
	defer in.release()

	var minor C.OM_uint32
	var authenticated, complete C.int
	var value C.gss_buffer_desc
	var display C.gss_buffer_desc
	key := in.buffer(attr)

	cMore := C.int(*more)
	major := C.gss_get_name_attribute(&minor, C.gss_name_t(name), &key,
		&authenticated, &complete, &value, &display, &cMore)
	*more = int(cMore)
	if major != C.GSS_S_COMPLETE {
		return status(major, minor), false, false, native.EmptyBuffer, native.EmptyBuffer
	}
	return status(major, minor), authenticated != 0, complete != 0, output(value), output(display)
}

// DeleteNameAttribute implements native.Library.
func (*Library) DeleteNameAttribute(name native.NameHandle, attr native.Buffer) native.Status {
	var in inputs
	defer in.release()

	var minor C.OM_uint32
	key := in.buffer(attr)

	major := C.gss_delete_name_attribute(&minor, C.gss_name_t(name), &key)
	return status(major, minor)
}

// ExportNameComposite implements native.Library.
func (*Library) ExportNameComposite(name native.NameHandle) (native.Status, native.Buffer) {
	var minor C.OM_uint32
	var out C.gss_buffer_desc

	major := C.gss_export_name_composite(&minor, C.gss_name_t(name), &out)
	if major != C.GSS_S_COMPLETE {
		return status(major, minor), native.EmptyBuffer
	}
	return status(major, minor), output(out)
}

// SetCredOption implements native.Library.
func (*Library) SetCredOption(cred *native.CredHandle, option native.Buffer, value native.Buffer) native.Status {
	var in inputs
	defer in.release()

	var minor C.OM_uint32
	handle := C.gss_cred_id_t(*cred)
	val := in.buffer(value)

	major := C.gss_set_cred_option(&minor, &handle, in.oid(option), &val)
	*cred = native.CredHandle(handle)
	return status(major, minor)
}

// ImportName implements native.Library.
func (*Library) ImportName(input native.Buffer, nameType native.Buffer) (native.Status, native.NameHandle) {
	var in inputs
	defer in.release()

	var minor C.OM_uint32
	var name C.gss_name_t = C.GSS_C_NO_NAME
	text := in.buffer(input)

	major := C.gss_import_name(&minor, &text, in.oid(nameType), &name)
	if major != C.GSS_S_COMPLETE {
		return status(major, minor), nil
	}
	return status(major, minor), native.NameHandle(name)
}

// ReleaseName implements native.Library.
func (*Library) ReleaseName(name *native.NameHandle) native.Status {
	var minor C.OM_uint32
	handle := C.gss_name_t(*name)
	major := C.gss_release_name(&minor, &handle)
	*name = native.NameHandle(handle)
	return status(major, minor)
}

// ReleaseCred implements native.Library.
func (*Library) ReleaseCred(cred *native.CredHandle) native.Status {
	var minor C.OM_uint32
	handle := C.gss_cred_id_t(*cred)
	major := C.gss_release_cred(&minor, &handle)
	*cred = native.CredHandle(handle)
	return status(major, minor)
}

// ReleaseBuffer implements native.Library.
func (*Library) ReleaseBuffer(buf *native.Buffer) native.Status {
	var minor C.OM_uint32
	desc := C.gss_buffer_desc{length: C.size_t(buf.Length), value: buf.Value}
	major := C.gss_release_buffer(&minor, &desc)
	*buf = native.EmptyBuffer
	return status(major, minor)
}

// ReleaseBufferSet implements native.Library.
func (*Library) ReleaseBufferSet(set *native.BufferSet) native.Status {
	var minor C.OM_uint32
	handle := C.gss_buffer_set_t(set.Ref)
	major := C.gss_release_buffer_set(&minor, &handle)
	*set = native.BufferSet{}
	return status(major, minor)
}

// ReleaseOidSet implements native.Library.
func (*Library) ReleaseOidSet(set *native.OidSet) native.Status {
	var minor C.OM_uint32
	handle := C.gss_OID_set(set.Ref)
	major := C.gss_release_oid_set(&minor, &handle)
	*set = native.OidSet{}
	return status(major, minor)
}

func bufferSetView(set C.gss_buffer_set_t) native.BufferSet {
	if set == C.GSS_C_NO_BUFFER_SET {
		return native.BufferSet{}
	}
	descs := unsafe.Slice(set.elements, int(set.count))
	elems := make([]native.Buffer, len(descs))
	for i, d := range descs {
		elems[i] = output(d)
	}
	return native.BufferSet{Ref: unsafe.Pointer(set), Elements: elems}
}

func oidSetView(set C.gss_OID_set) native.OidSet {
	if set == C.GSS_C_NO_OID_SET {
		return native.OidSet{}
	}
	descs := unsafe.Slice(set.elements, int(set.count))
	elems := make([]native.Buffer, len(descs))
	for i := range descs {
		elems[i] = oidView(&descs[i])
	}
	return native.OidSet{Ref: unsafe.Pointer(set), Elements: elems}
}

var _ native.Library = (*Library)(nil)
