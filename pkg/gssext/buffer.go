package gssext

import (
	"bytes"
	"encoding/asn1"
	"fmt"
	"math"
	"unsafe"

	"github.com/systmms/gssext/pkg/native"
)

// emptyPayload backs explicitly supplied zero-length inputs so they carry a
// payload pointer and never read as native.EmptyBuffer.
var emptyPayload [1]byte

// toNative returns a view of b for the duration of one native call. b must
// not be modified until the call returns.
func toNative(b []byte) (native.Buffer, error) {
	if uint64(len(b)) > math.MaxUint32 {
		return native.EmptyBuffer, invalidInput("buffer of %d bytes exceeds the native size limit", len(b))
	}
	if len(b) == 0 {
		return native.Buffer{Value: unsafe.Pointer(&emptyPayload[0])}, nil
	}
	return native.Buffer{Length: len(b), Value: unsafe.Pointer(unsafe.SliceData(b))}, nil
}

// toNativeOptional is toNative for optional inputs; absent becomes
// native.EmptyBuffer.
func toNativeOptional(b []byte, present bool) (native.Buffer, error) {
	if !present {
		return native.EmptyBuffer, nil
	}
	return toNative(b)
}

// oidToNative encodes oid for the native layer. A nil oid is GSS_C_NO_OID.
// The returned buffer owns its memory.
func oidToNative(oid asn1.ObjectIdentifier) (native.Buffer, error) {
	if oid == nil {
		return native.EmptyBuffer, nil
	}
	der, err := native.MarshalOID(oid)
	if err != nil {
		return native.EmptyBuffer, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return toNative(der)
}

// fromNative copies a native output buffer into Go memory and releases it.
// A buffer the library left as native.EmptyBuffer is not released and yields
// nil.
func (c *Client) fromNative(buf *native.Buffer) ([]byte, error) {
	if buf.IsEmpty() {
		return nil, nil
	}
	out := bytes.Clone(buf.Bytes())
	if out == nil {
		out = []byte{}
	}
	if err := c.call(native.OpReleaseBuffer, func() native.Status {
		return c.lib.ReleaseBuffer(buf)
	}); err != nil {
		return nil, err
	}
	return out, nil
}

// fromNativeAll is fromNative over several buffers produced by one call.
// Every buffer is released even when an earlier release fails; the first
// error is returned.
func (c *Client) fromNativeAll(bufs ...*native.Buffer) ([][]byte, error) {
	out := make([][]byte, len(bufs))
	var first error
	for i, b := range bufs {
		v, err := c.fromNative(b)
		if err != nil && first == nil {
			first = err
		}
		out[i] = v
	}
	if first != nil {
		return nil, first
	}
	return out, nil
}

// fromNativeSet copies every element of set and releases it. The
// GSS_C_NO_BUFFER_SET sentinel yields an empty result and is not released.
func (c *Client) fromNativeSet(set *native.BufferSet) ([][]byte, error) {
	if set.IsEmpty() {
		return [][]byte{}, nil
	}
	out := make([][]byte, len(set.Elements))
	for i, e := range set.Elements {
		out[i] = append([]byte{}, e.Bytes()...)
	}
	if err := c.call(native.OpReleaseBufferSet, func() native.Status {
		return c.lib.ReleaseBufferSet(set)
	}); err != nil {
		return nil, err
	}
	return out, nil
}

// fromNativeOIDs decodes every element of set and releases it.
func (c *Client) fromNativeOIDs(set *native.OidSet) ([]asn1.ObjectIdentifier, error) {
	if set.IsEmpty() {
		return nil, nil
	}
	var (
		out       = make([]asn1.ObjectIdentifier, 0, len(set.Elements))
		decodeErr error
	)
	for _, e := range set.Elements {
		oid, err := native.UnmarshalOID(e.Bytes())
		if err != nil {
			decodeErr = err
			break
		}
		out = append(out, oid)
	}
	if err := c.call(native.OpReleaseOidSet, func() native.Status {
		return c.lib.ReleaseOidSet(set)
	}); err != nil {
		return nil, err
	}
	if decodeErr != nil {
		return nil, decodeErr
	}
	return out, nil
}

// oidFromNative decodes a view of an OID owned by the library.
func oidFromNative(b native.Buffer) (asn1.ObjectIdentifier, error) {
	if b.IsEmpty() {
		return nil, nil
	}
	return native.UnmarshalOID(b.Bytes())
}
