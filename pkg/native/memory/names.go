package memory

import (
	"bytes"
	"errors"
	"unicode"
	"unicode/utf8"
	"unsafe"

	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"

	"github.com/systmms/gssext/pkg/native"
)

var (
	mechKRB5           = native.MustMarshalOID(native.OIDMechKRB5)
	ntUserName         = native.MustMarshalOID(native.OIDNTUserName)
	ntHostbasedService = native.MustMarshalOID(native.OIDNTHostbasedService)
	ntKRB5Principal    = native.MustMarshalOID(native.OIDNTKRB5Principal)
	ntExportName       = native.MustMarshalOID(native.OIDNTExportName)
	ntCompositeExport  = native.MustMarshalOID(native.OIDNTCompositeExport)
)

// Exported name token ids (RFC 2743 section 3.2, RFC 6680 section 7.1).
var (
	tokExportName      = []byte{0x04, 0x01}
	tokExportComposite = []byte{0x04, 0x02}
)

type attribute struct {
	key           []byte
	values        [][]byte
	authenticated bool
	complete      bool
}

type name struct {
	text     string
	nameType []byte
	mech     []byte // nil unless this is a mechanism name
	attrs    []*attribute
}

func (n *name) attribute(key []byte) (int, *attribute) {
	for i, a := range n.attrs {
		if bytes.Equal(a.key, key) {
			return i, a
		}
	}
	return -1, nil
}

func (l *Library) lookupName(h native.NameHandle) *name {
	return l.names[unsafe.Pointer(h)]
}

func (l *Library) allocName(n *name) native.NameHandle {
	l.names[unsafe.Pointer(n)] = n
	l.stats.NamesAllocated++
	return native.NameHandle(unsafe.Pointer(n))
}

// ImportName implements native.Library. Supported name types are the user,
// host-based service and krb5 principal syntaxes plus exported names; krb5
// principals and exported names yield mechanism names.
func (l *Library) ImportName(input native.Buffer, nameType native.Buffer) (native.Status, native.NameHandle) {
	l.mu.Lock()
	defer l.mu.Unlock()
	c := Call{Op: native.OpImportName}

	if st, ok := l.injected(c.Op); ok {
		return l.finish(c, st), nil
	}
	if input.Length == 0 {
		return l.finish(c, routine(native.BadName)), nil
	}
	raw := input.Bytes()
	nt := nameType.Bytes()

	var n *name
	switch {
	case nameType.IsEmpty(), bytes.Equal(nt, ntUserName):
		n = &name{text: string(raw), nameType: ntUserName}
	case bytes.Equal(nt, ntHostbasedService):
		n = &name{text: string(raw), nameType: ntHostbasedService}
	case bytes.Equal(nt, ntKRB5Principal):
		n = &name{text: string(raw), nameType: ntKRB5Principal, mech: mechKRB5}
	case bytes.Equal(nt, ntExportName):
		parsed, err := parseExportedName(raw, false)
		if err != nil {
			return l.finish(c, routine(native.BadName)), nil
		}
		n = parsed
	case bytes.Equal(nt, ntCompositeExport):
		parsed, err := parseExportedName(raw, true)
		if err != nil {
			return l.finish(c, routine(native.BadName)), nil
		}
		n = parsed
	default:
		return l.finish(c, routine(native.BadNameType)), nil
	}

	return l.finish(c, native.Status{}), l.allocName(n)
}

// ReleaseName implements native.Library.
func (l *Library) ReleaseName(h *native.NameHandle) native.Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	c := Call{Op: native.OpReleaseName}

	if h == nil {
		return l.finish(c, routine(native.CallInaccessibleRead))
	}
	if *h == nil {
		return l.finish(c, native.Status{})
	}
	if l.lookupName(*h) == nil {
		return l.finish(c, routine(native.BadName))
	}
	delete(l.names, unsafe.Pointer(*h))
	l.stats.NamesReleased++
	*h = nil
	return l.finish(c, native.Status{})
}

// SeedAttribute attaches an attribute to a name without going through
// SetNameAttribute, the way a mechanism attaches ticket authorization data.
// Authenticated attributes cannot be modified or deleted by callers.
func (l *Library) SeedAttribute(h native.NameHandle, key []byte, values [][]byte, authenticated, complete bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := l.lookupName(h)
	if n == nil {
		return errors.New("unknown name handle")
	}
	if _, a := n.attribute(key); a != nil {
		return errors.New("attribute already present")
	}
	a := &attribute{
		key:           bytes.Clone(key),
		authenticated: authenticated,
		complete:      complete,
	}
	for _, v := range values {
		a.values = append(a.values, bytes.Clone(v))
	}
	n.attrs = append(n.attrs, a)
	return nil
}

// DisplayNameExt implements native.Library. A name can be displayed in its
// own syntax, and mechanism names additionally as krb5 principals.
func (l *Library) DisplayNameExt(h native.NameHandle, nameType native.Buffer) (native.Status, native.Buffer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	c := Call{Op: native.OpDisplayNameExt}

	if st, ok := l.injected(c.Op); ok {
		return l.finish(c, st), native.EmptyBuffer
	}
	n := l.lookupName(h)
	if n == nil {
		return l.finish(c, routine(native.BadName)), native.EmptyBuffer
	}
	nt := nameType.Bytes()
	supported := bytes.Equal(nt, n.nameType) || (n.mech != nil && bytes.Equal(nt, ntKRB5Principal))
	if !supported {
		return l.finish(c, routine(native.Unavailable)), native.EmptyBuffer
	}
	return l.finish(c, native.Status{}), l.allocBuffer([]byte(n.text))
}

// InquireName implements native.Library. A name without attributes reports
// GSS_C_NO_BUFFER_SET rather than an empty set.
func (l *Library) InquireName(h native.NameHandle, wantMechName, wantAttrs bool) (native.Status, bool, native.Buffer, native.BufferSet) {
	l.mu.Lock()
	defer l.mu.Unlock()
	c := Call{Op: native.OpInquireName, WantMechName: wantMechName, WantAttrs: wantAttrs}

	if st, ok := l.injected(c.Op); ok {
		return l.finish(c, st), false, native.EmptyBuffer, native.BufferSet{}
	}
	n := l.lookupName(h)
	if n == nil {
		return l.finish(c, routine(native.BadName)), false, native.EmptyBuffer, native.BufferSet{}
	}

	var (
		isMN  bool
		mech  native.Buffer
		attrs native.BufferSet
	)
	if wantMechName && len(n.mech) > 0 {
		isMN = true
		mech = native.Buffer{Length: len(n.mech), Value: unsafe.Pointer(&n.mech[0])}
	}
	if wantAttrs && len(n.attrs) > 0 {
		keys := make([][]byte, len(n.attrs))
		for i, a := range n.attrs {
			keys[i] = a.key
		}
		attrs = l.allocBufferSet(keys)
	}
	return l.finish(c, native.Status{}), isMN, mech, attrs
}

// SetNameAttribute implements native.Library. Values are appended; a complete
// or authenticated attribute accepts no further values.
func (l *Library) SetNameAttribute(h native.NameHandle, complete bool, attr, value native.Buffer) native.Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	c := Call{Op: native.OpSetNameAttribute, Complete: complete}

	if st, ok := l.injected(c.Op); ok {
		return l.finish(c, st)
	}
	n := l.lookupName(h)
	if n == nil {
		return l.finish(c, routine(native.BadName))
	}
	if attr.Length == 0 {
		return l.finish(c, routine(native.Failure))
	}

	key := attr.Bytes()
	_, a := n.attribute(key)
	if a == nil {
		a = &attribute{key: bytes.Clone(key)}
		n.attrs = append(n.attrs, a)
	} else if a.authenticated || a.complete {
		return l.finish(c, routine(native.Unauthorized))
	}
	a.values = append(a.values, bytes.Clone(value.Bytes()))
	a.complete = complete
	return l.finish(c, native.Status{})
}

// displayValue renders printable UTF-8 values; anything else has no display
// form and is reported as an empty buffer.
func displayValue(v []byte) ([]byte, bool) {
	if len(v) == 0 || !utf8.Valid(v) {
		return nil, false
	}
	for _, r := range string(v) {
		if !unicode.IsPrint(r) {
			return nil, false
		}
	}
	return v, true
}

// GetNameAttribute implements native.Library. The continuation cursor is the
// index of the next value to return.
func (l *Library) GetNameAttribute(h native.NameHandle, attr native.Buffer, more *int) (native.Status, bool, bool, native.Buffer, native.Buffer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	c := Call{Op: native.OpGetNameAttribute}
	fail := func(st native.Status) (native.Status, bool, bool, native.Buffer, native.Buffer) {
		return l.finish(c, st), false, false, native.EmptyBuffer, native.EmptyBuffer
	}

	if st, ok := l.injected(c.Op); ok {
		return fail(st)
	}
	if more == nil {
		return fail(routine(native.CallInaccessibleWrite))
	}
	n := l.lookupName(h)
	if n == nil {
		return fail(routine(native.BadName))
	}
	_, a := n.attribute(attr.Bytes())
	if a == nil || len(a.values) == 0 {
		return fail(routine(native.Unavailable))
	}

	idx := *more
	if idx == -1 {
		idx = 0
	}
	if idx < 0 || idx >= len(a.values) {
		return fail(routine(native.Failure))
	}

	value := l.allocBuffer(a.values[idx])
	display := native.EmptyBuffer
	if text, ok := displayValue(a.values[idx]); ok {
		display = l.allocBuffer(text)
	}
	if idx+1 < len(a.values) {
		*more = idx + 1
	} else {
		*more = 0
	}
	return l.finish(c, native.Status{}), a.authenticated, a.complete, value, display
}

// DeleteNameAttribute implements native.Library.
func (l *Library) DeleteNameAttribute(h native.NameHandle, attr native.Buffer) native.Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	c := Call{Op: native.OpDeleteNameAttribute}

	if st, ok := l.injected(c.Op); ok {
		return l.finish(c, st)
	}
	n := l.lookupName(h)
	if n == nil {
		return l.finish(c, routine(native.BadName))
	}
	i, a := n.attribute(attr.Bytes())
	if a == nil {
		return l.finish(c, routine(native.Unavailable))
	}
	if a.authenticated {
		return l.finish(c, routine(native.Unauthorized))
	}
	n.attrs = append(n.attrs[:i], n.attrs[i+1:]...)
	return l.finish(c, native.Status{})
}

// ExportNameComposite implements native.Library.
func (l *Library) ExportNameComposite(h native.NameHandle) (native.Status, native.Buffer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	c := Call{Op: native.OpExportNameComposite}

	if st, ok := l.injected(c.Op); ok {
		return l.finish(c, st), native.EmptyBuffer
	}
	n := l.lookupName(h)
	if n == nil {
		return l.finish(c, routine(native.BadName)), native.EmptyBuffer
	}
	if n.mech == nil {
		return l.finish(c, routine(native.NameNotMN)), native.EmptyBuffer
	}
	token, err := marshalCompositeName(n)
	if err != nil {
		return l.finish(c, routine(native.Failure)), native.EmptyBuffer
	}
	return l.finish(c, native.Status{}), l.allocBuffer(token)
}

// Composite token:
//
//	TOK_ID(2) MECH_OID_LEN(2) MECH_OID(DER) NAME_LEN(4) NAME
//	ATTR_COUNT(2) { KEY_LEN(2) KEY FLAGS(1) VALUE_COUNT(2) { VALUE_LEN(4) VALUE }* }*
const (
	attrFlagAuthenticated = 1 << 0
	attrFlagComplete      = 1 << 1
)

func addMechAndName(b *cryptobyte.Builder, n *name) {
	b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
		b.AddASN1(cbasn1.OBJECT_IDENTIFIER, func(b *cryptobyte.Builder) {
			b.AddBytes(n.mech)
		})
	})
	b.AddUint32LengthPrefixed(func(b *cryptobyte.Builder) {
		b.AddBytes([]byte(n.text))
	})
}

func marshalCompositeName(n *name) ([]byte, error) {
	var b cryptobyte.Builder
	b.AddBytes(tokExportComposite)
	addMechAndName(&b, n)
	b.AddUint16(uint16(len(n.attrs)))
	for _, a := range n.attrs {
		b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
			b.AddBytes(a.key)
		})
		var flags uint8
		if a.authenticated {
			flags |= attrFlagAuthenticated
		}
		if a.complete {
			flags |= attrFlagComplete
		}
		b.AddUint8(flags)
		b.AddUint16(uint16(len(a.values)))
		for _, v := range a.values {
			b.AddUint32LengthPrefixed(func(b *cryptobyte.Builder) {
				b.AddBytes(v)
			})
		}
	}
	return b.Bytes()
}

var errMalformedName = errors.New("malformed exported name")

// readUint32LengthPrefixed is the reading side of
// cryptobyte.Builder.AddUint32LengthPrefixed.
func readUint32LengthPrefixed(s *cryptobyte.String, out *cryptobyte.String) bool {
	var n uint32
	if !s.ReadUint32(&n) || uint64(n) > uint64(len(*s)) {
		return false
	}
	return s.ReadBytes((*[]byte)(out), int(n))
}

// parseExportedName accepts a plain exported name token, or a composite one
// when composite is set. A composite token never parses as a plain exported
// name.
func parseExportedName(token []byte, composite bool) (*name, error) {
	s := cryptobyte.String(token)
	var tokID []byte
	if !s.ReadBytes(&tokID, 2) {
		return nil, errMalformedName
	}
	switch {
	case bytes.Equal(tokID, tokExportName):
	case composite && bytes.Equal(tokID, tokExportComposite):
	default:
		return nil, errMalformedName
	}

	var mechField, mechOID, text cryptobyte.String
	if !s.ReadUint16LengthPrefixed(&mechField) ||
		!mechField.ReadASN1(&mechOID, cbasn1.OBJECT_IDENTIFIER) ||
		len(mechOID) == 0 ||
		!readUint32LengthPrefixed(&s, &text) {
		return nil, errMalformedName
	}
	n := &name{
		text:     string(text),
		nameType: ntKRB5Principal,
		mech:     bytes.Clone(mechOID),
	}
	if !bytes.Equal(tokID, tokExportComposite) {
		if !s.Empty() {
			return nil, errMalformedName
		}
		return n, nil
	}

	var count uint16
	if !s.ReadUint16(&count) {
		return nil, errMalformedName
	}
	for i := 0; i < int(count); i++ {
		var (
			key    cryptobyte.String
			flags  uint8
			values uint16
		)
		if !s.ReadUint16LengthPrefixed(&key) || !s.ReadUint8(&flags) || !s.ReadUint16(&values) {
			return nil, errMalformedName
		}
		a := &attribute{
			key:           bytes.Clone(key),
			authenticated: flags&attrFlagAuthenticated != 0,
			complete:      flags&attrFlagComplete != 0,
		}
		for j := 0; j < int(values); j++ {
			var v cryptobyte.String
			if !readUint32LengthPrefixed(&s, &v) {
				return nil, errMalformedName
			}
			a.values = append(a.values, bytes.Clone(v))
		}
		n.attrs = append(n.attrs, a)
	}
	if !s.Empty() {
		return nil, errMalformedName
	}
	return n, nil
}
