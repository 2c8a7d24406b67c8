package memory

import (
	"bytes"
	"crypto/subtle"
	"time"
	"unsafe"

	"golang.org/x/crypto/argon2"

	"github.com/systmms/gssext/pkg/native"
)

// Minor status codes reported by AddCredWithPassword, taken from the krb5
// error table so callers exercise realistic mechanism-specific values.
const (
	MinorPrincipalUnknown uint32 = 0x96c73a06 // KRB5KDC_ERR_C_PRINCIPAL_UNKNOWN
	MinorPreauthFailed    uint32 = 0x96c73a18 // KRB5KDC_ERR_PREAUTH_FAILED
)

type credElement struct {
	principal     string
	mech          []byte
	usage         native.CredUsage
	initiatorTime uint32
	acceptorTime  uint32
}

type credOption struct {
	value   []byte
	present bool
}

type credential struct {
	elements []credElement
	options  map[string]credOption
}

// ElementInfo describes one mechanism element of a credential.
type ElementInfo struct {
	Principal     string
	Usage         native.CredUsage
	InitiatorTime uint32
	AcceptorTime  uint32
}

// OptionValue is a value recorded by SetCredOption. Present is false when the
// option was set with GSS_C_EMPTY_BUFFER.
type OptionValue struct {
	Value   []byte
	Present bool
}

// CredentialInfo is a snapshot of a credential held by the Library.
type CredentialInfo struct {
	Elements []ElementInfo
	Options  map[string]OptionValue
}

func deriveKey(principal string, password []byte) []byte {
	return argon2.IDKey(password, []byte("gssext-memory:"+principal), 1, 8*1024, 1, 32)
}

// RegisterPrincipal makes principal known to the password check performed by
// AddCredWithPassword. Only a derived key is retained.
func (l *Library) RegisterPrincipal(principal string, password []byte) {
	key := deriveKey(principal, password)
	l.mu.Lock()
	defer l.mu.Unlock()
	l.principals[principal] = key
}

// Credential returns a snapshot of the credential behind h.
func (l *Library) Credential(h native.CredHandle) (CredentialInfo, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cr, ok := l.creds[unsafe.Pointer(h)]
	if !ok {
		return CredentialInfo{}, false
	}
	info := CredentialInfo{Options: make(map[string]OptionValue, len(cr.options))}
	for _, e := range cr.elements {
		info.Elements = append(info.Elements, ElementInfo{
			Principal:     e.principal,
			Usage:         e.usage,
			InitiatorTime: e.initiatorTime,
			AcceptorTime:  e.acceptorTime,
		})
	}
	for k, v := range cr.options {
		info.Options[k] = OptionValue{Value: bytes.Clone(v.value), Present: v.present}
	}
	return info, true
}

func (l *Library) allocCred(cr *credential) native.CredHandle {
	l.creds[unsafe.Pointer(cr)] = cr
	l.stats.CredsAllocated++
	return native.CredHandle(unsafe.Pointer(cr))
}

func (l *Library) initiatorLifetime(req uint32) uint32 {
	limit := uint32(l.ticketLifetime / time.Second)
	if req == native.Indefinite || req == 0 || req > limit {
		return limit
	}
	return req
}

func acceptorLifetime(req uint32) uint32 {
	if req == 0 {
		return native.Indefinite
	}
	return req
}

// AddCredWithPassword implements native.Library. The password is checked
// against the key registered with RegisterPrincipal. Requested lifetimes of
// zero select the mechanism default.
func (l *Library) AddCredWithPassword(input native.CredHandle, h native.NameHandle, mech native.Buffer, password native.Buffer, usage native.CredUsage, initiatorTime, acceptorTime uint32) (native.Status, native.CredHandle, native.OidSet, uint32, uint32) {
	// Key derivation runs before taking the lock; it is the slow part.
	var derived []byte
	if n := l.peekName(h); n != nil {
		derived = deriveKey(n.text, password.Bytes())
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	c := Call{Op: native.OpAddCredWithPassword, Usage: usage, InitiatorTime: initiatorTime, AcceptorTime: acceptorTime}
	fail := func(st native.Status) (native.Status, native.CredHandle, native.OidSet, uint32, uint32) {
		return l.finish(c, st), nil, native.OidSet{}, 0, 0
	}

	if st, ok := l.injected(c.Op); ok {
		return fail(st)
	}
	n := l.lookupName(h)
	if n == nil {
		return fail(routine(native.BadName))
	}
	if !bytes.Equal(mech.Bytes(), mechKRB5) {
		return fail(routine(native.BadMech))
	}
	if usage != native.CredBoth && usage != native.CredInitiate && usage != native.CredAccept {
		return fail(routine(native.Failure))
	}

	var base *credential
	if input != nil {
		var ok bool
		if base, ok = l.creds[unsafe.Pointer(input)]; !ok {
			return fail(routine(native.NoCred))
		}
		for _, e := range base.elements {
			if e.principal == n.text && bytes.Equal(e.mech, mechKRB5) {
				return fail(routine(native.DuplicateElement))
			}
		}
	}

	want, ok := l.principals[n.text]
	if !ok {
		return fail(native.Status{Major: native.Failure, Minor: MinorPrincipalUnknown})
	}
	if subtle.ConstantTimeCompare(want, derived) != 1 {
		return fail(native.Status{Major: native.Failure, Minor: MinorPreauthFailed})
	}

	elem := credElement{principal: n.text, mech: mechKRB5, usage: usage}
	if usage != native.CredAccept {
		elem.initiatorTime = l.initiatorLifetime(initiatorTime)
	}
	if usage != native.CredInitiate {
		elem.acceptorTime = acceptorLifetime(acceptorTime)
	}

	out := &credential{options: make(map[string]credOption)}
	if base != nil {
		out.elements = append(out.elements, base.elements...)
		for k, v := range base.options {
			out.options[k] = v
		}
	}
	out.elements = append(out.elements, elem)

	var mechs [][]byte
	for _, e := range out.elements {
		seen := false
		for _, m := range mechs {
			if bytes.Equal(m, e.mech) {
				seen = true
				break
			}
		}
		if !seen {
			mechs = append(mechs, e.mech)
		}
	}

	handle := l.allocCred(out)
	set := l.allocOidSet(mechs)
	return l.finish(c, native.Status{}), handle, set, elem.initiatorTime, elem.acceptorTime
}

func (l *Library) peekName(h native.NameHandle) *name {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lookupName(h)
}

// SetCredOption implements native.Library. Only registered option OIDs are
// accepted; GSS_KRB5_CRED_NO_CI_FLAGS_X is registered by default.
func (l *Library) SetCredOption(cred *native.CredHandle, option native.Buffer, value native.Buffer) native.Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	c := Call{Op: native.OpSetCredOption, ValuePresent: !value.IsEmpty()}

	if st, ok := l.injected(c.Op); ok {
		return l.finish(c, st)
	}
	if cred == nil {
		return l.finish(c, routine(native.CallInaccessibleWrite))
	}
	oid, err := native.UnmarshalOID(option.Bytes())
	if err != nil || !l.credOptions[oid.String()] {
		return l.finish(c, routine(native.Unavailable))
	}

	var cr *credential
	if *cred == nil {
		cr = &credential{options: make(map[string]credOption)}
		*cred = l.allocCred(cr)
	} else {
		var ok bool
		if cr, ok = l.creds[unsafe.Pointer(*cred)]; !ok {
			return l.finish(c, routine(native.NoCred))
		}
	}
	if st, ok := l.injectedLate(c.Op); ok {
		return l.finish(c, st)
	}
	cr.options[oid.String()] = credOption{value: bytes.Clone(value.Bytes()), present: !value.IsEmpty()}
	return l.finish(c, native.Status{})
}

// ReleaseCred implements native.Library.
func (l *Library) ReleaseCred(cred *native.CredHandle) native.Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	c := Call{Op: native.OpReleaseCred}

	if cred == nil {
		return l.finish(c, routine(native.CallInaccessibleRead))
	}
	if *cred == nil {
		return l.finish(c, native.Status{})
	}
	if _, ok := l.creds[unsafe.Pointer(*cred)]; !ok {
		return l.finish(c, routine(native.NoCred))
	}
	delete(l.creds, unsafe.Pointer(*cred))
	l.stats.CredsReleased++
	*cred = nil
	return l.finish(c, native.Status{})
}
