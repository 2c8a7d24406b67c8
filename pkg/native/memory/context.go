package memory

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"unsafe"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/systmms/gssext/pkg/native"
)

// Wrap token layout:
//
//	0..1   token id 0x05 0x04
//	2      flags (flagSealed)
//	3..6   QoP, big endian
//	7..30  XChaCha20-Poly1305 nonce
//	31..   sealed payload, or payload followed by a detached tag
//
// The associated data is authenticated together with the header and a
// presence byte, so an absent associated data buffer never verifies against a
// zero-length one.
const (
	tokenHeaderLen = 7
	flagSealed     = 0x01
)

var wrapTokenID = [2]byte{0x05, 0x04}

type secContext struct {
	key           []byte
	confAvailable bool
}

// ContextOptions configures NewContextPair.
type ContextOptions struct {
	// IntegrityOnly makes the mechanism downgrade confidentiality requests,
	// as mechanisms without a negotiated confidentiality service do.
	IntegrityOnly bool
}

// NewContextPair returns an initiator and an acceptor context that share
// session keys, standing in for a completed context establishment.
func (l *Library) NewContextPair(opts ContextOptions) (initiator, acceptor native.ContextHandle, err error) {
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, nil, fmt.Errorf("generating session key: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	a := &secContext{key: key, confAvailable: !opts.IntegrityOnly}
	b := &secContext{key: key, confAvailable: !opts.IntegrityOnly}
	l.contexts[unsafe.Pointer(a)] = a
	l.contexts[unsafe.Pointer(b)] = b
	return native.ContextHandle(unsafe.Pointer(a)), native.ContextHandle(unsafe.Pointer(b)), nil
}

// DeleteContext forgets a context created by NewContextPair.
func (l *Library) DeleteContext(h native.ContextHandle) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.contexts, unsafe.Pointer(h))
}

func aeadAAD(header []byte, assoc native.Buffer) []byte {
	aad := append([]byte{}, header...)
	if assoc.IsEmpty() {
		return append(aad, 0)
	}
	aad = append(aad, 1)
	return append(aad, assoc.Bytes()...)
}

// WrapAEAD implements native.Library.
func (l *Library) WrapAEAD(ctx native.ContextHandle, confReq bool, qop uint32, input, assoc native.Buffer) (native.Status, native.Buffer, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	c := Call{Op: native.OpWrapAEAD, AssocPresent: !assoc.IsEmpty()}

	if st, ok := l.injected(c.Op); ok {
		return l.finish(c, st), native.EmptyBuffer, false
	}
	sc, ok := l.contexts[unsafe.Pointer(ctx)]
	if !ok {
		return l.finish(c, routine(native.NoContext)), native.EmptyBuffer, false
	}
	if qop != native.QoPDefault {
		return l.finish(c, routine(native.BadQOP)), native.EmptyBuffer, false
	}

	aead, err := chacha20poly1305.NewX(sc.key)
	if err != nil {
		return l.finish(c, routine(native.Failure)), native.EmptyBuffer, false
	}
	sealed := confReq && sc.confAvailable

	token := make([]byte, tokenHeaderLen+chacha20poly1305.NonceSizeX)
	copy(token, wrapTokenID[:])
	if sealed {
		token[2] = flagSealed
	}
	binary.BigEndian.PutUint32(token[3:tokenHeaderLen], qop)
	nonce := token[tokenHeaderLen:]
	if _, err := rand.Read(nonce); err != nil {
		return l.finish(c, routine(native.Failure)), native.EmptyBuffer, false
	}

	aad := aeadAAD(token[:tokenHeaderLen], assoc)
	if sealed {
		token = aead.Seal(token, nonce, input.Bytes(), aad)
	} else {
		payload := input.Bytes()
		token = append(token, payload...)
		token = aead.Seal(token, nonce, nil, append(aad, payload...))
	}

	out := l.allocBuffer(token)
	return l.finish(c, native.Status{}), out, sealed
}

// UnwrapAEAD implements native.Library.
func (l *Library) UnwrapAEAD(ctx native.ContextHandle, input, assoc native.Buffer) (native.Status, native.Buffer, bool, uint32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	c := Call{Op: native.OpUnwrapAEAD, AssocPresent: !assoc.IsEmpty()}

	if st, ok := l.injected(c.Op); ok {
		return l.finish(c, st), native.EmptyBuffer, false, 0
	}
	sc, ok := l.contexts[unsafe.Pointer(ctx)]
	if !ok {
		return l.finish(c, routine(native.NoContext)), native.EmptyBuffer, false, 0
	}

	aead, err := chacha20poly1305.NewX(sc.key)
	if err != nil {
		return l.finish(c, routine(native.Failure)), native.EmptyBuffer, false, 0
	}

	token := input.Bytes()
	prefix := tokenHeaderLen + aead.NonceSize()
	if len(token) < prefix+aead.Overhead() || token[0] != wrapTokenID[0] || token[1] != wrapTokenID[1] {
		return l.finish(c, routine(native.DefectiveToken)), native.EmptyBuffer, false, 0
	}
	sealed := token[2]&flagSealed != 0
	qop := binary.BigEndian.Uint32(token[3:tokenHeaderLen])
	nonce := token[tokenHeaderLen:prefix]
	body := token[prefix:]

	aad := aeadAAD(token[:tokenHeaderLen], assoc)

	var payload []byte
	if sealed {
		payload, err = aead.Open(nil, nonce, body, aad)
	} else {
		split := len(body) - aead.Overhead()
		payload = body[:split]
		_, err = aead.Open(nil, nonce, body[split:], append(aad, payload...))
	}
	if err != nil {
		return l.finish(c, routine(native.BadSig)), native.EmptyBuffer, false, 0
	}

	out := l.allocBuffer(payload)
	return l.finish(c, native.Status{}), out, sealed, qop
}
