package gssext

import (
	"encoding/asn1"
	"math"
	"time"

	"github.com/systmms/gssext/pkg/native"
)

// CredUsage is the intended use of a credential.
type CredUsage string

const (
	UsageInitiate CredUsage = "initiate"
	UsageAccept   CredUsage = "accept"
	UsageBoth     CredUsage = "both"
)

// ParseCredUsage accepts exactly "initiate", "accept" or "both".
func ParseCredUsage(s string) (CredUsage, error) {
	u := CredUsage(s)
	if _, err := u.toNative(); err != nil {
		return "", err
	}
	return u, nil
}

func (u CredUsage) toNative() (native.CredUsage, error) {
	switch u {
	case UsageInitiate:
		return native.CredInitiate, nil
	case UsageAccept:
		return native.CredAccept, nil
	case UsageBoth:
		return native.CredBoth, nil
	}
	return 0, invalidInput("credential usage %q is not one of initiate, accept, both", string(u))
}

// ttlToNative converts a requested lifetime. nil is GSS_C_INDEFINITE; a
// partial second rounds up so a positive TTL never becomes zero.
func ttlToNative(d *time.Duration) (uint32, error) {
	if d == nil {
		return native.Indefinite, nil
	}
	if *d < 0 {
		return 0, invalidInput("negative lifetime %s", *d)
	}
	secs := *d / time.Second
	if *d%time.Second != 0 {
		secs++
	}
	if secs >= math.MaxUint32 {
		return 0, invalidInput("lifetime %s is too long", *d)
	}
	return uint32(secs), nil
}

// ttlFromNative returns nil for GSS_C_INDEFINITE.
func ttlFromNative(secs uint32) *time.Duration {
	if secs == native.Indefinite {
		return nil
	}
	d := time.Duration(secs) * time.Second
	return &d
}

type addCredOptions struct {
	input        *Credential
	initiatorTTL *time.Duration
	acceptorTTL  *time.Duration
}

// AddCredOption configures AddCredWithPassword.
type AddCredOption func(*addCredOptions)

// WithInputCredential augments cred instead of starting from no credential.
// cred itself is left untouched; the result is a new credential.
func WithInputCredential(cred *Credential) AddCredOption {
	return func(o *addCredOptions) {
		o.input = cred
	}
}

// WithInitiatorTTL requests an initiator lifetime. Without it the lifetime is
// indefinite; a zero TTL asks for the mechanism default.
func WithInitiatorTTL(d time.Duration) AddCredOption {
	return func(o *addCredOptions) {
		o.initiatorTTL = &d
	}
}

// WithAcceptorTTL requests an acceptor lifetime, like WithInitiatorTTL.
func WithAcceptorTTL(d time.Duration) AddCredOption {
	return func(o *addCredOptions) {
		o.acceptorTTL = &d
	}
}

// AddCredResult is the output of AddCredWithPassword. A nil TTL is
// indefinite.
type AddCredResult struct {
	Credential   *Credential
	Mechanisms   []asn1.ObjectIdentifier
	InitiatorTTL *time.Duration
	AcceptorTTL  *time.Duration
}

// AddCredWithPassword acquires a credential for name and mech from a password
// with gss_add_cred_with_password. The password is only read for the
// duration of the call.
func (c *Client) AddCredWithPassword(name *Name, mech asn1.ObjectIdentifier, password []byte, usage CredUsage, opts ...AddCredOption) (*AddCredResult, error) {
	nativeUsage, err := usage.toNative()
	if err != nil {
		return nil, err
	}
	if name == nil {
		return nil, invalidInput("name is required")
	}
	if mech == nil {
		return nil, invalidInput("mechanism is required")
	}

	var o addCredOptions
	for _, opt := range opts {
		opt(&o)
	}
	initTime, err := ttlToNative(o.initiatorTTL)
	if err != nil {
		return nil, err
	}
	accTime, err := ttlToNative(o.acceptorTTL)
	if err != nil {
		return nil, err
	}
	mechBuf, err := oidToNative(mech)
	if err != nil {
		return nil, err
	}
	pw, err := toNative(password)
	if err != nil {
		return nil, err
	}
	var input native.CredHandle
	if o.input != nil {
		input = o.input.handle
	}

	var (
		cred            native.CredHandle
		mechs           native.OidSet
		initRec, accRec uint32
	)
	if err := c.call(native.OpAddCredWithPassword, func() (st native.Status) {
		st, cred, mechs, initRec, accRec = c.lib.AddCredWithPassword(input, name.handle, mechBuf, pw, nativeUsage, initTime, accTime)
		return st
	}); err != nil {
		return nil, err
	}

	result := &AddCredResult{
		Credential:   &Credential{handle: cred},
		InitiatorTTL: ttlFromNative(initRec),
		AcceptorTTL:  ttlFromNative(accRec),
	}
	result.Mechanisms, err = c.fromNativeOIDs(&mechs)
	if err != nil {
		_ = c.ReleaseCredential(result.Credential)
		return nil, err
	}
	return result, nil
}
