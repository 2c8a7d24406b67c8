package gssext

import (
	"encoding/asn1"

	"github.com/systmms/gssext/pkg/native"
)

type credOptionOptions struct {
	cred         *Credential
	value        []byte
	valuePresent bool
}

// CredOptionOption configures SetCredOption.
type CredOptionOption func(*credOptionOptions)

// WithCredential sets the option on cred rather than on a new credential.
func WithCredential(cred *Credential) CredOptionOption {
	return func(o *credOptionOptions) {
		o.cred = cred
	}
}

// WithOptionValue passes b as the option value. Without it the library
// receives GSS_C_EMPTY_BUFFER; an empty b is a real zero-length value.
func WithOptionValue(b []byte) CredOptionOption {
	return func(o *credOptionOptions) {
		o.value = b
		o.valuePresent = true
	}
}

// SetCredOption sets the mechanism-specific option oid with
// gss_set_cred_option. The credential handle is updated in place, so with
// WithCredential the same *Credential is returned; without it the library
// creates the credential.
func (c *Client) SetCredOption(oid asn1.ObjectIdentifier, opts ...CredOptionOption) (*Credential, error) {
	if oid == nil {
		return nil, invalidInput("option OID is required")
	}
	var o credOptionOptions
	for _, opt := range opts {
		opt(&o)
	}
	option, err := oidToNative(oid)
	if err != nil {
		return nil, err
	}
	value, err := toNativeOptional(o.value, o.valuePresent)
	if err != nil {
		return nil, err
	}

	cred := o.cred
	if cred == nil {
		cred = &Credential{}
	}
	created := cred.handle == nil

	if err := c.call(native.OpSetCredOption, func() native.Status {
		return c.lib.SetCredOption(&cred.handle, option, value)
	}); err != nil {
		if created && cred.handle != nil {
			_ = c.ReleaseCredential(cred)
		}
		return nil, err
	}
	return cred, nil
}
