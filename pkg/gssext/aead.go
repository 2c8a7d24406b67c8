package gssext

import (
	"github.com/systmms/gssext/pkg/native"
)

// QoP is a quality of protection value (gss_qop_t).
type QoP uint32

// QoPDefault selects the mechanism's default protection.
const QoPDefault QoP = QoP(native.QoPDefault)

type associatedData struct {
	assoc        []byte
	assocPresent bool
}

type wrapOptions struct {
	associatedData
	confidential bool
	qop          QoP
}

type unwrapOptions struct {
	associatedData
}

// WrapOption configures WrapAEAD.
type WrapOption interface {
	applyWrap(*wrapOptions)
}

// UnwrapOption configures UnwrapAEAD.
type UnwrapOption interface {
	applyUnwrap(*unwrapOptions)
}

type wrapOptionFunc func(*wrapOptions)

func (f wrapOptionFunc) applyWrap(o *wrapOptions) { f(o) }

// AssociatedData is both a WrapOption and an UnwrapOption, so the same value
// can be passed to each side.
type AssociatedData struct {
	b []byte
}

func (a AssociatedData) applyWrap(o *wrapOptions) {
	o.associatedData = associatedData{assoc: a.b, assocPresent: true}
}

func (a AssociatedData) applyUnwrap(o *unwrapOptions) {
	o.associatedData = associatedData{assoc: a.b, assocPresent: true}
}

// WithAssociatedData authenticates b alongside the payload without encrypting
// it. Passing an empty b is different from not passing the option: the
// mechanism sees a zero-length buffer rather than no buffer.
func WithAssociatedData(b []byte) AssociatedData {
	return AssociatedData{b: b}
}

// WithConfidentiality requests (the default) or declines encryption.
func WithConfidentiality(on bool) WrapOption {
	return wrapOptionFunc(func(o *wrapOptions) {
		o.confidential = on
	})
}

// WithQoP requests a protection level.
func WithQoP(q QoP) WrapOption {
	return wrapOptionFunc(func(o *wrapOptions) {
		o.qop = q
	})
}

// WrapResult is the output of WrapAEAD.
type WrapResult struct {
	Message []byte
	// Confidential is false when the mechanism applied integrity protection
	// only, even if confidentiality was requested.
	Confidential bool
}

// UnwrapResult is the output of UnwrapAEAD.
type UnwrapResult struct {
	Payload      []byte
	Confidential bool
	QoP          QoP
}

// WrapAEAD protects message with gss_wrap_aead.
func (c *Client) WrapAEAD(sc *SecurityContext, message []byte, opts ...WrapOption) (*WrapResult, error) {
	if sc == nil {
		return nil, invalidInput("security context is required")
	}
	o := wrapOptions{confidential: true, qop: QoPDefault}
	for _, opt := range opts {
		opt.applyWrap(&o)
	}

	input, err := toNative(message)
	if err != nil {
		return nil, err
	}
	assoc, err := toNativeOptional(o.assoc, o.assocPresent)
	if err != nil {
		return nil, err
	}

	var (
		out  native.Buffer
		conf bool
	)
	if err := c.call(native.OpWrapAEAD, func() (st native.Status) {
		st, out, conf = c.lib.WrapAEAD(sc.handle, o.confidential, uint32(o.qop), input, assoc)
		return st
	}); err != nil {
		return nil, err
	}

	wrapped, err := c.fromNative(&out)
	if err != nil {
		return nil, err
	}
	return &WrapResult{Message: wrapped, Confidential: conf}, nil
}

// UnwrapAEAD verifies and, if it was sealed, decrypts message with
// gss_unwrap_aead. The associated data must match the wrap side exactly,
// including whether it was supplied at all.
func (c *Client) UnwrapAEAD(sc *SecurityContext, message []byte, opts ...UnwrapOption) (*UnwrapResult, error) {
	if sc == nil {
		return nil, invalidInput("security context is required")
	}
	var o unwrapOptions
	for _, opt := range opts {
		opt.applyUnwrap(&o)
	}

	input, err := toNative(message)
	if err != nil {
		return nil, err
	}
	assoc, err := toNativeOptional(o.assoc, o.assocPresent)
	if err != nil {
		return nil, err
	}

	var (
		out  native.Buffer
		conf bool
		qop  uint32
	)
	if err := c.call(native.OpUnwrapAEAD, func() (st native.Status) {
		st, out, conf, qop = c.lib.UnwrapAEAD(sc.handle, input, assoc)
		return st
	}); err != nil {
		return nil, err
	}

	payload, err := c.fromNative(&out)
	if err != nil {
		return nil, err
	}
	if payload == nil {
		payload = []byte{}
	}
	return &UnwrapResult{Payload: payload, Confidential: conf, QoP: QoP(qop)}, nil
}
