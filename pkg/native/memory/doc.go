// Package memory is a pure-Go native.Library.
//
// It stands in for a GSSAPI mechanism wherever linking the system library is
// not possible: unit tests, the gssext CLI's memory backend, and the doctor
// self check. Every output it hands back is tracked, so a test can assert that
// each buffer, buffer set and OID set was released exactly once:
//
//	lib := memory.New()
//	client := gssext.New(lib)
//	...
//	assert.Zero(t, lib.Stats().Outstanding())
//
// Behaviour follows the krb5 mechanism closely enough to exercise the binding
// layer: krb5 principals are mechanism names, password credentials are
// checked against principals registered with RegisterPrincipal, and
// authenticated attributes cannot be modified. Wrap tokens are
// XChaCha20-Poly1305 sealed and are only meaningful to contexts created by
// NewContextPair on the same Library.
package memory
