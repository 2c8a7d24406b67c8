// Package gssext is a safe Go surface over the GSSAPI extension calls:
// AEAD wrap and unwrap, password credentials, RFC 6680 name attributes and
// credential options.
//
// A Client drives a native.Library. Inputs are handed to the library as views
// of caller memory; every buffer the library allocates is copied into Go
// memory and released before the method returns, on success and on failure.
// Every native call is checked, and a failed call surfaces as a *StatusError
// carrying the major and minor codes verbatim:
//
//	res, err := client.UnwrapAEAD(sc, token, gssext.WithAssociatedData(hdr))
//	if errors.Is(err, gssext.ErrNativeFailure) {
//		var se *gssext.StatusError
//		errors.As(err, &se)
//		log.Printf("unwrap failed: major=%#x minor=%d", se.Major, se.Minor)
//	}
//
// Handles (SecurityContext, Credential, Name) are not safe for concurrent use
// and the Client adds no locking of its own. Nothing is retried.
package gssext
