// Package cgss is the native.Library backed by the system GSSAPI library.
//
// The binding is only compiled with the "gssapi" build tag and links
// libgssapi_krb5 through pkg-config (krb5-gssapi). Without the tag Open
// reports ErrNotBuilt, so the rest of the module builds on hosts without
// krb5 development headers.
//
// Input buffers that point into Go memory are pinned for the duration of the
// C call. Outputs are returned as views of C memory and are only valid until
// they are handed to the matching release method.
package cgss

import "errors"

// ErrNotBuilt is returned by Open when the binary was built without cgo GSSAPI
// support.
var ErrNotBuilt = errors.New("gssapi support not compiled in (rebuild with -tags gssapi)")
