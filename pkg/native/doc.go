// Package native describes the boundary between gssext and a GSSAPI
// implementation.
//
// Every method of Library corresponds to exactly one C entry point of the
// GSSAPI extension interfaces (RFC 5587 AEAD, RFC 6680 naming extensions and
// the MIT/Heimdal credential extensions). Out-parameters are returned as Go
// values, but memory ownership follows the C rules unchanged:
//
//   - Input Buffers are views of caller memory and are never released.
//   - Output Buffers, BufferSets and OidSets are allocated by the
//     implementation and must be handed back to ReleaseBuffer,
//     ReleaseBufferSet or ReleaseOidSet exactly once.
//   - Handles (ContextHandle, CredHandle, NameHandle) have their own
//     lifecycle and are released with ReleaseCred and ReleaseName.
//
// Two implementations exist: package cgss links the system GSSAPI library
// through cgo (build tag "gssapi"), and package memory is an instrumented
// pure-Go implementation used by tests and the demo backend.
package native
