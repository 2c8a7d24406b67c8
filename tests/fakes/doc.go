// Package fakes provides test doubles for the external clients gssext talks
// to besides the GSSAPI library itself, which tests replace with
// pkg/native/memory.
//
// Fakes are manually implemented (not generated) to provide precise control
// over test behavior.
//
// Usage:
//
//	fake := fakes.NewFakeKeychainClient()
//	fake.SetSecret("gssext", "alice@EXAMPLE.COM", []byte("secret123"))
//	buf, err := password.FromKeyring(fake, "gssext/alice@EXAMPLE.COM")
package fakes
