//go:build !gssapi

package cgss

import "github.com/systmms/gssext/pkg/native"

// Open always fails in builds without the gssapi tag.
func Open() (native.Library, error) {
	return nil, ErrNotBuilt
}
