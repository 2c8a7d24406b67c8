package gssext

import (
	"encoding/asn1"
	"fmt"

	"github.com/systmms/gssext/pkg/native"
)

// ImportName converts text of the given name type into an internal name with
// gss_import_name. A nil nameType lets the mechanism choose.
//
// Tokens from ExportNameComposite must be imported with NTCompositeExport;
// NTExportName only accepts plain exported names.
func (c *Client) ImportName(text []byte, nameType asn1.ObjectIdentifier) (*Name, error) {
	input, err := toNative(text)
	if err != nil {
		return nil, err
	}
	nt, err := oidToNative(nameType)
	if err != nil {
		return nil, err
	}

	var h native.NameHandle
	if err := c.call(native.OpImportName, func() (st native.Status) {
		st, h = c.lib.ImportName(input, nt)
		return st
	}); err != nil {
		return nil, err
	}
	return &Name{handle: h}, nil
}

// DisplayNameExt renders name in the syntax of nameType with
// gss_display_name_ext. A syntax the mechanism cannot produce for this name
// fails with an error matching ErrOperationUnavailable.
func (c *Client) DisplayNameExt(name *Name, nameType asn1.ObjectIdentifier) (string, error) {
	if name == nil {
		return "", invalidInput("name is required")
	}
	if nameType == nil {
		return "", invalidInput("name type is required")
	}
	nt, err := oidToNative(nameType)
	if err != nil {
		return "", err
	}

	var out native.Buffer
	if err := c.call(native.OpDisplayNameExt, func() (st native.Status) {
		st, out = c.lib.DisplayNameExt(name.handle, nt)
		return st
	}); err != nil {
		return "", err
	}
	text, err := c.fromNative(&out)
	if err != nil {
		return "", err
	}
	return string(text), nil
}

// NameQuery selects the outputs InquireName asks the library for. Outputs
// that are not selected are not computed by the library at all.
type NameQuery struct {
	MechName   bool
	Attributes bool
}

// NameInfo is the output of InquireName. Fields that were not requested are
// left zero.
type NameInfo struct {
	Attributes [][]byte
	IsMechName bool
	Mech       asn1.ObjectIdentifier
}

// InquireName reports whether name is a mechanism name and lists its
// attribute keys, with gss_inquire_name.
func (c *Client) InquireName(name *Name, q NameQuery) (*NameInfo, error) {
	if name == nil {
		return nil, invalidInput("name is required")
	}

	var (
		isMN  bool
		mech  native.Buffer
		attrs native.BufferSet
	)
	if err := c.call(native.OpInquireName, func() (st native.Status) {
		st, isMN, mech, attrs = c.lib.InquireName(name.handle, q.MechName, q.Attributes)
		return st
	}); err != nil {
		return nil, err
	}

	info := &NameInfo{IsMechName: isMN}
	// The mechanism OID is library storage, decode it before any release.
	if q.MechName {
		oid, err := oidFromNative(mech)
		if err != nil {
			_, _ = c.fromNativeSet(&attrs)
			return nil, err
		}
		info.Mech = oid
	}
	keys, err := c.fromNativeSet(&attrs)
	if err != nil {
		return nil, err
	}
	if q.Attributes {
		info.Attributes = keys
	}
	return info, nil
}

// SetNameAttribute adds values to the attribute key of name, one
// gss_set_name_attribute call per value. complete is passed on the last call
// only, so the attribute is closed once every value is attached. The first
// failing call aborts; values already added stay added.
func (c *Client) SetNameAttribute(name *Name, key []byte, values [][]byte, complete bool) error {
	if name == nil {
		return invalidInput("name is required")
	}
	if len(values) == 0 {
		return invalidInput("at least one attribute value is required")
	}
	attr, err := toNative(key)
	if err != nil {
		return err
	}
	bufs := make([]native.Buffer, len(values))
	for i, v := range values {
		if bufs[i], err = toNative(v); err != nil {
			return fmt.Errorf("value %d: %w", i, err)
		}
	}

	last := len(bufs) - 1
	for i, v := range bufs {
		if err := c.call(native.OpSetNameAttribute, func() native.Status {
			return c.lib.SetNameAttribute(name.handle, complete && i == last, attr, v)
		}); err != nil {
			return fmt.Errorf("value %d of %d: %w", i+1, len(bufs), err)
		}
	}
	return nil
}

// Attribute is one name attribute. DisplayValues is parallel to Values; an
// entry is empty when the mechanism has no display form for that value.
type Attribute struct {
	Key           []byte
	Values        [][]byte
	DisplayValues []string
	Authenticated bool
	Complete      bool
}

// GetNameAttribute reads every value of the attribute key of name, calling
// gss_get_name_attribute until the library reports no more values.
func (c *Client) GetNameAttribute(name *Name, key []byte) (*Attribute, error) {
	if name == nil {
		return nil, invalidInput("name is required")
	}
	attr, err := toNative(key)
	if err != nil {
		return nil, err
	}

	result := &Attribute{
		Key:           append([]byte{}, key...),
		Values:        [][]byte{},
		DisplayValues: []string{},
	}
	more := -1
	for more != 0 {
		var (
			authenticated, complete bool
			value, display          native.Buffer
		)
		if err := c.call(native.OpGetNameAttribute, func() (st native.Status) {
			st, authenticated, complete, value, display = c.lib.GetNameAttribute(name.handle, attr, &more)
			return st
		}); err != nil {
			return nil, fmt.Errorf("value %d: %w", len(result.Values)+1, err)
		}

		out, err := c.fromNativeAll(&value, &display)
		if err != nil {
			return nil, fmt.Errorf("value %d: %w", len(result.Values)+1, err)
		}
		v := out[0]
		if v == nil {
			v = []byte{}
		}
		result.Values = append(result.Values, v)
		result.DisplayValues = append(result.DisplayValues, string(out[1]))
		result.Authenticated = authenticated
		result.Complete = complete
	}
	return result, nil
}

// DeleteNameAttribute removes the attribute key from name with
// gss_delete_name_attribute. An unknown attribute matches
// ErrOperationUnavailable and a protected one ErrUnauthorized.
func (c *Client) DeleteNameAttribute(name *Name, key []byte) error {
	if name == nil {
		return invalidInput("name is required")
	}
	attr, err := toNative(key)
	if err != nil {
		return err
	}
	return c.call(native.OpDeleteNameAttribute, func() native.Status {
		return c.lib.DeleteNameAttribute(name.handle, attr)
	})
}

// ExportNameComposite exports name together with its attributes with
// gss_export_name_composite. The token only re-imports through ImportName
// with NTCompositeExport. Some library versions expect the token as produced
// and do not canonicalise it again; callers should store it unmodified.
func (c *Client) ExportNameComposite(name *Name) ([]byte, error) {
	if name == nil {
		return nil, invalidInput("name is required")
	}

	var out native.Buffer
	if err := c.call(native.OpExportNameComposite, func() (st native.Status) {
		st, out = c.lib.ExportNameComposite(name.handle)
		return st
	}); err != nil {
		return nil, err
	}
	return c.fromNative(&out)
}
