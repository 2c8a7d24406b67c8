package native

import (
	"encoding/asn1"
	"errors"
	"fmt"

	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
)

// ErrBadOID is returned when an OID cannot be encoded or the native layer
// hands back bytes that do not decode as an OID.
var ErrBadOID = errors.New("malformed object identifier")

// MarshalOID returns the DER contents of oid, the form gss_OID_desc.elements
// carries (no tag and no length prefix).
func MarshalOID(oid asn1.ObjectIdentifier) ([]byte, error) {
	if len(oid) < 2 {
		return nil, fmt.Errorf("%w: %v", ErrBadOID, oid)
	}
	var b cryptobyte.Builder
	b.AddASN1ObjectIdentifier(oid)
	der, err := b.Bytes()
	if err != nil {
		return nil, fmt.Errorf("%w: %v: %v", ErrBadOID, oid, err)
	}

	s := cryptobyte.String(der)
	var contents cryptobyte.String
	if !s.ReadASN1(&contents, cbasn1.OBJECT_IDENTIFIER) {
		return nil, fmt.Errorf("%w: %v", ErrBadOID, oid)
	}
	return []byte(contents), nil
}

// UnmarshalOID decodes DER contents as produced by MarshalOID.
func UnmarshalOID(contents []byte) (asn1.ObjectIdentifier, error) {
	if len(contents) == 0 {
		return nil, fmt.Errorf("%w: empty encoding", ErrBadOID)
	}
	var b cryptobyte.Builder
	b.AddASN1(cbasn1.OBJECT_IDENTIFIER, func(child *cryptobyte.Builder) {
		child.AddBytes(contents)
	})
	der, err := b.Bytes()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadOID, err)
	}

	s := cryptobyte.String(der)
	var oid asn1.ObjectIdentifier
	if !s.ReadASN1ObjectIdentifier(&oid) || !s.Empty() {
		return nil, fmt.Errorf("%w: % x", ErrBadOID, contents)
	}
	return oid, nil
}

// MustMarshalOID is MarshalOID for package-level tables of well-known OIDs.
func MustMarshalOID(oid asn1.ObjectIdentifier) []byte {
	der, err := MarshalOID(oid)
	if err != nil {
		panic(err)
	}
	return der
}

// Well-known object identifiers.
var (
	OIDMechKRB5           = asn1.ObjectIdentifier{1, 2, 840, 113554, 1, 2, 2}
	OIDNTUserName         = asn1.ObjectIdentifier{1, 2, 840, 113554, 1, 2, 1, 1}
	OIDNTHostbasedService = asn1.ObjectIdentifier{1, 2, 840, 113554, 1, 2, 1, 4}
	OIDNTKRB5Principal    = asn1.ObjectIdentifier{1, 2, 840, 113554, 1, 2, 2, 1}
	OIDNTExportName       = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 6, 4}
	OIDNTCompositeExport  = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 6, 6}

	// OIDCredNoCIFlags is GSS_KRB5_CRED_NO_CI_FLAGS_X.
	OIDCredNoCIFlags = asn1.ObjectIdentifier{1, 2, 752, 43, 13, 29}
)
