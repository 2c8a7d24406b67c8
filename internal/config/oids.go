package config

import (
	"encoding/asn1"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/systmms/gssext/pkg/gssext"
	"github.com/systmms/gssext/pkg/native"
)

// oidAliases are the short names accepted wherever an OID is configured.
var oidAliases = map[string]asn1.ObjectIdentifier{
	"krb5":              gssext.MechKRB5,
	"user":              gssext.NTUserName,
	"hostbased-service": gssext.NTHostbasedService,
	"krb5-principal":    gssext.NTKRB5Principal,
	"export":            gssext.NTExportName,
	"composite-export":  gssext.NTCompositeExport,
	"no-ci-flags":       gssext.CredOptionNoCIFlags,
}

// OIDAliases lists the accepted aliases in sorted order.
func OIDAliases() []string {
	names := make([]string, 0, len(oidAliases))
	for name := range oidAliases {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParseOID accepts an alias such as "krb5" or a dotted-decimal OID such as
// "1.2.840.113554.1.2.2".
func ParseOID(s string) (asn1.ObjectIdentifier, error) {
	if oid, ok := oidAliases[s]; ok {
		return oid, nil
	}

	parts := strings.Split(s, ".")
	oid := make(asn1.ObjectIdentifier, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%q is neither a known alias (%s) nor a dotted OID", s, strings.Join(OIDAliases(), ", "))
		}
		oid[i] = n
	}
	if _, err := native.MarshalOID(oid); err != nil {
		return nil, err
	}
	return oid, nil
}
