package gssext

import "github.com/systmms/gssext/pkg/native"

// Mechanism, name type and credential option OIDs.
var (
	MechKRB5 = native.OIDMechKRB5

	NTUserName         = native.OIDNTUserName
	NTHostbasedService = native.OIDNTHostbasedService
	NTKRB5Principal    = native.OIDNTKRB5Principal
	NTExportName       = native.OIDNTExportName

	// NTCompositeExport is the name type for tokens from ExportNameComposite.
	NTCompositeExport = native.OIDNTCompositeExport

	// CredOptionNoCIFlags is GSS_KRB5_CRED_NO_CI_FLAGS_X: omit the channel
	// binding and integrity flags from AP-REQ checksums.
	CredOptionNoCIFlags = native.OIDCredNoCIFlags
)
