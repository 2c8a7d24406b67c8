package native

// Operation names, used for logging, metrics and call logs.
const (
	OpWrapAEAD            = "gss_wrap_aead"
	OpUnwrapAEAD          = "gss_unwrap_aead"
	OpAddCredWithPassword = "gss_add_cred_with_password"
	OpDisplayNameExt      = "gss_display_name_ext"
	OpInquireName         = "gss_inquire_name"
	OpSetNameAttribute    = "gss_set_name_attribute"
	OpGetNameAttribute    = "gss_get_name_attribute"
	OpDeleteNameAttribute = "gss_delete_name_attribute"
	OpExportNameComposite = "gss_export_name_composite"
	OpSetCredOption       = "gss_set_cred_option"
	OpImportName          = "gss_import_name"
	OpReleaseName         = "gss_release_name"
	OpReleaseCred         = "gss_release_cred"
	OpReleaseBuffer       = "gss_release_buffer"
	OpReleaseBufferSet    = "gss_release_buffer_set"
	OpReleaseOidSet       = "gss_release_oid_set"
)
