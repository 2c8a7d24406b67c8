// Package secure keeps passwords out of ordinary Go memory.
//
// Passwords read by the CLI are sealed into a memguard enclave straight away
// and only decrypted for the duration of the native call that consumes them:
//
//	buf, err := secure.NewSecureBuffer(pw)
//	if err != nil {
//	    return err
//	}
//	defer buf.Destroy()
//
//	err = buf.Use(func(plaintext []byte) error {
//	    _, err := client.AddCredWithPassword(name, gssext.MechKRB5, plaintext, gssext.UsageInitiate)
//	    return err
//	})
//
// The enclave is encrypted at rest and the opened buffer is mlocked where the
// platform allows it. Call memguard.Purge on exit to wipe anything left.
package secure
