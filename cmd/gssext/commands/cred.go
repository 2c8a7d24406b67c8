package commands

import (
	"encoding/asn1"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/systmms/gssext/internal/config"
	dserrors "github.com/systmms/gssext/internal/errors"
	"github.com/systmms/gssext/internal/logging"
	"github.com/systmms/gssext/internal/password"
	"github.com/systmms/gssext/internal/secure"
	"github.com/systmms/gssext/pkg/gssext"
)

// NewCredCommand groups the credential commands.
func NewCredCommand(cfg *config.Config) *cobra.Command {
	return newCredCommand(cfg, password.SystemKeyring{})
}

func newCredCommand(cfg *config.Config, kc password.KeychainClient) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cred",
		Short: "Acquire password credentials and set credential options",
	}
	cmd.AddCommand(
		newCredAddPasswordCommand(cfg, kc),
		newCredSetOptionCommand(cfg),
	)
	return cmd
}

// credOption is one --option flag.
type credOption struct {
	oid      asn1.ObjectIdentifier
	label    string
	value    []byte
	hasValue bool
}

func parseCredOption(s string) (credOption, error) {
	oidText, valueText, hasValue := strings.Cut(s, "=")
	oid, err := config.ParseOID(oidText)
	if err != nil {
		return credOption{}, fmt.Errorf("--option %q: %w", s, err)
	}
	opt := credOption{oid: oid, label: oidText, hasValue: hasValue}
	if hasValue {
		if opt.value, err = hex.DecodeString(valueText); err != nil {
			return credOption{}, fmt.Errorf("--option %q: value must be hex: %w", s, err)
		}
	}
	return opt, nil
}

func (o credOption) apply() []gssext.CredOptionOption {
	if !o.hasValue {
		return nil
	}
	return []gssext.CredOptionOption{gssext.WithOptionValue(o.value)}
}

func formatTTL(d *time.Duration) string {
	if d == nil {
		return "indefinite"
	}
	return d.String()
}

// readPassword picks the password source: stdin, the keyring, or a prompt on
// the controlling terminal.
func readPassword(cmd *cobra.Command, kc password.KeychainClient, fromStdin bool, keyringRef, principal string) (*secure.SecureBuffer, error) {
	switch {
	case fromStdin && keyringRef != "":
		return nil, fmt.Errorf("--password-stdin and --password-keyring are mutually exclusive")
	case fromStdin:
		return password.FromStdin(cmd.InOrStdin())
	case keyringRef != "":
		return password.FromKeyring(kc, keyringRef)
	default:
		return password.FromTerminal(int(os.Stdin.Fd()), cmd.ErrOrStderr(), fmt.Sprintf("Password for %s: ", principal))
	}
}

func newCredAddPasswordCommand(cfg *config.Config, kc password.KeychainClient) *cobra.Command {
	var (
		nameType     string
		mech         string
		usage        string
		initiatorTTL string
		acceptorTTL  string
		options      []string
		fromStdin    bool
		keyringRef   string
	)

	cmd := &cobra.Command{
		Use:   "add-password <name>",
		Short: "Acquire a credential for a name from a password",
		Long: `Acquire a credential with gss_add_cred_with_password and report the
mechanisms and lifetimes the library granted. Options given with --option are
applied to the new credential with gss_set_cred_option.

The password is read from stdin (--password-stdin), the system keyring
(--password-keyring service/account) or an interactive prompt. It is kept in
encrypted memory and never logged.

The credential only lives for the duration of the command.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := make([]credOption, 0, len(options))
			for _, o := range options {
				opt, err := parseCredOption(o)
				if err != nil {
					return err
				}
				opts = append(opts, opt)
			}

			s, err := openSession(cfg)
			if err != nil {
				return err
			}
			settings := cfg.Settings

			credUsage := settings.Usage
			if usage != "" {
				if credUsage, err = gssext.ParseCredUsage(usage); err != nil {
					return fmt.Errorf("--usage: %w", err)
				}
			}
			mechOID, err := oidFlag("mech", mech, settings.Mechanism)
			if err != nil {
				return err
			}
			addOpts := []gssext.AddCredOption{}
			for _, ttl := range []struct {
				flag  string
				value string
				def   *time.Duration
				with  func(time.Duration) gssext.AddCredOption
			}{
				{"initiator-ttl", initiatorTTL, settings.InitiatorTTL, gssext.WithInitiatorTTL},
				{"acceptor-ttl", acceptorTTL, settings.AcceptorTTL, gssext.WithAcceptorTTL},
			} {
				d := ttl.def
				if ttl.value != "" {
					if d, err = config.ParseTTL(ttl.value); err != nil {
						return fmt.Errorf("--%s: %w", ttl.flag, err)
					}
				}
				if d != nil {
					addOpts = append(addOpts, ttl.with(*d))
				}
			}

			name, err := s.importName(args[0], nameType)
			if err != nil {
				return err
			}
			defer s.release(name)

			pw, err := readPassword(cmd, kc, fromStdin, keyringRef, args[0])
			if err != nil {
				return err
			}
			defer pw.Destroy()

			var res *gssext.AddCredResult
			err = pw.Use(func(plaintext []byte) error {
				cfg.Logger.Debug("acquiring %s with password %s", args[0], logging.Secret(plaintext))
				res, err = s.client.AddCredWithPassword(name, mechOID, plaintext, credUsage, addOpts...)
				return err
			})
			if err != nil {
				return dserrors.NativeError("acquire credential for "+args[0], err)
			}
			defer s.releaseCredential(res.Credential)

			for _, o := range opts {
				if _, err := s.client.SetCredOption(o.oid, append(o.apply(), gssext.WithCredential(res.Credential))...); err != nil {
					return dserrors.NativeError("set credential option "+o.label, err)
				}
			}

			printCredential(cmd.OutOrStdout(), args[0], credUsage, res, opts)
			return nil
		},
	}

	addNameTypeFlag(cmd, &nameType)
	cmd.Flags().StringVar(&mech, "mech", "", "Mechanism alias or OID (default from config)")
	cmd.Flags().StringVar(&usage, "usage", "", "Credential usage: initiate, accept or both (default from config)")
	cmd.Flags().StringVar(&initiatorTTL, "initiator-ttl", "", "Requested initiator lifetime, a duration or 'indefinite'")
	cmd.Flags().StringVar(&acceptorTTL, "acceptor-ttl", "", "Requested acceptor lifetime, a duration or 'indefinite'")
	cmd.Flags().StringArrayVar(&options, "option", nil, "Credential option as oid or oid=hexvalue (repeatable)")
	cmd.Flags().BoolVar(&fromStdin, "password-stdin", false, "Read the password from the first line of stdin")
	cmd.Flags().StringVar(&keyringRef, "password-keyring", "", "Read the password from the system keyring as service/account")

	return cmd
}

func printCredential(out io.Writer, principal string, usage gssext.CredUsage, res *gssext.AddCredResult, opts []credOption) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Principal:\t%s\n", principal)
	_, _ = fmt.Fprintf(w, "Usage:\t%s\n", usage)
	for _, m := range res.Mechanisms {
		_, _ = fmt.Fprintf(w, "Mechanism:\t%s\n", m)
	}
	_, _ = fmt.Fprintf(w, "Initiator TTL:\t%s\n", formatTTL(res.InitiatorTTL))
	_, _ = fmt.Fprintf(w, "Acceptor TTL:\t%s\n", formatTTL(res.AcceptorTTL))
	for _, o := range opts {
		_, _ = fmt.Fprintf(w, "Option:\t%s\n", o.label)
	}
	_ = w.Flush()
}

func newCredSetOptionCommand(cfg *config.Config) *cobra.Command {
	var value string

	cmd := &cobra.Command{
		Use:   "set-option <oid>",
		Short: "Set a credential option on a new credential",
		Long: `Call gss_set_cred_option without an input credential, letting the
mechanism create one. This checks whether the library accepts the option.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			optArg := args[0]
			if cmd.Flags().Changed("value") {
				optArg += "=" + value
			}
			opt, err := parseCredOption(optArg)
			if err != nil {
				return err
			}

			s, err := openSession(cfg)
			if err != nil {
				return err
			}
			cred, err := s.client.SetCredOption(opt.oid, opt.apply()...)
			if err != nil {
				return dserrors.NativeError("set credential option "+opt.label, err)
			}
			defer s.releaseCredential(cred)

			cfg.Logger.Info("Option %s accepted (%s)", opt.label, opt.oid)
			return nil
		},
	}

	cmd.Flags().StringVar(&value, "value", "", "Option value in hex; an explicit empty value differs from none")

	return cmd
}
