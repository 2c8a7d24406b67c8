// Package password reads the password handed to gss_add_cred_with_password
// from stdin, the OS keyring or an interactive prompt. Every source returns
// the password sealed in a secure.SecureBuffer.
package password

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/zalando/go-keyring"
	"golang.org/x/term"

	"github.com/systmms/gssext/internal/secure"
)

var (
	// ErrNotTerminal is returned by FromTerminal when stdin is not a TTY.
	ErrNotTerminal = errors.New("stdin is not a terminal; use --password-stdin or --password-keyring")

	// ErrKeyringItemNotFound is returned when the keyring has no entry for
	// the requested service and account.
	ErrKeyringItemNotFound = errors.New("keyring item not found")
)

// KeychainClient looks up a secret by service and account.
type KeychainClient interface {
	Query(service, account string) ([]byte, error)
}

// SystemKeyring is the KeychainClient backed by the platform keyring
// (Secret Service, macOS Keychain or Windows Credential Manager).
type SystemKeyring struct{}

// Query implements KeychainClient.
func (SystemKeyring) Query(service, account string) ([]byte, error) {
	secret, err := keyring.Get(service, account)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, ErrKeyringItemNotFound
		}
		return nil, err
	}
	return []byte(secret), nil
}

var _ KeychainClient = SystemKeyring{}

// FromStdin reads the first line of r. A trailing "\n" or "\r\n" is not part
// of the password; an empty line is an empty password.
func FromStdin(r io.Reader) (*secure.SecureBuffer, error) {
	line, err := bufio.NewReader(r).ReadBytes('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read password from stdin: %w", err)
	}
	if errors.Is(err, io.EOF) && len(line) == 0 {
		return nil, fmt.Errorf("failed to read password from stdin: %w", io.ErrUnexpectedEOF)
	}
	n := len(line)
	if n > 0 && line[n-1] == '\n' {
		n--
		if n > 0 && line[n-1] == '\r' {
			n--
		}
	}
	buf, serr := secure.NewSecureBuffer(line[:n])
	clear(line)
	return buf, serr
}

// ParseKeyringRef splits "service/account". The account may itself contain
// slashes; the service may not.
func ParseKeyringRef(ref string) (service, account string, err error) {
	service, account, ok := strings.Cut(ref, "/")
	if !ok || service == "" || account == "" {
		return "", "", fmt.Errorf("keyring reference %q must have the form service/account", ref)
	}
	return service, account, nil
}

// FromKeyring looks the password up with kc.
func FromKeyring(kc KeychainClient, ref string) (*secure.SecureBuffer, error) {
	service, account, err := ParseKeyringRef(ref)
	if err != nil {
		return nil, err
	}
	secret, err := kc.Query(service, account)
	if err != nil {
		return nil, fmt.Errorf("keyring %s/%s: %w", service, account, err)
	}
	buf, err := secure.NewSecureBuffer(secret)
	clear(secret)
	return buf, err
}

// FromTerminal prompts on w and reads a password from the terminal fd
// without echo.
func FromTerminal(fd int, w io.Writer, prompt string) (*secure.SecureBuffer, error) {
	if !term.IsTerminal(fd) {
		return nil, ErrNotTerminal
	}
	_, _ = fmt.Fprint(w, prompt)
	secret, err := term.ReadPassword(fd)
	_, _ = fmt.Fprintln(w)
	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}
	buf, err := secure.NewSecureBuffer(secret)
	clear(secret)
	return buf, err
}
