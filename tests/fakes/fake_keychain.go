package fakes

import (
	"github.com/systmms/gssext/internal/password"
)

// FakeKeychainClient is a test double for password.KeychainClient
type FakeKeychainClient struct {
	// Secrets is a map of service -> account -> value
	Secrets map[string]map[string][]byte

	// QueryErr is returned by Query() if set (overrides Secrets lookup)
	QueryErr error

	// Queries records every service/account pair looked up
	Queries []string
}

// NewFakeKeychainClient creates an empty fake keychain
func NewFakeKeychainClient() *FakeKeychainClient {
	return &FakeKeychainClient{
		Secrets: make(map[string]map[string][]byte),
	}
}

// SetSecret adds a secret to the fake keychain
func (f *FakeKeychainClient) SetSecret(service, account string, value []byte) {
	if f.Secrets == nil {
		f.Secrets = make(map[string]map[string][]byte)
	}
	if f.Secrets[service] == nil {
		f.Secrets[service] = make(map[string][]byte)
	}
	f.Secrets[service][account] = value
}

// Query returns a copy of the stored secret, since callers wipe what they
// receive.
func (f *FakeKeychainClient) Query(service, account string) ([]byte, error) {
	f.Queries = append(f.Queries, service+"/"+account)
	if f.QueryErr != nil {
		return nil, f.QueryErr
	}

	if accounts, ok := f.Secrets[service]; ok {
		if value, ok := accounts[account]; ok {
			return append([]byte{}, value...), nil
		}
	}
	return nil, password.ErrKeyringItemNotFound
}

// Ensure FakeKeychainClient implements password.KeychainClient
var _ password.KeychainClient = (*FakeKeychainClient)(nil)
