// Package testutil provides test helpers shared by the gssext packages: a
// gssext.yaml builder and a logger that captures its output.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/systmms/gssext/internal/config"
	"github.com/systmms/gssext/internal/logging"
)

// TestConfigBuilder builds a gssext.yaml in a temporary directory.
//
// Example usage:
//
//	cfg := NewTestConfig(t).
//	    WithBackend(config.BackendMemory).
//	    WithPrincipal("alice@EXAMPLE.COM", "hunter2").
//	    Build(logger.Logger())
type TestConfigBuilder struct {
	def *config.Definition
	t   *testing.T
}

// NewTestConfig starts from a minimal valid configuration (version: 1).
func NewTestConfig(t *testing.T) *TestConfigBuilder {
	t.Helper()

	return &TestConfigBuilder{
		def: &config.Definition{Version: 1},
		t:   t,
	}
}

// WithBackend sets the backend key.
func (b *TestConfigBuilder) WithBackend(backend string) *TestConfigBuilder {
	b.def.Backend = backend
	return b
}

// WithPrincipal registers principal with the memory backend.
func (b *TestConfigBuilder) WithPrincipal(principal, password string) *TestConfigBuilder {
	if b.def.Memory.Principals == nil {
		b.def.Memory.Principals = make(map[string]string)
	}
	b.def.Memory.Principals[principal] = password
	return b
}

// WithCredentials sets the 'cred add-password' defaults.
func (b *TestConfigBuilder) WithCredentials(defaults config.CredentialDefaults) *TestConfigBuilder {
	b.def.Credentials = defaults
	return b
}

// Write marshals the configuration to gssext.yaml and returns its path.
func (b *TestConfigBuilder) Write() string {
	b.t.Helper()

	data, err := yaml.Marshal(b.def)
	if err != nil {
		b.t.Fatalf("Failed to marshal config: %v", err)
	}
	return WriteConfig(b.t, string(data))
}

// Build writes the configuration and returns an unloaded config.Config
// pointing at it.
func (b *TestConfigBuilder) Build(logger *logging.Logger) *config.Config {
	b.t.Helper()
	return &config.Config{Path: b.Write(), Logger: logger}
}

// WriteConfig writes content verbatim to a gssext.yaml in a temporary
// directory and returns its path.
func WriteConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "gssext.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}
