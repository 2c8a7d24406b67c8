package config

import (
	_ "embed"
	"encoding/asn1"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	dserrors "github.com/systmms/gssext/internal/errors"
	"github.com/systmms/gssext/internal/logging"
	"github.com/systmms/gssext/pkg/gssext"
	"github.com/systmms/gssext/pkg/native/memory"
)

// Backends accepted by the backend setting.
const (
	BackendNative = "native"
	BackendMemory = "memory"
)

//go:embed schema.json
var schema []byte

// Config holds the runtime configuration
type Config struct {
	Path   string
	Logger *logging.Logger

	// Backend overrides the configured backend when set, from --backend.
	Backend string

	Definition *Definition
	Settings   *Settings
}

// Definition is the gssext.yaml structure
type Definition struct {
	Version     int                `yaml:"version"`
	Backend     string             `yaml:"backend,omitempty"`
	Mechanism   string             `yaml:"mechanism,omitempty"`
	NameType    string             `yaml:"name_type,omitempty"`
	Credentials CredentialDefaults `yaml:"credentials,omitempty"`
	Memory      MemoryBackend      `yaml:"memory,omitempty"`
}

// CredentialDefaults are the defaults for 'cred add-password'. TTLs are Go
// durations or "indefinite".
type CredentialDefaults struct {
	Usage        string `yaml:"usage,omitempty"`
	InitiatorTTL string `yaml:"initiator_ttl,omitempty"`
	AcceptorTTL  string `yaml:"acceptor_ttl,omitempty"`
}

// MemoryBackend configures the in-memory backend. Principals maps a
// principal to its password and is meant for local testing only.
type MemoryBackend struct {
	TicketLifetime string            `yaml:"ticket_lifetime,omitempty"`
	Principals     map[string]string `yaml:"principals,omitempty"`
}

// Settings is a validated Definition with every value parsed.
type Settings struct {
	Backend        string
	Mechanism      asn1.ObjectIdentifier
	NameType       asn1.ObjectIdentifier
	Usage          gssext.CredUsage
	InitiatorTTL   *time.Duration
	AcceptorTTL    *time.Duration
	TicketLifetime time.Duration
	Principals     map[string]string
}

// Load reads and validates the gssext.yaml file. A missing file is not an
// error; every setting then takes its default.
func (c *Config) Load() error {
	def := &Definition{Version: 1}

	data, err := os.ReadFile(c.Path)
	switch {
	case os.IsNotExist(err):
		if c.Logger != nil {
			c.Logger.Debug("no configuration at %s, using defaults", c.Path)
		}
	case err != nil:
		return dserrors.UserError{
			Message:    "Failed to read configuration file",
			Details:    err.Error(),
			Suggestion: "Check file permissions and path",
			Err:        err,
		}
	default:
		if def, err = parse(data); err != nil {
			return err
		}
	}

	if c.Backend != "" {
		def.Backend = c.Backend
	}
	settings, err := def.Resolve()
	if err != nil {
		return err
	}
	c.Definition = def
	c.Settings = settings
	return nil
}

func parse(data []byte) (*Definition, error) {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, dserrors.ConfigError{
			Message:    "invalid YAML syntax in configuration file",
			Suggestion: "Check for indentation errors, missing quotes, or invalid characters. Use a YAML validator",
		}
	}
	if doc == nil {
		doc = map[string]interface{}{}
	}
	if err := validateSchema(doc); err != nil {
		return nil, err
	}

	def := &Definition{Version: 1}
	if err := yaml.Unmarshal(data, def); err != nil {
		return nil, dserrors.ConfigError{
			Message:    "configuration does not match the expected structure",
			Suggestion: err.Error(),
		}
	}
	return def, nil
}

func validateSchema(doc interface{}) error {
	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(schema), gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}

	var messages []string
	for _, desc := range result.Errors() {
		messages = append(messages, desc.String())
	}
	first := result.Errors()[0]
	return dserrors.ConfigError{
		Field:      first.Field(),
		Value:      first.Value(),
		Message:    "schema validation failed:\n  - " + strings.Join(messages, "\n  - "),
		Suggestion: "See the gssext.yaml reference for the accepted keys and values",
	}
}

// ParseTTL accepts a Go duration or "indefinite"; an empty string is
// indefinite and yields nil.
func ParseTTL(s string) (*time.Duration, error) {
	if s == "" || s == "indefinite" {
		return nil, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return nil, err
	}
	if d < 0 {
		return nil, fmt.Errorf("negative lifetime %s", s)
	}
	return &d, nil
}

func parseTTL(field, s string) (*time.Duration, error) {
	d, err := ParseTTL(s)
	if err != nil {
		return nil, dserrors.ConfigError{
			Field:      field,
			Value:      s,
			Message:    "invalid lifetime",
			Suggestion: "Use a duration such as '8h' or '90m', or 'indefinite'",
		}
	}
	return d, nil
}

// Resolve applies defaults and parses every value of d.
func (d *Definition) Resolve() (*Settings, error) {
	s := &Settings{
		Backend:        d.Backend,
		Usage:          gssext.UsageInitiate,
		TicketLifetime: memory.DefaultTicketLifetime,
		Principals:     d.Memory.Principals,
	}

	switch s.Backend {
	case "":
		s.Backend = BackendNative
	case BackendNative, BackendMemory:
	default:
		return nil, dserrors.ConfigError{
			Field:      "backend",
			Value:      d.Backend,
			Message:    "unknown backend",
			Suggestion: "Use 'native' or 'memory'",
		}
	}

	oids := []struct {
		field string
		value string
		def   string
		dst   *asn1.ObjectIdentifier
	}{
		{"mechanism", d.Mechanism, "krb5", &s.Mechanism},
		{"name_type", d.NameType, "krb5-principal", &s.NameType},
	}
	for _, o := range oids {
		v := o.value
		if v == "" {
			v = o.def
		}
		oid, err := ParseOID(v)
		if err != nil {
			return nil, dserrors.ConfigError{
				Field:      o.field,
				Value:      v,
				Message:    err.Error(),
				Suggestion: "Use one of " + strings.Join(OIDAliases(), ", ") + " or a dotted OID",
			}
		}
		*o.dst = oid
	}

	if d.Credentials.Usage != "" {
		usage, err := gssext.ParseCredUsage(d.Credentials.Usage)
		if err != nil {
			return nil, dserrors.ConfigError{
				Field:      "credentials.usage",
				Value:      d.Credentials.Usage,
				Message:    "unknown credential usage",
				Suggestion: "Use one of initiate, accept, both",
			}
		}
		s.Usage = usage
	}

	var err error
	if s.InitiatorTTL, err = parseTTL("credentials.initiator_ttl", d.Credentials.InitiatorTTL); err != nil {
		return nil, err
	}
	if s.AcceptorTTL, err = parseTTL("credentials.acceptor_ttl", d.Credentials.AcceptorTTL); err != nil {
		return nil, err
	}
	if d.Memory.TicketLifetime != "" {
		lifetime, err := time.ParseDuration(d.Memory.TicketLifetime)
		if err != nil || lifetime <= 0 {
			return nil, dserrors.ConfigError{
				Field:      "memory.ticket_lifetime",
				Value:      d.Memory.TicketLifetime,
				Message:    "invalid ticket lifetime",
				Suggestion: "Use a positive duration such as '10h'",
			}
		}
		s.TicketLifetime = lifetime
	}
	return s, nil
}
