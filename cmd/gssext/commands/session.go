package commands

import (
	"encoding/asn1"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/systmms/gssext/internal/config"
	dserrors "github.com/systmms/gssext/internal/errors"
	"github.com/systmms/gssext/internal/metrics"
	"github.com/systmms/gssext/pkg/gssext"
	"github.com/systmms/gssext/pkg/native"
	"github.com/systmms/gssext/pkg/native/cgss"
	"github.com/systmms/gssext/pkg/native/memory"
)

// session is what one command invocation needs from the configured backend.
type session struct {
	cfg    *config.Config
	client *gssext.Client
	// mem is set on the memory backend only
	mem *memory.Library
}

// openSession loads the configuration and opens its backend.
func openSession(cfg *config.Config) (*session, error) {
	if err := cfg.Load(); err != nil {
		return nil, err
	}
	s := cfg.Settings

	var lib native.Library
	switch s.Backend {
	case config.BackendMemory:
		mem := memory.New(memory.WithTicketLifetime(s.TicketLifetime))
		principals := make([]string, 0, len(s.Principals))
		for p := range s.Principals {
			principals = append(principals, p)
		}
		sort.Strings(principals)
		for _, p := range principals {
			mem.RegisterPrincipal(p, []byte(s.Principals[p]))
		}
		cfg.Logger.Debug("memory backend with %d principals", len(principals))
		lib = mem
	default:
		var err error
		if lib, err = cgss.Open(); err != nil {
			return nil, dserrors.NativeError("open the GSSAPI library", err)
		}
	}

	client := gssext.New(lib,
		gssext.WithLogger(cfg.Logger),
		gssext.WithObserver(metrics.NewRecorder()),
	)
	sess := &session{cfg: cfg, client: client}
	sess.mem, _ = lib.(*memory.Library)
	return sess, nil
}

// importName imports text with nameTypeFlag, falling back to the configured
// name type. The caller releases the name.
func (s *session) importName(text, nameTypeFlag string) (*gssext.Name, error) {
	nameType, err := oidFlag("name-type", nameTypeFlag, s.cfg.Settings.NameType)
	if err != nil {
		return nil, err
	}
	name, err := s.client.ImportName([]byte(text), nameType)
	if err != nil {
		return nil, dserrors.NativeError(fmt.Sprintf("import name %q", text), err)
	}
	return name, nil
}

func (s *session) release(name *gssext.Name) {
	if err := s.client.ReleaseName(name); err != nil {
		s.cfg.Logger.Warn("failed to release name: %v", err)
	}
}

func (s *session) releaseCredential(cred *gssext.Credential) {
	if err := s.client.ReleaseCredential(cred); err != nil {
		s.cfg.Logger.Warn("failed to release credential: %v", err)
	}
}

// oidFlag parses an OID flag value, or returns def when it is empty.
func oidFlag(flag, value string, def asn1.ObjectIdentifier) (asn1.ObjectIdentifier, error) {
	if value == "" {
		return def, nil
	}
	oid, err := config.ParseOID(value)
	if err != nil {
		return nil, fmt.Errorf("--%s: %w", flag, err)
	}
	return oid, nil
}

// addNameTypeFlag registers the --name-type flag shared by the name commands.
func addNameTypeFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVar(target, "name-type", "", "Name type alias or OID (default from config)")
}
