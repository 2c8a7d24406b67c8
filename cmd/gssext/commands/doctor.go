package commands

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/systmms/gssext/internal/config"
	"github.com/systmms/gssext/internal/metrics"
	"github.com/systmms/gssext/pkg/gssext"
	"github.com/systmms/gssext/pkg/native/memory"
)

const (
	doctorPrincipal = "doctor@EXAMPLE.COM"
	doctorAttribute = "urn:gssext:doctor"
)

// CheckResult is one row of the doctor report.
type CheckResult struct {
	Name    string
	Status  string // ok, skipped, unavailable, error
	Message string
}

func checkError(name string, err error) CheckResult {
	if errors.Is(err, gssext.ErrOperationUnavailable) {
		return CheckResult{Name: name, Status: "unavailable", Message: err.Error()}
	}
	return CheckResult{Name: name, Status: "error", Message: err.Error()}
}

func NewDoctorCommand(cfg *config.Config) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the configuration and exercise the extension calls",
		Long: `Verify that the configured backend is usable.

This command checks:
- Configuration file validity
- That the GSSAPI library can be opened
- AEAD wrap and unwrap (memory backend only, it needs a security context)
- Name attribute set, get and delete
- Composite export and re-import
- That every native allocation was released (memory backend only)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			cfg.Logger.Info("Checking gssext configuration...")
			s, err := openSession(cfg)
			if err != nil {
				cfg.Logger.Error("Setup error: %v", err)
				return err
			}
			cfg.Logger.Info("Configuration loaded, backend %s", cfg.Settings.Backend)

			results := runChecks(s)
			displayCheckResults(out, results)

			if verbose {
				summary, err := metrics.Summary(prometheus.DefaultGatherer)
				if err != nil {
					return err
				}
				displayCallSummary(out, summary)
			}

			failed := 0
			for _, r := range results {
				if r.Status == "error" {
					failed++
				}
			}
			_, _ = fmt.Fprintf(out, "\nSummary: %d/%d checks failed\n", failed, len(results))
			if failed > 0 {
				return fmt.Errorf("%d checks failed", failed)
			}

			cfg.Logger.Info("All checks passed")
			return nil
		},
	}

	cmd.Flags().BoolVar(&verbose, "verbose", false, "Also print a summary of the native calls made")

	return cmd
}

func runChecks(s *session) []CheckResult {
	results := []CheckResult{checkAEAD(s)}

	name, err := s.client.ImportName([]byte(doctorPrincipal), gssext.NTKRB5Principal)
	if err != nil {
		results = append(results, checkError("import name", err))
		return append(results, checkBalance(s))
	}
	defer func() {
		if err := s.client.ReleaseName(name); err != nil {
			s.cfg.Logger.Warn("failed to release name: %v", err)
		}
	}()

	attrs := checkAttributes(s, name)
	results = append(results, attrs)
	results = append(results, checkCompositeExport(s, name, attrs.Status == "ok"))
	if attrs.Status == "ok" {
		results = append(results, checkDelete(s, name))
	}

	// The name is still held here, so the balance only covers buffers.
	return append(results, checkBalance(s))
}

func checkAEAD(s *session) CheckResult {
	const check = "aead wrap/unwrap"
	if s.mem == nil {
		return CheckResult{Name: check, Status: "skipped", Message: "needs an established security context"}
	}

	ic, ac, err := s.mem.NewContextPair(memory.ContextOptions{})
	if err != nil {
		return checkError(check, err)
	}
	defer s.mem.DeleteContext(ic)
	defer s.mem.DeleteContext(ac)
	initiator, acceptor := gssext.NewSecurityContext(ic), gssext.NewSecurityContext(ac)

	payload := []byte("gssext doctor")
	assoc := gssext.WithAssociatedData([]byte("header"))
	wrapped, err := s.client.WrapAEAD(initiator, payload, assoc)
	if err != nil {
		return checkError(check, err)
	}
	got, err := s.client.UnwrapAEAD(acceptor, wrapped.Message, assoc)
	if err != nil {
		return checkError(check, err)
	}
	if !bytes.Equal(got.Payload, payload) {
		return CheckResult{Name: check, Status: "error", Message: "payload changed in transit"}
	}
	if _, err := s.client.UnwrapAEAD(acceptor, wrapped.Message); err == nil {
		return CheckResult{Name: check, Status: "error", Message: "token unwrapped without its associated data"}
	}
	return CheckResult{Name: check, Status: "ok", Message: fmt.Sprintf("confidential=%t", wrapped.Confidential)}
}

func checkAttributes(s *session, name *gssext.Name) CheckResult {
	const check = "name attributes"
	values := [][]byte{[]byte("one"), []byte("two")}
	if err := s.client.SetNameAttribute(name, []byte(doctorAttribute), values, true); err != nil {
		return checkError(check, err)
	}
	attr, err := s.client.GetNameAttribute(name, []byte(doctorAttribute))
	if err != nil {
		return checkError(check, err)
	}
	if len(attr.Values) != len(values) || !attr.Complete {
		return CheckResult{Name: check, Status: "error", Message: fmt.Sprintf("read back %d values, complete=%t", len(attr.Values), attr.Complete)}
	}
	return CheckResult{Name: check, Status: "ok", Message: fmt.Sprintf("%d values round-tripped", len(attr.Values))}
}

func checkCompositeExport(s *session, name *gssext.Name, expectAttribute bool) CheckResult {
	const check = "composite export"
	token, err := s.client.ExportNameComposite(name)
	if err != nil {
		return checkError(check, err)
	}
	back, err := s.client.ImportName(token, gssext.NTCompositeExport)
	if err != nil {
		return checkError(check, err)
	}
	defer func() { _ = s.client.ReleaseName(back) }()

	if expectAttribute {
		info, err := s.client.InquireName(back, gssext.NameQuery{Attributes: true})
		if err != nil {
			return checkError(check, err)
		}
		found := false
		for _, key := range info.Attributes {
			found = found || string(key) == doctorAttribute
		}
		if !found {
			return CheckResult{Name: check, Status: "error", Message: "attributes lost on re-import"}
		}
	}
	return CheckResult{Name: check, Status: "ok", Message: fmt.Sprintf("%d byte token re-imported", len(token))}
}

func checkDelete(s *session, name *gssext.Name) CheckResult {
	const check = "attribute delete"
	if err := s.client.DeleteNameAttribute(name, []byte(doctorAttribute)); err != nil {
		return checkError(check, err)
	}
	_, err := s.client.GetNameAttribute(name, []byte(doctorAttribute))
	if !errors.Is(err, gssext.ErrOperationUnavailable) {
		return CheckResult{Name: check, Status: "error", Message: "attribute still readable after delete"}
	}
	return CheckResult{Name: check, Status: "ok"}
}

func checkBalance(s *session) CheckResult {
	const check = "release balance"
	if s.mem == nil {
		return CheckResult{Name: check, Status: "skipped", Message: "only tracked by the memory backend"}
	}
	stats := s.mem.Stats()
	if stats.Outstanding() != 0 || stats.InvalidReleases != 0 {
		return CheckResult{Name: check, Status: "error", Message: fmt.Sprintf("%d outstanding, %d invalid releases", stats.Outstanding(), stats.InvalidReleases)}
	}
	return CheckResult{Name: check, Status: "ok", Message: fmt.Sprintf("%d buffers released", stats.BuffersReleased)}
}

// displayCheckResults shows the checks in a formatted table
func displayCheckResults(out io.Writer, results []CheckResult) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintf(w, "CHECK\tSTATUS\tMESSAGE\n")
	_, _ = fmt.Fprintf(w, "-----\t------\t-------\n")

	for _, r := range results {
		status := r.Status
		switch r.Status {
		case "ok":
			status = "✓ " + status
		case "error":
			status = "✗ " + status
		default:
			status = "- " + status
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", r.Name, status, r.Message)
	}

	_ = w.Flush()
}

func displayCallSummary(out io.Writer, summary []metrics.CallSummary) {
	_, _ = fmt.Fprintln(out, "\nNative calls:")
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "OPERATION\tSTATUS\tCALLS\n")
	for _, c := range summary {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\n", c.Op, c.Status, c.Count)
	}
	_ = w.Flush()
}
