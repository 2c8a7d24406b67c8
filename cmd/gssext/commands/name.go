package commands

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/systmms/gssext/internal/config"
	dserrors "github.com/systmms/gssext/internal/errors"
	"github.com/systmms/gssext/internal/logging"
	"github.com/systmms/gssext/pkg/gssext"
)

// NewNameCommand groups the name attribute commands.
func NewNameCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "name",
		Short: "Inspect names and export them with their attributes",
	}
	cmd.AddCommand(
		newNameInspectCommand(cfg),
		newNameExportCommand(cfg),
	)
	return cmd
}

// NameReport is the output of 'name inspect'.
type NameReport struct {
	Name       string            `json:"name"`
	MechName   bool              `json:"mech_name"`
	Mechanism  string            `json:"mechanism,omitempty"`
	Display    string            `json:"display,omitempty"`
	Attributes []AttributeReport `json:"attributes"`
}

// AttributeReport is one attribute of a NameReport. Values are shown in
// their display form when the mechanism has one, and in hex otherwise.
type AttributeReport struct {
	Key           string   `json:"key"`
	Values        []string `json:"values"`
	Authenticated bool     `json:"authenticated"`
	Complete      bool     `json:"complete"`
}

func attributeReport(a *gssext.Attribute) AttributeReport {
	r := AttributeReport{
		Key:           string(a.Key),
		Values:        make([]string, len(a.Values)),
		Authenticated: a.Authenticated,
		Complete:      a.Complete,
	}
	for i, v := range a.Values {
		if a.DisplayValues[i] != "" {
			r.Values[i] = a.DisplayValues[i]
		} else {
			r.Values[i] = "0x" + hex.EncodeToString(v)
		}
	}
	return r
}

// inspectName inquires name and drains every attribute it reports.
func inspectName(s *session, name *gssext.Name, text string) (*NameReport, error) {
	info, err := s.client.InquireName(name, gssext.NameQuery{MechName: true, Attributes: true})
	if err != nil {
		return nil, dserrors.NativeError("inquire name", err)
	}

	report := &NameReport{
		Name:       text,
		MechName:   info.IsMechName,
		Attributes: []AttributeReport{},
	}
	if info.Mech != nil {
		report.Mechanism = info.Mech.String()
	}
	for _, key := range info.Attributes {
		attr, err := s.client.GetNameAttribute(name, key)
		if err != nil {
			return nil, dserrors.NativeError(fmt.Sprintf("read attribute %q", key), err)
		}
		report.Attributes = append(report.Attributes, attributeReport(attr))
	}
	return report, nil
}

func newNameInspectCommand(cfg *config.Config) *cobra.Command {
	var (
		nameType  string
		displayAs string
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "inspect <name>",
		Short: "Show whether a name is a mechanism name and list its attributes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cfg)
			if err != nil {
				return err
			}
			name, err := s.importName(args[0], nameType)
			if err != nil {
				return err
			}
			defer s.release(name)

			report, err := inspectName(s, name, args[0])
			if err != nil {
				return err
			}
			if displayAs != "" {
				nt, err := config.ParseOID(displayAs)
				if err != nil {
					return fmt.Errorf("--display-as: %w", err)
				}
				if report.Display, err = s.client.DisplayNameExt(name, nt); err != nil {
					return dserrors.NativeError("display name as "+displayAs, err)
				}
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			printNameReport(cmd.OutOrStdout(), report)
			return nil
		},
	}

	addNameTypeFlag(cmd, &nameType)
	cmd.Flags().StringVar(&displayAs, "display-as", "", "Also render the name in this name type (alias or OID)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")

	return cmd
}

func printNameReport(out io.Writer, r *NameReport) {
	_, _ = fmt.Fprintf(out, "Name:       %s\n", r.Name)
	_, _ = fmt.Fprintf(out, "Mech name:  %t\n", r.MechName)
	if r.Mechanism != "" {
		_, _ = fmt.Fprintf(out, "Mechanism:  %s\n", r.Mechanism)
	}
	if r.Display != "" {
		_, _ = fmt.Fprintf(out, "Display:    %s\n", r.Display)
	}
	if len(r.Attributes) == 0 {
		_, _ = fmt.Fprintln(out, "Attributes: none")
		return
	}

	_, _ = fmt.Fprintln(out)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "ATTRIBUTE\tAUTHENTICATED\tCOMPLETE\tVALUES\n")
	_, _ = fmt.Fprintf(w, "---------\t-------------\t--------\t------\n")
	for _, a := range r.Attributes {
		_, _ = fmt.Fprintf(w, "%s\t%t\t%t\t%s\n", a.Key, a.Authenticated, a.Complete, strings.Join(a.Values, ", "))
	}
	_ = w.Flush()
}

// attributeAssignment groups the --set values of one key, in flag order.
type attributeAssignment struct {
	key    string
	values [][]byte
}

func parseAssignments(sets []string) ([]attributeAssignment, error) {
	var out []attributeAssignment
	index := map[string]int{}
	for _, set := range sets {
		key, value, ok := strings.Cut(set, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("--set %q must have the form key=value", set)
		}
		i, seen := index[key]
		if !seen {
			i = len(out)
			index[key] = i
			out = append(out, attributeAssignment{key: key})
		}
		out[i].values = append(out[i].values, []byte(value))
	}
	return out, nil
}

func newNameExportCommand(cfg *config.Config) *cobra.Command {
	var (
		nameType string
		sets     []string
		deletes  []string
		complete bool
	)

	cmd := &cobra.Command{
		Use:   "export <name>",
		Short: "Export a name with its attributes as a composite token",
		Long: `Import a name, apply attribute changes and print the result of
gss_export_name_composite, base64 encoded.

The token re-imports with the composite-export name type. Store it exactly as
printed; some GSSAPI libraries do not canonicalise it again on import.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			assignments, err := parseAssignments(sets)
			if err != nil {
				return err
			}

			s, err := openSession(cfg)
			if err != nil {
				return err
			}
			name, err := s.importName(args[0], nameType)
			if err != nil {
				return err
			}
			defer s.release(name)

			for _, a := range assignments {
				if err := s.client.SetNameAttribute(name, []byte(a.key), a.values, complete); err != nil {
					return dserrors.NativeError(fmt.Sprintf("set attribute %q", a.key), err)
				}
				for _, v := range a.values {
					cfg.Logger.Debug("set %s = %s", a.key, logging.Secret(v))
				}
			}
			for _, key := range deletes {
				if err := s.client.DeleteNameAttribute(name, []byte(key)); err != nil {
					return dserrors.NativeError(fmt.Sprintf("delete attribute %q", key), err)
				}
			}

			token, err := s.client.ExportNameComposite(name)
			if err != nil {
				return dserrors.NativeError("export name", err)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), base64.StdEncoding.EncodeToString(token))
			return nil
		},
	}

	addNameTypeFlag(cmd, &nameType)
	cmd.Flags().StringArrayVar(&sets, "set", nil, "Add an attribute value as key=value (repeatable)")
	cmd.Flags().StringArrayVar(&deletes, "delete", nil, "Delete an attribute (repeatable)")
	cmd.Flags().BoolVar(&complete, "complete", false, "Mark each set attribute complete after its last value")

	return cmd
}
