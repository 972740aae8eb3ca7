package cli

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"

	"github.com/listenupapp/libris/internal/reconcile"
)

// NewScanCommand creates the scan command.
func NewScanCommand(rootOpts *RootOptions, load Loader) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Report orphans and ghosts in both stores",
		Long: `Compare correlation keys across the relational and document stores
and print every book without a document, document without a book,
member without a profile, and profile without a member.

Exits non-zero when the stores are out of sync. Nothing is written.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withToolkit(load, func(tk *Toolkit) error {
				report, err := tk.Scanner.Scan(cmd.Context())
				if err != nil {
					return err
				}
				if err := writeReport(cmd.OutOrStdout(), rootOpts.Format, report); err != nil {
					return err
				}
				if !report.IsHealthy {
					return ErrUnhealthy
				}
				return nil
			})
		},
	}
}

func writeReport(w io.Writer, format string, report *reconcile.Report) error {
	if format == "json" {
		return writeJSON(w, report)
	}
	return report.WriteText(w)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
