package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/listenupapp/libris/internal/reconcile"
)

// NewRepairCommand creates the repair command.
func NewRepairCommand(rootOpts *RootOptions, load Loader) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "repair",
		Short: "Create placeholders for orphans and delete ghosts",
		Long: `Run a fresh scan and restore the one-to-one pairing between stores.
Books and members missing their document get a placeholder; documents
and profiles whose relational record is gone are deleted. Correlation
keys are never moved between records.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withToolkit(load, func(tk *Toolkit) error {
				result, err := tk.Repairer(dryRun).ScanAndRepair(cmd.Context())
				if result != nil {
					if werr := writeResult(cmd.OutOrStdout(), rootOpts.Format, result); werr != nil {
						return werr
					}
				}
				return err
			})
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "log the planned writes without applying them")
	return cmd
}

func writeResult(w io.Writer, format string, result *reconcile.RepairResult) error {
	if format == "json" {
		return writeJSON(w, result)
	}
	verb := "Applied"
	if result.DryRun {
		verb = "Planned"
	}
	_, err := fmt.Fprintf(w,
		"%s %d writes: %d documents created, %d documents deleted, %d counters created, %d profiles created, %d profiles deleted (%d skipped, %d failed)\n",
		verb, result.Total(),
		result.DocumentsCreated, result.DocumentsDeleted, result.CountersCreated,
		result.ProfilesCreated, result.ProfilesDeleted,
		result.Skipped, result.Failed,
	)
	return err
}
