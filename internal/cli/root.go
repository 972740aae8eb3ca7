// Package cli implements the reconcile operator command.
package cli

import (
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/listenupapp/libris/internal/reconcile"
)

// ErrUnhealthy is returned by scan when drift was found.
var ErrUnhealthy = errors.New("stores are out of sync")

// ValidFormats are the accepted --format values.
var ValidFormats = []string{"text", "json"}

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Format string
}

// Toolkit is what the commands operate on. Close releases the stores.
type Toolkit struct {
	Scanner  *reconcile.Scanner
	Repairer func(dryRun bool) *reconcile.Repairer
	Close    func() error
}

// Loader opens the stores on demand so --help never touches them.
type Loader func() (*Toolkit, error)

// NewRootCommand creates the reconcile root command.
func NewRootCommand(load Loader) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Detect and repair drift between the relational and document stores",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json)")

	cmd.AddCommand(NewScanCommand(opts, load))
	cmd.AddCommand(NewRepairCommand(opts, load))

	return cmd
}

func withToolkit(load Loader, fn func(*Toolkit) error) (err error) {
	tk, err := load()
	if err != nil {
		return fmt.Errorf("open stores: %w", err)
	}
	defer func() {
		if cerr := tk.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close stores: %w", cerr)
		}
	}()
	return fn(tk)
}
