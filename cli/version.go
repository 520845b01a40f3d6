package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/mizan"
)

// NewVersionCmd builds the version command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "displays version",
		Long:  "displays the version of this CLI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "mizan version %s\n", mizan.Version)
			return err
		},
	}
}
