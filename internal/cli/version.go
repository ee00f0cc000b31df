package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/banshee-data/ensnano-geometry/internal/version"
)

func (c *CLI) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", appName, version.String())
			return err
		},
	}
}
