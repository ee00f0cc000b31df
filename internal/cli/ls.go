package cli

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/banshee-data/ensnano-geometry/internal/security"
)

// lsCommand summarises the design files of a directory. Files that fail to
// load are listed as unreadable.
func (c *CLI) lsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ls [dir]",
		Short: "List the design files in a directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			files, err := c.FS.List(dir, security.DesignExts...)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "FILE\tVERSION\tHELICES\tSTRANDS\tGRIDS\tPARAMETERS")
			for _, f := range files {
				d, err := c.loadDesign(f)
				if err != nil {
					c.Logger.Warn("unreadable design", "path", f, "err", err)
					fmt.Fprintf(tw, "%s\t-\t-\t-\t-\tunreadable\n", filepath.Base(f))
					continue
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n", filepath.Base(f), d.Version,
					len(d.Helices), len(d.Strands), len(d.Grids), d.Parameters.ClosestNamedSet())
			}
			return tw.Flush()
		},
	}
}
