package cli

import (
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/ensnano-geometry/internal/units"
)

type frameOpts struct {
	helix    int
	index    int
	backward bool
	flat     bool
	units    string
}

// frameCommand prints the frame of one nucleotide as JSON.
func (c *CLI) frameCommand() *cobra.Command {
	var opts frameOpts
	cmd := &cobra.Command{
		Use:   "frame <design>",
		Short: "Print the 3-D or 2-D frame of a nucleotide",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			unit, err := units.Parse(opts.units)
			if err != nil {
				return err
			}
			d, err := c.loadDesign(args[0])
			if err != nil {
				return err
			}
			if opts.flat {
				f, err := d.ComputeFrame2D(opts.helix, opts.index)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), f)
			}
			f, err := d.ComputeFrame(opts.helix, opts.index, !opts.backward)
			if err != nil {
				return err
			}
			k := units.Scale(unit)
			f.Position = r3.Scale(k, f.Position)
			f.Axis = r3.Scale(k, f.Axis)
			return printJSON(cmd.OutOrStdout(), f)
		},
	}
	cmd.Flags().IntVar(&opts.helix, "helix", 0, "helix id")
	cmd.Flags().IntVarP(&opts.index, "index", "i", 0, "nucleotide index along the helix")
	cmd.Flags().BoolVar(&opts.backward, "backward", false, "frame of the backward strand")
	cmd.Flags().BoolVar(&opts.flat, "2d", false, "print the 2-D layout frame")
	cmd.Flags().StringVar(&opts.units, "units", units.NM, "length unit of 3-D frames: "+units.GetValidUnitsString())
	_ = cmd.MarkFlagRequired("helix")
	return cmd
}
