package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/ensnano-geometry/internal/design"
	"github.com/banshee-data/ensnano-geometry/internal/dna"
	"github.com/banshee-data/ensnano-geometry/internal/fsutil"
	"github.com/banshee-data/ensnano-geometry/internal/geom"
	"github.com/banshee-data/ensnano-geometry/internal/grid"
)

type newOpts struct {
	grid  string
	rows  int
	cols  int
	force bool
}

// newCommand writes an empty design, optionally with one grid filled with
// a block of helices.
func (c *CLI) newCommand() *cobra.Command {
	var opts newOpts
	cmd := &cobra.Command{
		Use:   "new <out>",
		Short: "Create a design with the tuned DNA parameters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !opts.force && fsutil.Exists(c.FS, args[0]) {
				return fmt.Errorf("%s exists, use --force to replace it", args[0])
			}
			d, err := c.newDesign(opts)
			if err != nil {
				return err
			}
			return c.saveDesign(d, args[0])
		},
	}
	cmd.Flags().StringVar(&opts.grid, "grid", "", "add a grid: Square, Honeycomb or Free")
	cmd.Flags().IntVar(&opts.rows, "rows", 0, "rows of helices to place on the grid")
	cmd.Flags().IntVar(&opts.cols, "cols", 0, "columns of helices to place on the grid")
	cmd.Flags().BoolVarP(&opts.force, "force", "f", false, "replace an existing file")
	return cmd
}

func (c *CLI) newDesign(opts newOpts) (*design.Design, error) {
	p, err := dna.ParametersFromTuning(c.tuning)
	if err != nil {
		return nil, err
	}
	d := design.New(p)
	if opts.grid == "" {
		if opts.rows > 0 || opts.cols > 0 {
			return nil, fmt.Errorf("--rows and --cols need --grid")
		}
		return d, nil
	}
	t, err := grid.ParseType(opts.grid)
	if err != nil {
		return nil, err
	}
	if opts.rows < 0 || opts.cols < 0 {
		return nil, fmt.Errorf("--rows and --cols must not be negative")
	}
	gid := d.AddGrid(grid.New(r3.Vec{}, geom.Identity(), t))
	for y := range opts.rows {
		for x := range opts.cols {
			if _, err := d.AddHelixOnGrid(gid, x, y, 0, 0); err != nil {
				return nil, err
			}
		}
	}
	c.Logger.Debug("created design", "grid", t, "helices", len(d.Helices))
	return d, nil
}
