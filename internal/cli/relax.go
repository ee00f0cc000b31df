package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/banshee-data/ensnano-geometry/internal/design"
	"github.com/banshee-data/ensnano-geometry/internal/monitoring"
	"github.com/banshee-data/ensnano-geometry/internal/plots"
	"github.com/banshee-data/ensnano-geometry/internal/relax"
	"github.com/banshee-data/ensnano-geometry/internal/security"
	"github.com/banshee-data/ensnano-geometry/internal/storage/sqlite"
)

// relaxFlags are the tuning fields the relax and sweep commands can
// override from the command line.
type relaxFlags struct {
	seed        uint64
	maxSteps    int
	granularity string
	budget      string
}

func (f *relaxFlags) register(cmd *cobra.Command) {
	cmd.Flags().Uint64Var(&f.seed, "seed", 1, "seed of the stall perturbation")
	cmd.Flags().IntVar(&f.maxSteps, "max-steps", 2000, "step budget")
	cmd.Flags().StringVar(&f.granularity, "granularity", "helices", "rigid bodies: helices or grids")
	cmd.Flags().StringVar(&f.budget, "budget", "30s", "wall clock budget, 0 for none")
}

// relaxConfig overlays the flags the user set onto the loaded tuning.
func (c *CLI) relaxConfig(cmd *cobra.Command, f *relaxFlags) (relax.Config, error) {
	t, err := c.tuningCopy()
	if err != nil {
		return relax.Config{}, err
	}
	flags := cmd.Flags()
	if flags.Changed("seed") {
		t.Seed = &f.seed
	}
	if flags.Changed("max-steps") {
		t.MaxSteps = &f.maxSteps
	}
	if flags.Changed("granularity") {
		t.Granularity = &f.granularity
	}
	if flags.Changed("budget") {
		t.WallClockBudget = &f.budget
	}
	if err := t.Validate(); err != nil {
		return relax.Config{}, err
	}
	cfg, err := relax.ConfigFromTuning(t)
	if err != nil {
		return relax.Config{}, err
	}
	return cfg, nil
}

type relaxOpts struct {
	relaxFlags
	out  string
	plot string
	db   string
	name string
}

// relaxCommand relaxes a design in the foreground.
func (c *CLI) relaxCommand() *cobra.Command {
	var opts relaxOpts
	cmd := &cobra.Command{
		Use:   "relax <design>",
		Short: "Relax a design as rigid bodies to lower its strain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.relaxConfig(cmd, &opts.relaxFlags)
			if err != nil {
				return err
			}
			d, err := c.loadDesign(args[0])
			if err != nil {
				return err
			}
			if opts.name == "" {
				opts.name = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			}
			return c.runRelax(cmd.Context(), cmd.OutOrStdout(), d, cfg, &opts)
		},
	}
	opts.register(cmd)
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "write the relaxed design here")
	cmd.Flags().StringVar(&opts.plot, "plot", "", "write the strain history (.png) or the layout (.html)")
	cmd.Flags().StringVar(&opts.db, "db", "", "record the run in this snapshot database")
	cmd.Flags().StringVar(&opts.name, "name", "", "snapshot name for --db (default: design file name)")
	return cmd
}

func (c *CLI) runRelax(ctx context.Context, w io.Writer, d *design.Design, cfg relax.Config, opts *relaxOpts) error {
	logger := monitoring.FromContext(ctx)
	progress := monitoring.NewProgress(logger)
	res, err := relax.Relax(ctx, d, cfg)
	if res == nil {
		return err
	}
	progress.Done(fmt.Sprintf("relaxation %s after %d steps", res.StopReason, res.Steps))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "initial strain\t%.6g\n", res.InitialStrain)
	fmt.Fprintf(tw, "final strain\t%.6g\n", res.FinalStrain)
	fmt.Fprintf(tw, "steps\t%d\n", res.Steps)
	fmt.Fprintf(tw, "converged\t%t\n", res.Converged)
	fmt.Fprintf(tw, "stop reason\t%s\n", res.StopReason)
	if ferr := tw.Flush(); ferr != nil {
		return ferr
	}

	// Artifacts describe the run even when it diverged or was stopped; the
	// relaxed design is only written for a clean finish.
	if opts.plot != "" {
		if perr := c.writePlot(opts.plot, res); perr != nil {
			return errors.Join(err, perr)
		}
	}
	if opts.db != "" {
		if rerr := c.recordRun(opts.db, opts.name, d, cfg, res); rerr != nil {
			return errors.Join(err, rerr)
		}
	}
	if err != nil {
		return err
	}
	if opts.out != "" {
		return c.saveDesign(res.Snapshot, opts.out)
	}
	return nil
}

func (c *CLI) writePlot(path string, res *relax.Result) error {
	render := func(w io.Writer) error {
		return plots.WriteStrainPNG(w, res.History, "Relaxation strain", true)
	}
	if strings.EqualFold(filepath.Ext(path), ".html") {
		render = func(w io.Writer) error {
			return plots.WriteLayoutHTML(w, res.Snapshot, res.History)
		}
	}
	clean, err := c.writeFile(path, security.PlotExts, render)
	if err != nil {
		return fmt.Errorf("plot: %w", err)
	}
	c.Logger.Info("wrote plot", "path", clean)
	return nil
}

// recordRun stores the input design as a snapshot and the run against it.
func (c *CLI) recordRun(dbPath, name string, d *design.Design, cfg relax.Config, res *relax.Result) error {
	store, err := sqlite.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()
	snap, err := store.SaveSnapshot(name, d)
	if err != nil {
		return err
	}
	run := sqlite.RunFromResult(snap.ID, cfg, res)
	if err := store.RecordRun(&run); err != nil {
		return err
	}
	c.Logger.Info("recorded run", "snapshot", snap.ID, "run", run.ID)
	return nil
}
